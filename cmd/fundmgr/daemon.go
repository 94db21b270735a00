package main

import (
	"fmt"
	"os"
	"os/exec"
)

// daemonize re-execs the current binary as a detached foreground start.
// The child carries FUNDMGR_DAEMON=1 so it serves instead of forking
// again; its daemon record is written by the controller once it is about
// to enter the scheduler loop. Returns the child PID.
func daemonize(configPath, logFile string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("locate executable: %w", err)
	}

	// #nosec 204
	cmd := exec.Command(executable, "start", "--foreground", "--config", configPath)
	cmd.Env = append(os.Environ(), "FUNDMGR_DAEMON=1")
	configureDaemonAttrs(cmd)

	cmd.Stdin = nil
	if logFile != "" {
		// #nosec 304
		logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = logF.Close() }()
		cmd.Stdout = logF
		cmd.Stderr = logF
	} else {
		cmd.Stdout = nil
		cmd.Stderr = nil
	}

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	// Detach; the child is reparented when this process exits.
	_ = cmd.Process.Release()
	return pid, nil
}
