//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// configureDaemonAttrs detaches the child from the controlling terminal.
func configureDaemonAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // new session, no controlling TTY
	}
}
