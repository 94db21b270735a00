package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/config"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/daemon"
)

type command struct {
	flags *GlobalFlags
}

func (c command) loadConfig() (*config.FileConfig, error) {
	fc, err := config.Load(c.flags.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", c.flags.ConfigPath, err)
	}
	return fc, nil
}

// Start launches the daemon. Without --foreground the process re-execs
// itself detached from the terminal and the parent exits once the child is
// spawned; the child refuses to start when a live daemon record exists.
func (c command) Start(f StartFlags) error {
	fc, err := c.loadConfig()
	if err != nil {
		return err
	}

	ctrl := daemon.NewController(fc.Daemon.PIDFile, fc.Daemon.StopTimeout, nil)
	if err := ctrl.EnsureNotRunning(); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return exitError{code: exitFailure, msg: err.Error()}
		}
		return err
	}

	if !f.Foreground && !daemonized() {
		pid, err := daemonize(c.flags.ConfigPath, fc.Log.File)
		if err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
		fmt.Printf("fundmgr started (pid %d)\n", pid)
		return nil
	}
	return serve(fc)
}

// Stop signals the running daemon and waits for it to exit.
func (c command) Stop() error {
	fc, err := c.loadConfig()
	if err != nil {
		return err
	}
	ctrl := daemon.NewController(fc.Daemon.PIDFile, fc.Daemon.StopTimeout, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fc.Daemon.StopTimeout+5*time.Second)
	defer cancel()
	forced, err := ctrl.Stop(ctx)
	if errors.Is(err, daemon.ErrNotRunning) {
		fmt.Println("fundmgr is not running")
		return exitError{code: exitNotRunning}
	}
	if err != nil {
		return err
	}
	if forced {
		fmt.Println("fundmgr stopped (killed after timeout)")
	} else {
		fmt.Println("fundmgr stopped")
	}
	return nil
}

// Restart stops any running daemon, then starts a fresh one in the
// background. A daemon that was not running is not an error here.
func (c command) Restart() error {
	fc, err := c.loadConfig()
	if err != nil {
		return err
	}
	ctrl := daemon.NewController(fc.Daemon.PIDFile, fc.Daemon.StopTimeout, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fc.Daemon.StopTimeout+5*time.Second)
	defer cancel()
	if _, err := ctrl.Stop(ctx); err != nil && !errors.Is(err, daemon.ErrNotRunning) {
		return err
	}

	pid, err := daemonize(c.flags.ConfigPath, fc.Log.File)
	if err != nil {
		return fmt.Errorf("daemonize: %w", err)
	}
	fmt.Printf("fundmgr restarted (pid %d)\n", pid)
	return nil
}

// Status prints a one-line state summary. A stopped daemon exits with
// status 3 so wrapper scripts can branch on it.
func (c command) Status() error {
	fc, err := c.loadConfig()
	if err != nil {
		return err
	}
	ctrl := daemon.NewController(fc.Daemon.PIDFile, fc.Daemon.StopTimeout, nil)

	st, err := ctrl.Status()
	if err != nil {
		return err
	}
	if st.State != daemon.StateRunning {
		fmt.Println("fundmgr is not running")
		return exitError{code: exitNotRunning}
	}
	fmt.Printf("fundmgr is running (pid %d, uptime %s)\n", st.PID, st.Uptime.Round(time.Second))
	return nil
}

// RunOnce produces and delivers a single report synchronously, bypassing
// the scheduler and the daemon lifecycle.
func (c command) RunOnce() error {
	fc, err := c.loadConfig()
	if err != nil {
		return err
	}
	run, body, err := runOnce(context.Background(), fc)
	if err != nil && body == "" {
		return err
	}
	fmt.Println(body)
	fmt.Printf("run %s finished: %s (%d/%d holdings ok)\n",
		run.ID, run.Outcome, len(run.Holdings)-run.FailedCount(), len(run.Holdings))
	if err != nil {
		return exitError{code: exitFailure, msg: err.Error()}
	}
	return nil
}

// daemonized reports whether this process is already the detached child.
func daemonized() bool { return os.Getenv("FUNDMGR_DAEMON") == "1" }
