package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	// ErrAlreadyRunning is returned by start paths when a valid record exists.
	ErrAlreadyRunning = errors.New("daemon already running")
	// ErrNotRunning is returned by stop/status paths when no valid record exists.
	ErrNotRunning = errors.New("daemon not running")
)

// State is the externally observable daemon state, derived at query time from
// record validity and process liveness. It is never cached.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Status describes the daemon as seen from an out-of-band control invocation.
type Status struct {
	State  State         `json:"state"`
	PID    int           `json:"pid,omitempty"`
	Uptime time.Duration `json:"uptime,omitempty"`
}

const defaultPollInterval = 100 * time.Millisecond

// Controller owns the daemon lifecycle. Control operations (Stop, Status) act
// on the record file, not on in-process state, so they work from short-lived
// operator invocations. The record file is the mutual-exclusion primitive for
// "one daemon instance"; Run writes it as the last step before serving.
type Controller struct {
	pidFile      string
	stopTimeout  time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewController builds a controller for the given record path. stopTimeout
// bounds how long Stop waits for a graceful exit before escalating.
func NewController(pidFile string, stopTimeout time.Duration, logger *slog.Logger) *Controller {
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		pidFile:      pidFile,
		stopTimeout:  stopTimeout,
		pollInterval: defaultPollInterval,
		logger:       logger,
	}
}

// PIDFile returns the record path the controller operates on.
func (c *Controller) PIDFile() string { return c.pidFile }

// Status reports Running (with PID and uptime) or Stopped. A record whose
// process is dead or reused is removed as a side effect, so a crashed daemon
// heals on the next query.
func (c *Controller) Status() (Status, error) {
	rec, err := ReadRecord(c.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return Status{State: StateStopped}, nil
		}
		return Status{State: StateStopped}, err
	}
	if !rec.Alive() {
		c.logger.Info("removing stale daemon record", "pid", rec.PID, "pidfile", c.pidFile)
		if rmErr := RemoveRecord(c.pidFile); rmErr != nil {
			return Status{State: StateStopped}, rmErr
		}
		return Status{State: StateStopped}, nil
	}
	return Status{State: StateRunning, PID: rec.PID, Uptime: rec.Uptime(time.Now())}, nil
}

// EnsureNotRunning fails with ErrAlreadyRunning when a valid record exists.
// Stale records are self-healed exactly like Status.
func (c *Controller) EnsureNotRunning() error {
	st, err := c.Status()
	if err != nil {
		return err
	}
	if st.State == StateRunning {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, st.PID)
	}
	return nil
}

// Stop requests graceful termination of the recorded process and polls for
// exit up to the stop timeout; if the process survives it is killed. The
// record is removed regardless. The returned flag reports whether the forced
// path was taken.
func (c *Controller) Stop(ctx context.Context) (forced bool, err error) {
	rec, err := ReadRecord(c.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, ErrNotRunning
		}
		return false, err
	}
	if !rec.Alive() {
		// Crashed earlier; heal the record and report not running.
		_ = RemoveRecord(c.pidFile)
		return false, ErrNotRunning
	}

	if err := terminate(rec.PID); err != nil {
		return false, fmt.Errorf("signal pid %d: %w", rec.PID, err)
	}
	if c.waitExit(ctx, rec) {
		c.logger.Info("daemon stopped gracefully", "pid", rec.PID)
		return false, RemoveRecord(c.pidFile)
	}

	c.logger.Warn("daemon did not exit in time, killing", "pid", rec.PID, "timeout", c.stopTimeout)
	if err := kill(rec.PID); err != nil {
		c.logger.Warn("kill failed", "pid", rec.PID, "error", err)
	}
	// Give the kill a moment to land before declaring the slot free.
	killCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	c.waitExit(killCtx, rec)
	if rmErr := RemoveRecord(c.pidFile); rmErr != nil {
		return true, rmErr
	}
	return true, nil
}

// waitExit polls until the recorded process is gone, the stop timeout
// elapses, or ctx is cancelled. Returns true when the process exited.
func (c *Controller) waitExit(ctx context.Context, rec Record) bool {
	deadline := time.NewTimer(c.stopTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(c.pollInterval)
	defer tick.Stop()
	for {
		if !rec.Alive() {
			return true
		}
		select {
		case <-ctx.Done():
			return !rec.Alive()
		case <-deadline.C:
			return !rec.Alive()
		case <-tick.C:
		}
	}
}

// Run executes serve as the daemon body. The record is written atomically as
// the last step before serve is entered, so a concurrent start that observes
// the record treats this instance as already running. SIGINT/SIGTERM cancel
// the serve context; the record is removed on the way out.
func (c *Controller) Run(ctx context.Context, serve func(context.Context) error) error {
	if err := c.EnsureNotRunning(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := NewSelfRecord()
	if err := WriteRecord(c.pidFile, rec); err != nil {
		return fmt.Errorf("write daemon record: %w", err)
	}
	c.logger.Info("daemon running", "pid", rec.PID, "pidfile", c.pidFile)
	defer func() {
		if rmErr := RemoveRecord(c.pidFile); rmErr != nil {
			c.logger.Warn("remove daemon record", "error", rmErr)
		}
		c.logger.Info("daemon exited", "pid", rec.PID)
	}()
	return serve(ctx)
}
