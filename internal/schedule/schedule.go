package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// Clock is a wall-clock time of day, interpreted in local time.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (Clock, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return Clock{}, fmt.Errorf("invalid schedule time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid schedule time %q: out of range", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Next returns the nearest future occurrence of the clock time: today when it
// is still ahead of now, otherwise tomorrow.
func (c Clock) Next(now time.Time) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// Job is the work a scheduler fires once per day.
type Job func(context.Context) error

// Scheduler fires a job once per day at a configured time for the lifetime of
// the daemon. Occurrences that pass while the process is not running are
// skipped; there is no catch-up. The wait is cancellable through the context;
// a job already in flight is allowed to finish before Run returns.
type Scheduler struct {
	at     Clock
	job    Job
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New builds a scheduler firing job daily at the given clock time.
func New(at Clock, job Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{at: at, job: job, logger: logger, now: time.Now}
}

// Run loops until ctx is cancelled. A failing or panicking job is logged and
// the loop continues to the next trigger; it never takes the process down.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := s.at.Next(s.now())
		s.logger.Info("next report scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.fire(ctx)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// fire runs the job synchronously, containing panics and errors.
func (s *Scheduler) fire(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled run panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	start := s.now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err, "took", s.now().Sub(start))
		return
	}
	s.logger.Info("scheduled run finished", "took", s.now().Sub(start))
}
