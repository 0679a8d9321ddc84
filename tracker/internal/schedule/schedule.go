// Package schedule fires a daily batch run at a fixed local time and
// guards against overlapping runs.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// ErrRunInProgress is returned by TryRun when a run is already executing.
var ErrRunInProgress = errors.New("schedule: run already in progress")

// RunFunc performs one batch run.
type RunFunc func(ctx context.Context) error

// Config configures the daily trigger.
type Config struct {
	// Hour and Minute are the local wall-clock time of the daily run.
	Hour   int
	Minute int
}

// Scheduler fires RunFunc once a day at the configured time. Manual runs
// via TryRun share the same non-reentrancy guard as the timer path: a
// second run is refused, never queued.
type Scheduler struct {
	run     RunFunc
	config  Config
	logger  *slog.Logger
	running atomic.Bool

	// now is swapped in tests.
	now func() time.Time
}

// New creates a Scheduler.
func New(run RunFunc, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		run:    run,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// NextRun returns the next occurrence of the configured wall-clock time
// strictly after t, in t's location.
func (s *Scheduler) NextRun(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), s.config.Hour, s.config.Minute, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is cancelled, firing the run function at each
// daily occurrence. A run still executing when the next occurrence
// arrives causes that occurrence to be skipped, not queued.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := s.NextRun(s.now())
		s.logger.Info("schedule: next run", "at", next)

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := s.TryRun(ctx); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				s.logger.Warn("schedule: previous run still executing, skipping")
				continue
			}
			s.logger.Error("schedule: run failed", "error", err)
		}
	}
}

// TryRun executes the run function if no run is in progress, returning
// ErrRunInProgress otherwise.
func (s *Scheduler) TryRun(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer s.running.Store(false)
	return s.run(ctx)
}
