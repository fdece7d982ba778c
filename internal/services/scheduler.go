package services

import (
	"context"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Scheduler runs ApplyDue once on start and then on every tick of its
// interval until the context ends.
type Scheduler struct {
	tracker  *Tracker
	interval time.Duration
	logger   *applog.Logger
	now      func() time.Time
}

// NewScheduler returns a scheduler for tracker. A nil logger uses the
// default logger.
func NewScheduler(tracker *Tracker, interval time.Duration, logger *applog.Logger) *Scheduler {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Scheduler{
		tracker:  tracker,
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentWorker),
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled. Failed runs are logged and retried on
// the next tick. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Recurring expense processor configured", "interval", s.interval.String())

	s.logger.InfoContext(ctx, "Running initial recurring expense processing")
	s.process(ctx, s.now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Recurring expense processor stopped")
			return nil
		case <-ticker.C:
			now := s.now()
			s.process(ctx, now)
			s.logger.DebugContext(ctx, "Next recurring check scheduled",
				"next_check", now.Add(s.interval).Format("15:04:05"))
		}
	}
}

func (s *Scheduler) process(ctx context.Context, now time.Time) {
	applied, err := s.tracker.ApplyDue(ctx, core.DateOf(now))
	if err != nil {
		s.logger.LogError(ctx, "Recurring expense processing failed", err, applog.OpApplyDue, nil)
		return
	}
	s.logger.InfoContext(ctx, "Recurring expense processing complete", "expenses_created", len(applied))
}
