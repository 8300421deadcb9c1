package usecase

import (
	"context"
	"log/slog"

	"HNWatcher/internal/logging"
	"HNWatcher/internal/ports"
)

// Scheduler repeats poll cycles with a fixed pause until its context ends.
type Scheduler struct {
	poller   *Poller
	sleeper  ports.Sleeper
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewScheduler binds a poller to a sleep schedule. Cycle failures go to notifier.
func NewScheduler(poller *Poller, sleeper ports.Sleeper, notifier ports.Notifier, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{poller: poller, sleeper: sleeper, notifier: notifier, logger: logger}
}

// Run loops until ctx is cancelled and returns ctx.Err(). Failed cycles never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := s.poller.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("cycle failed", "cycle", report.ID, "error", err)
			if s.notifier != nil {
				if nErr := s.notifier.NotifyError(ctx, err); nErr != nil {
					s.logger.Warn("notify error failed", "error", nErr)
				}
			}
		}

		if err := s.sleeper.Sleep(ctx); err != nil {
			return err
		}
	}
}
