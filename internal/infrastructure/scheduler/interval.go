package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"HNWatcher/internal/ports"
)

// IntervalSleeper waits a fixed delay between poll cycles, rounded to whole seconds.
type IntervalSleeper struct {
	schedule cron.Schedule
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

var _ ports.Sleeper = (*IntervalSleeper)(nil)

// NewIntervalSleeper builds a sleeper for the given delay. Delays under a second become one second.
func NewIntervalSleeper(interval time.Duration) *IntervalSleeper {
	return &IntervalSleeper{
		schedule: cron.Every(interval),
		now:      time.Now,
		after:    time.After,
	}
}

// Next reports when the sleeper would wake if it started at from.
func (s *IntervalSleeper) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// Sleep blocks until the next wake time or until ctx is done.
func (s *IntervalSleeper) Sleep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := s.now()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.after(s.Next(now).Sub(now)):
		return nil
	}
}
