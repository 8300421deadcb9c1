package notify

import (
	"context"
	"errors"

	"HNWatcher/internal/domain"
	"HNWatcher/internal/ports"
)

// Fanout forwards every notification to all channels. A failing channel does not stop the rest.
type Fanout struct {
	channels []ports.Notifier
}

var _ ports.Notifier = (*Fanout)(nil)

// NewFanout skips nil channels.
func NewFanout(channels ...ports.Notifier) *Fanout {
	f := &Fanout{}
	for _, ch := range channels {
		if ch != nil {
			f.channels = append(f.channels, ch)
		}
	}
	return f
}

// NotifyRecord implements ports.Notifier.
func (f *Fanout) NotifyRecord(ctx context.Context, rec domain.Record) error {
	var errs []error
	for _, ch := range f.channels {
		if err := ch.NotifyRecord(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifyError implements ports.Notifier.
func (f *Fanout) NotifyError(ctx context.Context, cause error) error {
	var errs []error
	for _, ch := range f.channels {
		if err := ch.NotifyError(ctx, cause); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
