package usecase

import (
	"context"
	"errors"
	"testing"

	"HNWatcher/internal/domain"
)

type countingSleeper struct {
	calls  int
	stopAt int
	cancel context.CancelFunc
}

func (s *countingSleeper) Sleep(ctx context.Context) error {
	s.calls++
	if s.calls >= s.stopAt {
		s.cancel()
	}
	return ctx.Err()
}

func TestSchedulerKeepsLoopingAfterFailures(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{rankErr: domain.Wrap(domain.ErrTransport, "fetch top stories", errors.New("timeout"))}
	notifier := &recordingNotifier{}
	poller := newTestPoller(t, PollerDeps{Source: source, Writer: &memoryWriter{}, Notifier: notifier})
	sleeper := &countingSleeper{stopAt: 3, cancel: cancel}

	err := NewScheduler(poller, sleeper, notifier, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sleeper.calls != 3 {
		t.Fatalf("expected 3 sleeps, got %d", sleeper.calls)
	}
	if len(notifier.errs) != 3 {
		t.Fatalf("every failed cycle should be reported, got %d", len(notifier.errs))
	}
	if !errors.Is(notifier.errs[0], domain.ErrTransport) {
		t.Fatalf("unexpected reported error: %v", notifier.errs[0])
	}
}

func TestSchedulerRecordsAcrossCycles(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{ranked: []domain.ItemID{1, 2}}
	writer := &memoryWriter{}
	notifier := &recordingNotifier{}
	poller := newTestPoller(t, PollerDeps{Source: source, Writer: writer, Notifier: notifier})
	sleeper := &countingSleeper{stopAt: 2, cancel: cancel}

	if err := NewScheduler(poller, sleeper, notifier, nil).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if writer.rows() != 2 || len(writer.batches) != 1 {
		t.Fatalf("second cycle should be a no-op, batches=%d rows=%d", len(writer.batches), writer.rows())
	}
	if len(notifier.errs) != 0 {
		t.Fatalf("unexpected errors: %v", notifier.errs)
	}
}

func TestSchedulerStopsBeforeFirstCycle(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{ranked: []domain.ItemID{1}}
	writer := &memoryWriter{}
	poller := newTestPoller(t, PollerDeps{Source: source, Writer: writer})

	if err := NewScheduler(poller, &countingSleeper{stopAt: 1, cancel: cancel}, nil, nil).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if writer.rows() != 0 {
		t.Fatal("no cycle should run on a cancelled context")
	}
}
