package ports

import (
	"context"

	"HNWatcher/internal/domain"
)

// ItemSource pulls the ranked feed and per-item metadata from upstream.
type ItemSource interface {
	RankedIDs(ctx context.Context, limit int) ([]domain.ItemID, error)
	Item(ctx context.Context, id domain.ItemID) (domain.ItemMetadata, error)
}

// SeenLoader rebuilds the set of recorded ids from durable storage.
type SeenLoader interface {
	LoadSeen(ctx context.Context) (domain.SeenSet, error)
}

// RecordWriter appends enriched records to the durable log.
type RecordWriter interface {
	Append(ctx context.Context, records []domain.Record) error
}

// Archive mirrors persisted records into secondary storage.
type Archive interface {
	Save(ctx context.Context, records []domain.Record) error
}

// Notifier reports recorded items and cycle failures to the operator.
type Notifier interface {
	NotifyRecord(ctx context.Context, record domain.Record) error
	NotifyError(ctx context.Context, err error) error
}

// Sleeper suspends the poll loop between cycles.
type Sleeper interface {
	Sleep(ctx context.Context) error
}
