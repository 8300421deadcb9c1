package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"HNWatcher/internal/domain"
	"HNWatcher/internal/logging"
	"HNWatcher/internal/ports"
)

// PollerDeps wires the driven adapters into one poll cycle.
type PollerDeps struct {
	Source       ports.ItemSource
	Writer       ports.RecordWriter
	Archive      ports.Archive
	Notifier     ports.Notifier
	Logger       *slog.Logger
	Seen         domain.SeenSet
	TopN         int
	ItemPageBase string
	Now          func() time.Time
}

// CycleReport summarises one completed cycle.
type CycleReport struct {
	ID       string
	Snapshot int
	Recorded []domain.Record
}

// Poller runs fetch, diff, enrich and persist against the seen set it owns.
type Poller struct {
	source       ports.ItemSource
	writer       ports.RecordWriter
	archive      ports.Archive
	notifier     ports.Notifier
	logger       *slog.Logger
	seen         domain.SeenSet
	topN         int
	itemPageBase string
	now          func() time.Time
}

// NewPoller constructs the cycle controller. Seen is taken over by the poller.
func NewPoller(deps PollerDeps) (*Poller, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("poller: item source is required")
	}
	if deps.Writer == nil {
		return nil, fmt.Errorf("poller: record writer is required")
	}
	if deps.TopN <= 0 {
		return nil, fmt.Errorf("poller: topN must be positive, got %d", deps.TopN)
	}

	p := &Poller{
		source:       deps.Source,
		writer:       deps.Writer,
		archive:      deps.Archive,
		notifier:     deps.Notifier,
		logger:       deps.Logger,
		seen:         deps.Seen,
		topN:         deps.TopN,
		itemPageBase: deps.ItemPageBase,
		now:          deps.Now,
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.seen == nil {
		p.seen = domain.NewSeenSet()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// SeenCount reports how many ids the poller has recorded or loaded.
func (p *Poller) SeenCount() int {
	return len(p.seen)
}

// RunCycle executes one cycle. On error nothing is persisted and the seen set is unchanged.
func (p *Poller) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{ID: uuid.NewString()}
	logger := p.logger.With("cycle", report.ID)

	snapshot, err := p.source.RankedIDs(ctx, p.topN)
	if err != nil {
		return report, fmt.Errorf("fetch ranked ids: %w", err)
	}
	report.Snapshot = len(snapshot)

	fresh := p.seen.Missing(snapshot)
	if len(fresh) == 0 {
		logger.Debug("no new items", "snapshot", len(snapshot))
		return report, nil
	}

	addedAt := p.now()
	records := make([]domain.Record, 0, len(fresh))
	for _, id := range fresh {
		meta, err := p.source.Item(ctx, id)
		if err != nil {
			return report, fmt.Errorf("enrich item %s: %w", id, err)
		}
		records = append(records, domain.NewRecord(id, addedAt, meta, p.itemPageBase))
	}

	if err := p.writer.Append(ctx, records); err != nil {
		return report, fmt.Errorf("persist batch: %w", err)
	}
	for _, rec := range records {
		p.seen.Add(rec.ID)
	}
	report.Recorded = records
	logger.Info("recorded new items", "count", len(records), "seen", len(p.seen))

	if p.archive != nil {
		if err := p.archive.Save(ctx, records); err != nil {
			logger.Warn("archive mirror failed", "error", err)
		}
	}

	if p.notifier != nil {
		for _, rec := range records {
			if err := p.notifier.NotifyRecord(ctx, rec); err != nil {
				logger.Warn("notify record failed", "id", rec.ID.String(), "error", err)
			}
		}
	}

	return report, nil
}
