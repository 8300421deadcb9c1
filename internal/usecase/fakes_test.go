package usecase

import (
	"context"
	"errors"

	"HNWatcher/internal/domain"
)

type fakeSource struct {
	ranked   []domain.ItemID
	items    map[domain.ItemID]domain.ItemMetadata
	failOn   map[domain.ItemID]error
	rankErr  error
	requests []domain.ItemID
}

func (f *fakeSource) RankedIDs(_ context.Context, limit int) ([]domain.ItemID, error) {
	if f.rankErr != nil {
		return nil, f.rankErr
	}
	if limit < len(f.ranked) {
		return append([]domain.ItemID(nil), f.ranked[:limit]...), nil
	}
	return append([]domain.ItemID(nil), f.ranked...), nil
}

func (f *fakeSource) Item(_ context.Context, id domain.ItemID) (domain.ItemMetadata, error) {
	f.requests = append(f.requests, id)
	if err := f.failOn[id]; err != nil {
		return domain.ItemMetadata{}, err
	}
	return f.items[id], nil
}

type memoryWriter struct {
	batches [][]domain.Record
	err     error
}

func (m *memoryWriter) Append(_ context.Context, records []domain.Record) error {
	if m.err != nil {
		return m.err
	}
	if len(records) == 0 {
		return nil
	}
	m.batches = append(m.batches, append([]domain.Record(nil), records...))
	return nil
}

func (m *memoryWriter) rows() int {
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

type recordingNotifier struct {
	records []domain.Record
	errs    []error
	fail    bool
}

func (r *recordingNotifier) NotifyRecord(_ context.Context, rec domain.Record) error {
	r.records = append(r.records, rec)
	if r.fail {
		return errors.New("terminal closed")
	}
	return nil
}

func (r *recordingNotifier) NotifyError(_ context.Context, err error) error {
	r.errs = append(r.errs, err)
	return nil
}

type failingArchive struct{ calls int }

func (f *failingArchive) Save(context.Context, []domain.Record) error {
	f.calls++
	return errors.New("database is locked")
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }
