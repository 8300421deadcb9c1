package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"HNWatcher/internal/domain"
	"HNWatcher/internal/ports"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY,
	time_added TEXT NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	score INTEGER NOT NULL,
	archived_at INTEGER NOT NULL
);`

// SQLiteArchive mirrors persisted records into a queryable SQLite table. The CSV log stays
// authoritative; the archive never feeds the seen set.
type SQLiteArchive struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.Archive = (*SQLiteArchive)(nil)

// OpenSQLiteArchive opens (or creates) the archive database at path.
func OpenSQLiteArchive(ctx context.Context, path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: set WAL mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, archiveSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: create schema: %w", err)
	}

	return &SQLiteArchive{db: db, now: time.Now}, nil
}

// Save inserts records in one statement; ids already archived are left untouched.
func (a *SQLiteArchive) Save(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	archivedAt := a.now().Unix()
	insert := sq.Insert("records").
		Options("OR IGNORE").
		Columns("id", "time_added", "title", "url", "score", "archived_at")
	for _, rec := range records {
		insert = insert.Values(int64(rec.ID), rec.TimeAdded.Format(domain.TimeLayout), rec.Title, rec.URL, rec.Score, archivedAt)
	}

	if _, err := insert.RunWith(a.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("archive: insert %d records: %w", len(records), err)
	}
	return nil
}

// Count returns the number of archived records.
func (a *SQLiteArchive) Count(ctx context.Context) (int, error) {
	var n int
	err := sq.Select("COUNT(*)").From("records").RunWith(a.db).QueryRowContext(ctx).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("archive: count records: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}
