package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"HNWatcher/internal/domain"
	"HNWatcher/internal/ports"
)

// Header is the canonical field set of the log; every row carries these five columns.
var Header = []string{"id", "time_added", "title", "url", "score"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVLog is the append-only record log. It is both the seen-set recovery source and the
// single write target of the poller.
type CSVLog struct {
	path     string
	logger   *slog.Logger
	verified bool
}

var (
	_ ports.SeenLoader   = (*CSVLog)(nil)
	_ ports.RecordWriter = (*CSVLog)(nil)
)

// NewCSVLog points at path; nothing is created until the first non-empty Append.
func NewCSVLog(path string, logger *slog.Logger) *CSVLog {
	return &CSVLog{path: path, logger: logger}
}

// Path returns the log location.
func (l *CSVLog) Path() string {
	return l.path
}

// LoadSeen returns every id recorded in the log. A missing log yields an empty set.
// Rows that fail to parse, have the wrong field count, or carry an invalid id are skipped.
func (l *CSVLog) LoadSeen(ctx context.Context) (domain.SeenSet, error) {
	seen := domain.NewSeenSet()

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		l.info("log absent, starting empty", "path", l.path)
		return seen, nil
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrIO, "open log", err)
	}
	defer f.Close()

	r := csv.NewReader(skipBOM(bufio.NewReader(f)))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return seen, nil
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrIO, "read log header", err)
	}
	width := len(header)
	idIdx := slices.Index(trimAll(header), "id")
	if idIdx < 0 {
		return nil, domain.Wrap(domain.ErrIO, "read log header", fmt.Errorf("no id column in %v", header))
	}

	var rows, skipped int
	for {
		if rows%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, domain.Wrap(domain.ErrIO, "read log", err)
		}
		rows++

		if len(row) != width {
			skipped++
			continue
		}
		id, err := domain.ParseItemID(row[idIdx])
		if err != nil {
			skipped++
			continue
		}
		seen.Add(id)
	}

	if skipped > 0 {
		l.warn("skipped malformed log rows", "path", l.path, "skipped", skipped)
	}
	l.info("seen set loaded", "path", l.path, "ids", len(seen))
	return seen, nil
}

// Append writes records in order, creating the log with its header when absent or empty.
// An empty batch is a no-op and never creates the file.
func (l *CSVLog) Append(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	state, err := l.inspect()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if state.size > 0 && !state.endsWithNewline {
		// close a torn quoted field so the partial row cannot swallow the rows after it
		if state.openQuote {
			buf.WriteByte('"')
		}
		buf.WriteByte('\n')
	}
	w := csv.NewWriter(&buf)
	if state.size == 0 {
		if err := w.Write(Header); err != nil {
			return domain.Wrap(domain.ErrIO, "encode log header", err)
		}
	}
	for _, rec := range records {
		if err := w.Write(encodeRecord(rec)); err != nil {
			return domain.Wrap(domain.ErrIO, fmt.Sprintf("encode record %s", rec.ID), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return domain.Wrap(domain.ErrIO, "encode records", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return domain.Wrap(domain.ErrIO, "open log for append", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return domain.Wrap(domain.ErrIO, "append records", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return domain.Wrap(domain.ErrIO, "sync log", err)
	}
	if err := f.Close(); err != nil {
		return domain.Wrap(domain.ErrIO, "close log", err)
	}

	l.verified = true
	l.debug("records appended", "path", l.path, "count", len(records))
	return nil
}

// CheckSchema fails when an existing log carries a header other than Header.
func (l *CSVLog) CheckSchema() error {
	_, err := l.inspect()
	return err
}

type logState struct {
	size            int64
	endsWithNewline bool
	openQuote       bool
}

func (l *CSVLog) inspect() (logState, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return logState{}, nil
	}
	if err != nil {
		return logState{}, domain.Wrap(domain.ErrIO, "open log", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return logState{}, domain.Wrap(domain.ErrIO, "stat log", err)
	}
	state := logState{size: info.Size()}
	if state.size == 0 {
		return state, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, state.size-1); err != nil {
		return logState{}, domain.Wrap(domain.ErrIO, "read log tail", err)
	}
	state.endsWithNewline = last[0] == '\n'
	if !state.endsWithNewline {
		if state.openQuote, err = unterminatedQuote(f, state.size); err != nil {
			return logState{}, domain.Wrap(domain.ErrIO, "read log tail", err)
		}
	}

	if l.verified {
		return state, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return logState{}, domain.Wrap(domain.ErrIO, "rewind log", err)
	}
	header, err := csv.NewReader(skipBOM(bufio.NewReader(f))).Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return logState{}, domain.Wrap(domain.ErrIO, "read log header", err)
	}
	if !slices.Equal(trimAll(header), Header) {
		mismatch := domain.Wrap(domain.ErrSchemaMismatch, fmt.Sprintf("%s has header %v, want %v", l.path, header, Header), nil)
		return logState{}, domain.Wrap(domain.ErrIO, "check log schema", mismatch)
	}
	l.verified = true
	return state, nil
}

// unterminatedQuote reports whether the partial line at the end of the log has an odd number
// of quote characters, i.e. it stopped inside a quoted field.
func unterminatedQuote(f *os.File, size int64) (bool, error) {
	const chunk = 4096
	buf := make([]byte, chunk)
	quotes := 0
	for end := size; end > 0; {
		start := max(end-chunk, 0)
		part := buf[:end-start]
		if _, err := f.ReadAt(part, start); err != nil {
			return false, err
		}
		if i := bytes.LastIndexByte(part, '\n'); i >= 0 {
			quotes += bytes.Count(part[i+1:], []byte{'"'})
			return quotes%2 == 1, nil
		}
		quotes += bytes.Count(part, []byte{'"'})
		end = start
	}
	return quotes%2 == 1, nil
}

func encodeRecord(rec domain.Record) []string {
	return []string{
		rec.ID.String(),
		rec.TimeAdded.Format(domain.TimeLayout),
		rec.Title,
		rec.URL,
		strconv.Itoa(rec.Score),
	}
}

func skipBOM(br *bufio.Reader) *bufio.Reader {
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func (l *CSVLog) info(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}

func (l *CSVLog) warn(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(msg, args...)
	}
}

func (l *CSVLog) debug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}
