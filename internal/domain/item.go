package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultTitle is recorded when the source has no title for an item.
	DefaultTitle = "Unknown"
	// DefaultItemPageBase is the canonical item page used when an item carries no url.
	DefaultItemPageBase = "https://news.ycombinator.com/item?id="
	// TimeLayout formats Record.TimeAdded in the log.
	TimeLayout = time.RFC3339
)

// ItemID identifies a ranked item. IDs are assigned by the source and never reused.
type ItemID int64

// String returns the canonical base-10 form stored in the log.
func (id ItemID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseItemID converts a stored or scraped identifier into an ItemID.
func ParseItemID(raw string) (ItemID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty item id")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse item id %q: %w", raw, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("item id %q is not positive", raw)
	}
	return ItemID(v), nil
}

// ItemMetadata is the subset of item detail the source returned. Any field may be missing,
// including all of them for deleted or dead items.
type ItemMetadata struct {
	Title *string
	URL   *string
	Score *int
}

// Record is the persisted unit, one log row per item.
type Record struct {
	ID        ItemID
	TimeAdded time.Time
	Title     string
	URL       string
	Score     int
}

// NewRecord applies the default-field policy to the metadata of id.
// itemPageBase may be empty, in which case DefaultItemPageBase is used.
func NewRecord(id ItemID, addedAt time.Time, meta ItemMetadata, itemPageBase string) Record {
	rec := Record{
		ID:        id,
		TimeAdded: addedAt,
		Title:     DefaultTitle,
		URL:       ItemPageURL(itemPageBase, id),
	}
	if meta.Title != nil {
		if title := norm.NFC.String(strings.TrimSpace(*meta.Title)); title != "" {
			rec.Title = title
		}
	}
	if meta.URL != nil {
		if u := strings.TrimSpace(*meta.URL); u != "" {
			rec.URL = u
		}
	}
	if meta.Score != nil {
		rec.Score = *meta.Score
	}
	return rec
}

// ItemPageURL builds the link back to an item's discussion page.
func ItemPageURL(base string, id ItemID) string {
	if base == "" {
		base = DefaultItemPageBase
	}
	return base + id.String()
}

// SeenSet holds every ItemID already persisted to the log.
type SeenSet map[ItemID]struct{}

// NewSeenSet builds a set from ids.
func NewSeenSet(ids ...ItemID) SeenSet {
	s := make(SeenSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id was already recorded.
func (s SeenSet) Has(id ItemID) bool {
	_, ok := s[id]
	return ok
}

// Add marks ids as recorded.
func (s SeenSet) Add(ids ...ItemID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Missing returns the ids of snapshot that are not in the set, keeping snapshot order and
// dropping repeats.
func (s SeenSet) Missing(snapshot []ItemID) []ItemID {
	var out []ItemID
	picked := make(map[ItemID]struct{}, len(snapshot))
	for _, id := range snapshot {
		if s.Has(id) {
			continue
		}
		if _, dup := picked[id]; dup {
			continue
		}
		picked[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
