package hackernews

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"HNWatcher/internal/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v0/topstories.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[40, 30, 20, 10]`))
	})
	mux.HandleFunc("/v0/item/40.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":40,"title":"Launch","url":"https://example.org/launch","score":321,"type":"story"}`))
	})
	mux.HandleFunc("/v0/item/30.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":30,"type":"story","score":"high","title":12}`))
	})
	mux.HandleFunc("/v0/item/20.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})
	mux.HandleFunc("/v0/item/10.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRankedIDsTruncatesInOrder(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := NewClient(server.URL+"/", server.Client(), 0, nil)

	ids, err := client.RankedIDs(context.Background(), 3)
	if err != nil {
		t.Fatalf("RankedIDs error: %v", err)
	}
	want := []domain.ItemID{40, 30, 20}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("unexpected ids: %v", ids)
	}

	all, err := client.RankedIDs(context.Background(), 100)
	if err != nil {
		t.Fatalf("RankedIDs error: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected full list, got %d", len(all))
	}
}

func TestItemFields(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := NewClient(server.URL, server.Client(), 0, nil)
	ctx := context.Background()

	meta, err := client.Item(ctx, 40)
	if err != nil {
		t.Fatalf("Item error: %v", err)
	}
	if meta.Title == nil || *meta.Title != "Launch" {
		t.Fatalf("unexpected title: %v", meta.Title)
	}
	if meta.URL == nil || *meta.URL != "https://example.org/launch" {
		t.Fatalf("unexpected url: %v", meta.URL)
	}
	if meta.Score == nil || *meta.Score != 321 {
		t.Fatalf("unexpected score: %v", meta.Score)
	}

	odd, err := client.Item(ctx, 30)
	if err != nil {
		t.Fatalf("Item error for wrongly typed fields: %v", err)
	}
	if odd.Title != nil || odd.URL != nil || odd.Score != nil {
		t.Fatalf("wrongly typed fields should be treated as missing: %+v", odd)
	}

	deleted, err := client.Item(ctx, 20)
	if err != nil {
		t.Fatalf("Item error for null body: %v", err)
	}
	if deleted != (domain.ItemMetadata{}) {
		t.Fatalf("expected empty metadata, got %+v", deleted)
	}
}

func TestTransportErrors(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := NewClient(server.URL, server.Client(), 0, nil)

	_, err := client.Item(context.Background(), 10)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer broken.Close()

	_, err = NewClient(broken.URL, broken.Client(), 0, nil).RankedIDs(context.Background(), 5)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error for undecodable list, got %v", err)
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	_, err = NewClient(closed.URL, nil, 0, nil).RankedIDs(context.Background(), 5)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error for unreachable host, got %v", err)
	}
}

func TestItemHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := NewClient(server.URL, server.Client(), 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Item(ctx, 40); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestMetadataFromFieldsReportsDroppedFields(t *testing.T) {
	t.Parallel()

	meta, err := metadataFromFields(map[string]any{"title": "ok", "url": 42.0, "score": "high"})
	if !errors.Is(err, domain.ErrMalformedData) {
		t.Fatalf("expected malformed data error, got %v", err)
	}
	if meta.Title == nil || *meta.Title != "ok" || meta.URL != nil || meta.Score != nil {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	if _, err := metadataFromFields(nil); !errors.Is(err, domain.ErrMalformedData) {
		t.Fatalf("null body should be reported, got %v", err)
	}

	if _, err := metadataFromFields(map[string]any{"title": "x", "score": 3.0}); err != nil {
		t.Fatalf("well-formed fields should not error: %v", err)
	}
}
