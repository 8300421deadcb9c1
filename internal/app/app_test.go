package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"HNWatcher/internal/config"
	"HNWatcher/internal/domain"
	"HNWatcher/internal/infrastructure/storage"
	"HNWatcher/internal/logging"
)

type cancelAfterSleep struct {
	cancel context.CancelFunc
}

func (c cancelAfterSleep) Sleep(ctx context.Context) error {
	c.cancel()
	return ctx.Err()
}

func newFeed(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v0/topstories.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[301, 302, 303]`)
	})
	mux.HandleFunc("/v0/item/301.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":301,"title":"Launch HN: Widgets","url":"https://widgets.example","score":88}`)
	})
	mux.HandleFunc("/v0/item/302.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":302,"title":"Ask HN: Anyone else?","score":12}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, apiURL string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Poll.TopN = 2
	cfg.Source.APIBaseURL = apiURL
	cfg.Source.ItemsPerSecond = 0
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.ArchivePath = "archive.db"
	cfg.Notifications.Color = "never"
	return cfg
}

func TestApplicationRunsOneCycle(t *testing.T) {
	t.Parallel()

	server := newFeed(t)
	cfg := testConfig(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout bytes.Buffer
	application, err := New(ctx, cfg, logging.Discard(), Options{
		Stdout:     &stdout,
		HTTPClient: server.Client(),
		Sleeper:    cancelAfterSleep{cancel: cancel},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	raw, err := os.ReadFile(cfg.LogPath(2))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 3 || lines[0] != "id,time_added,title,url,score" {
		t.Fatalf("unexpected log:\n%s", raw)
	}
	if !strings.HasPrefix(lines[1], "301,") || !strings.HasSuffix(lines[1], ",Launch HN: Widgets,https://widgets.example,88") {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], ",Ask HN: Anyone else?,https://news.ycombinator.com/item?id=302,12") {
		t.Fatalf("unexpected second row: %q", lines[2])
	}

	out := stdout.String()
	if strings.Count(out, " New: ") != 2 || !strings.Contains(out, "(ID: 301, Score: 88, URL: https://widgets.example)") {
		t.Fatalf("unexpected notifications:\n%s", out)
	}
}

func TestApplicationRefusesSecondWriter(t *testing.T) {
	t.Parallel()

	server := newFeed(t)
	cfg := testConfig(t, server.URL)
	cfg.Storage.ArchivePath = ""
	ctx := context.Background()

	first, err := New(ctx, cfg, logging.Discard(), Options{Stdout: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	defer first.Close()

	_, err = New(ctx, cfg, logging.Discard(), Options{Stdout: &bytes.Buffer{}})
	if !errors.Is(err, storage.ErrLogLocked) {
		t.Fatalf("expected ErrLogLocked, got %v", err)
	}
}

func TestApplicationRejectsScorelessLog(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Storage.ArchivePath = ""
	if err := os.WriteFile(cfg.LogPath(2), []byte("id,time_added,title,url\n1,t,x,u\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	_, err := New(context.Background(), cfg, logging.Discard(), Options{Stdout: &bytes.Buffer{}})
	if !errors.Is(err, domain.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}

	// the failed startup must not keep the lock
	lock := storage.NewLogLock(cfg.LogPath(2))
	if err := lock.Acquire(); err != nil {
		t.Fatalf("lock should be free after failed startup: %v", err)
	}
	_ = lock.Release()
}

func TestApplicationUnknownSource(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Storage.ArchivePath = ""
	cfg.Source.Kind = "rss"
	if _, err := New(context.Background(), cfg, logging.Discard(), Options{Stdout: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unknown source kind")
	}
}
