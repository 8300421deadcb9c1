package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"HNWatcher/internal/config"
	"HNWatcher/internal/infrastructure/console"
	"HNWatcher/internal/infrastructure/hackernews"
	"HNWatcher/internal/infrastructure/notify"
	"HNWatcher/internal/infrastructure/parser"
	"HNWatcher/internal/infrastructure/scheduler"
	"HNWatcher/internal/infrastructure/storage"
	"HNWatcher/internal/infrastructure/telegram"
	"HNWatcher/internal/logging"
	"HNWatcher/internal/ports"
	"HNWatcher/internal/scanner"
	"HNWatcher/internal/usecase"
)

// Options carries process-level collaborators that are not part of the config file.
type Options struct {
	Stdout           io.Writer
	HTTPClient       *http.Client
	TelegramEndpoint string
	Sleeper          ports.Sleeper
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	lock      *storage.LogLock
	archive   *storage.SQLiteArchive
	poller    *usecase.Poller
	scheduler *usecase.Scheduler
}

// New performs the startup sequence: data dir, lock, schema check, seen-set hydration, wiring.
// Any failure here is fatal for the process.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format, nil)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: cfg.Source.RequestTimeout()}
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logPath := cfg.LogPath(cfg.Poll.TopN)
	lock := storage.NewLogLock(logPath)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger, lock: lock}
	if err := a.wire(ctx, logPath, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) wire(ctx context.Context, logPath string, opts Options) error {
	cfg := a.cfg

	csvLog := storage.NewCSVLog(logPath, a.logger.With("component", "storage.csv"))
	// a log with any other header, including the older scoreless one, is never appended to
	if err := csvLog.CheckSchema(); err != nil {
		return fmt.Errorf("check log schema: %w", err)
	}
	seen, err := csvLog.LoadSeen(ctx)
	if err != nil {
		return fmt.Errorf("load seen set: %w", err)
	}

	registry := scanner.NewRegistry()
	registry.Register(hackernews.NewClient(cfg.Source.APIBaseURL, opts.HTTPClient, cfg.Source.ItemsPerSecond,
		a.logger.With("component", "scanner.firebase")))
	registry.Register(parser.NewFrontPageScanner(cfg.Source.SiteBaseURL, opts.HTTPClient, cfg.Source.ItemsPerSecond,
		a.logger.With("component", "scanner.html")))

	source, err := parser.NewStrategySource(registry, cfg.Source.Kind, a.logger.With("component", "source"))
	if err != nil {
		return fmt.Errorf("select source: %w", err)
	}

	var archive ports.Archive
	if cfg.Storage.ArchivePath != "" {
		path := cfg.Storage.ArchivePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Storage.DataDir, path)
		}
		a.archive, err = storage.OpenSQLiteArchive(ctx, path)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		archive = a.archive
	}

	channels := []ports.Notifier{console.NewNotifier(opts.Stdout, cfg.Notifications.Color)}
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		bot, err := telegram.NewNotifier(tg.BotToken, tg.ChatID, opts.TelegramEndpoint, opts.HTTPClient)
		if err != nil {
			a.logger.Warn("telegram disabled", "error", err)
		} else {
			channels = append(channels, bot)
		}
	}
	notifier := notify.NewFanout(channels...)

	a.poller, err = usecase.NewPoller(usecase.PollerDeps{
		Source:       source,
		Writer:       csvLog,
		Archive:      archive,
		Notifier:     notifier,
		Logger:       a.logger.With("component", "poller"),
		Seen:         seen,
		TopN:         cfg.Poll.TopN,
		ItemPageBase: cfg.Source.ItemPageBaseURL,
	})
	if err != nil {
		return err
	}

	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = scheduler.NewIntervalSleeper(cfg.Poll.Interval())
	}
	a.scheduler = usecase.NewScheduler(a.poller, sleeper, notifier, a.logger.With("component", "scheduler"))

	a.logger.Info("watcher ready",
		"log", logPath,
		"source", source.Kind(),
		"topN", cfg.Poll.TopN,
		"interval", cfg.Poll.Interval().String(),
		"seen", len(seen),
		"channels", len(channels),
	)
	return nil
}

// Run polls until ctx is cancelled. Cancellation is a clean stop and returns nil.
func (a *Application) Run(ctx context.Context) error {
	err := a.scheduler.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		a.logger.Info("watcher stopped", "seen", a.poller.SeenCount())
		return nil
	}
	return err
}

// Close releases the log lock and the archive.
func (a *Application) Close() error {
	var errs []error
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close archive: %w", err))
		}
		a.archive = nil
	}
	if a.lock != nil {
		if err := a.lock.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
