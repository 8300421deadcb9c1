package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "HNWATCHER_CONFIG"
	dataDirEnv        = "HNWATCHER_DATA_DIR"
	logLevelEnv       = "HNWATCHER_LOG_LEVEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Poll          PollConfig         `yaml:"poll" toml:"poll"`
	Source        SourceConfig       `yaml:"source" toml:"source"`
	Storage       StorageConfig      `yaml:"storage" toml:"storage"`
	Logging       LoggingConfig      `yaml:"logging" toml:"logging"`
	Notifications NotificationConfig `yaml:"notifications" toml:"notifications"`
}

// PollConfig defines how often and how deep the ranked feed is polled.
type PollConfig struct {
	IntervalSeconds int `yaml:"intervalSeconds" toml:"interval_seconds"`
	TopN            int `yaml:"topN" toml:"top_n"`
}

// Interval returns the fixed delay between cycles.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// SourceConfig groups settings for the ranked feed.
type SourceConfig struct {
	Kind                  string  `yaml:"kind" toml:"kind"`
	APIBaseURL            string  `yaml:"apiBaseUrl" toml:"api_base_url"`
	SiteBaseURL           string  `yaml:"siteBaseUrl" toml:"site_base_url"`
	ItemPageBaseURL       string  `yaml:"itemPageBaseUrl" toml:"item_page_base_url"`
	RequestTimeoutSeconds int     `yaml:"requestTimeoutSeconds" toml:"request_timeout_seconds"`
	ItemsPerSecond        float64 `yaml:"itemsPerSecond" toml:"items_per_second"`
}

// RequestTimeout bounds a single upstream request.
func (s SourceConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// StorageConfig describes where the log and its companions live.
type StorageConfig struct {
	DataDir     string `yaml:"dataDir" toml:"data_dir"`
	ArchivePath string `yaml:"archivePath" toml:"archive_path"`
}

// LoggingConfig selects the structured log level and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// NotificationConfig encapsulates outbound channels (console, Telegram).
type NotificationConfig struct {
	Color    string         `yaml:"color" toml:"color"`
	Telegram TelegramConfig `yaml:"telegram" toml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken" toml:"bot_token"`
	ChatID   string `yaml:"chatId" toml:"chat_id"`
}

// Enabled reports whether the Telegram channel was configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load applies defaults, then the config file (YAML, or TOML for *.toml), then environment
// overrides. An empty path falls back to $HNWATCHER_CONFIG; no path at all means defaults only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decode(path, raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, raw []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(cfg)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dataDirEnv); v != "" {
		c.Storage.DataDir = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) normalize() {
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	c.Source.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Source.APIBaseURL), "/")
	c.Source.SiteBaseURL = strings.TrimRight(strings.TrimSpace(c.Source.SiteBaseURL), "/")
	c.Source.ItemPageBaseURL = strings.TrimSpace(c.Source.ItemPageBaseURL)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Notifications.Color = strings.ToLower(strings.TrimSpace(c.Notifications.Color))
	c.Notifications.Telegram.BotToken = strings.TrimSpace(c.Notifications.Telegram.BotToken)
	c.Notifications.Telegram.ChatID = strings.TrimSpace(c.Notifications.Telegram.ChatID)
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		c.Storage.DataDir = "."
	}
}

// Validate checks that values are usable before anything is wired.
func (c Config) Validate() error {
	if c.Poll.TopN <= 0 {
		return fmt.Errorf("config: poll.topN must be positive, got %d", c.Poll.TopN)
	}
	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("config: poll.intervalSeconds must be positive, got %d", c.Poll.IntervalSeconds)
	}
	if c.Source.Kind == "" {
		return fmt.Errorf("config: source.kind is required")
	}
	if c.Source.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("config: source.requestTimeoutSeconds must be positive, got %d", c.Source.RequestTimeoutSeconds)
	}
	if c.Source.ItemsPerSecond < 0 {
		return fmt.Errorf("config: source.itemsPerSecond must not be negative")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: logging.format must be text or json, got %q", c.Logging.Format)
	}
	switch c.Notifications.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("config: notifications.color must be auto, always or never, got %q", c.Notifications.Color)
	}
	tg := c.Notifications.Telegram
	if (tg.BotToken == "") != (tg.ChatID == "") {
		return fmt.Errorf("config: telegram botToken and chatId must be set together")
	}
	if tg.ChatID != "" {
		if _, err := strconv.ParseInt(tg.ChatID, 10, 64); err != nil {
			return fmt.Errorf("config: telegram chatId %q is not numeric", tg.ChatID)
		}
	}
	return nil
}

// LogPath names the durable log for a given tracked-N; distinct N values get distinct logs.
func (c Config) LogPath(topN int) string {
	return filepath.Join(c.Storage.DataDir, fmt.Sprintf("hn_top_%d.csv", topN))
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Poll: PollConfig{IntervalSeconds: 60, TopN: 10},
		Source: SourceConfig{
			Kind:                  "firebase",
			APIBaseURL:            "https://hacker-news.firebaseio.com",
			SiteBaseURL:           "https://news.ycombinator.com",
			ItemPageBaseURL:       "https://news.ycombinator.com/item?id=",
			RequestTimeoutSeconds: 10,
			ItemsPerSecond:        10,
		},
		Storage:       StorageConfig{DataDir: "."},
		Logging:       LoggingConfig{Level: "info", Format: "text"},
		Notifications: NotificationConfig{Color: "auto"},
	}
}
