package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"HNWatcher/internal/domain"
	"HNWatcher/internal/ports"
	"HNWatcher/internal/scanner"
)

// DefaultBaseURL is the public Firebase endpoint of the Hacker News API.
const DefaultBaseURL = "https://hacker-news.firebaseio.com"

const userAgent = "HNWatcher/1.0"

// Client reads the ranked top-stories list and item details from the JSON API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var (
	_ ports.ItemSource = (*Client)(nil)
	_ scanner.Scanner  = (*Client)(nil)
)

// NewClient wires an HTTP client; itemsPerSecond <= 0 disables pacing of item lookups.
func NewClient(baseURL string, client *http.Client, itemsPerSecond float64, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if itemsPerSecond > 0 {
		limit = rate.Limit(itemsPerSecond)
	}
	return &Client{
		baseURL: baseURL,
		http:    client,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Name identifies the strategy inside the registry.
func (c *Client) Name() string {
	return "firebase"
}

// RankedIDs fetches the full top-stories list and keeps the first limit entries in rank order.
func (c *Client) RankedIDs(ctx context.Context, limit int) ([]domain.ItemID, error) {
	var raw []int64
	if err := c.getJSON(ctx, c.baseURL+"/v0/topstories.json", &raw); err != nil {
		return nil, domain.Wrap(domain.ErrTransport, "fetch top stories", err)
	}

	if limit > 0 && limit < len(raw) {
		raw = raw[:limit]
	}

	ids := make([]domain.ItemID, 0, len(raw))
	for _, v := range raw {
		ids = append(ids, domain.ItemID(v))
	}
	c.debug("top stories fetched", "count", len(ids))
	return ids, nil
}

// Item fetches one item's detail. A null body (deleted item) and wrongly typed fields both
// yield missing fields rather than an error.
func (c *Client) Item(ctx context.Context, id domain.ItemID) (domain.ItemMetadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.ItemMetadata{}, domain.Wrap(domain.ErrTransport, fmt.Sprintf("fetch item %s", id), err)
	}

	var fields map[string]any
	endpoint := fmt.Sprintf("%s/v0/item/%s.json", c.baseURL, id)
	if err := c.getJSON(ctx, endpoint, &fields); err != nil {
		return domain.ItemMetadata{}, domain.Wrap(domain.ErrTransport, fmt.Sprintf("fetch item %s", id), err)
	}
	meta, err := metadataFromFields(fields)
	if err != nil {
		c.debug("item fields defaulted", "id", id.String(), "error", err)
	}
	return meta, nil
}

// metadataFromFields keeps well-typed fields. The error lists the ones it had to drop.
func metadataFromFields(fields map[string]any) (domain.ItemMetadata, error) {
	var meta domain.ItemMetadata
	if fields == nil {
		return meta, domain.Wrap(domain.ErrMalformedData, "null item body", nil)
	}
	var dropped []string
	if raw, present := fields["title"]; present {
		if title, ok := raw.(string); ok {
			meta.Title = &title
		} else {
			dropped = append(dropped, "title")
		}
	}
	if raw, present := fields["url"]; present {
		if u, ok := raw.(string); ok {
			meta.URL = &u
		} else {
			dropped = append(dropped, "url")
		}
	}
	if raw, present := fields["score"]; present {
		if score, ok := raw.(float64); ok && score == math.Trunc(score) {
			v := int(score)
			meta.Score = &v
		} else {
			dropped = append(dropped, "score")
		}
	}
	if len(dropped) > 0 {
		return meta, domain.Wrap(domain.ErrMalformedData, "unexpected type for "+strings.Join(dropped, ", "), nil)
	}
	return meta, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
