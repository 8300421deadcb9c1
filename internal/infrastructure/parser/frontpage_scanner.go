package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"HNWatcher/internal/domain"
	"HNWatcher/internal/scanner"
)

// DefaultSiteURL is the public Hacker News site.
const DefaultSiteURL = "https://news.ycombinator.com"

const maxPages = 20

var leadingNumber = regexp.MustCompile(`^\s*(-?\d+)`)

// FrontPageScanner reads rank order and item detail by scraping the site's HTML pages.
type FrontPageScanner struct {
	client  *http.Client
	siteURL string
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ scanner.Scanner = (*FrontPageScanner)(nil)

// NewFrontPageScanner wires an HTTP client; pagesPerSecond <= 0 disables pacing.
func NewFrontPageScanner(siteURL string, client *http.Client, pagesPerSecond float64, logger *slog.Logger) *FrontPageScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	siteURL = strings.TrimRight(siteURL, "/")
	if siteURL == "" {
		siteURL = DefaultSiteURL
	}
	limit := rate.Inf
	if pagesPerSecond > 0 {
		limit = rate.Limit(pagesPerSecond)
	}
	return &FrontPageScanner{
		client:  client,
		siteURL: siteURL,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Name identifies the strategy inside the registry.
func (f *FrontPageScanner) Name() string {
	return "html"
}

// RankedIDs walks /news?p=1.. until limit ids are collected or a page comes back empty.
func (f *FrontPageScanner) RankedIDs(ctx context.Context, limit int) ([]domain.ItemID, error) {
	var (
		ids  []domain.ItemID
		seen = map[domain.ItemID]struct{}{}
	)

	for page := 1; page <= maxPages; page++ {
		pageURL, err := buildPageURL(f.siteURL+"/news", page)
		if err != nil {
			return nil, domain.Wrap(domain.ErrTransport, "build front page url", err)
		}

		doc, err := f.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, domain.Wrap(domain.ErrTransport, fmt.Sprintf("fetch front page %d", page), err)
		}

		pageIDs := extractRankedIDs(doc)
		f.debug("front page parsed", "page", page, "count", len(pageIDs))
		if len(pageIDs) == 0 {
			break
		}
		for _, id := range pageIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if limit > 0 && len(ids) >= limit {
			return ids[:limit], nil
		}
	}

	return ids, nil
}

// Item scrapes one item page. A missing row (deleted or dead item) yields empty metadata.
func (f *FrontPageScanner) Item(ctx context.Context, id domain.ItemID) (domain.ItemMetadata, error) {
	itemURL := fmt.Sprintf("%s/item?id=%s", f.siteURL, id)
	doc, err := f.fetchDocument(ctx, itemURL)
	if err != nil {
		return domain.ItemMetadata{}, domain.Wrap(domain.ErrTransport, fmt.Sprintf("fetch item page %s", id), err)
	}
	return parseItem(doc, id), nil
}

func (f *FrontPageScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "HNWatcher/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("site returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractRankedIDs(doc *goquery.Document) []domain.ItemID {
	var ids []domain.ItemID
	doc.Find("tr.athing").Each(func(_ int, row *goquery.Selection) {
		raw, ok := row.Attr("id")
		if !ok {
			return
		}
		id, err := domain.ParseItemID(raw)
		if err != nil {
			return
		}
		ids = append(ids, id)
	})
	return ids
}

func parseItem(doc *goquery.Document, id domain.ItemID) domain.ItemMetadata {
	var meta domain.ItemMetadata

	row := doc.Find(fmt.Sprintf(`tr.athing[id="%s"]`, id)).First()
	if row.Length() == 0 {
		return meta
	}

	link := row.Find(".titleline > a").First()
	if link.Length() > 0 {
		title := strings.TrimSpace(link.Text())
		if title != "" {
			meta.Title = &title
		}
		if href, ok := link.Attr("href"); ok && isExternalLink(href) {
			meta.URL = &href
		}
	}

	scoreText := doc.Find(fmt.Sprintf("#score_%s", id)).First().Text()
	if m := leadingNumber.FindStringSubmatch(scoreText); m != nil {
		if score, err := strconv.Atoi(m[1]); err == nil {
			meta.Score = &score
		}
	}

	return meta
}

// Self posts link back to their own item page, which is the default anyway.
func isExternalLink(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "item?id=") {
		return false
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return false
	}
	return parsed.IsAbs()
}

func buildPageURL(base string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid page url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("p", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (f *FrontPageScanner) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
