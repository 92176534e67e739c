package feedfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/signaldesk/signaldesk/internal/config"
	"github.com/signaldesk/signaldesk/internal/reader"
	"github.com/signaldesk/signaldesk/internal/textutil"
)

const maxFeedBodyBytes = 8 * 1024 * 1024

const (
	syndicationSourceType = "MEDIA"

	maxRawTextChars       = 20000
	enrichmentMinTextLen  = 280
	defaultFetchTimeout   = 15 * time.Second
)

// SyndicationConnector retrieves items from standard RSS/Atom feeds using
// gofeed, strips HTML from description/content fields, parses dates
// permissively across several alternative fields, and falls back to a full
// article-text fetch when the feed's own description is too short.
type SyndicationConnector struct {
	HTTPClient   *http.Client
	FetchTimeout time.Duration
	Enrich       bool
}

// NewSyndicationConnector builds a connector with sane defaults. Enrichment
// (fetching the full article when the feed description is thin) is on by
// default; callers can disable it for tests or low-latency cycles.
func NewSyndicationConnector() *SyndicationConnector {
	return &SyndicationConnector{
		HTTPClient:   &http.Client{Timeout: defaultFetchTimeout},
		FetchTimeout: defaultFetchTimeout,
		Enrich:       true,
	}
}

func (c *SyndicationConnector) CanHandle(source config.FeedSource) bool {
	return strings.EqualFold(source.SourceType, syndicationSourceType)
}

func (c *SyndicationConnector) Fetch(ctx context.Context, source config.FeedSource) (Result, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, source.URL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "SignalDesk-FeedFetcher/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*;q=0.8")

	resp, err := c.client().Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read feed body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("parse feed: %w", err)
	}

	result := Result{
		Metadata: map[string]any{
			"feedTitle": feed.Title,
			"feedLink":  feed.Link,
		},
	}

	for _, entry := range feed.Items {
		item, err := c.normalizeEntry(fetchCtx, source, entry)
		if err != nil {
			result.Errors = append(result.Errors, FetchError{SourceName: source.Name, Message: err.Error()})
			continue
		}
		result.Items = append(result.Items, item)
	}

	return result, nil
}

func (c *SyndicationConnector) normalizeEntry(ctx context.Context, source config.FeedSource, entry *gofeed.Item) (Item, error) {
	link := strings.TrimSpace(entry.Link)
	if link == "" {
		return Item{}, fmt.Errorf("feed item has no link")
	}

	externalID := strings.TrimSpace(entry.GUID)
	title := strings.TrimSpace(entry.Title)

	rawText := textutil.StripHTML(firstNonEmpty(entry.Content, entry.Description))
	if c.Enrich && len([]rune(rawText)) < enrichmentMinTextLen {
		if enriched, err := reader.FetchTextWithOptions(ctx, link, title, reader.FetchOptions{
			Timeout:    8 * time.Second,
			HTTPClient: c.client(),
		}); err == nil && len([]rune(enriched)) > len([]rune(rawText)) {
			rawText = enriched
		}
	}
	rawText = textutil.Truncate(rawText, maxRawTextChars)

	var author string
	if entry.Author != nil {
		author = strings.TrimSpace(entry.Author.Name)
	} else if len(entry.Authors) > 0 {
		author = strings.TrimSpace(entry.Authors[0].Name)
	}

	publishedAt := parsePermissiveDate(entry.PublishedParsed, entry.Published, entry.UpdatedParsed, entry.Updated)

	payload := map[string]any{
		"guid":        entry.GUID,
		"link":        entry.Link,
		"title":       entry.Title,
		"description": entry.Description,
		"published":   entry.Published,
		"sourceName":  source.Name,
	}

	return Item{
		SourceType:  source.SourceType,
		SourceName:  source.Name,
		ExternalID:  externalID,
		SourceURL:   link,
		Title:       title,
		Author:      author,
		PublishedAt: publishedAt,
		Text:        rawText,
		ContentType: "text/html",
		Payload:     payload,
	}, nil
}

func (c *SyndicationConnector) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.timeout()}
}

func (c *SyndicationConnector) timeout() time.Duration {
	if c.FetchTimeout > 0 {
		return c.FetchTimeout
	}
	return defaultFetchTimeout
}

// parsePermissiveDate tries, in order: the already-parsed published time,
// a permissive re-parse of the raw published string, the already-parsed
// updated time, and a permissive re-parse of the raw updated string.
func parsePermissiveDate(publishedParsed *time.Time, published string, updatedParsed *time.Time, updated string) *time.Time {
	if publishedParsed != nil && !publishedParsed.IsZero() {
		t := publishedParsed.UTC()
		return &t
	}
	if t, err := dateparse.ParseAny(published); err == nil {
		t = t.UTC()
		return &t
	}
	if updatedParsed != nil && !updatedParsed.IsZero() {
		t := updatedParsed.UTC()
		return &t
	}
	if t, err := dateparse.ParseAny(updated); err == nil {
		t = t.UTC()
		return &t
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
