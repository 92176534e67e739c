package feedfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/signaldesk/signaldesk/internal/config"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>AI Companion Wire</title>
  <link>https://example.com</link>
  <item>
    <title>Replika launches new voice feature</title>
    <link>https://example.com/articles/replika-voice</link>
    <guid>urn:example:replika-voice</guid>
    <description>&lt;p&gt;Replika today announced a new voice feature for subscribers.&lt;/p&gt;</description>
    <pubDate>Wed, 05 Aug 2026 09:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func TestSyndicationConnectorCanHandleMediaSourcesOnly(t *testing.T) {
	t.Parallel()

	c := NewSyndicationConnector()
	if !c.CanHandle(config.FeedSource{SourceType: "MEDIA"}) {
		t.Fatalf("expected MEDIA source type to be handled")
	}
	if c.CanHandle(config.FeedSource{SourceType: "SOCIAL"}) {
		t.Fatalf("expected SOCIAL source type to not be handled")
	}
}

func TestSyndicationConnectorFetchParsesItems(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	c := NewSyndicationConnector()
	c.Enrich = false // avoid a second network round-trip in this test

	result, err := c.Fetch(context.Background(), config.FeedSource{
		Name:       "ai-companion-wire",
		SourceType: "MEDIA",
		URL:        server.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}

	item := result.Items[0]
	if item.Title != "Replika launches new voice feature" {
		t.Fatalf("unexpected title: %q", item.Title)
	}
	if item.ExternalID != "urn:example:replika-voice" {
		t.Fatalf("unexpected external id: %q", item.ExternalID)
	}
	if strings.Contains(item.Text, "<p>") {
		t.Fatalf("expected HTML stripped from text, got %q", item.Text)
	}
	if item.PublishedAt == nil {
		t.Fatalf("expected a parsed published time")
	}
}

func TestSyndicationConnectorFetchRejectsNonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewSyndicationConnector()
	_, err := c.Fetch(context.Background(), config.FeedSource{Name: "broken", SourceType: "MEDIA", URL: server.URL})
	if err == nil {
		t.Fatalf("expected an error for a non-2xx feed response")
	}
}
