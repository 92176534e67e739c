package normalizer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchOGImagePrefersOGImageOverTwitterImage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
<meta property="og:image" content="https://example.com/og.png">
<meta name="twitter:image" content="https://example.com/twitter.png">
</head><body></body></html>`))
	}))
	defer server.Close()

	got := FetchOGImage(context.Background(), server.URL)
	if got != "https://example.com/og.png" {
		t.Fatalf("unexpected image url: %q", got)
	}
}

func TestFetchOGImageFallsBackToTwitterImage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
<meta name="twitter:image" content="https://example.com/twitter.png">
</head></html>`))
	}))
	defer server.Close()

	got := FetchOGImage(context.Background(), server.URL)
	if got != "https://example.com/twitter.png" {
		t.Fatalf("unexpected image url: %q", got)
	}
}

func TestFetchOGImageReturnsEmptyOnFailure(t *testing.T) {
	t.Parallel()

	got := FetchOGImage(context.Background(), "http://127.0.0.1:1/does-not-exist")
	if got != "" {
		t.Fatalf("expected empty string on fetch failure, got %q", got)
	}
}

func TestValidOGImageURLRejectsBlockedPaths(t *testing.T) {
	t.Parallel()

	if validOGImageURL("https://example.com/api/og?id=1") {
		t.Fatalf("expected /api/og paths to be rejected")
	}
	if validOGImageURL("https://example.com/og-image/1.png") {
		t.Fatalf("expected /og-image paths to be rejected")
	}
	if !validOGImageURL("https://example.com/images/story.png") {
		t.Fatalf("expected a normal image path to be accepted")
	}
}
