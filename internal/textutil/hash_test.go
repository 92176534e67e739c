package textutil

import (
	"testing"
	"time"
)

func TestNormalizeURLLowercasesAndStripsQueryAndFragment(t *testing.T) {
	t.Parallel()

	got := NormalizeURL("HTTPS://Example.COM/Path/Article/?utm_source=x#section")
	want := "https://example.com/path/article"
	if got != want {
		t.Fatalf("NormalizeURL mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestNormalizeURLStripsTrailingSlashExceptRoot(t *testing.T) {
	t.Parallel()

	if got := NormalizeURL("https://example.com/story/"); got != "https://example.com/story" {
		t.Fatalf("unexpected trailing-slash normalization: %q", got)
	}
	if got := NormalizeURL("https://example.com/"); got != "https://example.com/" {
		t.Fatalf("root path should keep its slash: %q", got)
	}
}

func TestExtractDomainStripsWWW(t *testing.T) {
	t.Parallel()

	if got := ExtractDomain("https://www.example.com/story"); got != "example.com" {
		t.Fatalf("unexpected domain: %q", got)
	}
	if got := ExtractDomain("https://news.example.com:443/story"); got != "news.example.com" {
		t.Fatalf("unexpected domain with port: %q", got)
	}
}

func TestExtractDomainFallsBackToRegexOnUnparseableURL(t *testing.T) {
	t.Parallel()

	got := ExtractDomain("not a url but mentions www.example.org somewhere")
	if got != "example.org" {
		t.Fatalf("unexpected fallback domain: %q", got)
	}
}

func TestContentHashUsesExternalIDWhenPresent(t *testing.T) {
	t.Parallel()

	a := ContentHash("https://example.com/a", "feed-123", "Title A", nil)
	b := ContentHash("https://example.com/a?utm_source=x", "feed-123", "Different Title", nil)
	if a != b {
		t.Fatalf("expected identical hashes for same URL+externalID regardless of title/query, got %q vs %q", a, b)
	}

	c := ContentHash("https://example.com/a", "feed-456", "Title A", nil)
	if a == c {
		t.Fatalf("expected different hashes for different external ids")
	}
}

func TestContentHashFallsBackToTitleAndDateBucket(t *testing.T) {
	t.Parallel()

	published := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	a := ContentHash("https://example.com/a", "", "Same Title", &published)
	b := ContentHash("https://example.com/a", "", "Same Title", &published)
	if a != b {
		t.Fatalf("expected deterministic hash for identical inputs")
	}

	otherDay := published.Add(48 * time.Hour)
	c := ContentHash("https://example.com/a", "", "Same Title", &otherDay)
	if a == c {
		t.Fatalf("expected different hashes across date buckets")
	}

	noDate := ContentHash("https://example.com/a", "", "Same Title", nil)
	if noDate == a {
		t.Fatalf("expected the unknown-date bucket to differ from a dated bucket")
	}
}

func TestFingerprintLockKeyIsDeterministicAndSigned64Bit(t *testing.T) {
	t.Parallel()

	k1 := FingerprintLockKey("openai:gpt-5-release")
	k2 := FingerprintLockKey("openai:gpt-5-release")
	if k1 != k2 {
		t.Fatalf("expected deterministic lock key, got %d vs %d", k1, k2)
	}
	if k1 < 0 {
		t.Fatalf("expected a non-negative 60-bit lock key, got %d", k1)
	}

	other := FingerprintLockKey("anthropic:claude-release")
	if other == k1 {
		t.Fatalf("expected distinct fingerprints to produce distinct lock keys")
	}
}

func TestTruncateAppendsEllipsisWithinLimit(t *testing.T) {
	t.Parallel()

	got := Truncate("abcdefghijklmnop", 10)
	if len([]rune(got)) != 10 {
		t.Fatalf("expected truncated string to respect the limit, got %q (len %d)", got, len([]rune(got)))
	}
	if got != "abcdefghi…" {
		t.Fatalf("unexpected truncated text: %q", got)
	}

	short := Truncate("short", 10)
	if short != "short" {
		t.Fatalf("expected untruncated text to be returned unchanged: %q", short)
	}
}
