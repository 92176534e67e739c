package normalizer

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNormalizePlatformSlugsLowercasesAndDedupes(t *testing.T) {
	t.Parallel()

	got := normalizePlatformSlugs([]string{"Character.AI", "character ai", "Replika", ""})
	want := []string{"character-ai", "replika"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizePlatformSlugs mismatch\nwant: %v\ngot:  %v", want, got)
	}
}

func TestTruncateRunesAppendsEllipsis(t *testing.T) {
	t.Parallel()

	got := truncateRunes("abcdefghij", 5)
	if got != "abcd…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateRunes("short", 10); got != "short" {
		t.Fatalf("expected untruncated text unchanged, got %q", got)
	}
}

func TestBackoffDelayPrefersServerAdvisedInterval(t *testing.T) {
	t.Parallel()

	if got := backoffDelay(5*time.Second, 2); got != 5*time.Second {
		t.Fatalf("expected server-advised interval, got %v", got)
	}
	if got := backoffDelay(0, 3); got != 3*time.Second {
		t.Fatalf("expected linear backoff fallback, got %v", got)
	}
}

func TestBuildUserPromptIncludesAllFields(t *testing.T) {
	t.Parallel()

	published := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	prompt := buildUserPrompt(pendingSignal{
		Title:      "Replika launches voice mode",
		SourceName: "AI Companion Wire",
		SourceURL:  "https://example.com/a",
		RawText:    "Replika today announced...",
		PublishedAt: &published,
	})

	for _, want := range []string{"Replika launches voice mode", "AI Companion Wire", "https://example.com/a", "2026-08-06T12:00:00Z", "Replika today announced"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q, got %q", want, prompt)
		}
	}
}
