package clusterer

import (
	"testing"
	"time"
)

func TestFingerprintSortsPlatformsAndFormatsDate(t *testing.T) {
	t.Parallel()

	published := time.Date(2026, 8, 6, 9, 30, 0, 0, time.UTC)
	got := Fingerprint([]string{"replika", "character-ai"}, &published, time.Time{}, []string{"voice", "mode"})
	want := "character-ai,replika|2026-08-06|voice,mode"
	if got != want {
		t.Fatalf("fingerprint mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestFingerprintFallsBackToCreatedAtWhenPublishedAtNil(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	got := Fingerprint(nil, nil, created, nil)
	want := "|2026-01-02|"
	if got != want {
		t.Fatalf("fingerprint mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestFingerprintTruncatesToTopFiveKeywords(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	got := Fingerprint(nil, nil, created, []string{"a", "b", "c", "d", "e", "f", "g"})
	want := "|2026-01-02|a,b,c,d,e"
	if got != want {
		t.Fatalf("fingerprint mismatch\nwant: %q\ngot:  %q", want, got)
	}
}
