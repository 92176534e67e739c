package feedquery

import "testing"

func TestParamsResolveDefaults(t *testing.T) {
	t.Parallel()

	r, err := Params{}.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.limit != defaultLimit {
		t.Fatalf("expected default limit %d, got %d", defaultLimit, r.limit)
	}
	if r.cursor != nil {
		t.Fatalf("expected nil cursor when none supplied")
	}
}

func TestParamsResolveClampsLimit(t *testing.T) {
	t.Parallel()

	r, err := Params{Limit: 500}.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.limit != maxLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxLimit, r.limit)
	}
}

func TestParamsResolveRejectsInvalidWindow(t *testing.T) {
	t.Parallel()

	if _, err := (Params{Window: "3h"}).resolve(); err == nil {
		t.Fatal("expected error for unsupported window value")
	}
}

func TestParamsResolveRejectsInvalidCursor(t *testing.T) {
	t.Parallel()

	if _, err := (Params{Cursor: "!!!not-a-cursor"}).resolve(); err == nil {
		t.Fatal("expected error for invalid cursor token")
	}
}

func TestParamsResolveLowercasesPlatformSlug(t *testing.T) {
	t.Parallel()

	r, err := Params{Platform: "CompanionCo"}.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.platform != "companionco" {
		t.Fatalf("expected lowercased platform slug, got %q", r.platform)
	}
}
