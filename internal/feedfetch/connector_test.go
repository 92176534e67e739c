package feedfetch

import (
	"context"
	"testing"

	"github.com/signaldesk/signaldesk/internal/config"
)

type fakeConnector struct {
	handles string
	items   []Item
	err     error
}

func (f fakeConnector) CanHandle(source config.FeedSource) bool {
	return source.SourceType == f.handles
}

func (f fakeConnector) Fetch(_ context.Context, _ config.FeedSource) (Result, error) {
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Items: f.items}, nil
}

func TestRegistryDispatchesToFirstMatchingConnector(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(
		fakeConnector{handles: "MEDIA", items: []Item{{Title: "media item"}}},
		fakeConnector{handles: "SOCIAL", items: []Item{{Title: "social item"}}},
	)

	items, errs := registry.FetchAll(context.Background(), []config.FeedSource{
		{Name: "s1", SourceType: "SOCIAL"},
		{Name: "s2", SourceType: "MEDIA"},
	})

	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Title != "social item" || items[1].Title != "media item" {
		t.Fatalf("expected items in source order, got %+v", items)
	}
}

func TestRegistryCollectsPerSourceErrorsWithoutAborting(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(StubConnector{})

	items, errs := registry.FetchAll(context.Background(), []config.FeedSource{
		{Name: "unimplemented", SourceType: "SOCIAL"},
	})

	if len(items) != 0 {
		t.Fatalf("expected no items from an unimplemented source, got %v", items)
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", errs)
	}
}

func TestRegistryReportsUnresolvedSourceType(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(fakeConnector{handles: "MEDIA"})

	_, errs := registry.FetchAll(context.Background(), []config.FeedSource{
		{Name: "mystery", SourceType: "REGULATORY"},
	})
	if len(errs) != 1 {
		t.Fatalf("expected one error for an unresolved source type, got %v", errs)
	}
}
