// Package feedfetch retrieves raw items from configured feed sources behind
// a pluggable connector interface. One working connector exists for
// syndication (RSS/Atom) feeds; additional source types get a
// "connector not implemented" error from StubConnector rather than being
// silently dropped. FetchError carries no kind, so the pipeline runner
// records these failures as FETCH_ERROR like any other fetch failure.
package feedfetch

import (
	"context"
	"time"

	"github.com/signaldesk/signaldesk/internal/config"
)

// Item is one raw entry retrieved from a feed, before any hashing or
// persistence decisions are made.
type Item struct {
	SourceType  string
	SourceName  string
	ExternalID  string
	SourceURL   string
	Title       string
	Author      string
	PublishedAt *time.Time
	Text        string // HTML-stripped plain-text extract
	ContentType string
	Payload     map[string]any // original structured fields, stored verbatim
}

// FetchError records one item- or feed-level failure without aborting the
// cycle; the caller decides how to bucket it into the run audit.
type FetchError struct {
	SourceName string
	Message    string
}

func (e FetchError) Error() string {
	return e.SourceName + ": " + e.Message
}

// Result is what one connector invocation returns for one configured source.
type Result struct {
	Items    []Item
	Errors   []FetchError
	Metadata map[string]any
}

// Connector is the contract every fetch strategy implements: decide whether
// it handles a source, then fetch it.
type Connector interface {
	CanHandle(source config.FeedSource) bool
	Fetch(ctx context.Context, source config.FeedSource) (Result, error)
}

// Registry holds an ordered list of connectors and dispatches each source to
// the first one whose CanHandle returns true.
type Registry struct {
	connectors []Connector
}

// NewRegistry builds a registry from connectors in priority order.
func NewRegistry(connectors ...Connector) *Registry {
	return &Registry{connectors: connectors}
}

// FetchAll runs every configured source through the registry, in source
// order, collecting items and errors without letting one source's failure
// abort the others.
func (r *Registry) FetchAll(ctx context.Context, sources []config.FeedSource) ([]Item, []FetchError) {
	var items []Item
	var errs []FetchError

	for _, source := range sources {
		connector := r.resolve(source)
		if connector == nil {
			errs = append(errs, FetchError{
				SourceName: source.Name,
				Message:    "no connector registered for source type " + source.SourceType,
			})
			continue
		}

		result, err := connector.Fetch(ctx, source)
		if err != nil {
			errs = append(errs, FetchError{SourceName: source.Name, Message: err.Error()})
			continue
		}
		items = append(items, result.Items...)
		errs = append(errs, result.Errors...)
	}

	return items, errs
}

func (r *Registry) resolve(source config.FeedSource) Connector {
	if r == nil {
		return nil
	}
	for _, c := range r.connectors {
		if c.CanHandle(source) {
			return c
		}
	}
	return nil
}
