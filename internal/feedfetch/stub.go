package feedfetch

import (
	"context"
	"fmt"

	"github.com/signaldesk/signaldesk/internal/config"
)

// StubConnector matches any source and immediately reports a
// NOT_IMPLEMENTED-style error. It exists so the registry always has a
// terminal handler for source types outside the one working variant
// (syndication feeds), instead of silently dropping sources with no match.
// Register it last.
type StubConnector struct{}

func (StubConnector) CanHandle(config.FeedSource) bool { return true }

func (StubConnector) Fetch(_ context.Context, source config.FeedSource) (Result, error) {
	return Result{}, fmt.Errorf("connector not implemented for source type %q", source.SourceType)
}
