package pipelineerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestToRecordClassifiesWrappedPipelineError(t *testing.T) {
	t.Parallel()

	base := New(RateLimit, "llm", errors.New("429 too many requests"))
	wrapped := fmt.Errorf("normalize signal 42: %w", base)

	record := ToRecord(wrapped)
	if record.Kind != RateLimit {
		t.Fatalf("expected kind RATE_LIMIT, got %v", record.Kind)
	}
	if record.Source != "llm" {
		t.Fatalf("expected source llm, got %q", record.Source)
	}
}

func TestToRecordFallsBackToPipelineErrorForUnclassifiedError(t *testing.T) {
	t.Parallel()

	record := ToRecord(errors.New("boom"))
	if record.Kind != PipelineError {
		t.Fatalf("expected fallback kind PIPELINE_ERROR, got %v", record.Kind)
	}
	if record.Message != "boom" {
		t.Fatalf("unexpected message: %q", record.Message)
	}
}

func TestErrorUnwrapExposesUnderlyingError(t *testing.T) {
	t.Parallel()

	underlying := errors.New("connection refused")
	err := New(Network, "rss-feed", underlying)
	if !errors.Is(err, underlying) {
		t.Fatalf("expected errors.Is to find the underlying error")
	}
}
