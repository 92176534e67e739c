// Package pipelineerr classifies the errors a pipeline cycle produces so
// they can be captured into an IngestRun's error array instead of
// propagating raw Go errors across component boundaries. No third-party
// error-kind library appears anywhere in the retrieval pack, so this is a
// small stdlib type.
package pipelineerr

import (
	"errors"
	"fmt"
)

// Kind classifies one error raised during a pipeline cycle.
type Kind string

const (
	FetchError     Kind = "FETCH_ERROR"
	NotImplemented Kind = "NOT_IMPLEMENTED"
	Dedup          Kind = "DEDUP"
	Validation     Kind = "VALIDATION"
	RateLimit      Kind = "RATE_LIMIT"
	Timeout        Kind = "TIMEOUT"
	Network        Kind = "NETWORK"
	DBUnique       Kind = "DB_UNIQUE"
	BudgetExceeded Kind = "BUDGET_EXCEEDED"
	PipelineError  Kind = "PIPELINE_ERROR"
)

// Error wraps an underlying error with a Kind and the component/item it
// occurred against, for inclusion in an IngestRun's structured error list.
type Error struct {
	Kind    Kind
	Source  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Source, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified pipeline error.
func New(kind Kind, source string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: kind, Source: source, Message: msg, Err: err}
}

// Record is the JSON-serializable shape persisted in IngestRun.Errors.
type Record struct {
	Kind    Kind   `json:"kind"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

// ToRecord converts a classified error into its persisted shape. Any
// unclassified error is recorded as PIPELINE_ERROR.
func ToRecord(err error) Record {
	if err == nil {
		return Record{}
	}
	var pe *Error
	if errors.As(err, &pe) {
		return Record{Kind: pe.Kind, Source: pe.Source, Message: pe.Message}
	}
	return Record{Kind: PipelineError, Message: err.Error()}
}
