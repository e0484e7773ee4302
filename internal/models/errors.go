package models

import (
	"errors"
	"fmt"
)

var ErrNoData = errors.New("no data")
var ErrMissingRequestID = errors.New("missing RequestId")
var ErrQueryPollExhausted = errors.New("query did not complete within poll limit")

// ParseFailure reports a recognized label whose value could not be parsed.
// The field is left absent and extraction of other fields continues.
type ParseFailure struct {
	Label string
	Value string
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("malformed %s value %q", e.Label, e.Value)
}

// RecordFailure reports an event that looked like a report line but could
// not become a record. The event is discarded.
type RecordFailure struct {
	Function string
	Stream   string
	Line     string
	Err      error
}

func (e *RecordFailure) Error() string {
	return fmt.Sprintf("discarding event for %s (stream %s): %v", e.Function, e.Stream, e.Err)
}

func (e *RecordFailure) Unwrap() error {
	return e.Err
}

// PageFailure reports a failed page fetch. The stream (or metric) is
// truncated at the last successful page.
type PageFailure struct {
	Function string
	Stream   string // log stream, or metric name for statistics pages
	Page     int
	Code     string // AWS error code, when known
	Err      error
}

func (e *PageFailure) Error() string {
	return fmt.Sprintf("page %d of %s for %s failed: %v", e.Page, e.Stream, e.Function, e.Err)
}

func (e *PageFailure) Unwrap() error {
	return e.Err
}

// FunctionFailure reports an unexpected error while extracting one function.
// That function's output is skipped.
type FunctionFailure struct {
	Function string
	Err      error
}

func (e *FunctionFailure) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Function, e.Err)
}

func (e *FunctionFailure) Unwrap() error {
	return e.Err
}
