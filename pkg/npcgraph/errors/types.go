package errors

import (
	"fmt"
	"time"
)

// ProviderError is a permanent failure reported by a text-generation
// provider, e.g. bad credentials or a rejected request.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// RateLimitError indicates the provider asked the caller to slow down.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// TimeoutError indicates an operation timed out.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}

// StageParseError indicates a stage could not parse model output and fell
// back to its default. It never fails a turn.
type StageParseError struct {
	Stage  string
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *StageParseError) Error() string {
	return fmt.Sprintf("stage %s: unparsable output: %s", e.Stage, e.Reason)
}
