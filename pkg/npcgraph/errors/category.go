// Package errors classifies the failures of text-generation calls and
// retries the ones worth retrying.
//
// A generation failure is one of three kinds:
//   - transient: rate limits and timeouts; retried with backoff
//   - permanent: rejected requests, bad credentials, cancellation
//   - recoverable: unparsable model output; the stage uses its default
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Category says how a failure should be handled.
type Category int

const (
	// CategoryTransient failures are retried.
	CategoryTransient Category = iota
	// CategoryPermanent failures end the call.
	CategoryPermanent
	// CategoryRecoverable failures are absorbed by the stage.
	CategoryRecoverable
)

var categoryNames = [...]string{
	CategoryTransient:   "transient",
	CategoryPermanent:   "permanent",
	CategoryRecoverable: "recoverable",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// CategorizedError is what a retried call returns when it gives up.
type CategorizedError struct {
	Err      error
	Category Category
	// Retries is the number of attempts made.
	Retries int
	// Context names why the call stopped, e.g. "max retries exceeded".
	Context string
}

func (e *CategorizedError) Error() string {
	msg := fmt.Sprintf("%s (category: %s, attempts: %d)", e.Err, e.Category, e.Retries)
	if e.Context == "" {
		return msg
	}
	return e.Context + ": " + msg
}

func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized tags err with a category.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: category, Context: context}
}

// Categorize classifies err. Unknown and nil errors are permanent.
func Categorize(err error) Category {
	var (
		catErr     *CategorizedError
		rateErr    *RateLimitError
		timeoutErr *TimeoutError
		parseErr   *StageParseError
	)
	switch {
	case err == nil:
		return CategoryPermanent
	case errors.As(err, &catErr):
		return catErr.Category
	case errors.As(err, &rateErr), errors.As(err, &timeoutErr):
		return CategoryTransient
	case errors.As(err, &parseErr):
		return CategoryRecoverable
	case errors.Is(err, context.DeadlineExceeded):
		// A per-call deadline; the caller's own cancellation is permanent.
		return CategoryTransient
	default:
		// ProviderError lands here: retryable statuses are reported as
		// RateLimitError or TimeoutError instead.
		return CategoryPermanent
	}
}

// IsRetryable reports whether another attempt could succeed.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsRecoverable reports whether a stage may substitute its default.
func IsRecoverable(err error) bool {
	return Categorize(err) == CategoryRecoverable
}
