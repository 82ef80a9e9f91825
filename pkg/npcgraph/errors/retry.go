package errors

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig is a bounded exponential backoff policy.
type RetryConfig struct {
	// MaxAttempts counts the first call. Values below 1 mean one call.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	// Jitter spreads each wait by up to ±Jitter of its length.
	Jitter float64

	// RetryableFunc replaces IsRetryable when set.
	RetryableFunc func(error) bool
	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultRetry is used for provider calls: 3 attempts, 500ms doubling to 8s.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     8 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry makes exactly one call.
var NoRetry = RetryConfig{MaxAttempts: 1}

// RetryOption adjusts a RetryConfig.
type RetryOption func(*RetryConfig)

// NewRetryConfig applies opts over DefaultRetry.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := DefaultRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMaxAttempts sets the total number of attempts, the first included.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxAttempts = n }
}

// WithInitialBackoff sets the wait before the first retry.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.InitialBackoff = d }
}

// WithMaxBackoff caps the wait between attempts.
func WithMaxBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxBackoff = d }
}

// WithJitter sets the random spread applied to each wait, as a fraction.
func WithJitter(j float64) RetryOption {
	return func(cfg *RetryConfig) { cfg.Jitter = j }
}

// WithRetryableFunc overrides which errors are retried.
func WithRetryableFunc(fn func(error) bool) RetryOption {
	return func(cfg *RetryConfig) { cfg.RetryableFunc = fn }
}

// WithOnRetry sets a callback invoked before each retry wait.
func WithOnRetry(fn func(attempt int, err error, wait time.Duration)) RetryOption {
	return func(cfg *RetryConfig) { cfg.OnRetry = fn }
}

func (c RetryConfig) attempts() int {
	return max(c.MaxAttempts, 1)
}

// Backoff returns the wait after the given failed attempt (1-based),
// before jitter.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	factor := c.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	d := float64(c.InitialBackoff) * math.Pow(factor, float64(attempt-1))
	if c.MaxBackoff > 0 && d > float64(c.MaxBackoff) {
		return c.MaxBackoff
	}
	return time.Duration(d)
}

// wait is the jittered backoff, stretched to honour a provider's
// retry-after hint.
func (c RetryConfig) wait(attempt int, err error) time.Duration {
	d := spread(c.Backoff(attempt), c.Jitter)
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > d {
		d = rateErr.RetryAfter
	}
	return d
}

func spread(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || d <= 0 {
		return d
	}
	return d + time.Duration(float64(d)*jitter*(rand.Float64()*2-1))
}

// RetryResult is the outcome of WithRetryContext.
type RetryResult[T any] struct {
	Value    T
	Err      error
	Attempts int
	Duration time.Duration
}

// WithRetryContext calls fn until it succeeds, fails permanently, runs out
// of attempts or ctx ends. Every failure comes back as a *CategorizedError
// wrapping the last error; exhaustion carries the context
// "max retries exceeded".
func WithRetryContext[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) RetryResult[T] {
	start := time.Now()
	retryable := cfg.RetryableFunc
	if retryable == nil {
		retryable = IsRetryable
	}

	var res RetryResult[T]
	stop := func(err error, category Category, why string) RetryResult[T] {
		res.Err = &CategorizedError{Err: err, Category: category, Retries: res.Attempts, Context: why}
		res.Duration = time.Since(start)
		return res
	}

	limit := cfg.attempts()
	for {
		if err := ctx.Err(); err != nil {
			return stop(err, CategoryPermanent, "context cancelled")
		}

		value, err := fn(ctx)
		res.Attempts++
		if err == nil {
			res.Value = value
			res.Duration = time.Since(start)
			return res
		}
		if !retryable(err) {
			return stop(err, Categorize(err), "")
		}
		if res.Attempts >= limit {
			return stop(err, Categorize(err), "max retries exceeded")
		}

		d := cfg.wait(res.Attempts, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(res.Attempts, err, d)
		}
		if err := sleep(ctx, d); err != nil {
			return stop(err, CategoryPermanent, "context cancelled during backoff")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
