package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	npcerrors "github.com/randalmurphal/npcgraph/pkg/npcgraph/errors"
)

// Retrying wraps a Generator with a per-attempt timeout and bounded
// exponential backoff on transient failures.
type Retrying struct {
	next           Generator
	cfg            npcerrors.RetryConfig
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// RetryingOption configures Retrying.
type RetryingOption func(*Retrying)

// WithRetryConfig replaces the backoff policy.
func WithRetryConfig(cfg npcerrors.RetryConfig) RetryingOption {
	return func(r *Retrying) { r.cfg = cfg }
}

// WithAttemptTimeout bounds each attempt. Zero disables the bound.
func WithAttemptTimeout(d time.Duration) RetryingOption {
	return func(r *Retrying) { r.attemptTimeout = d }
}

// WithRetryLogger logs every retry at warn level.
func WithRetryLogger(logger *slog.Logger) RetryingOption {
	return func(r *Retrying) { r.logger = logger }
}

// NewRetrying wraps next. Defaults: errors.DefaultRetry, 30s per attempt.
func NewRetrying(next Generator, opts ...RetryingOption) *Retrying {
	r := &Retrying{
		next:           next,
		cfg:            npcerrors.DefaultRetry,
		attemptTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate implements Generator. On exhaustion the returned error is a
// *errors.CategorizedError wrapping the last failure.
func (r *Retrying) Generate(ctx context.Context, req Request) (string, error) {
	cfg := r.cfg
	if r.logger != nil {
		onRetry := cfg.OnRetry
		cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
			r.logger.Warn("generation failed, retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
				slog.Duration("wait", wait),
			)
			if onRetry != nil {
				onRetry(attempt, err, wait)
			}
		}
	}

	result := npcerrors.WithRetryContext(ctx, cfg, func(ctx context.Context) (string, error) {
		return r.attempt(ctx, req)
	})
	return result.Value, result.Err
}

func (r *Retrying) attempt(ctx context.Context, req Request) (string, error) {
	if r.attemptTimeout <= 0 {
		return r.next.Generate(ctx, req)
	}

	actx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()

	out, err := r.next.Generate(actx, req)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		var timeoutErr *npcerrors.TimeoutError
		if !errors.As(err, &timeoutErr) {
			err = &npcerrors.TimeoutError{Operation: "generate", Duration: r.attemptTimeout}
		}
	}
	return out, err
}
