package npcgraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context provides execution context to stages and decision functions.
// It extends context.Context with turn metadata and an enriched logger.
//
// Context is immutable after creation. The executor derives a context per
// stage with the stage ID set.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with thread, turn and
	// stage fields. Never returns nil.
	Logger() *slog.Logger

	// ThreadID returns the conversation thread this turn belongs to.
	ThreadID() string

	// TurnID returns the unique identifier of this turn.
	// Auto-generated if not configured.
	TurnID() string

	// StageID returns the stage currently executing.
	// Empty before execution starts.
	StageID() StageID
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger   *slog.Logger
	threadID string
	turnID   string
	stageID  StageID
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// ThreadID returns the thread identifier.
func (c *executionContext) ThreadID() string {
	return c.threadID
}

// TurnID returns the turn identifier.
func (c *executionContext) TurnID() string {
	return c.turnID
}

// StageID returns the current stage identifier.
func (c *executionContext) StageID() StageID {
	return c.stageID
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger will be enriched with thread_id, turn_id and stage_id during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithThreadID sets the thread identifier.
func WithThreadID(id string) ContextOption {
	return func(c *executionContext) {
		c.threadID = id
	}
}

// WithTurnID sets the turn identifier.
// If not set, a UUID is generated.
func WithTurnID(id string) ContextOption {
	return func(c *executionContext) {
		if id != "" {
			c.turnID = id
		}
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := npcgraph.NewContext(context.Background(),
//	    npcgraph.WithLogger(logger),
//	    npcgraph.WithThreadID("innkeeper:session-1"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		turnID:  uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withStageID returns a new context with the given stage ID set.
func (c *executionContext) withStageID(id StageID) *executionContext {
	return &executionContext{
		Context:  c.Context,
		logger:   c.logger.With("thread_id", c.threadID, "turn_id", c.turnID, "stage_id", string(id)),
		threadID: c.threadID,
		turnID:   c.turnID,
		stageID:  id,
	}
}

// stageScoped overrides the stage of a caller-supplied Context implementation.
type stageScoped struct {
	Context
	stageID StageID
}

func (s *stageScoped) StageID() StageID {
	return s.stageID
}

// withStage derives the per-stage context used for stages and decisions.
func withStage(ctx Context, id StageID) Context {
	if ec, ok := ctx.(*executionContext); ok {
		return ec.withStageID(id)
	}
	return &stageScoped{Context: ctx, stageID: id}
}
