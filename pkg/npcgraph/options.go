package npcgraph

import (
	"log/slog"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/observability"
)

// Transition describes one routing decision made during a run.
type Transition struct {
	// From is the stage that just completed.
	From StageID
	// To is the next stage, or END.
	To StageID
	// Key is the route key for conditional edges; empty for plain edges.
	Key RouteKey
	// Routing is a copy of the routing control after the decision.
	Routing RoutingControl
}

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxHops        int
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
	onTransition   func(Transition)
}

// defaultRunConfig returns the default execution configuration.
// A zero maxHops means the graph's own HopBound applies.
func defaultRunConfig() runConfig {
	return runConfig{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxHops lowers the hop bound for a run.
// Values above the graph's HopBound are clamped to it.
func WithMaxHops(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxHops = n
		}
	}
}

// WithObservabilityLogger sets the logger used for run and stage lifecycle logs.
// Nil disables lifecycle logging. Stages still log through Context.Logger().
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
//
// Example:
//
//	result, err := compiled.Run(ctx, state,
//	    npcgraph.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OTel spans for the run and every stage.
func WithTracing(spans observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if spans != nil {
			c.spans = spans
			c.tracingEnabled = true
		}
	}
}

// WithTransitionHook registers fn to be called after every routing decision.
func WithTransitionHook(fn func(Transition)) RunOption {
	return func(c *runConfig) {
		c.onTransition = fn
	}
}
