package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "npcgraph"

// SpanManager opens the spans of a turn: one turn span with a child span
// per stage. NoopSpanManager{} disables tracing.
type SpanManager interface {
	StartTurnSpan(ctx context.Context, threadID, turnID string) (context.Context, trace.Span)
	StartStageSpan(ctx context.Context, stageID string) (context.Context, trace.Span)
	EndSpanWithError(span trace.Span, err error)
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct {
	tracer trace.Tracer
}

// SpanOption configures NewSpanManager.
type SpanOption func(*otelSpanManager)

// WithTracerProvider traces through tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) SpanOption {
	return func(m *otelSpanManager) {
		if tp != nil {
			m.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewSpanManager returns an OpenTelemetry SpanManager. Without options it
// uses the global tracer provider, so call otel.SetTracerProvider first.
func NewSpanManager(opts ...SpanOption) SpanManager {
	m := &otelSpanManager{tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *otelSpanManager) StartTurnSpan(ctx context.Context, threadID, turnID string) (context.Context, trace.Span) {
	return startTurn(ctx, m.tracer, threadID, turnID)
}

func (m *otelSpanManager) StartStageSpan(ctx context.Context, stageID string) (context.Context, trace.Span) {
	return startStage(ctx, m.tracer, stageID)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// StartTurnSpan starts a turn span on the global tracer provider. The NPC
// id is taken from the owner part of an owner:session thread id.
func StartTurnSpan(ctx context.Context, threadID, turnID string) (context.Context, trace.Span) {
	return startTurn(ctx, otel.Tracer(tracerName), threadID, turnID)
}

// StartStageSpan starts a stage span on the global tracer provider.
func StartStageSpan(ctx context.Context, stageID string) (context.Context, trace.Span) {
	return startStage(ctx, otel.Tracer(tracerName), stageID)
}

func startTurn(ctx context.Context, tr trace.Tracer, threadID, turnID string) (context.Context, trace.Span) {
	owner, _, _ := strings.Cut(threadID, ":")
	return tr.Start(ctx, "npcgraph.turn",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.String("npc.id", owner),
			attribute.String("turn.id", turnID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func startStage(ctx context.Context, tr trace.Tracer, stageID string) (context.Context, trace.Span) {
	return tr.Start(ctx, "npcgraph.stage."+stageID,
		trace.WithAttributes(attribute.String("stage.id", stageID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError sets the span status from err and ends it. A nil span
// is ignored.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the recording span in ctx, if any.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
