package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest creates a test tracer provider with an in-memory span recorder.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func spanAttr(attrs []attribute.KeyValue, key string) string {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.AsString()
		}
	}
	return ""
}

func TestStartTurnSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	ctx, span := StartTurnSpan(context.Background(), "npc:s1", "turn-1")
	require.NotNil(t, span)
	assert.True(t, span.SpanContext().IsValid())
	assert.NotEqual(t, context.Background(), ctx)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "npcgraph.turn", spans[0].Name)
	assert.Equal(t, "npc:s1", spanAttr(spans[0].Attributes, "thread.id"))
	assert.Equal(t, "turn-1", spanAttr(spans[0].Attributes, "turn.id"))
	assert.Equal(t, "npc", spanAttr(spans[0].Attributes, "npc.id"))
}

func TestStartStageSpan_ChildOfTurn(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	ctx, turn := StartTurnSpan(context.Background(), "npc:s1", "turn-1")
	_, stage := StartStageSpan(ctx, "planner")
	stage.End()
	turn.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	stageSpan := spans[0]
	assert.Equal(t, "npcgraph.stage.planner", stageSpan.Name)
	assert.Equal(t, "planner", spanAttr(stageSpan.Attributes, "stage.id"))
	assert.Equal(t, spans[1].SpanContext.SpanID(), stageSpan.Parent.SpanID())
}

func TestEndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	t.Run("ok status without error", func(t *testing.T) {
		exporter.Reset()
		_, span := StartStageSpan(context.Background(), "mood")
		EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("error status records event", func(t *testing.T) {
		exporter.Reset()
		_, span := StartStageSpan(context.Background(), "critic")
		EndSpanWithError(span, errors.New("llm unavailable"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		assert.Equal(t, "llm unavailable", spans[0].Status.Description)
		require.NotEmpty(t, spans[0].Events)
		assert.Equal(t, "exception", spans[0].Events[0].Name)
	})

	t.Run("nil span is ignored", func(t *testing.T) {
		assert.NotPanics(t, func() { EndSpanWithError(nil, errors.New("x")) })
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	ctx, span := StartTurnSpan(context.Background(), "npc:s1", "turn-1")
	AddSpanEvent(ctx, "detour", attribute.String("stage.id", "planner"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "detour", spans[0].Events[0].Name)
	assert.Equal(t, "planner", spanAttr(spans[0].Events[0].Attributes, "stage.id"))

	assert.NotPanics(t, func() { AddSpanEvent(context.Background(), "orphan") })
}

func TestSpanManager_Delegates(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	ctx, turn := m.StartTurnSpan(context.Background(), "npc:s1", "turn-9")
	_, stage := m.StartStageSpan(ctx, "dialogue")
	m.AddSpanEvent(ctx, "note")
	m.EndSpanWithError(stage, nil)
	m.EndSpanWithError(turn, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "npcgraph.stage.dialogue", spans[0].Name)
	assert.Equal(t, "npcgraph.turn", spans[1].Name)
}

func TestSpanManager_WithTracerProvider(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	m := NewSpanManager(WithTracerProvider(tp))
	ctx, turn := m.StartTurnSpan(context.Background(), "raven:docks", "turn-2")
	m.AddSpanEvent(ctx, "detour", attribute.String("query", "harbour master"))
	m.EndSpanWithError(turn, errors.New("boom"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "raven", spanAttr(spans[0].Attributes, "npc.id"))
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 2)
	assert.Equal(t, "detour", spans[0].Events[0].Name)
}
