package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns a function to collect metrics.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterFor sums an int64 counter's datapoints carrying key=value.
func counterFor(t *testing.T, rm *metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	require.NotNil(t, m, "metric %s not found", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum type for %s", name)

	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.Emit() == value {
			total += dp.Value
		}
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "expected real metrics recorder, got noop")
}

func TestRecordStageExecution(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("records execution count", func(t *testing.T) {
		m.RecordStageExecution(ctx, "perception", 50*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		assert.GreaterOrEqual(t, counterFor(t, rm, "npcgraph.stage.executions", "stage_id", "perception"), int64(1))
	})

	t.Run("records latency", func(t *testing.T) {
		m.RecordStageExecution(ctx, "planner", 100*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "npcgraph.stage.latency_ms")
		require.NotNil(t, metric)
		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "expected Histogram type")
		assert.NotEmpty(t, hist.DataPoints)
	})

	t.Run("records errors only when present", func(t *testing.T) {
		m.RecordStageExecution(ctx, "critic", 10*time.Millisecond, errors.New("stage failed"))

		rm := collectMetrics(t, reader)
		assert.Equal(t, int64(1), counterFor(t, rm, "npcgraph.stage.errors", "stage_id", "critic"))
		assert.Equal(t, int64(0), counterFor(t, rm, "npcgraph.stage.errors", "stage_id", "perception"))
	})
}

func TestRecordRun(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordRun(ctx, true, 200*time.Millisecond)
	m.RecordRun(ctx, true, 300*time.Millisecond)
	m.RecordRun(ctx, false, 50*time.Millisecond)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), counterFor(t, rm, "npcgraph.turn.runs", "success", "true"))
	assert.Equal(t, int64(1), counterFor(t, rm, "npcgraph.turn.runs", "success", "false"))
	assert.NotNil(t, findMetric(rm, "npcgraph.turn.latency_ms"))
}

func TestRecordDetourAndSnapshot(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordDetour(ctx, "planner")
	m.RecordDetour(ctx, "planner")
	m.RecordDetour(ctx, "context")
	m.RecordSnapshot(ctx, 2048)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), counterFor(t, rm, "npcgraph.detours", "stage_id", "planner"))
	assert.Equal(t, int64(1), counterFor(t, rm, "npcgraph.detours", "stage_id", "context"))

	metric := findMetric(rm, "npcgraph.snapshot.size_bytes")
	require.NotNil(t, metric)
	hist, ok := metric.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, int64(2048), hist.DataPoints[0].Sum)
}
