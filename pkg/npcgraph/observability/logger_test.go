package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

// newCapture returns a debug-level JSON logger writing into a buffer.
func newCapture() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// lines decodes each JSON log line.
func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestEnrichLogger(t *testing.T) {
	assert.Nil(t, EnrichLogger(nil, "a", "b"))

	logger, buf := newCapture()
	EnrichLogger(logger, "npc:s1", "turn-1").Info("hello")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "npc:s1", got[0]["thread_id"])
	assert.Equal(t, "turn-1", got[0]["turn_id"])
}

func TestLifecycleLogs(t *testing.T) {
	logger, buf := newCapture()
	boom := errors.New("boom")

	LogRunStart(logger, "npc:s1", "turn-1")
	LogStageStart(logger, "planner")
	LogDetour(logger, "planner", "threat near the bridge")
	LogStageComplete(logger, "planner", 12)
	LogStageError(logger, "critic", boom)
	LogParseFallback(logger, "mood", boom)
	LogRunComplete(logger, "turn-1", 40, 6, 1)
	LogRunError(logger, "turn-1", boom, 41, "critic")
	LogTurnPersisted(logger, "npc:s1", 4, 900)
	LogTurnFailed(logger, "npc:s1", "critic", boom)

	got := lines(t, buf)
	require.Len(t, got, 10)

	tests := []struct {
		idx   int
		level string
		msg   string
		key   string
		want  any
	}{
		{0, "INFO", "turn run starting", "thread_id", "npc:s1"},
		{1, "DEBUG", "stage starting", "stage_id", "planner"},
		{2, "DEBUG", "world-knowledge detour", "query", "threat near the bridge"},
		{3, "DEBUG", "stage completed", "duration_ms", float64(12)},
		{4, "ERROR", "stage failed", "error", "boom"},
		{5, "WARN", "stage output unparsable, using fallback", "stage_id", "mood"},
		{6, "INFO", "turn run completed", "detours", float64(1)},
		{7, "ERROR", "turn run failed", "last_stage", "critic"},
		{8, "DEBUG", "thread state saved", "size_bytes", float64(900)},
		{9, "ERROR", "turn failed", "stage_id", "critic"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			line := got[tt.idx]
			assert.Equal(t, tt.level, line["level"])
			assert.Equal(t, tt.msg, line["msg"])
			assert.Equal(t, tt.want, line[tt.key])
		})
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	boom := errors.New("boom")
	assert.NotPanics(t, func() {
		LogRunStart(nil, "a", "b")
		LogRunComplete(nil, "b", 1, 1, 0)
		LogRunError(nil, "b", boom, 1, "x")
		LogStageStart(nil, "x")
		LogStageComplete(nil, "x", 1)
		LogStageError(nil, "x", boom)
		LogDetour(nil, "x", "q")
		LogParseFallback(nil, "x", boom)
		LogTurnPersisted(nil, "a", 1, 1)
		LogTurnFailed(nil, "a", "x", boom)
	})
}

func TestNoopImplementations(t *testing.T) {
	ctx := context.Background()

	var m MetricsRecorder = NoopMetrics{}
	assert.NotPanics(t, func() {
		m.RecordStageExecution(ctx, "x", time.Millisecond, errors.New("e"))
		m.RecordRun(ctx, false, time.Millisecond)
		m.RecordDetour(ctx, "x")
		m.RecordSnapshot(ctx, 10)
	})

	var s SpanManager = NoopSpanManager{}
	got, span := s.StartTurnSpan(ctx, "t", "r")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	got, span = s.StartStageSpan(ctx, "x")
	assert.Equal(t, ctx, got)
	assert.NotPanics(t, func() {
		s.AddSpanEvent(ctx, "e", attribute.String("k", "v"))
		s.EndSpanWithError(span, errors.New("e"))
	})
}
