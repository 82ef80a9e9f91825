// Package observability provides structured logging, metrics and tracing
// for NPC turns.
//
// Logging uses slog. Metrics and tracing use OpenTelemetry and fall back to
// no-op implementations when disabled.
package observability

import (
	"log/slog"
)

// EnrichLogger adds turn context to a logger.
// Returns a new logger with thread_id and turn_id fields.
func EnrichLogger(logger *slog.Logger, threadID, turnID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("thread_id", threadID),
		slog.String("turn_id", turnID),
	)
}

// LogRunStart logs the start of a graph run for a turn.
func LogRunStart(logger *slog.Logger, threadID, turnID string) {
	if logger == nil {
		return
	}
	logger.Info("turn run starting",
		slog.String("thread_id", threadID),
		slog.String("turn_id", turnID),
	)
}

// LogRunComplete logs successful run completion.
func LogRunComplete(logger *slog.Logger, turnID string, durationMs float64, hops, detours int) {
	if logger == nil {
		return
	}
	logger.Info("turn run completed",
		slog.String("turn_id", turnID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("hops", hops),
		slog.Int("detours", detours),
	)
}

// LogRunError logs a failed run.
func LogRunError(logger *slog.Logger, turnID string, err error, durationMs float64, lastStage string) {
	if logger == nil {
		return
	}
	logger.Error("turn run failed",
		slog.String("turn_id", turnID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_stage", lastStage),
	)
}

// LogStageStart logs stage execution start.
func LogStageStart(logger *slog.Logger, stageID string) {
	if logger == nil {
		return
	}
	logger.Debug("stage starting",
		slog.String("stage_id", stageID),
	)
}

// LogStageComplete logs successful stage completion.
func LogStageComplete(logger *slog.Logger, stageID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("stage completed",
		slog.String("stage_id", stageID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStageError logs stage execution error.
func LogStageError(logger *slog.Logger, stageID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("stage failed",
		slog.String("stage_id", stageID),
		slog.String("error", err.Error()),
	)
}

// LogDetour logs a stage handing control to the world-knowledge stage.
func LogDetour(logger *slog.Logger, from, query string) {
	if logger == nil {
		return
	}
	logger.Debug("world-knowledge detour",
		slog.String("stage_id", from),
		slog.String("query", query),
	)
}

// LogParseFallback logs a stage substituting a default for unparsable output.
func LogParseFallback(logger *slog.Logger, stageID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("stage output unparsable, using fallback",
		slog.String("stage_id", stageID),
		slog.String("error", err.Error()),
	)
}

// LogTurnPersisted logs a saved thread snapshot.
func LogTurnPersisted(logger *slog.Logger, threadID string, messages, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("thread state saved",
		slog.String("thread_id", threadID),
		slog.Int("messages", messages),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogTurnFailed logs a turn that ended in failure without persisting state.
func LogTurnFailed(logger *slog.Logger, threadID, stageID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("turn failed",
		slog.String("thread_id", threadID),
		slog.String("stage_id", stageID),
		slog.String("error", err.Error()),
	)
}
