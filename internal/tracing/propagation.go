package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToLogger adds tracing context to a zerolog logger.
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if runID := GetRunID(ctx); runID != "" {
		logger = logger.With().Str("run_id", runID).Logger()
	}
	if projectID := GetProjectID(ctx); projectID != "" {
		logger = logger.With().Str("project_id", projectID).Logger()
	}
	if sessionID := GetSessionID(ctx); sessionID != "" {
		logger = logger.With().Str("session_id", sessionID).Logger()
	}
	return logger
}

// LoggerFromContext creates a logger carrying the context's identifiers.
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}
