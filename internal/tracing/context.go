// Package tracing carries request identifiers through contexts so log lines
// from one agent run can be correlated.
package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// RunIDKey is the context key for the agent run ID
	RunIDKey ContextKey = "run_id"
	// ProjectIDKey is the context key for the project identifier
	ProjectIDKey ContextKey = "project_id"
	// SessionIDKey is the context key for the local session ID
	SessionIDKey ContextKey = "session_id"
)

// NewRunID generates a new run ID.
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithProjectID adds a project identifier to the context.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, ProjectIDKey, projectID)
}

// WithSessionID adds a local session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// GetProjectID retrieves the project identifier from the context.
func GetProjectID(ctx context.Context) string {
	if projectID, ok := ctx.Value(ProjectIDKey).(string); ok {
		return projectID
	}
	return ""
}

// GetSessionID retrieves the local session ID from the context.
func GetSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// NewRunContext creates a context for one agent run with a fresh run ID.
func NewRunContext(ctx context.Context) context.Context {
	return WithRunID(ctx, NewRunID())
}
