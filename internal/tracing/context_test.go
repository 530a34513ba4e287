package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunContext(t *testing.T) {
	ctx := NewRunContext(context.Background())

	runID := GetRunID(ctx)
	assert.NotEmpty(t, runID)

	// IDs are unique per run context
	other := NewRunContext(context.Background())
	assert.NotEqual(t, runID, GetRunID(other))
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRunID(ctx))
	assert.Empty(t, GetProjectID(ctx))
	assert.Empty(t, GetSessionID(ctx))

	ctx = WithRunID(ctx, "run-1")
	ctx = WithProjectID(ctx, "proj-1")
	ctx = WithSessionID(ctx, "sess-1")

	assert.Equal(t, "run-1", GetRunID(ctx))
	assert.Equal(t, "proj-1", GetProjectID(ctx))
	assert.Equal(t, "sess-1", GetSessionID(ctx))
}
