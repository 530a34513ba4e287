package agentproc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostProcess_Execute_SimpleCommand(t *testing.T) {
	proc := NewHostProcess()

	req := Request{
		Command: "echo",
		Args:    []string{"hello", "world"},
		Timeout: 5 * time.Second,
	}

	result, err := proc.Execute(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, string(result.Stdout), "hello world")
	assert.Empty(t, result.Stderr)
}

func TestHostProcess_Execute_Stdin(t *testing.T) {
	proc := NewHostProcess()

	req := Request{
		Command: "cat",
		Stdin:   []byte("prompt delivered on stdin"),
		Timeout: 5 * time.Second,
	}

	result, err := proc.Execute(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "prompt delivered on stdin", string(result.Stdout))
}

func TestHostProcess_Execute_WorkingDir(t *testing.T) {
	proc := NewHostProcess()
	dir := t.TempDir()

	req := Request{
		Command:    "pwd",
		WorkingDir: dir,
		Timeout:    5 * time.Second,
	}

	result, err := proc.Execute(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, string(result.Stdout), dir)
}

func TestHostProcess_Execute_MissingWorkingDir(t *testing.T) {
	proc := NewHostProcess()

	req := Request{
		Command:    "echo",
		WorkingDir: "/nonexistent/path/for/kova",
		Timeout:    5 * time.Second,
	}

	_, err := proc.Execute(context.Background(), req)

	assert.ErrorIs(t, err, ErrWorkingDirMissing)
}

func TestHostProcess_Execute_EmptyCommand(t *testing.T) {
	proc := NewHostProcess()

	_, err := proc.Execute(context.Background(), Request{})

	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestHostProcess_Execute_NonzeroExit(t *testing.T) {
	proc := NewHostProcess()

	req := Request{
		Command: "sh",
		Args:    []string{"-c", "echo oops >&2; exit 3"},
		Timeout: 5 * time.Second,
	}

	result, err := proc.Execute(context.Background(), req)

	// Nonzero exit is a result, not an error
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, string(result.Stderr), "oops")
}

func TestHostProcess_Execute_Timeout(t *testing.T) {
	proc := NewHostProcess()

	req := Request{
		Command: "sleep",
		Args:    []string{"30"},
		Timeout: 1 * time.Second,
	}

	start := time.Now()
	_, err := proc.Execute(context.Background(), req)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrExecutionTimeout)
	assert.Contains(t, err.Error(), "1s")
	assert.Less(t, elapsed, 3*time.Second)
}

func TestHostProcess_Execute_CommandNotFound(t *testing.T) {
	proc := NewHostProcess()

	req := Request{
		Command: "kova-definitely-not-installed",
		Timeout: 5 * time.Second,
	}

	_, err := proc.Execute(context.Background(), req)

	assert.ErrorIs(t, err, ErrCommandNotFound)
}
