// Package agentproc runs an external command-line agent as a child process.
// It is the only place that touches os/exec; everything above it works with
// Request/Result values.
package agentproc

import (
	"context"
	"time"
)

// Request describes one child-process invocation.
type Request struct {
	// Command is the executable name or path.
	Command string `json:"command"`

	// Args are the command arguments. The prompt is never passed here.
	Args []string `json:"args"`

	// WorkingDir is the directory the process runs in.
	WorkingDir string `json:"working_dir"`

	// Stdin is delivered as the process's standard input.
	Stdin []byte `json:"stdin"`

	// Timeout bounds the whole invocation. Zero means DefaultTimeout.
	Timeout time.Duration `json:"timeout"`
}

// Result captures what the process produced.
type Result struct {
	Stdout   []byte        `json:"stdout"`
	Stderr   []byte        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Process is the interface for running an agent invocation. A nonzero exit
// code is reported in Result, not as an error; errors are reserved for the
// cases where no exit status exists (timeout, missing executable).
type Process interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// DefaultTimeout is applied when a request carries no timeout.
const DefaultTimeout = 5 * time.Minute
