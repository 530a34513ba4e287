package agentproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

// HostProcess executes agent invocations directly on the host.
type HostProcess struct{}

// NewHostProcess creates a host-backed Process.
func NewHostProcess() *HostProcess {
	return &HostProcess{}
}

// Execute runs the command with the request's stdin, working directory and
// timeout, capturing stdout, stderr and the exit code.
func (h *HostProcess) Execute(ctx context.Context, req Request) (Result, error) {
	if req.Command == "" {
		return Result{}, ErrEmptyCommand
	}

	if req.WorkingDir != "" {
		if _, err := os.Stat(req.WorkingDir); err != nil {
			return Result{}, fmt.Errorf("%w: %s", ErrWorkingDirMissing, req.WorkingDir)
		}
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, req.Command, req.Args...)

	if req.WorkingDir != "" {
		cmd.Dir = req.WorkingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if len(req.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(req.Stdin)
	}

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	// Timeout wins over whatever error the kill produced
	if execCtx.Err() == context.DeadlineExceeded {
		return Result{
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
			ExitCode: -1,
			Duration: duration,
		}, fmt.Errorf("%w after %s", ErrExecutionTimeout, timeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result := Result{
				Stdout:   stdout.Bytes(),
				Stderr:   stderr.Bytes(),
				ExitCode: exitErr.ExitCode(),
				Duration: duration,
			}

			log.Debug().
				Str("command", req.Command).
				Int("exit_code", result.ExitCode).
				Dur("duration", duration).
				Msg("Agent process exited nonzero")

			return result, nil
		}

		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrCommandNotFound, req.Command)
		}

		return Result{}, fmt.Errorf("failed to run %s: %w", req.Command, err)
	}

	log.Debug().
		Str("command", req.Command).
		Int("stdout_bytes", stdout.Len()).
		Dur("duration", duration).
		Msg("Agent process completed")

	return Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: 0,
		Duration: duration,
	}, nil
}
