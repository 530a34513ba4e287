// Package executor turns logical prompt requests into external agent
// invocations and classified outcomes. It owns the flag policy of the agent
// CLI, the response decode order, and continuity-handle bookkeeping.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rizal/kova/internal/metrics"
	"github.com/rizal/kova/internal/tracing"
	"github.com/rizal/kova/pkg/agentproc"
	"github.com/rizal/kova/pkg/handle"
	"github.com/rizal/kova/pkg/history"
)

const (
	// DefaultBinary is the agent CLI looked up on PATH.
	DefaultBinary = "claude"

	// versionTimeout bounds availability and version probes.
	versionTimeout = 10 * time.Second
)

// Request describes one logical agent run.
type Request struct {
	// Prompt is delivered on the process's standard input.
	Prompt string

	// WorkingDir is the project directory the agent operates in. Must exist.
	WorkingDir string

	// Timeout bounds the invocation. Zero uses the executor default.
	Timeout time.Duration

	// EnableEditing selects the mutating mode; false runs plan-only.
	EnableEditing bool

	// ResumeHandle overrides the stored continuity handle when non-empty.
	ResumeHandle string

	// AllowedTools restricts the editing capabilities the agent may use.
	AllowedTools []string
}

// Outcome is the classified result of a run. Err carries one of this
// package's sentinels for programmatic checks; OK/Text/ErrMessage are the
// surface the UI layer consumes.
type Outcome struct {
	OK         bool
	Text       string
	ErrMessage string
	Err        error

	// Handle is the continuity token the agent reported, if any.
	Handle string

	// Denials are tool uses the agent was not permitted during the run.
	Denials []PermissionDenial

	// Usage holds token counters when the agent reported them.
	Usage *history.TokenUsage
}

// Executor invokes the external agent and decodes its responses.
type Executor struct {
	proc    agentproc.Process
	handles *handle.Store
	binary  string
	timeout time.Duration

	// One guard per project so concurrent runs against the same working
	// directory cannot race on the same external session.
	guardsMu sync.Mutex
	guards   map[string]*sync.Mutex
}

// Config holds executor construction parameters.
type Config struct {
	Process agentproc.Process
	Handles *handle.Store
	Binary  string
	Timeout time.Duration
}

// New creates an executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Handles == nil {
		return nil, fmt.Errorf("handle store is required")
	}

	proc := cfg.Process
	if proc == nil {
		proc = agentproc.NewHostProcess()
	}

	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = agentproc.DefaultTimeout
	}

	return &Executor{
		proc:    proc,
		handles: cfg.Handles,
		binary:  binary,
		timeout: timeout,
		guards:  make(map[string]*sync.Mutex),
	}, nil
}

// LastHandle returns the continuity handle last learned for a working
// directory, or "" when none is known.
func (e *Executor) LastHandle(workingDir string) string {
	return e.handles.Get(history.ProjectID(workingDir))
}

// Run executes a prompt and classifies the result. It never panics and
// never returns a Go error across this boundary: every failure mode
// resolves into the Outcome.
func (e *Executor) Run(ctx context.Context, req Request) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracing.GetRunID(ctx) == "" {
		ctx = tracing.NewRunContext(ctx)
	}
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	start := time.Now()

	outcome := e.run(ctx, req, logger)

	metrics.RecordAgentRun(statusOf(outcome), time.Since(start))

	return outcome
}

func (e *Executor) run(ctx context.Context, req Request, logger zerolog.Logger) Outcome {
	if req.WorkingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return failure(ErrBadWorkingDir, "cannot determine working directory")
		}
		req.WorkingDir = wd
	}

	if _, err := os.Stat(req.WorkingDir); err != nil {
		return failure(ErrBadWorkingDir, fmt.Sprintf("working directory does not exist: %s", req.WorkingDir))
	}

	projectID := history.ProjectID(req.WorkingDir)

	guard := e.guardFor(projectID)
	guard.Lock()
	defer guard.Unlock()

	resume := req.ResumeHandle
	if resume == "" {
		resume = e.handles.Get(projectID)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = e.timeout
	}

	args := buildArgs(req.EnableEditing, resume, req.AllowedTools)

	logger.Debug().
		Str("working_dir", req.WorkingDir).
		Int("prompt_len", len(req.Prompt)).
		Bool("editing", req.EnableEditing).
		Bool("resuming", resume != "").
		Msg("Invoking agent")

	result, err := e.proc.Execute(ctx, agentproc.Request{
		Command:    e.binary,
		Args:       args,
		WorkingDir: req.WorkingDir,
		Stdin:      []byte(req.Prompt),
		Timeout:    timeout,
	})

	if err != nil {
		switch {
		case errors.Is(err, agentproc.ErrExecutionTimeout):
			return failure(ErrTimeout, fmt.Sprintf("agent execution timed out after %s", timeout))
		case errors.Is(err, agentproc.ErrCommandNotFound):
			return failure(ErrAgentNotFound,
				fmt.Sprintf("%s not found. Please ensure the %q command is available in PATH.", e.binary, e.binary))
		case errors.Is(err, agentproc.ErrWorkingDirMissing):
			return failure(ErrBadWorkingDir, err.Error())
		default:
			return failure(ErrProcessFailed, err.Error())
		}
	}

	if result.ExitCode != 0 {
		msg := strings.TrimSpace(string(result.Stderr))
		if msg == "" {
			msg = fmt.Sprintf("agent failed with exit code %d", result.ExitCode)
		}
		return failure(ErrProcessFailed, msg)
	}

	return e.decode(projectID, result.Stdout, logger)
}

// decode applies the response protocol to stdout from a zero-exit run.
func (e *Executor) decode(projectID string, stdout []byte, logger zerolog.Logger) Outcome {
	raw := strings.TrimSpace(string(stdout))
	resp := DecodeResponse(stdout)

	if resp.Structured == nil {
		// Not an error: plan mode commonly emits unstructured prose
		metrics.RecordDecodeFallback()
		logger.Debug().Msg("Response is not structured, returning raw output")
		return Outcome{OK: true, Text: resp.Text(raw)}
	}

	s := resp.Structured

	if s.IsError {
		msg := s.ErrorMessage
		if msg == "" {
			msg = "unknown error from agent"
		}
		return failure(ErrAgentReported, msg)
	}

	// Continuity must survive even a partially useful response
	if s.SessionID != "" {
		e.handles.Set(projectID, s.SessionID)
		logger.Debug().Str("handle", s.SessionID).Msg("Stored agent session handle")
	}

	if len(s.PermissionDenials) > 0 {
		metrics.RecordPermissionDenials(len(s.PermissionDenials))
		logger.Warn().
			Int("denials", len(s.PermissionDenials)).
			Msg("Agent reported permission denials")
	}

	var tokens *history.TokenUsage
	if s.Usage != nil {
		tokens = &history.TokenUsage{
			PromptTokens:     s.Usage.InputTokens,
			CompletionTokens: s.Usage.OutputTokens,
			TotalTokens:      s.Usage.InputTokens + s.Usage.OutputTokens,
		}
	}

	return Outcome{
		OK:      true,
		Text:    resp.Text(raw),
		Handle:  s.SessionID,
		Denials: s.PermissionDenials,
		Usage:   tokens,
	}
}

// RunAsync schedules Run on a goroutine and delivers the outcome on the
// returned channel exactly once.
func (e *Executor) RunAsync(ctx context.Context, req Request) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		ch <- e.Run(ctx, req)
		close(ch)
	}()
	return ch
}

// RunAsyncFunc schedules Run on a goroutine and calls fn with the outcome
// exactly once, never blocking the caller.
func (e *Executor) RunAsyncFunc(ctx context.Context, req Request, fn func(Outcome)) {
	go func() {
		fn(e.Run(ctx, req))
	}()
}

// IsAvailable reports whether the agent executable responds to a version
// probe. Every failure reduces to false.
func (e *Executor) IsAvailable(ctx context.Context) bool {
	_, err := e.Version(ctx)
	return err == nil
}

// Version runs a version probe with a short fixed timeout.
func (e *Executor) Version(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := e.proc.Execute(ctx, agentproc.Request{
		Command: e.binary,
		Args:    []string{"--version"},
		Timeout: versionTimeout,
	})
	if err != nil {
		return "", err
	}

	if result.ExitCode != 0 {
		return "", fmt.Errorf("%w: version probe exited %d", ErrProcessFailed, result.ExitCode)
	}

	return strings.TrimSpace(string(result.Stdout)), nil
}

func (e *Executor) guardFor(projectID string) *sync.Mutex {
	e.guardsMu.Lock()
	defer e.guardsMu.Unlock()

	if g, ok := e.guards[projectID]; ok {
		return g
	}

	g := &sync.Mutex{}
	e.guards[projectID] = g
	return g
}

// buildArgs constructs the agent CLI flags. Structured output is requested
// in both modes so the decode path stays uniform; print mode is only safe
// when editing is disabled, because it suppresses file edits.
func buildArgs(enableEditing bool, resume string, allowedTools []string) []string {
	var args []string

	if resume != "" {
		args = append(args, "--resume", resume)
	} else {
		args = append(args, "--continue")
	}

	if enableEditing {
		args = append(args, "--output-format", "json", "--permission-mode", "acceptEdits")
	} else {
		args = append(args, "-p", "--output-format", "json", "--permission-mode", "plan")
	}

	for _, tool := range allowedTools {
		args = append(args, "--allowedTools", tool)
	}

	return args
}

func failure(err error, msg string) Outcome {
	return Outcome{OK: false, ErrMessage: msg, Err: fmt.Errorf("%w: %s", err, msg)}
}

func statusOf(o Outcome) string {
	if o.OK {
		return "ok"
	}
	switch {
	case errors.Is(o.Err, ErrTimeout):
		return "timeout"
	case errors.Is(o.Err, ErrAgentNotFound):
		return "not_found"
	case errors.Is(o.Err, ErrBadWorkingDir):
		return "bad_workdir"
	case errors.Is(o.Err, ErrAgentReported):
		return "agent_error"
	default:
		return "process_error"
	}
}
