package executor

import "errors"

var (
	// ErrBadWorkingDir is returned when the working directory does not exist
	ErrBadWorkingDir = errors.New("working directory does not exist")

	// ErrAgentNotFound is returned when the agent executable is not installed
	ErrAgentNotFound = errors.New("agent executable not found")

	// ErrTimeout is returned when the invocation exceeds its time bound
	ErrTimeout = errors.New("agent execution timed out")

	// ErrProcessFailed is returned when the agent exits nonzero
	ErrProcessFailed = errors.New("agent process failed")

	// ErrAgentReported is returned when a structured response carries the
	// error flag
	ErrAgentReported = errors.New("agent reported an error")
)
