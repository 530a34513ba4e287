package agentproc

import "errors"

var (
	// ErrEmptyCommand is returned when the request has no command
	ErrEmptyCommand = errors.New("command cannot be empty")

	// ErrWorkingDirMissing is returned when the working directory does not exist
	ErrWorkingDirMissing = errors.New("working directory does not exist")

	// ErrExecutionTimeout is returned when the process exceeds its timeout
	ErrExecutionTimeout = errors.New("execution timed out")

	// ErrCommandNotFound is returned when the executable is not on PATH
	ErrCommandNotFound = errors.New("command not found")
)
