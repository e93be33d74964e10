// Package host launches grader workers as child processes and bounds them
// with the wall-clock and memory limits the worker itself does not enforce.
package host

import (
	"context"
	"fmt"

	"github.com/Mirai3103/remote-grader/internal/models"
)

// RunRequest describes one worker invocation.
type RunRequest struct {
	SubmissionID  string
	Command       []string // worker argv, e.g. ["/usr/local/bin/grader", "run"]
	Input         []byte   // request JSON written to the worker's stdin
	TimeLimitMs   int
	MemoryLimitKb int
	MaxOutputKb   int
}

// ExecuteResult is the process-level outcome of one worker invocation.
type ExecuteResult struct {
	Status       models.ExecStatus
	Stdout       string
	Stderr       string
	ExitCode     int
	TimeUsedMs   int
	MemoryUsedKb int
}

// Executor runs a worker command.
type Executor interface {
	Execute(ctx context.Context, req RunRequest) (*ExecuteResult, error)
	ID() string
}

type ErrorType string

const (
	ErrCmdStart ErrorType = "COMMAND_START_ERROR"
	ErrCmdWait  ErrorType = "COMMAND_WAIT_ERROR"
	ErrInternal ErrorType = "INTERNAL_HOST_ERROR"
)

// Error is a failure of the host itself, never of the graded code.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (type: %s)", e.Message, e.Cause.Error(), e.Type)
	}
	return fmt.Sprintf("%s (type: %s)", e.Message, e.Type)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
