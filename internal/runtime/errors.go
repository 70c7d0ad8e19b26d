// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExecutionFailed is matched by every *ExecutionError.
	ErrExecutionFailed = errors.New("notebook execution failed")
	// ErrInterpreterNotFound is returned when the Python interpreter cannot be found.
	ErrInterpreterNotFound = errors.New("python interpreter not found")
	// ErrEngineMissing is returned when nbformat/nbclient are not installed
	// in the interpreter the driver runs under.
	ErrEngineMissing = errors.New("notebook execution engine (nbclient) not installed")
	// ErrDriverUsage is returned when the driver rejected its arguments.
	ErrDriverUsage = errors.New("engine driver rejected its arguments")
)

// ExecutionError reports a failed notebook execution. Cell errors, timeouts,
// interrupts and engine failures all surface as this one kind; TimedOut is
// informational.
type ExecutionError struct {
	// Runtime is the runtime that ran (or tried to run) the notebook.
	Runtime RuntimeType
	// Message is the engine's one-line summary of the failure.
	Message string
	// ExitCode is the engine process exit status.
	ExitCode ExitCode
	// TimedOut is set when the timeout elapsed before the notebook finished.
	TimedOut bool
	// Timeout is the configured limit.
	Timeout time.Duration
	// Stderr is the full diagnostic output of the engine.
	Stderr string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	head := ErrExecutionFailed.Error()
	if e.TimedOut {
		head = fmt.Sprintf("notebook execution timed out after %s", e.Timeout)
	}

	switch {
	case e.Message != "":
		return head + ": " + e.Message
	case e.Cause != nil:
		return head + ": " + e.Cause.Error()
	case e.ExitCode != 0:
		return fmt.Sprintf("%s: engine exited with status %d", head, e.ExitCode)
	default:
		return head
	}
}

// Unwrap exposes ErrExecutionFailed and the cause to errors.Is/As.
func (e *ExecutionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrExecutionFailed}
	}
	return []error{ErrExecutionFailed, e.Cause}
}
