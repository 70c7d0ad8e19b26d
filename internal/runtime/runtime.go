// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nbrun/nbrun/internal/notebook"
)

// Runtime type constants for different execution environments.
const (
	RuntimeTypeNative    RuntimeType = "native"
	RuntimeTypeContainer RuntimeType = "container"

	// DefaultKernel is the kernel spec requested when none is configured.
	DefaultKernel = "python3"
)

var (
	// ErrInvalidRuntimeType is the sentinel error wrapped by InvalidRuntimeTypeError.
	ErrInvalidRuntimeType = errors.New("invalid runtime type")
	// ErrRuntimeNotRegistered is returned when no runtime is registered for a type.
	ErrRuntimeNotRegistered = errors.New("runtime not registered")
	// ErrRuntimeUnavailable is returned when a runtime cannot run on this system.
	ErrRuntimeUnavailable = errors.New("runtime not available")
)

type (
	// ExecutionContext contains all information needed to execute a notebook.
	ExecutionContext struct {
		// Context is the Go context for cancellation
		Context context.Context
		// Notebook is the document to execute. Runtimes replace its cells with
		// the executed (or partially executed) cells the engine reports.
		Notebook *notebook.Document
		// Kernel is the kernel spec name the engine starts
		Kernel string
		// Timeout bounds the total wall time of the execution
		Timeout time.Duration
		// WorkDir is the directory the kernel runs in
		WorkDir string
		// ExecutionID is a unique identifier for this run.
		ExecutionID string
		// SelectedRuntime is the runtime to use for execution
		SelectedRuntime RuntimeType
	}

	// Result contains the result of a notebook execution
	Result struct {
		// ExitCode is the exit code of the engine process
		ExitCode ExitCode
		// Error contains any error that occurred; an *ExecutionError for engine failures
		Error error
		// Duration is the wall time spent in the engine
		Duration time.Duration
		// Updated reports whether the engine handed back a document
		Updated bool
	}

	// Runtime defines the interface for notebook execution
	Runtime interface {
		// Name returns the runtime name
		Name() string
		// Execute runs every cell of the notebook in order
		Execute(ctx *ExecutionContext) *Result
		// Available returns whether this runtime is available on the current system
		Available() bool
		// Validate checks if a notebook can be executed with this runtime
		Validate(ctx *ExecutionContext) error
	}

	// RuntimeType identifies the type of runtime.
	//
	//nolint:revive // RuntimeType is more descriptive than Type for external callers
	RuntimeType string

	// InvalidRuntimeTypeError is returned when a RuntimeType value is not recognized.
	InvalidRuntimeTypeError struct {
		Value RuntimeType
	}

	// Registry holds all available runtimes
	Registry struct {
		runtimes map[RuntimeType]Runtime
	}
)

// Error implements the error interface.
func (e *InvalidRuntimeTypeError) Error() string {
	return fmt.Sprintf("invalid runtime %q (valid: %s, %s)", e.Value, RuntimeTypeNative, RuntimeTypeContainer)
}

// Unwrap returns ErrInvalidRuntimeType for errors.Is() compatibility.
func (e *InvalidRuntimeTypeError) Unwrap() error { return ErrInvalidRuntimeType }

// String returns the string representation of the RuntimeType.
func (t RuntimeType) String() string { return string(t) }

// Validate returns nil if the RuntimeType is one of the defined runtimes.
func (t RuntimeType) Validate() error {
	switch t {
	case RuntimeTypeNative, RuntimeTypeContainer:
		return nil
	default:
		return &InvalidRuntimeTypeError{Value: t}
	}
}

// Success returns true if the notebook executed successfully
func (r *Result) Success() bool {
	return r.ExitCode.IsSuccess() && r.Error == nil
}

// validateContext checks the fields every runtime relies on.
func validateContext(ctx *ExecutionContext) error {
	if ctx.Notebook == nil {
		return errors.New("no notebook selected for execution")
	}
	if strings.TrimSpace(ctx.Kernel) == "" {
		return errors.New("kernel name must not be empty")
	}
	if ctx.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", ctx.Timeout)
	}
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// NewRegistry creates a new runtime registry
func NewRegistry() *Registry {
	return &Registry{
		runtimes: make(map[RuntimeType]Runtime),
	}
}

// Register adds a runtime to the registry
func (r *Registry) Register(typ RuntimeType, rt Runtime) {
	r.runtimes[typ] = rt
}

// Get returns a runtime by type
func (r *Registry) Get(typ RuntimeType) (Runtime, error) {
	rt, ok := r.runtimes[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuntimeNotRegistered, typ)
	}
	return rt, nil
}

// Available returns all available runtimes, sorted by name
func (r *Registry) Available() []RuntimeType {
	var types []RuntimeType
	for typ, rt := range r.runtimes {
		if rt.Available() {
			types = append(types, typ)
		}
	}
	slices.Sort(types)
	return types
}

// Execute runs a notebook using the runtime selected in the execution context.
// Lookup, availability and validation failures are reported as an
// *ExecutionError like any engine failure.
func (r *Registry) Execute(ctx *ExecutionContext) *Result {
	rt, err := r.Get(ctx.SelectedRuntime)
	if err != nil {
		return NewErrorResult(ExitCodeExecutionFailed, &ExecutionError{Runtime: ctx.SelectedRuntime, Cause: err})
	}

	if !rt.Available() {
		return NewErrorResult(ExitCodeExecutionFailed, &ExecutionError{
			Runtime: ctx.SelectedRuntime,
			Message: unavailableMessage(rt.Name(), r.Available()),
			Cause:   ErrRuntimeUnavailable,
		})
	}

	if err := rt.Validate(ctx); err != nil {
		return NewErrorResult(ExitCodeExecutionFailed, &ExecutionError{Runtime: ctx.SelectedRuntime, Cause: err})
	}

	return rt.Execute(ctx)
}

func unavailableMessage(name string, available []RuntimeType) string {
	msg := fmt.Sprintf("runtime '%s' is not available on this system", name)
	if len(available) == 0 {
		return msg
	}
	names := make([]string, len(available))
	for i, typ := range available {
		names[i] = string(typ)
	}
	return msg + " (available: " + strings.Join(names, ", ") + ")"
}
