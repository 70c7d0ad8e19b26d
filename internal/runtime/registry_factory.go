// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nbrun/nbrun/internal/config"
)

const (
	// CodeContainerRuntimeInitFailed reports that container runtime initialization failed.
	CodeContainerRuntimeInitFailed InitDiagnosticCode = "container_runtime_init_failed"
)

// ErrInvalidInitDiagnosticCode is the sentinel error wrapped by InvalidInitDiagnosticCodeError.
var ErrInvalidInitDiagnosticCode = errors.New("invalid init diagnostic code")

type (
	// BuildRegistryOptions configures runtime registry construction.
	BuildRegistryOptions struct {
		// Config supplies interpreter and container settings; defaults when nil
		Config *config.Config
		// Logger receives runtime diagnostics; slog.Default when nil
		Logger *slog.Logger
	}

	// InitDiagnosticCode categorizes non-fatal runtime initialization diagnostics.
	InitDiagnosticCode string

	// InvalidInitDiagnosticCodeError is returned when an InitDiagnosticCode value
	// is not one of the defined codes.
	InvalidInitDiagnosticCodeError struct {
		Value InitDiagnosticCode
	}

	// InitDiagnostic reports non-fatal runtime initialization details.
	InitDiagnostic struct {
		Code    InitDiagnosticCode
		Message string
		Cause   error
	}

	// RegistryBuildResult contains the built registry, cleanup hook, diagnostics,
	// and container initialization error (if any).
	// Registry and Cleanup are always non-nil after BuildRegistry returns.
	RegistryBuildResult struct {
		Registry         *Registry
		Cleanup          func()
		Diagnostics      []InitDiagnostic
		ContainerInitErr error
	}
)

// Error implements the error interface.
func (e *InvalidInitDiagnosticCodeError) Error() string {
	return fmt.Sprintf("invalid init diagnostic code %q (valid: %s)", e.Value, CodeContainerRuntimeInitFailed)
}

// Unwrap returns ErrInvalidInitDiagnosticCode for errors.Is() compatibility.
func (e *InvalidInitDiagnosticCodeError) Unwrap() error { return ErrInvalidInitDiagnosticCode }

// String returns the string representation of the InitDiagnosticCode.
func (c InitDiagnosticCode) String() string { return string(c) }

// Validate returns nil if the InitDiagnosticCode is one of the defined codes.
func (c InitDiagnosticCode) Validate() error {
	switch c {
	case CodeContainerRuntimeInitFailed:
		return nil
	default:
		return &InvalidInitDiagnosticCodeError{Value: c}
	}
}

// BuildRegistry creates and populates the runtime registry. The native
// runtime is always registered; container registration is best-effort and
// reported via Diagnostics/ContainerInitErr.
func BuildRegistry(opts BuildRegistryOptions) RegistryBuildResult {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := loggerOrDefault(opts.Logger)

	result := RegistryBuildResult{
		Registry: NewRegistry(),
		Cleanup:  func() {},
	}

	result.Registry.Register(RuntimeTypeNative, NewNativeRuntime(cfg.Python.Binary, logger))

	containerRT, err := NewContainerRuntime(cfg, logger)
	if err != nil {
		result.ContainerInitErr = err
		result.Diagnostics = append(result.Diagnostics, InitDiagnostic{
			Code:    CodeContainerRuntimeInitFailed,
			Message: fmt.Sprintf("container runtime unavailable: %v", err),
			Cause:   err,
		})
		return result
	}

	result.Registry.Register(RuntimeTypeContainer, containerRT)
	result.Cleanup = func() {
		if closeErr := containerRT.Close(); closeErr != nil {
			logger.Warn("container runtime cleanup failed", "error", closeErr)
		}
	}
	return result
}
