// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	goruntime "runtime"
	"time"
)

// NativeRuntime executes notebooks with the host Python interpreter, which
// must have nbformat and nbclient installed (typically the project's venv).
type NativeRuntime struct {
	// Python overrides the interpreter; defaults to python3 (python on Windows)
	Python string
	// InterruptGrace bounds how long the driver may take to write the partial
	// notebook after the deadline interrupted it
	InterruptGrace time.Duration

	logger *slog.Logger
}

// NewNativeRuntime creates a new native runtime
func NewNativeRuntime(python string, logger *slog.Logger) *NativeRuntime {
	return &NativeRuntime{
		Python:         python,
		InterruptGrace: DefaultInterruptGrace,
		logger:         loggerOrDefault(logger),
	}
}

// Name returns the runtime name
func (r *NativeRuntime) Name() string {
	return string(RuntimeTypeNative)
}

// Available returns whether the interpreter can be found
func (r *NativeRuntime) Available() bool {
	_, err := r.interpreter()
	return err == nil
}

// Validate checks if a notebook can be executed
func (r *NativeRuntime) Validate(ctx *ExecutionContext) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if ctx.WorkDir != "" {
		info, err := os.Stat(ctx.WorkDir)
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("working directory %s is not a directory", ctx.WorkDir)
		}
	}
	return nil
}

// Execute runs the notebook through the driver on the host
func (r *NativeRuntime) Execute(ectx *ExecutionContext) *Result {
	python, err := r.interpreter()
	if err != nil {
		return NewErrorResult(ExitCodeExecutionFailed, &ExecutionError{Runtime: RuntimeTypeNative, Cause: err})
	}

	input, err := ectx.Notebook.Encode()
	if err != nil {
		return NewErrorResult(ExitCodeExecutionFailed, &ExecutionError{Runtime: RuntimeTypeNative, Cause: err})
	}

	ctx, cancel := context.WithTimeout(contextOrBackground(ectx.Context), ectx.Timeout)
	defer cancel()

	argv := driverCommand(python, ectx.Kernel, ectx.Timeout)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = ectx.WorkDir
	cmd.Stdin = bytes.NewReader(input)

	var stdout bytes.Buffer
	stderr := newStderrLog(r.logger, r.Name())
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	// The driver turns an interrupt into a partial notebook on stdout; it is
	// only killed if it does not finish within the grace period.
	cmd.Cancel = func() error {
		if goruntime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.InterruptGrace

	r.logger.Debug("starting notebook driver",
		"python", python, "kernel", ectx.Kernel, "timeout", ectx.Timeout, "dir", ectx.WorkDir, "id", ectx.ExecutionID)

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if cmd.ProcessState == nil {
		return NewErrorResult(ExitCodeExecutionFailed, &ExecutionError{
			Runtime: RuntimeTypeNative,
			Message: fmt.Sprintf("failed to start %s", python),
			Cause:   runErr,
		})
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			r.logger.Debug("notebook driver wait error", "error", runErr)
		}
	}

	return applyDriverOutput(ectx, driverRun{
		runtime:  RuntimeTypeNative,
		stdout:   stdout.Bytes(),
		stderr:   stderr.String(),
		exitCode: ExitCode(cmd.ProcessState.ExitCode()),
		ctxErr:   ctx.Err(),
		elapsed:  elapsed,
	}, r.logger)
}

// interpreter resolves the Python executable on PATH
func (r *NativeRuntime) interpreter() (string, error) {
	name := r.Python
	if name == "" {
		name = DefaultPython()
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInterpreterNotFound, name, err)
	}
	return path, nil
}

// DefaultPython returns the interpreter name used when none is configured.
func DefaultPython() string {
	if goruntime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}
