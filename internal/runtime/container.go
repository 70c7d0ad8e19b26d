// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"

	"github.com/nbrun/nbrun/internal/config"
	"github.com/nbrun/nbrun/internal/container"
)

const (
	// ContainerWorkDir is where the input notebook's directory is mounted.
	ContainerWorkDir = "/home/jovyan/work"
	// containerPython is the interpreter inside Jupyter images.
	containerPython = "python"
)

// ContainerRuntime executes notebooks inside a Jupyter container image. The
// input notebook's directory is bind-mounted as the kernel's working
// directory, so files the notebook writes land next to it on the host.
type ContainerRuntime struct {
	engine container.Engine
	// Image is the Jupyter image to run
	Image string
	// Pull decides when Image is pulled
	Pull container.PullPolicy
	// InterruptGrace bounds how long the interrupted driver may take to write
	// the partial notebook before the container is killed
	InterruptGrace time.Duration

	logger *slog.Logger
}

// NewContainerRuntime creates a container runtime from configuration. The
// daemon is not contacted until the runtime is used.
func NewContainerRuntime(cfg *config.Config, logger *slog.Logger) (*ContainerRuntime, error) {
	logger = loggerOrDefault(logger)
	engine, err := container.NewDockerEngine(container.EngineOptions{
		Type:   container.EngineType(cfg.Container.Engine),
		Host:   cfg.Container.Host,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return NewContainerRuntimeWithEngine(engine, cfg.Container.Image, container.PullPolicy(cfg.Container.Pull), logger), nil
}

// NewContainerRuntimeWithEngine creates a container runtime over an existing engine.
func NewContainerRuntimeWithEngine(engine container.Engine, image string, pull container.PullPolicy, logger *slog.Logger) *ContainerRuntime {
	return &ContainerRuntime{
		engine:         engine,
		Image:          image,
		Pull:           pull,
		InterruptGrace: DefaultInterruptGrace,
		logger:         loggerOrDefault(logger),
	}
}

// Name returns the runtime name
func (r *ContainerRuntime) Name() string {
	return string(RuntimeTypeContainer)
}

// Available returns whether the container daemon answers
func (r *ContainerRuntime) Available() bool {
	return r.engine != nil && r.engine.Available()
}

// Validate checks if a notebook can be executed
func (r *ContainerRuntime) Validate(ctx *ExecutionContext) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if r.Image == "" {
		return fmt.Errorf("no container image configured")
	}
	if ctx.WorkDir == "" {
		return fmt.Errorf("container runtime requires a working directory to mount")
	}
	info, err := os.Stat(ctx.WorkDir)
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("working directory %s is not a directory", ctx.WorkDir)
	}
	return nil
}

// Execute runs the notebook through the driver in a fresh container
func (r *ContainerRuntime) Execute(ectx *ExecutionContext) *Result {
	fail := func(msg string, err error) *Result {
		return NewErrorResult(ExitCodeExecutionFailed, &ExecutionError{Runtime: RuntimeTypeContainer, Message: msg, Cause: err})
	}

	input, err := ectx.Notebook.Encode()
	if err != nil {
		return fail("", err)
	}
	hostDir, err := filepath.Abs(ectx.WorkDir)
	if err != nil {
		return fail("", err)
	}

	parent := contextOrBackground(ectx.Context)

	// Pulling is not part of the notebook's time budget.
	if err := container.EnsureImage(parent, r.engine, r.Image, r.Pull, r.logger); err != nil {
		return fail(fmt.Sprintf("container image %s is unavailable", r.Image), err)
	}

	ctx, cancel := context.WithTimeout(parent, ectx.Timeout)
	defer cancel()

	id := ectx.ExecutionID
	if id == "" {
		id = xid.New().String()
	}

	var stdout bytes.Buffer
	stderr := newStderrLog(r.logger, r.Name())

	r.logger.Debug("starting notebook container",
		"engine", r.engine.Name(), "image", r.Image, "kernel", ectx.Kernel, "timeout", ectx.Timeout, "mount", hostDir)

	start := time.Now()
	res, err := r.engine.Run(ctx, container.RunOptions{
		Image:   r.Image,
		Name:    "nbrun-" + id,
		Command: driverCommand(containerPython, ectx.Kernel, ectx.Timeout),
		WorkDir: ContainerWorkDir,
		Mounts:  []container.Mount{{Source: hostDir, Target: ContainerWorkDir}},
		Stdin:   bytes.NewReader(input),
		Stdout:  &stdout,
		Stderr:  stderr,
		// The in-container driver also enforces the timeout per cell.
		StopGrace: r.InterruptGrace,
	})
	elapsed := time.Since(start)
	if err != nil {
		return fail(fmt.Sprintf("%s failed to run the notebook container", r.engine.Name()), err)
	}

	return applyDriverOutput(ectx, driverRun{
		runtime:  RuntimeTypeContainer,
		stdout:   stdout.Bytes(),
		stderr:   stderr.String(),
		exitCode: ExitCode(res.ExitCode),
		ctxErr:   ctx.Err(),
		elapsed:  elapsed,
	}, r.logger)
}

// Close releases the engine connection
func (r *ContainerRuntime) Close() error {
	if r.engine == nil {
		return nil
	}
	return r.engine.Close()
}
