// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/nbrun/nbrun/internal/config"
	"github.com/nbrun/nbrun/internal/runner"
	"github.com/nbrun/nbrun/internal/runtime"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Loaded, error)
	}

	// ExecutorFactory builds the notebook executor for one run. The returned
	// cleanup releases engine connections and is never nil.
	ExecutorFactory func(cfg *config.Config, logger *slog.Logger) (runner.Executor, func())

	// App wires CLI services and shared dependencies. Every command handler
	// receives it, so tests can swap configuration and execution.
	App struct {
		Config    ConfigProvider
		Executors ExecutorFactory
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    ConfigProvider
		Executors ExecutorFactory
		Stdout    io.Writer
		Stderr    io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Executors == nil {
		deps.Executors = runtimeExecutors
	}
	return &App{
		Config:    deps.Config,
		Executors: deps.Executors,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
}

// runtimeExecutors builds the runtime registry. Container initialization
// problems are not fatal; they only matter when --runtime container is used.
func runtimeExecutors(cfg *config.Config, logger *slog.Logger) (runner.Executor, func()) {
	built := runtime.BuildRegistry(runtime.BuildRegistryOptions{Config: cfg, Logger: logger})
	for _, diag := range built.Diagnostics {
		logger.Debug(diag.Message, "code", diag.Code)
	}
	return built.Registry, built.Cleanup
}
