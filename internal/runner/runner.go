// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"

	"github.com/nbrun/nbrun/internal/container"
	"github.com/nbrun/nbrun/internal/issue"
	"github.com/nbrun/nbrun/internal/notebook"
	"github.com/nbrun/nbrun/internal/runtime"
)

type (
	// Executor runs a notebook in place. *runtime.Registry implements it.
	Executor interface {
		Execute(ctx *runtime.ExecutionContext) *runtime.Result
	}

	// Reporter receives the user-facing progress of a run.
	Reporter interface {
		// Started is called right before execution is requested.
		Started(input string, timeout time.Duration)
		// Failed is called when execution fails, before the partial notebook is saved.
		Failed(err error)
		// Saved is called after a successful run persisted the notebook.
		Saved(output string)
		// ArtifactFound is called for every artifact present after the run.
		ArtifactFound(path string)
	}

	// Report summarizes a run that reached execution.
	Report struct {
		RunID  string
		Input  string
		Output string
		// CellsBefore is the cell count as loaded.
		CellsBefore int
		// CellsAfter is the cell count handed to the engine.
		CellsAfter int
		// FastModeInjected reports whether the parameter cell was prepended.
		FastModeInjected bool
		// Saved reports whether the output notebook was written.
		Saved     bool
		Elapsed   time.Duration
		Artifacts []string
	}

	// Runner executes notebooks through an Executor.
	Runner struct {
		executor Executor
		reporter Reporter
		logger   *slog.Logger
	}

	nopReporter struct{}
)

func (nopReporter) Started(string, time.Duration) {}
func (nopReporter) Failed(error)                  {}
func (nopReporter) Saved(string)                  {}
func (nopReporter) ArtifactFound(string)          {}

// New creates a Runner. A nil reporter discards progress; a nil logger uses
// slog.Default().
func New(executor Executor, reporter Reporter, logger *slog.Logger) *Runner {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{executor: executor, reporter: reporter, logger: logger}
}

// Run executes the notebook described by opts.
//
// A notebook that cannot be loaded returns an error wrapping a
// *notebook.FormatError and writes nothing. Once loaded, the notebook is
// written to the output path exactly once: after a successful execution, or
// in whatever state the engine left it when execution failed, in which case
// the returned error wraps the *runtime.ExecutionError. The Report is non-nil
// whenever execution was attempted.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	doc, err := notebook.Load(opts.Input)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load notebook").
			WithResource(opts.Input).
			WithSuggestion("Check that the file is a Jupyter notebook saved in nbformat 3 or 4").
			WithIssue(issue.NotebookInvalidId).
			Wrap(err).
			BuildError()
	}
	if violations := doc.SchemaViolations(); len(violations) > 0 {
		r.logger.Warn("notebook JSON is invalid, executing anyway",
			"notebook", opts.Input, "violations", violations)
	}

	report := &Report{
		RunID:       xid.New().String(),
		Input:       opts.Input,
		Output:      opts.Output,
		CellsBefore: doc.Len(),
	}
	if opts.Fast {
		notebook.InsertFastModeCell(doc, opts.FastParams)
		report.FastModeInjected = true
		r.logger.Debug("injected fast-mode cell", "params", len(opts.FastParams))
	}
	report.CellsAfter = doc.Len()

	lock, err := acquireOutputLock(opts.Output)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("lock output notebook").
			WithResource(opts.Output).
			WithSuggestion("Wait for the other run to finish or choose a different --output").
			WithIssue(issue.OutputWriteFailedId).
			Wrap(err).
			BuildError()
	}
	defer lock.Release()

	workDir, err := filepath.Abs(filepath.Dir(opts.Input))
	if err != nil {
		return nil, fmt.Errorf("resolve notebook directory: %w", err)
	}

	r.reporter.Started(opts.Input, opts.Timeout)
	r.logger.Debug("executing notebook",
		"run", report.RunID, "runtime", opts.Runtime, "kernel", opts.Kernel, "cells", report.CellsAfter)

	start := time.Now()
	res := r.executor.Execute(&runtime.ExecutionContext{
		Context:         ctx,
		Notebook:        doc,
		Kernel:          opts.Kernel,
		Timeout:         opts.Timeout,
		WorkDir:         workDir,
		ExecutionID:     report.RunID,
		SelectedRuntime: opts.Runtime,
	})
	report.Elapsed = time.Since(start)

	if !res.Success() {
		execErr := res.Error
		if execErr == nil {
			execErr = &runtime.ExecutionError{Runtime: opts.Runtime, ExitCode: res.ExitCode}
		}
		r.reporter.Failed(execErr)

		failure := executionFailure(execErr, opts)
		saveErr := r.save(doc, opts.Output)
		report.Saved = saveErr == nil
		r.reportArtifacts(report, opts)
		if saveErr != nil {
			return report, errors.Join(failure, saveErr)
		}
		return report, failure
	}

	if err := r.save(doc, opts.Output); err != nil {
		return report, err
	}
	report.Saved = true
	r.reporter.Saved(opts.Output)
	r.logger.Debug("notebook executed", "run", report.RunID, "elapsed", report.Elapsed, "cells", doc.Len())

	r.reportArtifacts(report, opts)
	return report, nil
}

func (r *Runner) save(doc *notebook.Document, output string) error {
	if err := notebook.Save(doc, output); err != nil {
		return issue.NewErrorContext().
			WithOperation("save executed notebook").
			WithResource(output).
			WithSuggestion("Check that the output directory exists and is writable").
			WithIssue(issue.OutputWriteFailedId).
			Wrap(err).
			BuildError()
	}
	return nil
}

// reportArtifacts looks for the configured artifact names next to the input
// notebook. Lookup failures are logged and otherwise ignored.
func (r *Runner) reportArtifacts(report *Report, opts Options) {
	dir := filepath.Dir(opts.Input)
	for _, name := range opts.Artifacts {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				r.logger.Debug("artifact lookup failed", "path", p, "error", err)
			}
			continue
		}
		report.Artifacts = append(report.Artifacts, p)
		r.reporter.ArtifactFound(p)
	}
}

// executionFailure attaches remediation hints to an execution error.
func executionFailure(err error, opts Options) error {
	ec := issue.NewErrorContext().
		WithOperation("execute notebook").
		WithResource(opts.Input).
		WithIssue(issue.NotebookExecutionFailedId)

	var execErr *runtime.ExecutionError
	isExec := errors.As(err, &execErr)
	switch {
	case isExec && execErr.TimedOut:
		ec.WithIssue(issue.ExecutionTimedOutId).
			WithSuggestion(fmt.Sprintf("Raise --timeout (currently %ds) or use --fast", int(opts.Timeout/time.Second)))
	case errors.Is(err, runtime.ErrInterpreterNotFound):
		ec.WithIssue(issue.InterpreterNotFoundId).
			WithSuggestion("Activate the Python environment that has Jupyter installed")
	case errors.Is(err, runtime.ErrEngineMissing):
		ec.WithIssue(issue.EngineMissingId).
			WithSuggestion("Install the engine: python3 -m pip install nbformat nbclient ipykernel")
	case errors.Is(err, runtime.ErrRuntimeUnavailable) && opts.Runtime == runtime.RuntimeTypeContainer:
		ec.WithIssue(issue.ContainerEngineNotFoundId).
			WithSuggestion("Start Docker or Podman, or use --runtime native")
	case errors.Is(err, container.ErrImageNotPresent):
		ec.WithIssue(issue.ImagePullFailedId).
			WithSuggestion("Pull the image manually or set container.pull to \"missing\"")
	case errors.Is(err, runtime.ErrRuntimeNotRegistered):
		ec.WithIssue(issue.InvalidRuntimeId)
	default:
		ec.WithSuggestion("Open " + opts.Output + " to inspect the failing cell")
	}
	return ec.Wrap(err).BuildError()
}
