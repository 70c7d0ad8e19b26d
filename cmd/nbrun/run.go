// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nbrun/nbrun/internal/config"
	"github.com/nbrun/nbrun/internal/issue"
	"github.com/nbrun/nbrun/internal/notebook"
	"github.com/nbrun/nbrun/internal/runner"
	"github.com/nbrun/nbrun/internal/runtime"
)

// errInvalidTimeout is returned for a --timeout that is not a positive number of seconds.
var errInvalidTimeout = errors.New("timeout must be a positive number of seconds")

// runNotebook is the root command handler.
func runNotebook(cmd *cobra.Command, app *App, global *rootFlags, flags *runFlags) error {
	ctx := cmd.Context()

	loaded, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: global.configPath})
	if err != nil {
		return app.fail("Error:", err, global.verbose, config.ColorSchemeAuto)
	}
	cfg := loaded.Config
	verbose := global.verbose || cfg.UI.Verbose
	logger := newLogger(app.stderr, verbose)
	if loaded.Path != "" {
		logger.Debug("loaded configuration", "path", loaded.Path)
	}

	opts, err := buildOptions(cmd, flags, cfg)
	if err != nil {
		return app.fail("Error:", err, verbose, cfg.UI.ColorScheme)
	}

	// A missing input is reported without attempting a run. Other stat
	// failures surface as a load error from the runner.
	if _, err := os.Stat(opts.Input); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(app.stderr, "%s %s\n", ErrorStyle.Render("Input notebook not found:"), opts.Input)
		if verbose {
			if rendered, renderErr := issue.Get(issue.NotebookNotFoundId).Render(string(cfg.UI.ColorScheme)); renderErr == nil {
				fmt.Fprint(app.stderr, rendered)
			}
		}
		return &ExitError{Code: ExitInputNotFound, Err: err}
	}

	executor, cleanup := app.Executors(cfg, logger)
	defer cleanup()

	report, err := runner.New(executor, newConsoleReporter(app.stdout), logger).Run(ctx, opts)
	if err != nil {
		return app.fail("Error running notebook:", err, verbose, cfg.UI.ColorScheme)
	}
	logger.Debug("run complete", "run", report.RunID, "elapsed", report.Elapsed, "artifacts", len(report.Artifacts))
	return nil
}

// buildOptions merges flags over configuration. Flags win only when set
// explicitly.
func buildOptions(cmd *cobra.Command, flags *runFlags, cfg *config.Config) (runner.Options, error) {
	timeout := cfg.Timeout
	if cmd.Flags().Changed("timeout") {
		timeout = flags.timeout
	}
	if timeout <= 0 {
		return runner.Options{}, fmt.Errorf("%w, got %d", errInvalidTimeout, timeout)
	}

	kernel := cfg.Kernel
	if flags.kernel != "" {
		kernel = flags.kernel
	}

	rt := runtime.RuntimeType(cfg.Runtime)
	if flags.runtime != "" {
		rt = runtime.RuntimeType(flags.runtime)
	}
	if err := rt.Validate(); err != nil {
		return runner.Options{}, issue.NewErrorContext().
			WithOperation("select runtime").
			WithSuggestion("Use --runtime native or --runtime container").
			WithIssue(issue.InvalidRuntimeId).
			Wrap(err).
			BuildError()
	}

	params := make([]notebook.Param, 0, len(cfg.Fast.Params))
	for _, p := range cfg.Fast.Params {
		params = append(params, notebook.Param{Name: p.Name, Value: p.Value})
	}

	artifacts := cfg.Artifacts
	if artifacts == nil {
		artifacts = []string{}
	}

	return runner.Options{
		Input:      flags.input,
		Output:     flags.output,
		Timeout:    time.Duration(timeout) * time.Second,
		Fast:       flags.fast,
		FastParams: params,
		Kernel:     kernel,
		Runtime:    rt,
		Artifacts:  artifacts,
	}, nil
}

// fail prints err under prefix (with the catalog entry in verbose mode) and
// turns it into a status-1 ExitError.
func (a *App) fail(prefix string, err error, verbose bool, scheme config.ColorScheme) error {
	fmt.Fprintf(a.stderr, "%s %s\n", ErrorStyle.Render(prefix), formatErrorForDisplay(err, verbose))
	if verbose {
		if id := issue.IssueOf(err); id != 0 {
			if rendered, renderErr := issue.Get(id).Render(string(scheme)); renderErr == nil {
				fmt.Fprint(a.stderr, rendered)
			}
		}
	}
	return &ExitError{Code: ExitFailure, Err: err}
}
