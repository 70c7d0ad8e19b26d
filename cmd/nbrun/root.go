// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/nbrun/nbrun/internal/issue"
	"github.com/nbrun/nbrun/internal/runtime"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// rootFlags are the persistent flags shared by every command.
	rootFlags struct {
		configPath string
		verbose    bool
	}

	// runFlags are the flags of the notebook run.
	runFlags struct {
		input   string
		output  string
		timeout int
		fast    bool
		kernel  string
		runtime string
	}
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	global := &rootFlags{}
	flags := &runFlags{}

	root := &cobra.Command{
		Use:   "nbrun --input NOTEBOOK [flags]",
		Short: "Execute a Jupyter notebook and save the executed copy",
		Long: TitleStyle.Render("nbrun") + SubtitleStyle.Render(" - execute Jupyter notebooks from the command line") + `

nbrun runs every cell of a notebook through nbclient, either with the host
Python interpreter or inside a Jupyter container image, and writes the
executed notebook next to the input. The notebook is saved even when a cell
fails or the timeout expires, so the failing cell can be inspected.

` + SubtitleStyle.Render("Exit codes:") + `
  0  the notebook executed successfully
  1  execution, notebook format or configuration error
  2  the input notebook does not exist

` + SubtitleStyle.Render("Examples:") + `
  nbrun -i nsga2.ipynb                     Execute, writing nsga2_executed.ipynb
  nbrun -i nsga2.ipynb --fast              Smoke test with POP_SIZE=20, NGEN=5
  nbrun -i nsga2.ipynb -o run.ipynb --timeout 1800
  nbrun -i nsga2.ipynb --runtime container Run inside a Jupyter image`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runNotebook(cmd, app, global, flags)
			var exitErr *ExitError
			if errors.As(err, &exitErr) {
				cmd.SilenceErrors = true
				cmd.SilenceUsage = true
			}
			return err
		},
	}

	root.PersistentFlags().BoolVarP(&global.verbose, "verbose", "v", false, "enable debug logging and error chains")
	root.PersistentFlags().StringVar(&global.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/nbrun/config.cue)")

	root.Flags().StringVarP(&flags.input, "input", "i", "", "input notebook file (required)")
	root.Flags().StringVarP(&flags.output, "output", "o", "", "output notebook file (default <input>_executed.ipynb)")
	root.Flags().IntVar(&flags.timeout, "timeout", 0, "seconds before execution times out (default 600)")
	root.Flags().BoolVar(&flags.fast, "fast", false, "inject a cell with small POP_SIZE/NGEN for quick test runs")
	root.Flags().StringVar(&flags.kernel, "kernel", "", "kernel spec name (default python3)")
	root.Flags().StringVar(&flags.runtime, "runtime", "", "execution runtime: native or container (default native)")
	_ = root.MarkFlagRequired("input")

	root.AddCommand(newConfigCommand(app, global))

	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Run executes the CLI with os.Args and returns the process exit status.
func Run() int {
	app := NewApp(Dependencies{})
	err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	)
	return exitCode(err)
}

// errorHandler prints the errors fang reports, except an *ExitError: its
// handler already printed the failure.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// Execute runs the CLI and exits the process. It is called by main.main().
func Execute() {
	os.Exit(Run())
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain. Joined errors (an execution
// failure whose partial notebook could not be saved) are formatted one by one.
func formatErrorForDisplay(err error, verboseMode bool) string {
	if ae, ok := err.(*issue.ActionableError); ok {
		return ae.Format(verboseMode)
	}
	if _, isExec := err.(*runtime.ExecutionError); !isExec {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			parts := make([]string, 0, len(joined.Unwrap()))
			for _, e := range joined.Unwrap() {
				parts = append(parts, formatErrorForDisplay(e, verboseMode))
			}
			return strings.Join(parts, "\n\n")
		}
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
