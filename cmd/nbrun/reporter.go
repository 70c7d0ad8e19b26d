// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nbrun/nbrun/internal/runtime"
)

// consoleReporter prints run progress to the command's stdout.
type consoleReporter struct {
	w io.Writer
}

func newConsoleReporter(w io.Writer) *consoleReporter {
	return &consoleReporter{w: w}
}

func (r *consoleReporter) Started(input string, timeout time.Duration) {
	fmt.Fprintf(r.w, "Executing notebook %s (timeout=%ds)...\n", input, int(timeout/time.Second))
}

// Failed prints the engine's own summary when there is one, e.g.
// "CellExecutionError: ZeroDivisionError: division by zero".
func (r *consoleReporter) Failed(err error) {
	msg := err.Error()
	var execErr *runtime.ExecutionError
	if errors.As(err, &execErr) && execErr.Message != "" && !execErr.TimedOut {
		msg = execErr.Message
	}
	fmt.Fprintf(r.w, "%s %s\n", ErrorStyle.Render("Notebook execution failed:"), msg)
}

func (r *consoleReporter) Saved(output string) {
	fmt.Fprintf(r.w, "%s %s\n", SuccessStyle.Render("Execution finished. Saved executed notebook to:"), output)
}

func (r *consoleReporter) ArtifactFound(path string) {
	fmt.Fprintf(r.w, "Found output: %s\n", PathStyle.Render(path))
}
