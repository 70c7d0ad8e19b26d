// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nbrun/nbrun/internal/notebook"
)

// driverPrefix marks the driver's one-line failure summary on stderr.
const driverPrefix = "nbrun-driver: "

// DefaultInterruptGrace bounds how long the driver may take to write the
// partial notebook after it has been interrupted.
const DefaultInterruptGrace = 10 * time.Second

//go:embed driver.py
var driverSource string

// driverCommand returns the argv that runs the driver under python.
func driverCommand(python, kernel string, timeout time.Duration) []string {
	return []string{
		python, "-c", driverSource,
		"--kernel", kernel,
		"--timeout", strconv.Itoa(timeoutSeconds(timeout)),
	}
}

// timeoutSeconds rounds up so a sub-second timeout never becomes zero, which
// nbclient would read as "no timeout".
func timeoutSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}

// stderrLog forwards driver stderr to the debug log line by line and keeps a
// copy for error reporting.
type stderrLog struct {
	mu      sync.Mutex
	logger  *slog.Logger
	source  string
	all     bytes.Buffer
	pending []byte
}

func newStderrLog(logger *slog.Logger, source string) *stderrLog {
	return &stderrLog{logger: logger, source: source}
}

func (w *stderrLog) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.all.Write(p)
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimRight(string(w.pending[:i]), "\r"); line != "" {
			w.logger.Debug(line, "source", w.source)
		}
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

func (w *stderrLog) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.all.String()
}

// driverRun is what a runtime observed from one driver process.
type driverRun struct {
	runtime  RuntimeType
	stdout   []byte
	stderr   string
	exitCode ExitCode
	// ctxErr is the error of the deadline context, if it ended the run.
	ctxErr  error
	elapsed time.Duration
}

// applyDriverOutput adopts the notebook the driver wrote (complete or
// partial) into ectx.Notebook and turns the process outcome into a Result.
func applyDriverOutput(ectx *ExecutionContext, run driverRun, logger *slog.Logger) *Result {
	// A process killed by a signal reports -1.
	if valid, errs := run.exitCode.IsValid(); !valid {
		logger.Debug("engine exit status out of range", "runtime", run.runtime, "error", errs[0])
		run.exitCode = ExitCodeExecutionFailed
	}
	res := &Result{ExitCode: run.exitCode, Duration: run.elapsed}

	if len(bytes.TrimSpace(run.stdout)) > 0 {
		executed, err := notebook.Decode(run.stdout, "driver output")
		if err != nil {
			logger.Warn("discarding unreadable notebook from driver", "runtime", run.runtime, "error", err)
		} else {
			if violations := executed.SchemaViolations(); len(violations) > 0 {
				logger.Warn("notebook from driver is invalid, keeping it", "runtime", run.runtime, "violations", violations)
			}
			ectx.Notebook.ReplaceCells(executed)
			res.Updated = true
		}
	}

	if run.exitCode.IsSuccess() && run.ctxErr == nil {
		return res
	}

	execErr := &ExecutionError{
		Runtime:  run.runtime,
		Message:  driverSummary(run.stderr),
		ExitCode: run.exitCode,
		Timeout:  ectx.Timeout,
		Stderr:   run.stderr,
	}
	switch {
	case errors.Is(run.ctxErr, context.DeadlineExceeded):
		execErr.TimedOut = true
		execErr.Cause = context.DeadlineExceeded
	case run.ctxErr != nil:
		execErr.Cause = run.ctxErr
	case run.exitCode == ExitCodeEngineMissing:
		execErr.Cause = ErrEngineMissing
	case run.exitCode == ExitCodeUsage:
		execErr.Cause = ErrDriverUsage
	}
	if strings.Contains(run.stderr, "CellTimeoutError") {
		execErr.TimedOut = true
	}

	res.Error = execErr
	if res.ExitCode.IsSuccess() {
		res.ExitCode = ExitCodeExecutionFailed
	}
	return res
}

// driverSummary returns the driver's failure summary, falling back to the
// last non-empty stderr line.
func driverSummary(stderr string) string {
	lines := strings.Split(strings.ReplaceAll(stderr, "\r\n", "\n"), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if after, ok := strings.CutPrefix(line, driverPrefix); ok {
			return after
		}
		if last == "" {
			last = line
		}
	}
	return last
}
