// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger returns the slog logger used by every package during one
// invocation. Debug records (engine stderr, runtime decisions) only show in
// verbose mode.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Prefix:          "nbrun",
		Level:           level,
		ReportTimestamp: verbose,
	})
	return slog.New(handler)
}
