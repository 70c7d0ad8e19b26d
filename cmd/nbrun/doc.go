// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the nbrun command line.
//
// The root command executes one notebook; `nbrun config` inspects and
// initializes the configuration file. Handlers report failures through
// *ExitError so the process exit status is decided in one place: 0 on
// success, 2 when the input notebook does not exist, 1 for everything else.
package cmd
