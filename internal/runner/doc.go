// SPDX-License-Identifier: MPL-2.0

// Package runner executes one notebook end to end: load, optional fast-mode
// injection, delegated execution, persistence and artifact reporting.
//
// The executed document is written to the output path on success and on
// execution failure alike, so a failing run still leaves the cells that ran
// (with their tracebacks) on disk. Load failures write nothing.
package runner
