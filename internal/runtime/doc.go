// SPDX-License-Identifier: MPL-2.0

// Package runtime provides the execution engines nbrun delegates notebook
// execution to.
//
// Two runtime implementations are available:
//   - native: runs the embedded nbclient driver with the host Python interpreter
//   - container: runs the same driver inside a Docker/Podman container
//
// All runtimes implement the Runtime interface with Name(), Available(),
// Validate() and Execute(). Execute hands the notebook to the driver on stdin
// and adopts whatever document the driver writes back, so a failed run still
// leaves the partially executed cells in ExecutionContext.Notebook.
//
// Cell errors, timeouts and engine failures are all reported as a single
// *ExecutionError kind.
package runtime
