// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// Fake interpreter bodies. Each stands in for `python -c <driver> ...`: the
// notebook arrives on stdin and the executed notebook is expected on stdout.
const (
	// FakePythonEcho returns the notebook unchanged and succeeds.
	FakePythonEcho = "cat\n"

	// FakePythonCellError returns the notebook and fails like a cell error.
	FakePythonCellError = "cat\n" +
		"echo 'Traceback (most recent call last):' >&2\n" +
		"echo 'nbrun-driver: CellExecutionError: ZeroDivisionError: division by zero' >&2\n" +
		"exit 1\n"

	// FakePythonEngineMissing fails like an interpreter without nbclient.
	FakePythonEngineMissing = "cat >/dev/null\n" +
		"echo 'nbrun-driver: nbclient is not installed (No module named nbclient)' >&2\n" +
		"exit 3\n"

	// FakePythonHang reads the notebook, then waits to be interrupted and
	// writes it back as the partial result.
	FakePythonHang = "nb=$(cat)\n" +
		"trap 'printf \"%s\" \"$nb\"; echo \"nbrun-driver: KeyboardInterrupt\" >&2; exit 1' INT\n" +
		"while :; do sleep 0.1; done\n"

	// FakePythonRecordArgs writes its arguments (one per line) and working
	// directory next to itself, then echoes the notebook.
	FakePythonRecordArgs = "printf '%s\\n' \"$@\" > \"$(dirname \"$0\")/args.txt\"\n" +
		"pwd > \"$(dirname \"$0\")/pwd.txt\"\n" +
		"cat\n"
)

// WriteFakePython writes a /bin/sh script with the given body to dir and
// returns its path. Tests using it are skipped on Windows.
func WriteFakePython(t testing.TB, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreters are shell scripts")
	}
	path := filepath.Join(dir, "python3")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("failed to write fake interpreter: %v", err)
	}
	return path
}
