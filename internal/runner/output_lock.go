// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
)

// ErrOutputLocked is returned when another nbrun process is writing the same
// output notebook.
var ErrOutputLocked = errors.New("output notebook is in use by another nbrun run")

// lockFilePath returns the lock file guarding output. Lock files live in
// $XDG_RUNTIME_DIR (per-user tmpfs) or, when unset, os.TempDir().
func lockFilePath(output string) string {
	return lockFilePathWith(output, os.Getenv)
}

// lockFilePathWith is lockFilePath with an injectable getenv.
func lockFilePathWith(output string, getenv func(string) string) string {
	abs, err := filepath.Abs(output)
	if err != nil {
		abs = output
	}
	sum := sha256.Sum256([]byte(abs))

	dir := getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "nbrun-"+hex.EncodeToString(sum[:8])+".lock")
}
