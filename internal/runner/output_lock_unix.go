// SPDX-License-Identifier: MPL-2.0

//go:build linux || darwin || freebsd || netbsd || openbsd

package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// outputLock holds a non-blocking exclusive flock for one output path. The
// zero-byte lock file may outlive the process; the kernel drops the flock
// when the descriptor closes, including on a crash.
type outputLock struct {
	file *os.File
}

// acquireOutputLock locks the output path or fails with ErrOutputLocked.
func acquireOutputLock(output string) (*outputLock, error) {
	return acquireOutputLockAt(lockFilePath(output))
}

func acquireOutputLockAt(lockPath string) (*outputLock, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrOutputLocked
		}
		return nil, fmt.Errorf("flock %s: %w", lockPath, err)
	}

	return &outputLock{file: f}, nil
}

// Release unlocks and closes the lock file. Subsequent calls are no-ops.
func (l *outputLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
