// SPDX-License-Identifier: MPL-2.0

//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package runner

// outputLock is a no-op where flock is unavailable; concurrent runs on one
// output path are not detected there.
type outputLock struct{}

func acquireOutputLock(string) (*outputLock, error) {
	return &outputLock{}, nil
}

// Release is a no-op.
func (l *outputLock) Release() {}
