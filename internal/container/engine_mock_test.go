// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"sync"
)

// mockEngine records calls and returns canned results.
type mockEngine struct {
	mu sync.Mutex

	exists    bool
	existsErr error
	pullErrs  []error
	pulls     int
	runOpts   []RunOptions
	runResult *RunResult
	runErr    error
}

func (m *mockEngine) Name() string { return "mock" }

func (m *mockEngine) Available() bool { return true }

func (m *mockEngine) Close() error { return nil }

func (m *mockEngine) Version(context.Context) (string, error) {
	return "0.0.0-mock", nil
}

func (m *mockEngine) ImageExists(context.Context, string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockEngine) Pull(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.pulls
	m.pulls++
	if i < len(m.pullErrs) {
		return m.pullErrs[i]
	}
	return nil
}

func (m *mockEngine) Run(_ context.Context, opts RunOptions) (*RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runOpts = append(m.runOpts, opts)
	if m.runErr != nil {
		return nil, m.runErr
	}
	if m.runResult == nil {
		return &RunResult{ContainerID: "mock"}, nil
	}
	return m.runResult, nil
}

var _ Engine = (*mockEngine)(nil)
