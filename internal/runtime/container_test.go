// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nbrun/nbrun/internal/container"
)

// fakeEngine plays the driver inside a "container": it copies stdin to stdout
// and reports the configured exit code.
type fakeEngine struct {
	mu sync.Mutex

	available bool
	exists    bool
	pullErr   error
	runErr    error
	exitCode  int
	stderr    string
	block     bool

	pulls int
	opts  []container.RunOptions
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return f.available }
func (f *fakeEngine) Close() error    { return nil }

func (f *fakeEngine) Version(context.Context) (string, error) { return "1.0", nil }

func (f *fakeEngine) ImageExists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *fakeEngine) Pull(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	return f.pullErr
}

func (f *fakeEngine) Run(ctx context.Context, opts container.RunOptions) (*container.RunResult, error) {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if f.runErr != nil {
		return nil, f.runErr
	}
	res := &container.RunResult{ContainerID: "fake", ExitCode: f.exitCode}
	if f.block {
		<-ctx.Done()
		res.Interrupted = true
		res.ExitCode = 1
	}
	if _, err := io.Copy(opts.Stdout, opts.Stdin); err != nil {
		return nil, err
	}
	_, _ = io.WriteString(opts.Stderr, f.stderr)
	return res, nil
}

func newContainerContext(t *testing.T, timeout time.Duration) *ExecutionContext {
	t.Helper()
	ectx := newExecutionContext(t, newDoc(t, "import pandas"), timeout)
	ectx.SelectedRuntime = RuntimeTypeContainer
	ectx.ExecutionID = "cq8s1v2n0"
	return ectx
}

func TestContainerRuntime_Success(t *testing.T) {
	t.Parallel()
	engine := &fakeEngine{available: true, exists: true}
	rt := NewContainerRuntimeWithEngine(engine, "example/notebook:1", container.PullMissing, nil)
	ectx := newContainerContext(t, time.Minute)

	res := rt.Execute(ectx)
	if !res.Success() || !res.Updated {
		t.Fatalf("Execute() = %+v", res)
	}

	if len(engine.opts) != 1 {
		t.Fatalf("Run called %d times", len(engine.opts))
	}
	opts := engine.opts[0]
	if opts.Image != "example/notebook:1" || opts.Name != "nbrun-cq8s1v2n0" {
		t.Errorf("image/name = %q/%q", opts.Image, opts.Name)
	}
	if opts.WorkDir != ContainerWorkDir {
		t.Errorf("WorkDir = %q", opts.WorkDir)
	}
	if len(opts.Mounts) != 1 || opts.Mounts[0].Source != ectx.WorkDir || opts.Mounts[0].Target != ContainerWorkDir {
		t.Errorf("Mounts = %+v", opts.Mounts)
	}
	if opts.Command[0] != "python" || !strings.Contains(strings.Join(opts.Command[3:], " "), "--timeout 60") {
		t.Errorf("Command = %q", opts.Command[3:])
	}
	if engine.pulls != 0 {
		t.Errorf("pulls = %d, want 0 for a present image", engine.pulls)
	}
}

func TestContainerRuntime_PullsMissingImage(t *testing.T) {
	t.Parallel()
	engine := &fakeEngine{available: true}
	rt := NewContainerRuntimeWithEngine(engine, "example/notebook:1", container.PullMissing, nil)

	if res := rt.Execute(newContainerContext(t, time.Minute)); !res.Success() {
		t.Fatalf("Execute() = %+v", res)
	}
	if engine.pulls != 1 {
		t.Errorf("pulls = %d, want 1", engine.pulls)
	}
}

func TestContainerRuntime_ImageUnavailable(t *testing.T) {
	t.Parallel()
	engine := &fakeEngine{available: true}
	rt := NewContainerRuntimeWithEngine(engine, "example/notebook:1", container.PullNever, nil)

	res := rt.Execute(newContainerContext(t, time.Minute))
	if !errors.Is(res.Error, container.ErrImageNotPresent) || !errors.Is(res.Error, ErrExecutionFailed) {
		t.Fatalf("Error = %v, want ErrImageNotPresent", res.Error)
	}
	if len(engine.opts) != 0 {
		t.Error("no container should run without an image")
	}
}

func TestContainerRuntime_CellError(t *testing.T) {
	t.Parallel()
	engine := &fakeEngine{available: true, exists: true, exitCode: 1, stderr: "nbrun-driver: CellExecutionError: KeyError\n"}
	rt := NewContainerRuntimeWithEngine(engine, "example/notebook:1", container.PullMissing, nil)

	res := rt.Execute(newContainerContext(t, time.Minute))
	var execErr *ExecutionError
	if !errors.As(res.Error, &execErr) {
		t.Fatalf("Error = %v", res.Error)
	}
	if execErr.Runtime != RuntimeTypeContainer || execErr.Message != "CellExecutionError: KeyError" {
		t.Errorf("ExecutionError = %+v", execErr)
	}
	if !res.Updated {
		t.Error("partial notebook should be adopted")
	}
}

func TestContainerRuntime_Timeout(t *testing.T) {
	t.Parallel()
	engine := &fakeEngine{available: true, exists: true, block: true}
	rt := NewContainerRuntimeWithEngine(engine, "example/notebook:1", container.PullMissing, nil)

	res := rt.Execute(newContainerContext(t, 100*time.Millisecond))
	var execErr *ExecutionError
	if !errors.As(res.Error, &execErr) || !execErr.TimedOut {
		t.Fatalf("Error = %v, want a timeout", res.Error)
	}
	if !res.Updated {
		t.Error("partial notebook should be adopted after a timeout")
	}
}

func TestContainerRuntime_RunError(t *testing.T) {
	t.Parallel()
	runErr := errors.New("create container: no space left on device")
	engine := &fakeEngine{available: true, exists: true, runErr: runErr}
	rt := NewContainerRuntimeWithEngine(engine, "example/notebook:1", container.PullMissing, nil)

	res := rt.Execute(newContainerContext(t, time.Minute))
	if !errors.Is(res.Error, runErr) || res.Updated {
		t.Errorf("result = %+v", res)
	}
}

func TestContainerRuntime_Validate(t *testing.T) {
	t.Parallel()
	rt := NewContainerRuntimeWithEngine(&fakeEngine{}, "", container.PullMissing, nil)
	if err := rt.Validate(newContainerContext(t, time.Minute)); err == nil {
		t.Error("Validate() without an image should fail")
	}

	rt.Image = "example/notebook:1"
	ectx := newContainerContext(t, time.Minute)
	if err := rt.Validate(ectx); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	ectx.WorkDir = ""
	if err := rt.Validate(ectx); err == nil {
		t.Error("Validate() without a working directory should fail")
	}
	if rt.Available() {
		t.Error("Available() should follow the engine")
	}
}
