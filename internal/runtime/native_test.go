// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nbrun/nbrun/internal/testutil"
)

func newFakeNative(t *testing.T, body string) *NativeRuntime {
	t.Helper()
	python := testutil.WriteFakePython(t, t.TempDir(), body)
	rt := NewNativeRuntime(python, nil)
	rt.InterruptGrace = 5 * time.Second
	return rt
}

func TestNativeRuntime_Success(t *testing.T) {
	t.Parallel()
	rt := newFakeNative(t, testutil.FakePythonEcho)
	ectx := newExecutionContext(t, newDoc(t, "x = 1", "print(x)"), time.Minute)

	res := rt.Execute(ectx)
	if !res.Success() {
		t.Fatalf("Execute() = %+v, want success", res)
	}
	if !res.Updated || ectx.Notebook.Len() != 2 {
		t.Errorf("Updated = %v, cells = %d", res.Updated, ectx.Notebook.Len())
	}
}

func TestNativeRuntime_CellError(t *testing.T) {
	t.Parallel()
	rt := newFakeNative(t, testutil.FakePythonCellError)
	ectx := newExecutionContext(t, newDoc(t, "1/0"), time.Minute)

	res := rt.Execute(ectx)
	if res.Success() {
		t.Fatal("Execute() succeeded, want cell error")
	}
	var execErr *ExecutionError
	if !errors.As(res.Error, &execErr) {
		t.Fatalf("Error = %T, want *ExecutionError", res.Error)
	}
	if !strings.Contains(execErr.Message, "ZeroDivisionError") {
		t.Errorf("Message = %q", execErr.Message)
	}
	if execErr.TimedOut {
		t.Error("TimedOut = true for a cell error")
	}
	if !strings.Contains(execErr.Stderr, "Traceback") {
		t.Errorf("Stderr = %q, want the full diagnostics", execErr.Stderr)
	}
	if !res.Updated {
		t.Error("the partial notebook should still be adopted")
	}
}

func TestNativeRuntime_EngineMissing(t *testing.T) {
	t.Parallel()
	rt := newFakeNative(t, testutil.FakePythonEngineMissing)
	ectx := newExecutionContext(t, newDoc(t, "x = 1"), time.Minute)

	res := rt.Execute(ectx)
	if !errors.Is(res.Error, ErrEngineMissing) {
		t.Fatalf("Error = %v, want ErrEngineMissing", res.Error)
	}
	if res.ExitCode != ExitCodeEngineMissing || res.Updated {
		t.Errorf("result = %+v", res)
	}
}

func TestNativeRuntime_TimeoutKeepsPartialNotebook(t *testing.T) {
	t.Parallel()
	rt := newFakeNative(t, testutil.FakePythonHang)
	ectx := newExecutionContext(t, newDoc(t, "while True: pass"), 300*time.Millisecond)

	start := time.Now()
	res := rt.Execute(ectx)
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("Execute() took %s, want it to stop shortly after the timeout", elapsed)
	}

	var execErr *ExecutionError
	if !errors.As(res.Error, &execErr) {
		t.Fatalf("Error = %v, want *ExecutionError", res.Error)
	}
	if !execErr.TimedOut || !errors.Is(res.Error, context.DeadlineExceeded) {
		t.Errorf("error = %v, want a timeout", res.Error)
	}
	if !res.Updated {
		t.Error("the interrupted driver's notebook should be adopted")
	}
}

func TestNativeRuntime_ArgumentsAndWorkDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	python := testutil.WriteFakePython(t, dir, testutil.FakePythonRecordArgs)
	rt := NewNativeRuntime(python, nil)

	ectx := newExecutionContext(t, newDoc(t, "x = 1"), 90*time.Second)
	ectx.Kernel = "ir"
	if res := rt.Execute(ectx); !res.Success() {
		t.Fatalf("Execute() = %+v", res)
	}

	args := testutil.MustReadFile(t, filepath.Join(dir, "args.txt"))
	if !strings.Contains(args, "--kernel\nir\n--timeout\n90\n") {
		t.Errorf("driver arguments = %q", args)
	}

	pwd := strings.TrimSpace(testutil.MustReadFile(t, filepath.Join(dir, "pwd.txt")))
	want, _ := filepath.EvalSymlinks(ectx.WorkDir)
	if got, _ := filepath.EvalSymlinks(pwd); got != want {
		t.Errorf("driver ran in %q, want %q", got, want)
	}
}

func TestNativeRuntime_InterpreterNotFound(t *testing.T) {
	t.Parallel()
	rt := NewNativeRuntime(filepath.Join(t.TempDir(), "no-such-python"), nil)

	if rt.Available() {
		t.Error("Available() = true for a missing interpreter")
	}
	res := rt.Execute(newExecutionContext(t, newDoc(t, "x = 1"), time.Minute))
	if !errors.Is(res.Error, ErrInterpreterNotFound) || !errors.Is(res.Error, ErrExecutionFailed) {
		t.Errorf("Error = %v, want ErrInterpreterNotFound", res.Error)
	}
}

func TestNativeRuntime_Validate(t *testing.T) {
	t.Parallel()
	rt := NewNativeRuntime("", nil)

	ectx := newExecutionContext(t, newDoc(t, "x = 1"), time.Minute)
	if err := rt.Validate(ectx); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	file := testutil.MustWriteFile(t, t.TempDir(), "f.txt", "")
	bad := []func(*ExecutionContext){
		func(c *ExecutionContext) { c.Notebook = nil },
		func(c *ExecutionContext) { c.Kernel = " " },
		func(c *ExecutionContext) { c.Timeout = 0 },
		func(c *ExecutionContext) { c.WorkDir = filepath.Join(os.TempDir(), "nbrun-missing-dir-for-test") },
		func(c *ExecutionContext) { c.WorkDir = file },
	}
	for i, mutate := range bad {
		c := *ectx
		mutate(&c)
		if err := rt.Validate(&c); err == nil {
			t.Errorf("case %d: Validate() = nil, want error", i)
		}
	}
}
