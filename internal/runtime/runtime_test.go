// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

type fakeRuntime struct {
	name        string
	available   bool
	validateErr error
	executed    int
}

func (f *fakeRuntime) Name() string    { return f.name }
func (f *fakeRuntime) Available() bool { return f.available }

func (f *fakeRuntime) Validate(*ExecutionContext) error { return f.validateErr }

func (f *fakeRuntime) Execute(*ExecutionContext) *Result {
	f.executed++
	return NewSuccessResult()
}

func TestRuntimeType_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ     RuntimeType
		wantErr bool
	}{
		{RuntimeTypeNative, false},
		{RuntimeTypeContainer, false},
		{"", true},
		{"virtual", true},
		{"NATIVE", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			t.Parallel()
			err := tt.typ.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRuntimeType) {
				t.Errorf("error should wrap ErrInvalidRuntimeType, got %v", err)
			}
		})
	}
}

func TestRegistry_GetAndAvailable(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Register(RuntimeTypeNative, &fakeRuntime{name: "native", available: true})
	reg.Register(RuntimeTypeContainer, &fakeRuntime{name: "container"})

	if _, err := reg.Get(RuntimeTypeNative); err != nil {
		t.Errorf("Get(native) error = %v", err)
	}
	if _, err := reg.Get("virtual"); !errors.Is(err, ErrRuntimeNotRegistered) {
		t.Errorf("Get(virtual) error = %v, want ErrRuntimeNotRegistered", err)
	}

	got := reg.Available()
	if !slices.Equal(got, []RuntimeType{RuntimeTypeNative}) {
		t.Errorf("Available() = %v, want [native]", got)
	}
}

func TestRegistry_Execute(t *testing.T) {
	t.Parallel()
	validateErr := errors.New("bad working directory")

	tests := []struct {
		name         string
		rt           *fakeRuntime
		selected     RuntimeType
		wantErr      error
		wantExecuted bool
	}{
		{"not registered", nil, RuntimeTypeContainer, ErrRuntimeNotRegistered, false},
		{"unavailable", &fakeRuntime{name: "native"}, RuntimeTypeNative, ErrRuntimeUnavailable, false},
		{"invalid context", &fakeRuntime{name: "native", available: true, validateErr: validateErr}, RuntimeTypeNative, validateErr, false},
		{"executes", &fakeRuntime{name: "native", available: true}, RuntimeTypeNative, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg := NewRegistry()
			if tt.rt != nil {
				reg.Register(RuntimeTypeNative, tt.rt)
			}
			ectx := newExecutionContext(t, newDoc(t, "x = 1"), time.Minute)
			ectx.SelectedRuntime = tt.selected

			res := reg.Execute(ectx)
			if tt.wantErr == nil {
				if !res.Success() {
					t.Fatalf("Execute() = %+v, want success", res)
				}
			} else {
				if !errors.Is(res.Error, tt.wantErr) || !errors.Is(res.Error, ErrExecutionFailed) {
					t.Fatalf("Execute() error = %v, want %v", res.Error, tt.wantErr)
				}
				if res.ExitCode != ExitCodeExecutionFailed {
					t.Errorf("ExitCode = %d", res.ExitCode)
				}
			}
			if tt.rt != nil && (tt.rt.executed > 0) != tt.wantExecuted {
				t.Errorf("executed = %d, want executed %v", tt.rt.executed, tt.wantExecuted)
			}
		})
	}
}

func TestRegistry_ExecuteUnavailableListsAlternatives(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Register(RuntimeTypeNative, &fakeRuntime{name: "native", available: true})
	reg.Register(RuntimeTypeContainer, &fakeRuntime{name: "container"})

	ectx := newExecutionContext(t, newDoc(t, "x = 1"), time.Minute)
	ectx.SelectedRuntime = RuntimeTypeContainer
	res := reg.Execute(ectx)

	var execErr *ExecutionError
	if !errors.As(res.Error, &execErr) {
		t.Fatalf("Execute() error = %v, want *ExecutionError", res.Error)
	}
	if !strings.Contains(execErr.Message, "(available: native)") {
		t.Errorf("Message = %q, want the available runtimes listed", execErr.Message)
	}

	reg = NewRegistry()
	reg.Register(RuntimeTypeContainer, &fakeRuntime{name: "container"})
	res = reg.Execute(ectx)
	if !errors.As(res.Error, &execErr) {
		t.Fatalf("Execute() error = %v, want *ExecutionError", res.Error)
	}
	if strings.Contains(execErr.Message, "available:") {
		t.Errorf("Message = %q, want no list when nothing is available", execErr.Message)
	}
}

func TestValidateContext(t *testing.T) {
	t.Parallel()
	ectx := newExecutionContext(t, newDoc(t, "x = 1"), time.Minute)
	if err := validateContext(ectx); err != nil {
		t.Fatalf("validateContext() = %v", err)
	}

	ectx.Timeout = -time.Second
	if err := validateContext(ectx); err == nil {
		t.Error("negative timeout should be rejected")
	}
}
