// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"testing"

	"github.com/nbrun/nbrun/internal/config"
	"github.com/nbrun/nbrun/internal/container"
)

func TestInitDiagnosticCode_Validate(t *testing.T) {
	t.Parallel()

	if err := CodeContainerRuntimeInitFailed.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	err := InitDiagnosticCode("bogus").Validate()
	if !errors.Is(err, ErrInvalidInitDiagnosticCode) {
		t.Errorf("Validate(bogus) = %v, want ErrInvalidInitDiagnosticCode", err)
	}
	if CodeContainerRuntimeInitFailed.String() != "container_runtime_init_failed" {
		t.Errorf("String() = %q", CodeContainerRuntimeInitFailed.String())
	}
}

func TestBuildRegistry_Defaults(t *testing.T) {
	t.Parallel()

	result := BuildRegistry(BuildRegistryOptions{})
	defer result.Cleanup()

	rt, err := result.Registry.Get(RuntimeTypeNative)
	if err != nil {
		t.Fatalf("native runtime not registered: %v", err)
	}
	if rt.Name() != "native" {
		t.Errorf("Name() = %q", rt.Name())
	}

	// Creating the API client does not contact the daemon.
	if result.ContainerInitErr == nil {
		if _, err := result.Registry.Get(RuntimeTypeContainer); err != nil {
			t.Errorf("container runtime not registered: %v", err)
		}
	}
}

func TestBuildRegistry_ContainerInitFailure(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Container.Engine = "lxc"
	cfg.Python.Binary = "/opt/venv/bin/python"

	result := BuildRegistry(BuildRegistryOptions{Config: cfg})
	defer result.Cleanup()

	if !errors.Is(result.ContainerInitErr, container.ErrInvalidEngineType) {
		t.Fatalf("ContainerInitErr = %v, want ErrInvalidEngineType", result.ContainerInitErr)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Code != CodeContainerRuntimeInitFailed {
		t.Errorf("Diagnostics = %+v", result.Diagnostics)
	}
	if _, err := result.Registry.Get(RuntimeTypeContainer); !errors.Is(err, ErrRuntimeNotRegistered) {
		t.Errorf("Get(container) error = %v", err)
	}

	rt, err := result.Registry.Get(RuntimeTypeNative)
	if err != nil {
		t.Fatal(err)
	}
	if native := rt.(*NativeRuntime); native.Python != "/opt/venv/bin/python" {
		t.Errorf("Python = %q", native.Python)
	}
}
