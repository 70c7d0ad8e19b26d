// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"

	PullAlways  PullPolicy = "always"
	PullMissing PullPolicy = "missing"
	PullNever   PullPolicy = "never"
)

var (
	// ErrInvalidEngineType is the sentinel error for unknown engine names.
	ErrInvalidEngineType = errors.New("invalid container engine type")
	// ErrInvalidPullPolicy is the sentinel error for unknown pull policies.
	ErrInvalidPullPolicy = errors.New("invalid pull policy")
	// ErrImageNotPresent is returned when the pull policy forbids pulling a
	// missing image.
	ErrImageNotPresent = errors.New("image not present locally")
)

type (
	// Engine defines the container operations notebook execution relies on
	Engine interface {
		// Name returns the engine name (docker or podman)
		Name() string
		// Available checks if the engine daemon answers
		Available() bool
		// Version returns the engine version
		Version(ctx context.Context) (string, error)
		// ImageExists checks if an image is present locally
		ImageExists(ctx context.Context, image string) (bool, error)
		// Pull fetches an image from its registry
		Pull(ctx context.Context, image string) error
		// Run runs a command in a fresh container and removes it afterwards
		Run(ctx context.Context, opts RunOptions) (*RunResult, error)
		// Close releases the engine connection
		Close() error
	}

	// Mount is a bind mount from the host into the container.
	Mount struct {
		Source   string
		Target   string
		ReadOnly bool
	}

	// RunOptions contains options for running a container
	RunOptions struct {
		// Image is the image to run
		Image string
		// Name is the container name
		Name string
		// Command is the command to run
		Command []string
		// WorkDir is the working directory inside the container
		WorkDir string
		// Env contains environment variables
		Env map[string]string
		// Mounts are bind mounts
		Mounts []Mount
		// Stdin is copied to the container's standard input, then closed
		Stdin io.Reader
		// Stdout is where to write standard output
		Stdout io.Writer
		// Stderr is where to write standard error
		Stderr io.Writer
		// StopGrace is how long an interrupted container may take to exit
		// before it is killed
		StopGrace time.Duration
	}

	// RunResult contains the result of running a container
	RunResult struct {
		// ContainerID is the container ID
		ContainerID string
		// ExitCode is the exit code of the container's main process
		ExitCode int
		// Interrupted is set when the run context ended before the container exited
		Interrupted bool
	}

	// EngineType identifies the container engine type
	EngineType string

	// PullPolicy decides when EnsureImage pulls.
	PullPolicy string

	// EngineNotAvailableError is returned when a container engine is not available
	EngineNotAvailableError struct {
		Engine EngineType
		Reason string
	}
)

func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Validate returns nil if the EngineType is docker or podman.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypeDocker, EngineTypePodman:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: docker, podman)", ErrInvalidEngineType, string(t))
	}
}

// Validate returns nil if the PullPolicy is known.
func (p PullPolicy) Validate() error {
	switch p {
	case PullAlways, PullMissing, PullNever:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: always, missing, never)", ErrInvalidPullPolicy, string(p))
	}
}
