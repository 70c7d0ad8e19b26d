// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const (
	// availabilityTimeout bounds the ping issued by Available.
	availabilityTimeout = 5 * time.Second
	// cleanupTimeout bounds container removal after a run.
	cleanupTimeout = 30 * time.Second
	// drainTimeout bounds how long Run waits for the output stream to close
	// after the container exited.
	drainTimeout = 5 * time.Second
)

// DockerEngine implements Engine over the Docker Engine API.
type DockerEngine struct {
	typ    EngineType
	cli    *client.Client
	logger *slog.Logger
}

// EngineOptions configures NewEngine.
type EngineOptions struct {
	// Type is docker or podman; podman is reached through its Docker-compatible socket
	Type EngineType
	// Host overrides the daemon address (e.g. unix:///run/user/1000/podman/podman.sock)
	Host string
	// Logger receives engine diagnostics
	Logger *slog.Logger
}

// NewDockerEngine creates an API client for the given options without
// contacting the daemon.
func NewDockerEngine(opts EngineOptions) (*DockerEngine, error) {
	typ := opts.Type
	if typ == "" {
		typ = EngineTypeDocker
	}
	if err := typ.Validate(); err != nil {
		return nil, err
	}

	clientOpts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host := resolveHost(typ, opts.Host); host != "" {
		clientOpts = append(clientOpts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", typ, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DockerEngine{typ: typ, cli: cli, logger: logger}, nil
}

// NewEngine creates an engine and verifies that its daemon answers.
func NewEngine(opts EngineOptions) (Engine, error) {
	engine, err := NewDockerEngine(opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), availabilityTimeout)
	defer cancel()
	if _, err := engine.cli.Ping(ctx); err != nil {
		_ = engine.Close()
		return nil, &EngineNotAvailableError{Engine: engine.typ, Reason: err.Error()}
	}
	return engine, nil
}

// resolveHost picks the daemon address. An explicit host wins, then
// DOCKER_HOST (applied by client.FromEnv), then the Podman socket.
func resolveHost(typ EngineType, host string) string {
	if host != "" {
		return host
	}
	if typ != EngineTypePodman || os.Getenv(client.EnvOverrideHost) != "" {
		return ""
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return "unix://" + filepath.Join(dir, "podman", "podman.sock")
	}
	return "unix:///run/podman/podman.sock"
}

// Name returns the engine name
func (e *DockerEngine) Name() string {
	return string(e.typ)
}

// Available checks if the daemon answers a ping
func (e *DockerEngine) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), availabilityTimeout)
	defer cancel()
	_, err := e.cli.Ping(ctx)
	return err == nil
}

// Version returns the server version
func (e *DockerEngine) Version(ctx context.Context) (string, error) {
	v, err := e.cli.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", e.typ, err)
	}
	return v.Version, nil
}

// ImageExists checks if an image is present locally
func (e *DockerEngine) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, err := e.cli.ImageInspect(ctx, ref)
	switch {
	case err == nil:
		return true, nil
	case client.IsErrNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to inspect image %s: %w", ref, err)
	}
}

// Pull fetches an image and blocks until the pull completes
func (e *DockerEngine) Pull(ctx context.Context, ref string) error {
	reader, err := e.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	return nil
}

// Run creates, attaches to, and starts a container, then waits for it to exit.
// The container is removed afterwards even if ctx was cancelled.
func (e *DockerEngine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	// Cleanup and the interrupt sequence must outlive ctx.
	bg := context.WithoutCancel(ctx)
	withStdin := opts.Stdin != nil

	cfg := &container.Config{
		Image:        opts.Image,
		Cmd:          opts.Command,
		WorkingDir:   opts.WorkDir,
		Env:          envList(opts.Env),
		AttachStdin:  withStdin,
		AttachStdout: true,
		AttachStderr: true,
		OpenStdin:    withStdin,
		StdinOnce:    withStdin,
	}
	hostCfg := &container.HostConfig{Mounts: bindMounts(opts.Mounts)}

	created, err := e.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, opts.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	id := created.ID
	defer e.remove(bg, id)

	attach, err := e.cli.ContainerAttach(ctx, id, container.AttachOptions{
		Stream: true,
		Stdin:  withStdin,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to container: %w", err)
	}
	defer attach.Close()

	waitCh, waitErrCh := e.cli.ContainerWait(bg, id, container.WaitConditionNextExit)

	if err := e.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	copied := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(writerOrDiscard(opts.Stdout), writerOrDiscard(opts.Stderr), attach.Reader)
		copied <- err
	}()
	if withStdin {
		go func() {
			if _, err := io.Copy(attach.Conn, opts.Stdin); err != nil {
				e.logger.Debug("copying stdin to container", "id", id, "error", err)
			}
			_ = attach.CloseWrite()
		}()
	}

	res := &RunResult{ContainerID: id}
	select {
	case resp := <-waitCh:
		res.ExitCode = int(resp.StatusCode)
	case err := <-waitErrCh:
		return nil, fmt.Errorf("failed to wait for container: %w", err)
	case <-ctx.Done():
		res.Interrupted = true
		code, err := e.interrupt(bg, id, opts.StopGrace, waitCh, waitErrCh)
		if err != nil {
			return nil, err
		}
		res.ExitCode = code
	}

	select {
	case err := <-copied:
		if err != nil {
			e.logger.Debug("container output stream ended with error", "id", id, "error", err)
		}
	case <-time.After(drainTimeout):
		e.logger.Warn("container output stream did not close", "id", id)
	}
	return res, nil
}

// Close releases the API client
func (e *DockerEngine) Close() error {
	return e.cli.Close()
}

// interrupt sends SIGINT, then SIGKILL once grace has elapsed, and returns
// the exit code the container ended with.
func (e *DockerEngine) interrupt(
	ctx context.Context,
	id string,
	grace time.Duration,
	waitCh <-chan container.WaitResponse,
	waitErrCh <-chan error,
) (int, error) {
	e.logger.Debug("interrupting container", "id", id, "grace", grace)
	if err := e.cli.ContainerKill(ctx, id, "SIGINT"); err != nil {
		e.logger.Debug("failed to interrupt container", "id", id, "error", err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case resp := <-waitCh:
		return int(resp.StatusCode), nil
	case err := <-waitErrCh:
		return 0, fmt.Errorf("failed to wait for container: %w", err)
	case <-timer.C:
	}

	e.logger.Debug("killing container", "id", id)
	if err := e.cli.ContainerKill(ctx, id, "SIGKILL"); err != nil {
		e.logger.Debug("failed to kill container", "id", id, "error", err)
	}
	select {
	case resp := <-waitCh:
		return int(resp.StatusCode), nil
	case err := <-waitErrCh:
		return 0, fmt.Errorf("failed to wait for container: %w", err)
	}
}

func (e *DockerEngine) remove(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()
	if err := e.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		e.logger.Warn("failed to remove container", "id", id, "error", err)
	}
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	slices.Sort(list)
	return list
}

func bindMounts(mounts []Mount) []mount.Mount {
	if len(mounts) == 0 {
		return nil
	}
	out := make([]mount.Mount, 0, len(mounts))
	for _, m := range mounts {
		out = append(out, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}
	return out
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
