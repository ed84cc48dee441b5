package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/jhartig/kapsel/internal/config"
)

const labelPrefix = "kapsel."

// Client wraps the Docker SDK with the sandbox operations the service needs:
// create, start, archive injection, exec, status, logs, stop and remove.
type Client struct {
	docker *client.Client
}

func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Client{docker: cli}, nil
}

func (c *Client) Close() error {
	return c.docker.Close()
}

// Ping verifies the Docker daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.docker.Ping(ctx)
	return err
}

type CreateOpts struct {
	SessionID string
	Image     string
	Cmd       []string // entrypoint command, e.g. ["sleep", "3600"]
	WorkDir   string
	Limits    config.Limits
	Labels    map[string]string // additional labels
}

// CreateSandbox creates a sandbox container without starting it, so callers
// can inject code before the entrypoint runs. Returns the container ID.
func (c *Client) CreateSandbox(ctx context.Context, opts CreateOpts) (string, error) {
	memBytes, err := opts.Limits.MemBytes()
	if err != nil {
		return "", err
	}

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			NanoCPUs:  int64(opts.Limits.CPULimit * 1e9),
			Memory:    memBytes,
			PidsLimit: int64Ptr(int64(opts.Limits.PidsLimit)),
		},
		AutoRemove:  false,
		SecurityOpt: []string{"no-new-privileges"},
		CapDrop:     []string{"ALL"},
	}

	if opts.Limits.NetworkMode == "none" {
		hostCfg.NetworkMode = "none"
	}

	containerCfg := &container.Config{
		Image:      opts.Image,
		Cmd:        opts.Cmd,
		WorkingDir: opts.WorkDir,
		Labels:     sandboxLabels(opts),
		Tty:        false,
	}

	resp, err := c.docker.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, sandboxName(opts.SessionID))
	if err != nil {
		return "", fmt.Errorf("container create: %w", err)
	}
	return resp.ID, nil
}

// StartSandbox starts a previously created sandbox container.
func (c *Client) StartSandbox(ctx context.Context, containerID string) error {
	if err := c.docker.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("container start: %w", err)
	}
	return nil
}

// InjectArchive streams a tar archive into the container at path.
// Works on both created and running containers.
func (c *Client) InjectArchive(ctx context.Context, containerID, path string, archive io.Reader) error {
	err := c.docker.CopyToContainer(ctx, containerID, path, archive, container.CopyToContainerOptions{})
	if err != nil {
		return fmt.Errorf("copy to container: %w", err)
	}
	return nil
}

type ExecOpts struct {
	Cmd     []string
	WorkDir string
	Detach  bool // fire-and-forget; no result is returned
}

type ExecResult struct {
	ExitCode int
	Output   string // combined stdout and stderr
}

// Exec runs a command inside a running sandbox. Detached execs return a nil
// result immediately; synchronous execs block until the command exits.
func (c *Client) Exec(ctx context.Context, containerID string, opts ExecOpts) (*ExecResult, error) {
	execCfg := container.ExecOptions{
		Cmd:          opts.Cmd,
		WorkingDir:   opts.WorkDir,
		Detach:       opts.Detach,
		AttachStdout: !opts.Detach,
		AttachStderr: !opts.Detach,
	}

	execResp, err := c.docker.ContainerExecCreate(ctx, containerID, execCfg)
	if err != nil {
		return nil, fmt.Errorf("exec create: %w", err)
	}

	if opts.Detach {
		if err := c.docker.ContainerExecStart(ctx, execResp.ID, container.ExecStartOptions{Detach: true}); err != nil {
			return nil, fmt.Errorf("exec start: %w", err)
		}
		return nil, nil
	}

	attachResp, err := c.docker.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("exec attach: %w", err)
	}
	defer attachResp.Close()

	output, err := demuxOutput(attachResp.Reader)
	if err != nil {
		return nil, fmt.Errorf("exec read: %w", err)
	}

	inspect, err := c.docker.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("exec inspect: %w", err)
	}

	return &ExecResult{ExitCode: inspect.ExitCode, Output: output}, nil
}

// IsRunning reports whether a container is currently running.
// A removed container is reported as not running, not as an error.
func (c *Client) IsRunning(ctx context.Context, containerID string) (bool, error) {
	info, err := c.docker.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("container inspect: %w", err)
	}
	return info.State.Running, nil
}

// Logs returns the accumulated combined output of the container's main process.
func (c *Client) Logs(ctx context.Context, containerID string) (string, error) {
	reader, err := c.docker.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("container logs: %w", err)
	}
	defer reader.Close()

	output, err := demuxOutput(reader)
	if err != nil {
		return "", fmt.Errorf("demultiplexing logs: %w", err)
	}
	return output, nil
}

// StopRemove stops and force-removes a container. An already-removed
// container is not an error.
func (c *Client) StopRemove(ctx context.Context, containerID string) error {
	// Stop errors are not fatal; the removal below is forced.
	_ = c.docker.ContainerStop(ctx, containerID, container.StopOptions{})
	err := c.docker.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("container remove: %w", err)
	}
	return nil
}

func sandboxName(sessionID string) string {
	return "kapsel-" + sessionID
}

func sandboxLabels(opts CreateOpts) map[string]string {
	labels := map[string]string{
		labelPrefix + "session_id": opts.SessionID,
		labelPrefix + "managed":    "true",
	}
	for k, v := range opts.Labels {
		labels[k] = v
	}
	return labels
}

// demuxOutput merges Docker's multiplexed stream (8-byte frame headers) into
// one combined stdout+stderr string.
func demuxOutput(r io.Reader) (string, error) {
	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, r); err != nil {
		return "", err
	}
	return out.String(), nil
}

func int64Ptr(v int64) *int64 {
	return &v
}
