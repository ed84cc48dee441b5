package dispatch

import (
	"context"
	"io"

	"github.com/jhartig/kapsel/internal/docker"
)

// Runtime abstracts the sandbox runtime capabilities the dispatcher consumes.
type Runtime interface {
	CreateSandbox(ctx context.Context, opts docker.CreateOpts) (string, error)
	StartSandbox(ctx context.Context, containerID string) error
	InjectArchive(ctx context.Context, containerID, path string, archive io.Reader) error
	Exec(ctx context.Context, containerID string, opts docker.ExecOpts) (*docker.ExecResult, error)
	IsRunning(ctx context.Context, containerID string) (bool, error)
	Logs(ctx context.Context, containerID string) (string, error)
	StopRemove(ctx context.Context, containerID string) error
}

// SandboxPool abstracts warm pool acquisition.
type SandboxPool interface {
	Acquire() (string, bool)
}
