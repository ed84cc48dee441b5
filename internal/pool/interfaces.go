package pool

import (
	"context"

	"github.com/jhartig/kapsel/internal/docker"
)

// Runtime abstracts the container operations the pool needs.
type Runtime interface {
	CreateSandbox(ctx context.Context, opts docker.CreateOpts) (string, error)
	StartSandbox(ctx context.Context, containerID string) error
	StopRemove(ctx context.Context, containerID string) error
}
