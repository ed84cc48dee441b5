package sweeper

import (
	"context"

	"github.com/jhartig/kapsel/internal/registry"
)

// SessionSource abstracts the registry operations needed by the sweeper.
type SessionSource interface {
	Snapshot() []registry.Session
	Delete(id string) (registry.Session, error)
}

// Runtime abstracts the sandbox operations needed by the sweeper.
type Runtime interface {
	StopRemove(ctx context.Context, containerID string) error
}

// Replenisher refills the warm pool after expired sandboxes are reclaimed.
type Replenisher interface {
	Replenish(ctx context.Context)
}
