package api

import (
	"context"

	"github.com/jhartig/kapsel/internal/dispatch"
	"github.com/jhartig/kapsel/internal/stage"
)

// Service abstracts the dispatch operations needed by API handlers.
type Service interface {
	RunScript(ctx context.Context, file stage.File) (string, error)
	RunTests(ctx context.Context, files []stage.File) (*dispatch.TestResult, error)
	Result(ctx context.Context, sessionID string) (*dispatch.PollResult, error)
	Cleanup(ctx context.Context, sessionID string) error
}

// Prewarmer abstracts the warm-pool operations needed by API handlers.
type Prewarmer interface {
	TopUp(ctx context.Context) (bool, error)
	Size() int
}
