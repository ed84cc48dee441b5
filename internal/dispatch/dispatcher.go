// Package dispatch stages submitted code into a sandbox and starts execution,
// in one of two modes: fire-and-forget script runs and synchronous test runs
// with result classification. Every sandbox it creates or acquires is
// released on every exit path.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jhartig/kapsel/internal/config"
	"github.com/jhartig/kapsel/internal/docker"
	"github.com/jhartig/kapsel/internal/metrics"
	"github.com/jhartig/kapsel/internal/registry"
	"github.com/jhartig/kapsel/internal/stage"
)

var (
	ErrNoFile        = errors.New("no file provided")
	ErrNoFiles       = errors.New("no files provided")
	ErrNoTestFiles   = errors.New("no test files found (should end with _test.py or start with test_)")
	ErrBadScriptType = errors.New("unsupported script type")
)

type Dispatcher struct {
	cfg      *config.Config
	runtime  Runtime
	pool     SandboxPool
	registry *registry.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(cfg *config.Config, rt Runtime, p SandboxPool, reg *registry.Registry, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		runtime:  rt,
		pool:     p,
		registry: reg,
		logger:   logger,
		metrics:  m,
	}
}

func newSessionID() string {
	return uuid.New().String()
}

// record registers a dispatched session.
func (d *Dispatcher) record(sessionID, containerID string, mode registry.Mode) {
	d.registry.Create(registry.Session{
		ID:          sessionID,
		ContainerID: containerID,
		Mode:        mode,
		CreatedAt:   time.Now().UTC(),
	})
	d.metrics.ObserveSession(string(mode))
}

// release stops and removes a sandbox, best effort. Reclamation must not
// block or fail the caller, so errors are logged and swallowed.
func (d *Dispatcher) release(ctx context.Context, containerID string) {
	if err := d.runtime.StopRemove(ctx, containerID); err != nil {
		d.logger.Error("release sandbox", "container", containerID, "error", err)
	}
}

func (d *Dispatcher) createOpts(sessionID string, cmd []string) docker.CreateOpts {
	return docker.CreateOpts{
		SessionID: sessionID,
		Image:     d.cfg.Image,
		Cmd:       cmd,
		WorkDir:   stage.WorkDir,
		Limits:    d.cfg.Limits,
	}
}
