// Package pool maintains a reserve of pre-created idle sandboxes so dispatch
// does not pay container startup latency on every request.
package pool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhartig/kapsel/internal/config"
	"github.com/jhartig/kapsel/internal/docker"
	"github.com/jhartig/kapsel/internal/metrics"
	"github.com/jhartig/kapsel/internal/stage"
)

// Idle sandboxes park on a bounded sleep; a pooled container that is never
// acquired dies on its own after this long even if replenishment stalls.
var idleCmd = []string{"sleep", "3600"}

// Pool holds idle sandbox container ids, bounded at the configured target
// size. Every handle is either in the pool or bound to exactly one session;
// overflow containers are removed immediately, never orphaned.
type Pool struct {
	cfg     *config.Config
	runtime Runtime
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	idle []string
}

func New(cfg *config.Config, rt Runtime, logger *slog.Logger, m *metrics.Metrics) *Pool {
	return &Pool{
		cfg:     cfg,
		runtime: rt,
		logger:  logger,
		metrics: m,
	}
}

// Acquire atomically pops one idle sandbox. Returns false when the pool is
// empty; the caller falls back to on-demand creation.
func (p *Pool) Acquire() (string, bool) {
	p.mu.Lock()
	var containerID string
	ok := len(p.idle) > 0
	if ok {
		containerID = p.idle[0]
		p.idle = p.idle[1:]
	}
	size := len(p.idle)
	p.mu.Unlock()

	p.metrics.ObservePoolAcquire(ok)
	p.metrics.SetPoolIdle(size)
	if ok {
		p.logger.Info("acquired pooled sandbox", "container", short(containerID))
	}
	return containerID, ok
}

// Size returns the current number of idle sandboxes.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// TopUp creates one idle sandbox if the pool is below target. Returns false
// with no error when the pool is already full. Used by the prewarm endpoint.
func (p *Pool) TopUp(ctx context.Context) (bool, error) {
	if p.Size() >= p.cfg.PoolSize {
		return false, nil
	}
	containerID, err := p.createIdle(ctx)
	if err != nil {
		return false, err
	}
	p.put(ctx, containerID)
	return true, nil
}

// Replenish fills the pool back up to the target size. Creation failures are
// logged and abort the fill; the pool is best-effort and the request path
// never depends on it.
func (p *Pool) Replenish(ctx context.Context) {
	for p.Size() < p.cfg.PoolSize {
		select {
		case <-ctx.Done():
			return
		default:
		}

		containerID, err := p.createIdle(ctx)
		if err != nil {
			p.logger.Error("replenish: create pooled sandbox", "error", err)
			return
		}
		p.put(ctx, containerID)
	}
}

// Drain stops and removes every idle sandbox and empties the pool. Used at
// shutdown and safe to call more than once.
func (p *Pool) Drain(ctx context.Context) {
	p.mu.Lock()
	drained := p.idle
	p.idle = nil
	p.mu.Unlock()
	p.metrics.SetPoolIdle(0)

	for _, containerID := range drained {
		p.logger.Info("draining pooled sandbox", "container", short(containerID))
		if err := p.runtime.StopRemove(ctx, containerID); err != nil {
			p.logger.Error("drain: remove pooled sandbox", "container", short(containerID), "error", err)
		}
	}
}

// createIdle creates and starts one idle sandbox outside any lock.
func (p *Pool) createIdle(ctx context.Context) (string, error) {
	containerID, err := p.runtime.CreateSandbox(ctx, docker.CreateOpts{
		SessionID: "pool-" + uuid.New().String()[:8],
		Image:     p.cfg.Image,
		Cmd:       idleCmd,
		WorkDir:   stage.WorkDir,
		Limits:    p.cfg.Limits,
		Labels: map[string]string{
			"kapsel.pool":      "true",
			"kapsel.pooled_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", err
	}
	if err := p.runtime.StartSandbox(ctx, containerID); err != nil {
		if rmErr := p.runtime.StopRemove(ctx, containerID); rmErr != nil {
			p.logger.Error("remove unstartable sandbox", "container", short(containerID), "error", rmErr)
		}
		return "", err
	}
	return containerID, nil
}

// put adds a created sandbox to the pool, removing it instead if the pool
// filled while it was being created.
func (p *Pool) put(ctx context.Context, containerID string) {
	p.mu.Lock()
	overflow := len(p.idle) >= p.cfg.PoolSize
	if !overflow {
		p.idle = append(p.idle, containerID)
	}
	size := len(p.idle)
	p.mu.Unlock()

	p.metrics.SetPoolIdle(size)
	if overflow {
		p.logger.Info("pool full, removing excess sandbox", "container", short(containerID))
		if err := p.runtime.StopRemove(ctx, containerID); err != nil {
			p.logger.Error("remove excess sandbox", "container", short(containerID), "error", err)
		}
		return
	}
	p.logger.Info("pooled sandbox ready", "container", short(containerID), "size", size)
}

func short(containerID string) string {
	if len(containerID) > 12 {
		return containerID[:12]
	}
	return containerID
}
