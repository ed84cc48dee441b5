// Package sweeper reclaims sessions that outlived the configured timeout.
// It runs on a fixed interval, removes expired sessions from the registry
// and releases their sandboxes, then tops the warm pool back up.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jhartig/kapsel/internal/metrics"
	"github.com/jhartig/kapsel/internal/registry"
)

type Sweeper struct {
	sessions SessionSource
	runtime  Runtime
	pool     Replenisher
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(sessions SessionSource, rt Runtime, pool Replenisher, timeout, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		runtime:  rt,
		pool:     pool,
		timeout:  timeout,
		interval: interval,
		logger:   logger,
		metrics:  m,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("sweeper started", "interval", s.interval, "timeout", s.timeout)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass and returns how many sessions it reclaimed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	now := time.Now().UTC()

	var reaped int
	for _, sess := range s.sessions.Snapshot() {
		if sess.Age(now) < s.timeout {
			continue
		}

		// Delete first: whoever removes the session owns the sandbox
		// release, so a concurrent manual cleanup is never doubled up.
		removed, err := s.sessions.Delete(sess.ID)
		if errors.Is(err, registry.ErrNotFound) {
			continue
		}

		s.logger.Info("sweeping expired session", "session_id", removed.ID, "age", sess.Age(now))
		if err := s.runtime.StopRemove(ctx, removed.ContainerID); err != nil {
			s.logger.Error("sweep: release sandbox", "session_id", removed.ID, "error", err)
		}
		reaped++
	}

	if reaped > 0 {
		s.metrics.ObserveReaped(reaped)
		s.logger.Info("sweep complete", "reaped", reaped)
	}

	// Acquires deplete the pool without creating anything that expires, so
	// top-up runs every pass, not only after a reap. No-op at target size.
	s.pool.Replenish(ctx)
	return reaped
}
