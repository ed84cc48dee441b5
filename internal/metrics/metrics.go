// Package metrics exposes Prometheus collectors for the sandbox lifecycle.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the service's Prometheus collectors. All metrics use the
// kapsel namespace. A nil *Metrics is valid and disables instrumentation.
type Metrics struct {
	SessionsTotal *prometheus.CounterVec // by mode
	PoolAcquires  *prometheus.CounterVec // by outcome: hit, miss
	PoolIdle      prometheus.Gauge
	ReapedTotal   prometheus.Counter
	TestRunsTotal *prometheus.CounterVec // by status
}

// New creates and registers the collectors on reg. Returns nil if reg is nil.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kapsel",
			Name:      "sessions_total",
			Help:      "Sessions dispatched, by execution mode.",
		}, []string{"mode"}),

		PoolAcquires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kapsel",
			Subsystem: "pool",
			Name:      "acquires_total",
			Help:      "Warm pool acquire attempts, by outcome.",
		}, []string{"outcome"}),

		PoolIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kapsel",
			Subsystem: "pool",
			Name:      "idle",
			Help:      "Idle sandboxes currently in the warm pool.",
		}),

		ReapedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kapsel",
			Name:      "reaped_sessions_total",
			Help:      "Sessions reclaimed by the expiration sweeper.",
		}),

		TestRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kapsel",
			Name:      "test_runs_total",
			Help:      "Test-mode runs, by classified status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.SessionsTotal,
		m.PoolAcquires,
		m.PoolIdle,
		m.ReapedTotal,
		m.TestRunsTotal,
	)
	return m
}

// ObserveSession is nil-safe.
func (m *Metrics) ObserveSession(mode string) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(mode).Inc()
}

// ObservePoolAcquire is nil-safe.
func (m *Metrics) ObservePoolAcquire(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.PoolAcquires.WithLabelValues(outcome).Inc()
}

// SetPoolIdle is nil-safe.
func (m *Metrics) SetPoolIdle(n int) {
	if m == nil {
		return
	}
	m.PoolIdle.Set(float64(n))
}

// ObserveReaped is nil-safe.
func (m *Metrics) ObserveReaped(n int) {
	if m == nil {
		return
	}
	m.ReapedTotal.Add(float64(n))
}

// ObserveTestRun is nil-safe.
func (m *Metrics) ObserveTestRun(status string) {
	if m == nil {
		return
	}
	m.TestRunsTotal.WithLabelValues(status).Inc()
}
