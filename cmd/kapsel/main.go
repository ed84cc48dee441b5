package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhartig/kapsel/internal/api"
	"github.com/jhartig/kapsel/internal/config"
	"github.com/jhartig/kapsel/internal/dispatch"
	"github.com/jhartig/kapsel/internal/docker"
	"github.com/jhartig/kapsel/internal/metrics"
	"github.com/jhartig/kapsel/internal/pool"
	"github.com/jhartig/kapsel/internal/registry"
	"github.com/jhartig/kapsel/internal/sweeper"
)

func main() {
	cfgPath := flag.String("config", "", "path to kapsel.yaml")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	if cfg.APIKey == "" {
		logger.Warn("no API key configured — running in open access mode")
	}

	dc, err := docker.New()
	if err != nil {
		logger.Error("docker client", "error", err)
		os.Exit(1)
	}
	defer dc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dc.Ping(ctx); err != nil {
		logger.Error("docker ping failed — is Docker running?", "error", err)
		os.Exit(1)
	}
	logger.Info("docker connection OK")

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	reg := registry.New()
	warmPool := pool.New(cfg, dc, logger, m)
	go warmPool.Replenish(ctx)

	dispatcher := dispatch.New(cfg, dc, warmPool, reg, logger, m)

	swp := sweeper.New(reg, dc, warmPool,
		time.Duration(cfg.SessionTimeoutSeconds)*time.Second,
		time.Duration(cfg.SweepIntervalSeconds)*time.Second,
		logger, m)
	go swp.Run(ctx)

	metricsHandler := promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
	srv := api.NewServer(cfg, dispatcher, warmPool, metricsHandler, logger)

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // test runs are synchronous and can be long
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigCh
		logger.Info("shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.Listen)
	fmt.Fprintf(os.Stderr, "\n  kapsel daemon ready at http://%s\n\n", cfg.Listen)

	serveErr := httpServer.ListenAndServe()
	if serveErr != nil && serveErr != http.ErrServerClosed {
		logger.Error("server error", "error", serveErr)
	}

	// Idle sandboxes would leak without an owner once the process exits. The
	// replenish goroutine may have created containers even if the listener
	// failed, so the drain runs before any exit.
	cancel()
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	warmPool.Drain(drainCtx)
	logger.Info("warm pool drained, bye")

	if serveErr != nil && serveErr != http.ErrServerClosed {
		os.Exit(1)
	}
}
