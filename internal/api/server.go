package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jhartig/kapsel/internal/config"
)

type Server struct {
	cfg     *config.Config
	service Service
	pool    Prewarmer
	logger  *slog.Logger
	mux     *http.ServeMux
	metrics http.Handler
}

// NewServer wires the HTTP surface. metricsHandler may be nil, in which case
// the /metrics route is not registered.
func NewServer(cfg *config.Config, svc Service, pool Prewarmer, metricsHandler http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		service: svc,
		pool:    pool,
		logger:  logger,
		mux:     http.NewServeMux(),
		metrics: metricsHandler,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.authMiddleware(s.requestIDMiddleware(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /execute", s.handleExecute)
	s.mux.HandleFunc("POST /execute_pytest", s.handleExecuteTests)
	s.mux.HandleFunc("GET /result/{id}", s.handleResult)
	s.mux.HandleFunc("POST /cleanup/{id}", s.handleCleanup)
	s.mux.HandleFunc("POST /prewarm", s.handlePrewarm)

	// Health check (no auth)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
