// Package server provides the HTTP API described in spec.md §6: search,
// rolegraph visualization, health, and Prometheus metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/rolegraph/internal/config"
	"github.com/hyperjump/rolegraph/internal/metrics"
	"github.com/hyperjump/rolegraph/internal/search"
)

// Server is the HTTP server fronting the search pipeline.
type Server struct {
	engine  *search.Engine
	state   *config.ConfigState
	metrics *metrics.Registry
	logger  *zap.Logger
	addr    string
	server  *http.Server
}

// New creates a server with the given dependencies. metrics may be nil, in
// which case GET /metrics is not mounted.
func New(engine *search.Engine, state *config.ConfigState, reg *metrics.Registry, logger *zap.Logger, addr string) *Server {
	return &Server{engine: engine, state: state, metrics: reg, logger: logger, addr: addr}
}

// Start builds the router and blocks serving HTTP until the server stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/rolegraph", s.handleRoleGraph)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: r,
	}
	s.logger.Info("starting server", zap.String("addr", s.addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
