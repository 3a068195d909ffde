package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"ado-pulse/internal/engine"
)

// Server is the HTTP presenter over the engine's read API. It never mutates
// engine state directly; the only write path is the explicit refresh trigger.
type Server struct {
	engine *engine.Engine
	addr   string

	// refreshMu is the single-flight guard: the engine assumes at most one
	// refresh in flight, so concurrent triggers are rejected here.
	refreshMu sync.Mutex

	httpServer *http.Server
}

// NewServer creates the presenter bound to addr.
func NewServer(eng *engine.Engine, addr string) *Server {
	s := &Server{engine: eng, addr: addr}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/trend", s.handleTrend)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/items/{id}/raw", s.handleRaw)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the HTTP listener until Shutdown or a listener error.
func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("Dashboard API listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
