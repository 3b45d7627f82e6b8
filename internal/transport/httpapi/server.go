// Copyright 2025 James Ross
package httpapi

import (
	"fmt"
	"net/http"

	"github.com/flyingrobots/go-log-distributor/internal/coordinator"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server exposes the coordinator's submit/get_work/status/stats/metrics
// operations, plus health endpoints, over HTTP.
type Server struct {
	coord *coordinator.Coordinator
	log   *zap.Logger
	srv   *http.Server
}

// NewServer builds the router and wraps it in an *http.Server bound to
// port. Nothing is listening until Start is called.
func NewServer(coord *coordinator.Coordinator, log *zap.Logger, port int) *Server {
	s := &Server{coord: coord, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/submit", s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/get_work", s.handleGetWork).Methods(http.MethodPost)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodPost)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)

	r.Use(withRequestID)
	r.Use(withRecover(log))
	r.Use(withLogging(log))

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
	return s
}

// Start runs the HTTP server in the background and returns immediately.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("coordinator http server stopped", zap.Error(err))
		}
	}()
}

// Addr returns the bound listen address.
func (s *Server) Addr() string { return s.srv.Addr }

// Handler returns the underlying http.Handler, for embedding in an
// httptest.Server or a different listener setup.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.srv.Close()
}
