// Package server exposes the generation orchestrator over HTTP. The
// platform's gateway handles authentication upstream and forwards the
// caller's identity in the X-User-ID header; this surface trusts it.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jonasqin/automedia-ai/pkg/orchestrator"
)

// Server routes HTTP requests to the orchestrator.
type Server struct {
	router chi.Router
	svc    *orchestrator.Service
	logger *slog.Logger
}

// New creates a Server ready to use as an http.Handler.
func New(svc *orchestrator.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/v1/generations", s.handleGenerate)
	r.Get("/v1/users/{userID}/generation-stats", s.handleStats)

	s.router = r
}

// ServeHTTP makes Server satisfy http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
