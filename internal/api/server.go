// Package api exposes the evaluation core over HTTP: quality reports,
// image comparison, snapshot history, and regression checks as JSON
// endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/archlens/archlens/pkg/config"
	"github.com/archlens/archlens/pkg/history"
	"github.com/archlens/archlens/pkg/score"
)

// Server is the archlens HTTP API server.
type Server struct {
	cfg     *config.Config
	scorer  *score.Scorer
	history *history.Service
	http    *http.Server
}

// NewServer builds a server around a configured scorer and history service.
func NewServer(cfg *config.Config, scorer *score.Scorer, hist *history.Service) *Server {
	s := &Server{
		cfg:     cfg,
		scorer:  scorer,
		history: hist,
	}
	s.http = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/quality", s.handleQuality)
		r.Post("/compare", s.handleCompare)
		r.Post("/score", s.handleScore)

		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", s.handleListSnapshots)
			r.Post("/", s.handleSaveSnapshot)
			r.Post("/baseline", s.handleSetBaseline)
		})

		r.Post("/regression", s.handleRegression)
		r.Post("/check", s.handleCheck)
	})

	return r
}

// ListenAndServe runs the server until the context is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
