// Package server exposes the cortex service as a local JSON API for a
// browser extension front-end.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nikbrunner/cortex/internal/core"
	"github.com/nikbrunner/cortex/internal/logger"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http    *http.Server
	log     logger.Logger
	started time.Time
}

// New builds the HTTP server (router, middlewares, route registration).
func New(addr string, log logger.Logger, svc *core.Service) *Server {
	if log == nil {
		log = logger.Nop()
	}
	started := time.Now()
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           Router(log, svc, started),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		log:     log,
		started: started,
	}
}

// Router returns the API routes with the global middlewares applied.
func Router(log logger.Logger, svc *core.Service, started time.Time) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(accessLog(log))

	h := &handlers{svc: svc, log: log, started: started}
	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.getCategories)
		r.Put("/categories", h.putCategories)

		r.Get("/settings", h.getSettings)
		r.Put("/settings", h.putSettings)

		r.Get("/themes", h.getThemes)
		r.Put("/themes", h.putThemes)
		r.Get("/themes/export", h.exportThemes)
		r.Post("/themes/import", h.importThemes)

		r.Get("/pending", h.checkPending)
		r.Post("/pending", h.setPending)

		r.Get("/export", h.exportData)
		r.Get("/export/html", h.exportHTML)
		r.Get("/feed", h.feed)
		r.Post("/import", h.importData)
		r.Post("/import/tree", h.importTree)

		r.Delete("/data", h.clearData)
	})
	return r
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.log.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	// http.ErrServerClosed is expected on graceful shutdown.
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
