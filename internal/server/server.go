// Package server exposes the HTTP surface: health and status probes, the
// cron endpoints that trigger daily runs, the LinkedIn ingest webhook,
// and the run log history.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"briefme/internal/config"
	"briefme/internal/core"
	"briefme/internal/logger"
	"briefme/internal/persistence"
)

// Trigger runs the daily pipeline on demand. Implemented by
// runner.Runner.
type Trigger interface {
	RunAll(ctx context.Context) (core.BatchResult, error)
	RunOne(ctx context.Context, workspaceID string) (core.RunResult, error)
}

// Server represents the HTTP server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	db         persistence.Database
	runner     Trigger
	config     config.Server
	log        *slog.Logger
}

// New creates a new HTTP server instance.
func New(db persistence.Database, runner Trigger, cfg config.Server) *Server {
	s := &Server{
		router: chi.NewRouter(),
		db:     db,
		runner: runner,
		config: cfg,
		log:    logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	// Cron runs walk every workspace; they need the long ceiling.
	s.router.Use(middleware.Timeout(5 * time.Minute))

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Admin-Secret", "X-Ingest-Secret"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures routes for the server.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/status", s.handleStatus)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireSecret("x-admin-secret", s.config.AdminSecret))
			r.Post("/cron/daily", s.handleCronDaily)
			r.Post("/cron/workspace-now", s.handleWorkspaceNow)
			r.Get("/runs", s.handleListRuns)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireSecret("x-ingest-secret", s.config.IngestSecret))
			r.Post("/ingest/linkedin", s.handleLinkedInIngest)
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing).
func (s *Server) Router() *chi.Mux {
	return s.router
}
