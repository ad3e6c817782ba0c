// Package web provides the HTTP admin surface for backup and restore.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillpress/quill/internal/backup"
	"github.com/quillpress/quill/internal/config"
	"github.com/quillpress/quill/internal/web/middleware"
)

// Server is the HTTP server for the backup admin API.
type Server struct {
	pool    *pgxpool.Pool
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	coord   *backup.Coordinator
	limiter *backup.ImportLimiter
}

// NewServer creates a new Server instance over a connection pool.
func NewServer(pool *pgxpool.Pool, cfg *config.Config) *Server {
	auth := NewAuthorizer(pool)
	s := &Server{
		pool:    pool,
		cfg:     cfg,
		router:  chi.NewRouter(),
		coord:   backup.NewCoordinator(backup.PoolBeginner{Pool: pool}, auth, backup.NewRunLog(pool)),
		limiter: backup.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		// Export: whole instance, one section, or one tenant
		r.Get("/export", s.handleExportAll)
		r.Get("/export/blog/{blogID}", s.handleExportBlog)
		r.Get("/export/{section}", s.handleExportSection)

		// Import: file body, mode and destination in the query
		r.Post("/import", s.handleImport)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// WaitForImports blocks until in-flight import runs finish or ctx expires.
func (s *Server) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ActiveImports returns the number of import runs currently in flight.
func (s *Server) ActiveImports() int {
	return s.limiter.ActiveCount()
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
