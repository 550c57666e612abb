// Package server exposes the separation and spacing pipeline over HTTP.
//
// Routes are mounted under /api:
//
//	GET  /api/health
//	POST /api/separate                       stateless separation
//	POST /api/spacing?percent=P              stateless spacing
//	POST /api/projects                       create a project
//	GET  /api/projects                       list projects
//	GET  /api/projects/{id}
//	POST /api/projects/{id}/master           upload the master document
//	POST /api/projects/{id}/separate         separate the master into layers
//	POST /api/projects/{id}/spacing?percent=P
//	GET  /api/artifacts/{id}                 metadata plus base64 data
//	GET  /api/artifacts/{id}/download        raw document
//
// Failures are JSON objects {"code", "message"} with the status given by
// errors.HTTPStatus.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/skylayer/pkg/pipeline"
	"github.com/matzehuels/skylayer/pkg/store"
)

// DefaultMaxUploadBytes caps request bodies when Config leaves it unset.
const DefaultMaxUploadBytes = 10 << 20

// Config holds server settings.
type Config struct {
	Addr           string
	CORSOrigins    []string
	MaxUploadBytes int64

	// Options are the engine defaults. Requests may override them.
	Options pipeline.Options
}

// Server serves the HTTP API.
type Server struct {
	runner *pipeline.Runner
	store  store.Store
	cfg    Config
	logger *log.Logger
	router chi.Router
}

// New creates a server. The runner and store are shared across requests.
func New(runner *pipeline.Runner, st store.Store, cfg Config, logger *log.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{runner: runner, store: st, cfg: cfg, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors(s.cfg.CORSOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/separate", s.handleSeparate)
		r.Post("/spacing", s.handleSpacing)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.handleCreateProject)
			r.Get("/", s.handleListProjects)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Post("/master", s.handleUploadMaster)
				r.Post("/separate", s.handleSeparateProject)
				r.Post("/spacing", s.handleSpaceProject)
			})
		})

		r.Get("/artifacts/{id}", s.handleGetArtifact)
		r.Get("/artifacts/{id}/download", s.handleDownloadArtifact)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
