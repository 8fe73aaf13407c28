// Package api serves the layout pipeline over HTTP.
//
// The server exposes a small JSON API:
//
//	GET  /healthz        liveness probe
//	GET  /version        build information
//	POST /v1/layouts     run the pipeline on submitted records
//	GET  /v1/runs        list stored runs, newest first
//	GET  /v1/runs/{id}   fetch one run including its layout
//	DELETE /v1/runs/{id} remove a stored run
//
// Layout requests carry pipeline options plus inline records; file input
// is rejected so the API never reads server-local paths. Completed runs
// are persisted to the configured store before the response is written.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cartopack/cartopack/pkg/observability"
	"github.com/cartopack/cartopack/pkg/pipeline"
	"github.com/cartopack/cartopack/pkg/store"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// Config carries server dependencies. Zero values select defaults:
// an in-memory store, an uncached runner, and the standard logger.
type Config struct {
	Addr   string
	Store  store.Store
	Runner *pipeline.Runner
	Logger *log.Logger
}

// Server is the HTTP front end for the layout pipeline.
type Server struct {
	srv     *http.Server
	store   store.Store
	runner  *pipeline.Runner
	logger  *log.Logger
	startAt time.Time
}

// NewServer creates a server with the given configuration.
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}

	s := &Server{
		store:   cfg.Store,
		runner:  cfg.Runner,
		logger:  cfg.Logger,
		startAt: time.Now(),
	}
	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/layouts", s.handleCreateLayout)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Delete("/runs/{runID}", s.handleDeleteRun)
	})

	return r
}

// observe reports request lifecycle to the server hooks and access log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.Server().OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		observability.Server().OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), duration)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", duration,
		)
	})
}

// Handler returns the route tree, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start listens and serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("api server shutting down")
	return s.srv.Shutdown(ctx)
}
