// Package server exposes the engine over HTTP: ingestion, search,
// analytics, and project registry management, plus a WebSocket stream of
// live ingestion results.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/veltaworks/docintel/internal/analytics"
	"github.com/veltaworks/docintel/internal/docstore"
	"github.com/veltaworks/docintel/internal/ingest"
	"github.com/veltaworks/docintel/internal/registry"
	"github.com/veltaworks/docintel/internal/search"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server wires the engine's services behind a chi router.
type Server struct {
	cfg        Config
	pipeline   *ingest.Pipeline
	search     *search.Service
	analytics  *analytics.Aggregator
	registry   *registry.Store
	store      docstore.Store
	stream     *stream
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies. The pipeline's result
// callback is claimed for the WebSocket stream.
func New(cfg Config, pipeline *ingest.Pipeline, searchSvc *search.Service,
	aggregator *analytics.Aggregator, reg *registry.Store, store docstore.Store) *Server {
	s := &Server{
		cfg:       cfg,
		pipeline:  pipeline,
		search:    searchSvc,
		analytics: aggregator,
		registry:  reg,
		store:     store,
		stream:    newStream(),
	}
	pipeline.SetResultFunc(s.stream.broadcast)
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/ingest", s.handleIngest)
		r.Get("/ingest/stream", s.handleIngestStream)
		r.Post("/search", s.handleSearch)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Get("/projects", s.handleListProjects)
		r.Post("/projects/import", s.handleImportProjects)
	})

	return r
}

// Router returns the chi router, for tests and for mounting extra routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("docintel server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stream.close()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
