// Package server exposes the content API: project CRUD, per-key content
// upserts, site generation triggers, static serving of generated sites
// and the live-reload websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/selfcaststudios/sitecast/internal/config"
	"github.com/selfcaststudios/sitecast/internal/logging"
	"github.com/selfcaststudios/sitecast/internal/metrics"
	"github.com/selfcaststudios/sitecast/internal/site"
	"github.com/selfcaststudios/sitecast/internal/store"
)

// Server wires the API surface over the store and the site assembler.
type Server struct {
	cfg       *config.Config
	store     store.Store
	assembler *site.Assembler
	logger    logging.Logger
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	hub       *ReloadHub

	httpServer *http.Server
}

// New assembles the server. The reload hub is registered as the
// assembler's notifier.
func New(cfg *config.Config, st store.Store, asm *site.Assembler, logger logging.Logger) *Server {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	hub := NewReloadHub(logger, m)
	asm.SetNotifier(hub)

	s := &Server{
		cfg:       cfg,
		store:     st,
		assembler: asm,
		logger:    logger.WithComponent("server"),
		metrics:   m,
		registry:  registry,
		hub:       hub,
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Metrics exposes the server's metric set so sibling components (the
// keep-alive pinger) report into the same registry scraped at /metrics.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Router builds the chi mux. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(metrics.Middleware(s.metrics))
	r.Use(CORS(s.cfg.Server.AllowedOrigins, !s.cfg.IsProduction()))

	r.Get("/", s.handleServiceInfo)
	r.Get("/api", s.handleServiceInfo)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(s.registry))

	r.Route("/api/projects", func(r chi.Router) {
		r.Get("/", s.handleListProjects)
		r.Post("/", s.handleCreateProject)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", s.handleGetProject)
			r.Put("/", s.handleUpdateProject)
			r.Get("/content", s.handleGetContent)
			r.Post("/content", s.handleUpsertContent)
			r.Post("/generate-site", s.handleGenerateSite)
		})
	})

	r.Get("/ws", s.hub.Accept(s.cfg.Server.AllowedOrigins))

	fileServer := http.StripPrefix("/sites/", http.FileServer(http.Dir(s.cfg.Site.OutputDir)))
	r.Get("/sites/*", fileServer.ServeHTTP)

	return r
}

// Start runs the HTTP server and the reload hub until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "listening",
			"addr", s.httpServer.Addr,
			"base_url", s.cfg.PublicBaseURL(),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.logger.Info(shutdownCtx, "shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}
