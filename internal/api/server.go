package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/evaluate"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/exclusion"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/rules"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, svc *evaluate.Service, registry *exclusion.Registry, exprs *rules.ExprEngine, version string) *Server {
	handler := NewHandler(repo, cache, svc, registry, exprs, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no org required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (org required)
	router.Route("/", func(r chi.Router) {
		r.Use(OrgMiddleware)

		// Disclosure evaluation
		r.Post("/evaluate", handler.Evaluate)
		r.Get("/disclosures/{id}", handler.GetDisclosure)

		// Alert lifecycle
		r.Get("/alerts", handler.ListAlerts)
		r.Get("/alerts/{id}", handler.GetAlert)
		r.Post("/alerts/{id}/dismiss", handler.DismissAlert)
		r.Post("/alerts/{id}/escalate", handler.EscalateAlert)
		r.Post("/alerts/{id}/resolve", handler.ResolveAlert)

		// Exclusion registry
		r.Post("/exclusions", handler.CreateExclusion)
		r.Get("/exclusions", handler.ListExclusions)
		r.Post("/exclusions/{id}/deactivate", handler.DeactivateExclusion)

		// Threshold rule management
		r.Get("/rules", handler.ListRules)
		r.Get("/rules/{id}", handler.GetRule)
		r.Post("/rules", handler.CreateRule)
		r.Put("/rules/{id}", handler.UpdateRule)
		r.Delete("/rules/{id}", handler.DeactivateRule)

		// Entity timeline
		r.Get("/entities/{name}/timeline", handler.EntityTimeline)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
