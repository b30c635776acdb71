// Package api provides the HTTP API server and handlers for the Shelfmark application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfmark/shelfmark-server/internal/search"
	"github.com/shelfmark/shelfmark-server/internal/sse"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       *store.Store
	services    *Services
	searchIndex *search.SearchIndex
	sseManager  *sse.Manager
	sseHandler  *sse.Handler
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, searchIndex *search.SearchIndex, sseManager *sse.Manager, sseHandler *sse.Handler, logger *slog.Logger) *Server {
	s := &Server{
		store:       st,
		services:    services,
		searchIndex: searchIndex,
		sseManager:  sseManager,
		sseHandler:  sseHandler,
		router:      chi.NewRouter(),
		logger:      logger,
	}

	s.setupMiddleware()
	s.api = humachi.New(s.router, humaConfig())
	RegisterErrorHandler()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func humaConfig() huma.Config {
	cfg := huma.DefaultConfig("Shelfmark API", "1.0.0")
	cfg.DocsPath = "/api/docs"
	return cfg
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerAuthorRoutes()
	s.registerBookRoutes()
	s.registerRefreshRoutes()
	s.registerSearchRoutes()
	s.registerExclusionRoutes()

	// SSE streaming does not fit huma's request/response model, so the
	// handler mounts on the chi router directly.
	s.router.Get("/api/v1/events/stream", s.sseHandler.ServeHTTP)
}
