// Package server provides the HTTP API for the recall engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pawlink/recall/internal/config"
	"github.com/pawlink/recall/internal/keyword"
	"github.com/pawlink/recall/internal/registry"
	"github.com/pawlink/recall/internal/router"
)

// Server is the HTTP server for the recall API.
type Server struct {
	router   *router.Router
	registry *registry.Registry
	faqIndex *keyword.FAQIndex
	cfg      *config.Config
	logger   *zap.Logger
	server   *http.Server

	jobsMu sync.Mutex
	jobs   map[string]*rebuildJob
}

// NewServer creates a server with the given dependencies. faqIndex may be nil
// when keyword search is not configured.
func NewServer(
	rt *router.Router,
	reg *registry.Registry,
	faqIndex *keyword.FAQIndex,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		router:   rt,
		registry: reg,
		faqIndex: faqIndex,
		cfg:      cfg,
		logger:   logger,
		jobs:     make(map[string]*rebuildJob),
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/stores/{entity}/items", s.handleAddItem)
	r.Delete("/api/v1/stores/{entity}/items/{id}", s.handleDeleteItem)
	r.Post("/api/v1/stores/{entity}/rebuild", s.handleRebuild)
	r.Get("/api/v1/jobs/{id}", s.handleJobStatus)
	r.Get("/api/v1/faq/keyword-search", s.handleFAQKeywordSearch)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
