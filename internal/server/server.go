package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/repoflow-ai/repoflow/internal/db"
	"github.com/repoflow-ai/repoflow/internal/lifecycle"
	"github.com/repoflow-ai/repoflow/internal/rag"
	"github.com/repoflow-ai/repoflow/internal/repo"
	"github.com/repoflow-ai/repoflow/internal/workspace"
)

// Config holds server configuration.
type Config struct {
	Port     int
	ReposDir string // directory repositories are cloned into
	DataDir  string // directory for workspace proposals and index artifacts
	AllowAll bool   // allow all CORS origins (dev mode)
}

// Server exposes the repoflow pipeline over HTTP: repository acquisition,
// workspace proposal and selection, index status, and question answering.
type Server struct {
	cfg      Config
	store    *db.Store
	manager  *lifecycle.Manager
	engine   *rag.Engine
	proposer *workspace.Proposer

	mu        sync.Mutex
	current   *repo.Repository
	proposals []workspace.Workspace
	proposing bool
	propErr   error

	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all dependencies. store may be nil when no
// database is configured.
func New(cfg Config, store *db.Store, manager *lifecycle.Manager, engine *rag.Engine, proposer *workspace.Proposer) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		manager:  manager,
		engine:   engine,
		proposer: proposer,
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/repos", s.handleCloneRepo)
		r.Get("/repos/current", s.handleCurrentRepo)
		r.Get("/workspaces", s.handleListWorkspaces)
		r.Post("/workspaces/select", s.handleSelectWorkspace)
		r.Get("/index/status", s.handleIndexStatus)
		r.Get("/index/builds", s.handleListBuilds)
		r.Post("/query", s.handleQuery)
		r.Get("/chat", s.handleWebSocket)
	})

	return r
}

// Router returns the chi router, mainly for tests.
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

	log.Printf("repoflow server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
