// Package api serves a directory of webs over HTTP: chunk listings,
// cross references, woven documents and tangled files, rendered on
// request, plus background builds through the pipeline.
package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/litweb/internal/config"
	"github.com/dgallion1/litweb/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP preview server.
type Server struct {
	router       chi.Router
	root         string // Directory holding the webs
	orchestrator *pipeline.Orchestrator
	log          *slog.Logger
	cfg          config.Config
	version      string
}

// NewServer creates and configures the HTTP server. orch may be nil, in
// which case the build endpoints answer 503.
func NewServer(root string, orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config, version string) *Server {
	s := &Server{
		root:         root,
		orchestrator: orch,
		log:          log,
		cfg:          cfg,
		version:      version,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/api/webs", s.handleListWebs)
		r.Route("/api/webs/{web}", func(r chi.Router) {
			r.Get("/chunks", s.handleChunks)
			r.Get("/xref", s.handleXref)
			r.Get("/weave/{markup}", s.handleWeave)
			r.Get("/tangle/*", s.handleTangle)
			r.Post("/build", s.handleBuild)
		})
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "version": s.version}
	if s.orchestrator != nil {
		resp["queue_depth"] = s.orchestrator.QueueDepth()
	}
	writeJSON(w, http.StatusOK, resp)
}
