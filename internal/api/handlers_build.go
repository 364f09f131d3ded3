package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgallion1/litweb/internal/parser"
	"github.com/dgallion1/litweb/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleBuild queues a tangle and weave of the web to disk.
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		jsonError(w, "builds are disabled", http.StatusServiceUnavailable)
		return
	}
	name := chi.URLParam(r, "web")
	if name != filepath.Base(name) || !parser.IsSupportedExtension(name) {
		jsonError(w, fmt.Sprintf("not a web: %q", name), http.StatusNotFound)
		return
	}
	path := filepath.Join(s.root, name)
	if _, err := os.Stat(path); err != nil {
		jsonError(w, "web not found", http.StatusNotFound)
		return
	}

	job := pipeline.NewJob(path)
	job.Confine = true
	if err := s.orchestrator.Submit(r.Context(), job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		jsonError(w, "builds are disabled", http.StatusServiceUnavailable)
		return
	}
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
