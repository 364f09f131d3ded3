package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/litweb/internal/pipeline"
	"github.com/dgallion1/litweb/internal/tangle"
	"github.com/dgallion1/litweb/internal/weave"
	"github.com/dgallion1/litweb/internal/web"
	"github.com/go-chi/chi/v5"
)

// handleWeave renders the web in the requested markup.
func (s *Server) handleWeave(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "markup")
	v := weave.New("", s.log)
	if err := v.SetMarkup(name); err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	ld, ok := s.loadWeb(w, r)
	if !ok {
		return
	}

	doc, err := v.Render(ld.Web)
	if err != nil {
		renderError(w, err)
		return
	}
	contentType := "text/plain; charset=utf-8"
	if v.Markup().Extension == ".html" {
		contentType = "text/html; charset=utf-8"
	}
	serveContent(w, r, contentType, doc)
}

// handleTangle renders one output file of the web.
func (s *Server) handleTangle(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "*")
	ld, ok := s.loadWeb(w, r)
	if !ok {
		return
	}

	var target *web.Chunk
	for _, c := range ld.Web.Files() {
		if c.Name == file {
			target = c
			break
		}
	}
	if target == nil {
		jsonError(w, fmt.Sprintf("no output file %q", file), http.StatusNotFound)
		return
	}

	t := tangle.New("", s.log)
	t.LineNumbers = s.cfg.LineNumbers
	data, err := t.Render(ld.Web, target)
	if err != nil {
		renderError(w, err)
		return
	}
	serveContent(w, r, "text/plain; charset=utf-8", data)
}

// renderError maps resolution failures in the web to 422.
func renderError(w http.ResponseWriter, err error) {
	var werr *web.Error
	if errors.As(err, &werr) {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	jsonError(w, err.Error(), http.StatusInternalServerError)
}

func serveContent(w http.ResponseWriter, r *http.Request, contentType string, data []byte) {
	etag := `"` + pipeline.ContentHashHex(data) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
