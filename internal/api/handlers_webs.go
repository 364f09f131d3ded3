package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgallion1/litweb/internal/logs"
	"github.com/dgallion1/litweb/internal/parser"
	"github.com/dgallion1/litweb/internal/pipeline"
	"github.com/dgallion1/litweb/internal/tangle"
	"github.com/dgallion1/litweb/internal/weave"
	"github.com/dgallion1/litweb/internal/web"
	"github.com/go-chi/chi/v5"
)

type webEntry struct {
	Name   string             `json:"name"`
	Title  string             `json:"title,omitempty"`
	Status pipeline.JobStatus `json:"status,omitempty"` // Of the latest build, if any
	JobID  string             `json:"job_id,omitempty"`
}

// handleListWebs lists the webs in the root directory with their titles.
func (s *Server) handleListWebs(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		jsonError(w, "failed to list webs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	webs := []webEntry{}
	for _, e := range entries {
		if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		path := filepath.Join(s.root, e.Name())
		entry := webEntry{Name: e.Name(), Title: s.title(path)}
		if s.orchestrator != nil {
			if job := s.orchestrator.Latest(path); job != nil {
				snap := job.Snapshot()
				entry.Status, entry.JobID = snap.Status, snap.ID
			}
		}
		webs = append(webs, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"webs": webs})
}

// title weaves the web quietly and looks for a heading in the result.
func (s *Server) title(path string) string {
	quiet := logs.Discard()
	ld, err := pipeline.Load(s.cfg, s.version, path, quiet)
	if err != nil || ld.Errors > 0 {
		return ""
	}
	v := weave.New("", quiet)
	if err := v.SetMarkup(s.cfg.Markup); err != nil {
		return ""
	}
	doc, err := v.Render(ld.Web)
	if err != nil {
		return ""
	}
	return weave.Title(v.Markup(), doc)
}

// loadWeb resolves the {web} parameter and parses it. On failure the
// response has been written.
func (s *Server) loadWeb(w http.ResponseWriter, r *http.Request) (*pipeline.Loaded, bool) {
	name := chi.URLParam(r, "web")
	if name != filepath.Base(name) || !parser.IsSupportedExtension(name) {
		jsonError(w, fmt.Sprintf("not a web: %q", name), http.StatusNotFound)
		return nil, false
	}
	path := filepath.Join(s.root, name)
	ld, err := pipeline.Load(s.cfg, s.version, path, s.log.With("web", name))
	if errors.Is(err, fs.ErrNotExist) {
		jsonError(w, "web not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		jsonError(w, "failed to read web: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if ld.Errors > 0 {
		jsonError(w, fmt.Sprintf("%d syntax errors in the web", ld.Errors), http.StatusUnprocessableEntity)
		return nil, false
	}
	return ld, true
}

type chunkJSON struct {
	Kind       string   `json:"kind"`
	Name       string   `json:"name,omitempty"`
	FullName   string   `json:"full_name,omitempty"`
	Seq        int      `json:"seq,omitempty"`
	Location   string   `json:"location"`
	Options    []string `json:"options,omitempty"`
	DefNames   []string `json:"def_names,omitempty"`
	References []string `json:"references,omitempty"`
	UsedBy     []string `json:"used_by,omitempty"`
	Within     []string `json:"within,omitempty"` // Referrer chain up to an output file
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	ld, ok := s.loadWeb(w, r)
	if !ok {
		return
	}
	wb := ld.Web

	// Rendering every file records who references whom.
	t := tangle.New("", logs.Discard())
	for _, f := range wb.Files() {
		t.Render(wb, f)
	}

	chunks := make([]chunkJSON, 0, len(wb.Chunks))
	for _, c := range wb.Chunks {
		cj := chunkJSON{
			Kind:     c.Kind.String(),
			Name:     c.Name,
			FullName: wb.FullName(c),
			Seq:      c.Seq,
			Location: c.Location.String(),
			Options:  c.Options,
			DefNames: c.DefNames,
		}
		for _, cmd := range c.Commands {
			if cmd.Kind == web.ReferenceCommand {
				cj.References = append(cj.References, cmd.Name)
			}
		}
		for _, u := range wb.UsedBy(c) {
			cj.UsedBy = append(cj.UsedBy, wb.DisplayName(u))
		}
		for _, p := range wb.TransitiveReferencedBy(c) {
			cj.Within = append(cj.Within, wb.DisplayName(p))
		}
		chunks = append(chunks, cj)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"web":    chi.URLParam(r, "web"),
		"lines":  ld.Lines,
		"chunks": chunks,
	})
}

type xrefJSON struct {
	Name string `json:"name"`
	Seqs []int  `json:"seqs"`
}

func (s *Server) handleXref(w http.ResponseWriter, r *http.Request) {
	ld, ok := s.loadWeb(w, r)
	if !ok {
		return
	}
	wb := ld.Web

	files := []xrefJSON{}
	for _, f := range wb.Files() {
		files = append(files, xrefJSON{Name: f.Name, Seqs: []int{f.Seq}})
	}
	macros := []xrefJSON{}
	for _, m := range wb.Macros() {
		x := xrefJSON{Name: m.FullName}
		for _, d := range m.Defs {
			x.Seqs = append(x.Seqs, d.Seq)
		}
		macros = append(macros, x)
	}
	ids := []xrefJSON{}
	for _, id := range wb.UserIDs() {
		x := xrefJSON{Name: id.Name}
		for _, c := range id.Refs {
			x.Seqs = append(x.Seqs, c.Seq)
		}
		ids = append(ids, x)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files":   files,
		"macros":  macros,
		"userids": ids,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
