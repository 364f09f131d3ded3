// Package tangle reconstructs source files from a web by expanding chunk
// references with indentation relative to each reference site.
package tangle

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"

	"github.com/dgallion1/litweb/internal/output"
	"github.com/dgallion1/litweb/internal/web"
)

// Tangler writes one file per output chunk.
type Tangler struct {
	dir string
	log *slog.Logger

	// LineNumbers marks each code run with its source line, using the
	// output chunk's -start/-end comment brackets. Chunks without -start
	// are left unmarked.
	LineNumbers bool

	// Confine rejects output paths that are absolute or climb out of
	// the output directory.
	Confine bool

	refNames  map[string]struct{}
	written   []string
	unchanged []string
}

// ErrOutsideDir reports an output path rejected by Confine.
var ErrOutsideDir = errors.New("output path leaves the output directory")

// New returns a tangler writing below dir.
func New(dir string, log *slog.Logger) *Tangler {
	return &Tangler{dir: dir, log: log, refNames: make(map[string]struct{})}
}

// Emit tangles every output chunk of w. A failing chunk aborts its own
// file only; the errors of all files are joined. Reference counts are
// recomputed from scratch.
func (t *Tangler) Emit(w *web.Web) error {
	w.ResetReferences()
	t.refNames = make(map[string]struct{})
	t.written, t.unchanged = nil, nil

	var errs []error
	for _, c := range w.Files() {
		log := t.log.With("file", c.Name)
		if t.Confine && !filepath.IsLocal(c.Path()) {
			err := fmt.Errorf("tangle %s: %w", c.Name, ErrOutsideDir)
			log.Error("tangle refused", "error", err)
			errs = append(errs, err)
			continue
		}
		data, err := t.Render(w, c)
		if err != nil {
			log.Error("tangle failed", "error", err)
			errs = append(errs, err)
			continue
		}
		path := filepath.Join(t.dir, c.Path())
		changed, err := output.WriteIfChanged(path, data)
		if err != nil {
			log.Error("write failed", "error", err)
			errs = append(errs, fmt.Errorf("tangle %s: %w", c.Name, err))
			continue
		}
		if changed {
			t.written = append(t.written, path)
			log.Info("tangled", "path", path, "bytes", len(data))
		} else {
			t.unchanged = append(t.unchanged, path)
			log.Debug("unchanged", "path", path)
		}
	}

	for _, c := range w.NoReference() {
		t.log.Warn("chunk is never referenced", "chunk", w.DisplayName(c), "location", c.Location.String())
	}
	for _, c := range w.MultiReference() {
		t.log.Debug("chunk is referenced more than once", "chunk", w.DisplayName(c), "references", c.References)
	}
	return errors.Join(errs...)
}

// Render tangles one output chunk into memory.
func (t *Tangler) Render(w *web.Web, c *web.Chunk) ([]byte, error) {
	p := &pass{Tangler: t, web: w, out: newWriter(), file: c.Name}
	if t.LineNumbers {
		p.start, p.end = c.CommentStart, c.CommentEnd
	}
	if err := p.chunk(c, nil); err != nil {
		return nil, err
	}
	return p.out.Bytes(), nil
}

// ReferenceNames returns the reference names, as written, seen by the
// last Emit or Render calls.
func (t *Tangler) ReferenceNames() []string {
	names := make([]string, 0, len(t.refNames))
	for n := range t.refNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Written lists the files the last Emit replaced.
func (t *Tangler) Written() []string {
	return t.written
}

// Unchanged lists the files the last Emit left alone.
func (t *Tangler) Unchanged() []string {
	return t.unchanged
}

// pass is the state of rendering one output chunk.
type pass struct {
	*Tangler
	web        *web.Web
	out        *writer
	file       string // Output name, the first entry of a cycle path
	start, end string
}

func (p *pass) chunk(c *web.Chunk, stack []string) error {
	for _, cmd := range c.Commands {
		switch cmd.Kind {
		case web.CodeCommand:
			p.lineMark(cmd.Location)
			p.out.WriteString(cmd.Text)
		case web.TextCommand:
			return web.TextTangleError(cmd.Location, cmd.Text)
		case web.FileXrefCommand, web.MacroXrefCommand, web.UserIDXrefCommand:
			return web.XrefTangleError(cmd.Location)
		case web.ReferenceCommand:
			if err := p.reference(c, cmd, stack); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *pass) reference(from *web.Chunk, cmd *web.Command, stack []string) error {
	full, err := p.web.ResolveName(cmd.Name)
	if err != nil {
		return web.Locate(err, cmd.Location)
	}
	if web.IsAbbreviation(full) {
		return web.NoFullNameError(cmd.Location, cmd.Name)
	}
	defs, err := p.web.ResolveChunk(full)
	if err != nil {
		return web.Locate(err, cmd.Location)
	}
	if len(defs) == 0 {
		return web.UndefinedError(cmd.Location, cmd.Name)
	}
	// The stack holds named chunks only; output names never resolve.
	if slices.Contains(stack, full) {
		path := append([]string{p.file}, stack...)
		return web.CycleError(cmd.Location, append(path, full))
	}

	p.refNames[cmd.Name] = struct{}{}
	for _, def := range defs {
		def.AddReferrer(from)
	}

	if defs[0].Indent == web.IndentOff {
		p.out.SetIndent(0)
	} else {
		p.out.SetIndent(p.out.Column())
	}
	defer p.out.ClrIndent()

	stack = append(stack, full)
	for _, def := range defs {
		if def.Kind != web.Named {
			return web.TextTangleError(def.Location, def.Text())
		}
		if err := p.chunk(def, stack); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) lineMark(loc web.Location) {
	if p.start == "" || !p.out.AtLineStart() {
		return
	}
	mark := fmt.Sprintf("%s Web: %s %s", p.start, loc, p.end)
	if p.end == "" {
		mark = fmt.Sprintf("%s Web: %s", p.start, loc)
	}
	p.out.WriteString(mark + "\n")
}
