// Package weave renders a web as a document in a target markup. Markups
// are data: a quoting rule and a set of templates, kept in a registry.
package weave

import (
	"bytes"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/litweb/internal/output"
	"github.com/dgallion1/litweb/internal/web"
)

// Weaver produces one document per web.
type Weaver struct {
	dir    string // Empty means next to the web
	log    *slog.Logger
	markup *Markup
}

// New returns a weaver using the default markup. dir may be empty.
func New(dir string, log *slog.Logger) *Weaver {
	m, _ := Lookup(DefaultMarkup)
	return &Weaver{dir: dir, log: log, markup: m}
}

// SetMarkup selects a registered markup by name.
func (v *Weaver) SetMarkup(name string) error {
	m, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("unknown markup %q (have %s)", name, strings.Join(Names(), ", "))
	}
	v.markup = m
	return nil
}

// Markup returns the selected markup.
func (v *Weaver) Markup() *Markup {
	return v.markup
}

// TargetPath is the document written for w: the web's stem with the
// markup's extension, in the output directory.
func (v *Weaver) TargetPath(w *web.Web) string {
	dir := v.dir
	if dir == "" {
		dir = filepath.Dir(w.Path)
	}
	base := filepath.Base(w.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+v.markup.Extension)
}

// Emit renders w completely, then writes it to TargetPath. Nothing is
// written when rendering fails.
func (v *Weaver) Emit(w *web.Web) error {
	data, err := v.Render(w)
	if err != nil {
		return err
	}
	path := v.TargetPath(w)
	changed, err := output.WriteIfChanged(path, data)
	if err != nil {
		return fmt.Errorf("weave %s: %w", path, err)
	}
	if changed {
		v.log.Info("woven", "path", path, "markup", v.markup.Name, "bytes", len(data))
	} else {
		v.log.Debug("unchanged", "path", path)
	}
	return nil
}

// Render returns the finished document.
func (v *Weaver) Render(w *web.Web) ([]byte, error) {
	var buf bytes.Buffer
	for frag, err := range v.GenerateText(w) {
		if err != nil {
			return nil, err
		}
		buf.WriteString(frag)
	}
	if v.markup.Finish != nil {
		return v.markup.Finish(buf.Bytes())
	}
	return buf.Bytes(), nil
}

// GenerateText yields the document fragment by fragment, in document
// order. The sequence stops after the first error.
func (v *Weaver) GenerateText(w *web.Web) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		g := &gen{Weaver: v, web: w, yield: yield}
		for _, c := range w.Chunks {
			if !g.chunk(c) {
				return
			}
		}
	}
}

// gen is one traversal. Its methods return false once the consumer
// stops or an error has been yielded.
type gen struct {
	*Weaver
	web   *web.Web
	yield func(string, error) bool
}

func (g *gen) exec(name string, data any) bool {
	s, err := g.markup.execute(name, data)
	if err != nil {
		g.yield("", err)
		return false
	}
	return g.yield(s, nil)
}

func (g *gen) chunk(c *web.Chunk) bool {
	switch c.Kind {
	case web.Anonymous:
		for _, cmd := range c.Commands {
			if !g.prose(cmd) {
				return false
			}
		}
		return true
	case web.Named:
		return g.block(c, "begin_code", "end_code")
	case web.Output:
		if !c.Weave {
			return true
		}
		return g.block(c, "begin_file", "end_file")
	}
	// Document chunks appear where they are referenced.
	return true
}

func (g *gen) block(c *web.Chunk, begin, end string) bool {
	data := g.chunkData(c)
	if !g.exec(begin, data) {
		return false
	}
	for _, cmd := range c.Commands {
		if !g.code(c, cmd) {
			return false
		}
	}
	return g.exec(end, data)
}

func (g *gen) chunkData(c *web.Chunk) ChunkData {
	d := ChunkData{
		Name:     c.Name,
		FullName: g.web.DisplayName(c),
		Seq:      c.Seq,
		Style:    c.Style,
		Location: c.Location,
	}
	for _, u := range g.web.UsedBy(c) {
		d.UsedBy = append(d.UsedBy, Ref{Name: g.web.DisplayName(u), Seq: u.Seq})
	}
	return d
}

func (g *gen) prose(cmd *web.Command) bool {
	switch cmd.Kind {
	case web.TextCommand, web.CodeCommand:
		if g.markup.has("text") {
			return g.exec("text", TextData{Text: cmd.Text, Location: cmd.Location})
		}
		return g.yield(cmd.Text, nil)
	case web.ReferenceCommand:
		text, ok, err := g.web.DocText(cmd.Name)
		if err != nil {
			g.yield("", web.Locate(err, cmd.Location))
			return false
		}
		if ok {
			return g.yield(text, nil)
		}
		return g.ref("ref", cmd)
	default:
		return g.xref(cmd.Kind)
	}
}

func (g *gen) code(c *web.Chunk, cmd *web.Command) bool {
	switch cmd.Kind {
	case web.CodeCommand:
		return g.exec("code", CodeData{Text: g.markup.Quote(cmd.Text), Style: c.Style})
	case web.TextCommand:
		return g.yield(cmd.Text, nil)
	case web.ReferenceCommand:
		return g.ref("ref_code", cmd)
	default:
		return g.xref(cmd.Kind)
	}
}

func (g *gen) ref(block string, cmd *web.Command) bool {
	defs, err := g.web.ResolveChunk(cmd.Name)
	if err != nil {
		g.yield("", web.Locate(err, cmd.Location))
		return false
	}
	r := Ref{Name: cmd.Name}
	if len(defs) == 0 {
		g.log.Warn("reference to an undefined chunk", "chunk", cmd.Name, "location", cmd.Location.String())
	} else {
		r = Ref{Name: g.web.FullName(defs[0]), Seq: defs[0].Seq}
	}
	return g.exec(block, r)
}

func (g *gen) xref(kind web.CommandKind) bool {
	var data XrefData
	var block string
	switch kind {
	case web.FileXrefCommand:
		block = "file_xref"
		for _, f := range g.web.Files() {
			data.Entries = append(data.Entries, XrefEntry{Name: f.Name, Refs: []Ref{{Name: f.Name, Seq: f.Seq}}})
		}
	case web.MacroXrefCommand:
		block = "macro_xref"
		for _, m := range g.web.Macros() {
			e := XrefEntry{Name: m.FullName}
			for _, d := range m.Defs {
				e.Refs = append(e.Refs, Ref{Name: m.FullName, Seq: d.Seq})
			}
			data.Entries = append(data.Entries, e)
		}
	case web.UserIDXrefCommand:
		block = "userid_xref"
		for _, id := range g.web.UserIDs() {
			e := XrefEntry{Name: id.Name}
			for _, c := range id.Refs {
				e.Refs = append(e.Refs, Ref{Name: g.web.DisplayName(c), Seq: c.Seq})
			}
			data.Entries = append(data.Entries, e)
		}
	default:
		return true
	}
	return g.exec(block, data)
}
