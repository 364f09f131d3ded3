package weave

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/dgallion1/litweb/internal/web"
)

// TemplateNames are the blocks every markup must define. A markup may
// also define "text" to wrap prose runs and any helpers it calls itself.
var TemplateNames = []string{
	"begin_code", "end_code", "begin_file", "end_file",
	"code", "ref", "ref_code",
	"file_xref", "macro_xref", "userid_xref",
}

// Markup is a weave target: a quoting rule for code plus the templates
// that frame chunks, references and cross references.
type Markup struct {
	Name      string
	Extension string // Including the dot
	Quote     func(string) string

	// Finish post-processes the complete document, or is nil.
	Finish func(doc []byte) ([]byte, error)

	tmpl *template.Template
}

// Bundle describes a markup to Define.
type Bundle struct {
	Name      string
	Extension string
	Quote     func(string) string
	Delims    [2]string         // Template delimiters; empty means {{ }}
	Funcs     map[string]any    // Extra template functions
	Templates map[string]string // Block name -> template text
	Finish    func(doc []byte) ([]byte, error)
}

// Define compiles a markup. Templates may call quote, indent, join and
// the bundle's own Funcs.
func Define(s Bundle) (*Markup, error) {
	if s.Quote == nil {
		s.Quote = func(text string) string { return text }
	}
	root := template.New(s.Name).Funcs(template.FuncMap{
		"quote":  s.Quote,
		"indent": func(text string) string { return strings.ReplaceAll(text, "\n", "\n    ") },
		"join":   strings.Join,
	})
	if len(s.Funcs) > 0 {
		root = root.Funcs(s.Funcs)
	}
	if s.Delims[0] != "" {
		root = root.Delims(s.Delims[0], s.Delims[1])
	}
	for _, name := range sortedNames(s.Templates) {
		if _, err := root.New(name).Parse(s.Templates[name]); err != nil {
			return nil, fmt.Errorf("markup %s: %w", s.Name, err)
		}
	}
	for _, name := range TemplateNames {
		if root.Lookup(name) == nil {
			return nil, fmt.Errorf("markup %s: missing template %q", s.Name, name)
		}
	}
	return &Markup{
		Name:      s.Name,
		Extension: s.Extension,
		Quote:     s.Quote,
		Finish:    s.Finish,
		tmpl:      root,
	}, nil
}

func (m *Markup) has(name string) bool {
	return m.tmpl.Lookup(name) != nil
}

func (m *Markup) execute(name string, data any) (string, error) {
	var b strings.Builder
	if err := m.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("markup %s: %w", m.Name, err)
	}
	return b.String(), nil
}

var (
	mu      sync.RWMutex
	markups = make(map[string]*Markup)
)

// Register adds or replaces a markup.
func Register(m *Markup) {
	mu.Lock()
	defer mu.Unlock()
	markups[m.Name] = m
}

// Lookup returns the markup registered under name.
func Lookup(name string) (*Markup, bool) {
	mu.RLock()
	defer mu.RUnlock()
	m, ok := markups[name]
	return m, ok
}

// Names lists the registered markups, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(markups))
	for n := range markups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Template data.

// Ref names a chunk by resolved name and sequence number.
type Ref struct {
	Name string
	Seq  int
}

// ChunkData is passed to begin_* and end_* blocks.
type ChunkData struct {
	Name     string // As declared
	FullName string // Resolved; the declared name for output chunks
	Seq      int
	Style    string
	Location web.Location
	UsedBy   []Ref // Chunks whose code references this one
}

// CodeData is passed to the code block. Text is already quoted.
type CodeData struct {
	Text  string
	Style string
}

// TextData is passed to the optional text block.
type TextData struct {
	Text     string
	Location web.Location
}

// XrefEntry is one line of a cross reference.
type XrefEntry struct {
	Name string
	Refs []Ref
}

// XrefData is passed to the *_xref blocks.
type XrefData struct {
	Entries []XrefEntry
}
