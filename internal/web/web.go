// Package web holds the parsed document model: chunks, commands and the
// name-resolution and cross-reference engine built over them.
package web

import (
	"slices"
	"sort"
	"strings"
)

// Web is a complete parsed document.
type Web struct {
	Path   string   // Source path of the top-level file
	Chunks []*Chunk // All chunks in document order, includes spliced in

	names     []string            // Sorted exact names of Named and NamedDocument chunks
	fullNames map[*Chunk]string   // Resolved name of each Named and NamedDocument chunk
	chunkMap  map[string][]*Chunk // Full name -> definitions in document order
	useridMap map[string][]*Chunk // Declared identifier -> declaring chunks
	usedBy    map[string][]*Chunk // Full name -> chunks whose code references it
}

// New builds the indices over chunks and assigns sequence numbers.
// The chunk list is owned by the Web afterwards.
func New(chunks []*Chunk) *Web {
	w := &Web{
		Chunks:    chunks,
		fullNames: make(map[*Chunk]string),
		chunkMap:  make(map[string][]*Chunk),
		useridMap: make(map[string][]*Chunk),
		usedBy:    make(map[string][]*Chunk),
	}

	seen := make(map[string]struct{})
	for _, c := range chunks {
		if !isDefinition(c) || IsAbbreviation(c.Name) {
			continue
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		w.names = append(w.names, c.Name)
	}
	sort.Strings(w.names)

	seq := 0
	for _, c := range chunks {
		if c.Kind == Named || c.Kind == Output {
			seq++
			c.Seq = seq
		}

		declared := make(map[string]struct{}, len(c.DefNames))
		for _, name := range c.DefNames {
			if _, dup := declared[name]; dup {
				continue
			}
			declared[name] = struct{}{}
			w.useridMap[name] = append(w.useridMap[name], c)
		}

		switch c.Kind {
		case Output:
			c.Initial = true
		case Named, NamedDocument:
			full, err := w.ResolveName(c.Name)
			if err != nil {
				// Reported again when something asks for this name.
				full = c.Name
			}
			w.fullNames[c] = full
			c.Initial = len(w.chunkMap[full]) == 0
			w.chunkMap[full] = append(w.chunkMap[full], c)
		}
	}

	for _, c := range chunks {
		if !c.IsCode() {
			continue
		}
		for _, cmd := range c.Commands {
			if cmd.Kind != ReferenceCommand {
				continue
			}
			full, err := w.ResolveName(cmd.Name)
			if err != nil || slices.Contains(w.usedBy[full], c) {
				continue
			}
			w.usedBy[full] = append(w.usedBy[full], c)
		}
	}
	return w
}

func isDefinition(c *Chunk) bool {
	return c.Kind == Named || c.Kind == NamedDocument
}

// ResolveName maps an abbreviated name to the unique full name it prefixes.
// Exact names, and abbreviations with no candidate, are returned unchanged.
func (w *Web) ResolveName(target string) (string, error) {
	if !IsAbbreviation(target) {
		return target, nil
	}
	prefix := strings.TrimSuffix(target, "...")
	var matches []string
	for _, name := range w.names {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return target, nil
	case 1:
		return matches[0], nil
	default:
		return "", AmbiguousError(target, matches)
	}
}

// ResolveChunk returns every definition of target, in document order.
// The result is empty when the name is undefined.
func (w *Web) ResolveChunk(target string) ([]*Chunk, error) {
	name, err := w.ResolveName(target)
	if err != nil {
		return nil, err
	}
	return w.chunkMap[name], nil
}

// FullName returns the resolved name of a definition. Output and
// anonymous chunks have none.
func (w *Web) FullName(c *Chunk) string {
	return w.fullNames[c]
}

// DisplayName is the full name of a definition, or the declared name of
// an output chunk.
func (w *Web) DisplayName(c *Chunk) string {
	if full := w.fullNames[c]; full != "" {
		return full
	}
	return c.Name
}

// DocText expands a reference from prose. It returns the joined text of a
// NamedDocument definition and false when target names anything else.
func (w *Web) DocText(target string) (string, bool, error) {
	defs, err := w.ResolveChunk(target)
	if err != nil {
		return "", false, err
	}
	if len(defs) == 0 || defs[0].Kind != NamedDocument {
		return "", false, nil
	}
	var b strings.Builder
	for _, c := range defs {
		b.WriteString(c.Text())
	}
	return b.String(), true, nil
}

// UsedBy lists the code chunks whose text references the definition c,
// in document order. Unlike ReferencedBy it does not need a tangle pass.
func (w *Web) UsedBy(c *Chunk) []*Chunk {
	full, ok := w.fullNames[c]
	if !ok {
		return nil
	}
	return w.usedBy[full]
}

// Files lists the output chunks in document order.
func (w *Web) Files() []*Chunk {
	var files []*Chunk
	for _, c := range w.Chunks {
		if c.Kind == Output {
			files = append(files, c)
		}
	}
	return files
}

// Macro is one named-chunk entry of the macro cross reference.
type Macro struct {
	FullName string
	Seq      int      // Sequence number of the first definition
	Defs     []*Chunk // Every definition sharing the name
}

// Macros lists the named code chunks, one entry per full name, sorted.
func (w *Web) Macros() []Macro {
	var macros []Macro
	for _, name := range sortedKeys(w.chunkMap) {
		defs := w.chunkMap[name]
		if defs[0].Kind != Named {
			continue
		}
		macros = append(macros, Macro{FullName: name, Seq: defs[0].Seq, Defs: defs})
	}
	return macros
}

// UserID is one identifier entry of the user-id cross reference.
type UserID struct {
	Name string
	Refs []*Chunk // Chunks declaring the identifier
}

// UserIDs lists the declared identifiers, sorted.
func (w *Web) UserIDs() []UserID {
	var ids []UserID
	for _, name := range sortedKeys(w.useridMap) {
		ids = append(ids, UserID{Name: name, Refs: w.useridMap[name]})
	}
	return ids
}

// NoReference lists the named chunks nothing referenced during tangling.
func (w *Web) NoReference() []*Chunk {
	return w.namedWhere(func(c *Chunk) bool { return c.References == 0 })
}

// MultiReference lists the named chunks referenced more than once.
func (w *Web) MultiReference() []*Chunk {
	return w.namedWhere(func(c *Chunk) bool { return c.References > 1 })
}

func (w *Web) namedWhere(keep func(*Chunk) bool) []*Chunk {
	var out []*Chunk
	for _, c := range w.Chunks {
		if c.Kind == Named && keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// ResetReferences clears the counters left by a previous tangle pass.
func (w *Web) ResetReferences() {
	for _, c := range w.Chunks {
		c.References = 0
		c.ReferencedBy = nil
	}
}

// TransitiveReferencedBy follows the first referrer of c up to a chunk
// nothing refers to.
func (w *Web) TransitiveReferencedBy(c *Chunk) []*Chunk {
	var chain []*Chunk
	for cur := c; len(cur.ReferencedBy) > 0; {
		parent := cur.ReferencedBy[0]
		if parent == c || slices.Contains(chain, parent) {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	return chain
}

func sortedKeys(m map[string][]*Chunk) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
