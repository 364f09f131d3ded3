package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/litweb/internal/web"
)

type state int

const (
	stateTop  state = iota // Prose of an anonymous chunk
	stateCode              // Inside @{ ... @}
	stateDoc               // Inside @[ ... @]
)

// Load parses one web. path names the source in locations and anchors
// relative @i paths. Parse errors are logged and counted rather than
// returned; the error result reports read failures only.
func (r *Reader) Load(path string, rd io.Reader) ([]*web.Chunk, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	r.including = append(r.including, abs)
	defer func() { r.including = r.including[:len(r.including)-1] }()

	f := r.newFile(path, filepath.Dir(path), rd)
	f.parse()
	if err := f.tok.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return dropEmpty(f.chunks), nil
}

// file is the parse state of one source, top-level or included.
type file struct {
	*Reader
	name string // Name used in locations
	dir  string // Directory relative includes are resolved against
	tok  *Tokenizer

	pushed  []string
	state   state
	current *web.Chunk
	chunks  []*web.Chunk
}

func (r *Reader) newFile(name, dir string, rd io.Reader) *file {
	f := &file{Reader: r, name: name, dir: dir, tok: NewTokenizer(rd, r.command)}
	f.startAnonymous()
	return f
}

func (f *file) cmd(c rune) string {
	return string([]rune{f.command, c})
}

func (f *file) location() web.Location {
	return web.Location{Name: f.name, Line: f.tok.LineNumber() + 1}
}

func (f *file) next() (string, bool) {
	if n := len(f.pushed); n > 0 {
		tok := f.pushed[n-1]
		f.pushed = f.pushed[:n-1]
		return tok, true
	}
	return f.tok.Next()
}

func (f *file) push(tok string) {
	f.pushed = append(f.pushed, tok)
}

// literal returns the next token when it is a literal span on the
// current line. Anything else is pushed back.
func (f *file) literal() (string, bool) {
	tok, ok := f.next()
	if !ok {
		return "", false
	}
	if tok == "\n" || f.tok.IsCommand(tok) {
		f.push(tok)
		return "", false
	}
	return tok, true
}

// expect skips newlines until one of want. A mismatching token is
// consumed. eof is true when input ended first.
func (f *file) expect(want ...string) (tok string, ok, eof bool) {
	for {
		tok, more := f.next()
		if !more {
			f.errorf("At %s: end of input, {%s} not found", f.location(), strings.Join(want, ", "))
			return "", false, true
		}
		if tok == "\n" {
			continue
		}
		if slices.Contains(want, tok) {
			return tok, true, false
		}
		f.errorf("At %s: expected {%s}, found %s", f.location(), strings.Join(want, ", "), tok)
		return tok, false, false
	}
}

func (f *file) closer() string {
	if f.state == stateDoc {
		return f.cmd(']')
	}
	return f.cmd('}')
}

func (f *file) startAnonymous() {
	f.current = web.NewChunk(web.Anonymous, "")
	f.chunks = append(f.chunks, f.current)
	f.state = stateTop
}

func (f *file) parse() {
	defer func() { f.lines += f.tok.LineNumber() }()
	for {
		loc := f.location()
		tok, ok := f.next()
		if !ok {
			break
		}
		if !f.tok.IsCommand(tok) {
			f.current.AppendText(tok, loc)
			continue
		}
		switch op := []rune(tok)[1]; op {
		case '@':
			f.current.AppendText(string(f.command), loc)
		case 'o':
			f.openChunk(web.Output, tok)
		case 'd':
			f.openChunk(web.Named, tok)
		case '{', '[':
			f.errorf("Extra %s (possibly missing chunk name) near %s", tok, f.location())
		case '}', ']':
			if f.state != stateTop && tok != f.closer() {
				f.warnf("At %s: expected {%s}, found %s", f.location(), f.closer(), tok)
			}
			f.startAnonymous()
		case '<':
			f.reference(loc)
		case '>', ')':
			f.errorf("Extra %s near %s", tok, f.location())
		case '|':
			f.defNames()
		case 'f':
			f.xref(web.FileXrefCommand, tok, loc)
		case 'm':
			f.xref(web.MacroXrefCommand, tok, loc)
		case 'u':
			f.xref(web.UserIDXrefCommand, tok, loc)
		case '(':
			f.substitute(loc)
		case 'i':
			f.include(loc)
		}
	}
	if f.state != stateTop {
		f.errorf("At %s: end of input, {%s} not found", f.location(), f.closer())
		f.state = stateTop
	}
}

// openChunk handles @o and @d: an option line, then the body opener.
func (f *file) openChunk(kind web.ChunkKind, tok string) {
	if f.state != stateTop {
		f.errorf("At %s: expected {%s}, found %s", f.location(), f.closer(), tok)
	}
	loc := f.location()
	line, _ := f.literal()

	c, warnings, err := newChunk(kind, strings.TrimSpace(line))
	if err != nil {
		f.errorf("At %s: bad options %q: %v", loc, line, err)
		c = web.NewChunk(kind, strings.TrimSpace(line))
	}
	for _, w := range warnings {
		f.warnf("At %s: %s", loc, w)
	}
	if c.Name == "" {
		f.warnf("At %s: %s has no chunk name", loc, tok)
	}
	c.Location = loc

	openers := []string{f.cmd('{')}
	if kind == web.Named {
		openers = append(openers, f.cmd('['))
	}
	opener, _, eof := f.expect(openers...)
	if opener == f.cmd('[') {
		c.Kind = web.NamedDocument
	}
	f.chunks = append(f.chunks, c)
	f.current = c
	switch {
	case eof:
		f.state = stateTop
	case c.Kind == web.NamedDocument:
		f.state = stateDoc
	default:
		f.state = stateCode
	}
}

func (f *file) reference(loc web.Location) {
	name, _ := f.literal()
	name = strings.TrimSpace(name)
	if _, ok, eof := f.expect(f.cmd('>')); !ok && eof {
		return
	}
	if name == "" {
		f.errorf("At %s: empty chunk reference", loc)
		return
	}
	f.current.Append(&web.Command{Kind: web.ReferenceCommand, Name: name, Location: loc})
}

func (f *file) defNames() {
	line, _ := f.literal()
	if f.state != stateCode {
		f.warnf("At %s: %s outside a code chunk ignored", f.location(), f.cmd('|'))
		return
	}
	f.current.DefNames = append(f.current.DefNames, strings.Fields(line)...)
}

func (f *file) xref(kind web.CommandKind, tok string, loc web.Location) {
	if f.state == stateCode {
		f.warnf("At %s: cross reference %s in code", loc, tok)
	}
	f.current.Append(&web.Command{Kind: kind, Location: loc})
}

func (f *file) substitute(loc web.Location) {
	name, _ := f.literal()
	name = strings.TrimSpace(name)
	if _, ok, eof := f.expect(f.cmd(')')); !ok && eof {
		return
	}
	value, ok := f.lookup(name, loc)
	if !ok {
		f.errorf("At %s: unknown substitution '%s'", loc, name)
		return
	}
	f.current.AppendText(value, loc)
}

func (f *file) lookup(name string, loc web.Location) (string, bool) {
	switch name {
	case "theFile":
		return f.name, true
	case "theLocation":
		return loc.String(), true
	}
	v, ok := f.subst[name]
	return v, ok
}

// include splices the chunks of another source in place of @i.
func (f *file) include(loc web.Location) {
	path, _ := f.literal()
	path = strings.TrimSpace(path)
	if path == "" {
		f.errorf("At %s: %s needs a file name", loc, f.cmd('i'))
		return
	}
	if f.state != stateTop {
		f.errorf("At %s: %s inside a chunk body", loc, f.cmd('i'))
		return
	}
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(f.dir, resolved)
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		abs = resolved
	}
	if slices.Contains(f.including, abs) {
		f.errorf("At %s: include cycle, '%s' is already being read", loc, path)
		return
	}

	src, err := os.Open(resolved)
	if err != nil {
		if f.permit["@i"] {
			f.warnf("At %s: include skipped: %v", loc, err)
		} else {
			f.errorf("At %s: cannot include '%s': %v", loc, path, err)
		}
		return
	}
	defer src.Close()

	f.including = append(f.including, abs)
	defer func() { f.including = f.including[:len(f.including)-1] }()

	before := f.errors
	child := f.newFile(path, filepath.Dir(resolved), src)
	child.parse()
	if err := child.tok.Err(); err != nil {
		f.errorf("At %s: reading '%s': %v", loc, path, err)
	}
	if f.errors > before {
		f.log.Error(fmt.Sprintf("Errors in included file '%s', output is incomplete.", path))
	}

	f.chunks = append(f.chunks, child.chunks...)
	f.startAnonymous()
}

func dropEmpty(chunks []*web.Chunk) []*web.Chunk {
	out := chunks[:0]
	for _, c := range chunks {
		if c.Kind == web.Anonymous && len(c.Commands) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}
