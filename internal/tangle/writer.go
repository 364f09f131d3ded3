package tangle

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// writer is a code buffer with a stack of indentation levels. The
// current indent is written lazily, before the first byte of each line
// that is not a newline, so blank lines carry no trailing spaces.
type writer struct {
	buf    bytes.Buffer
	indent int
	stack  []int
	fresh  bool // Nothing written on the current line yet
	col    int
}

func newWriter() *writer {
	return &writer{fresh: true}
}

// AddIndent pushes the current indent increased by n.
func (w *writer) AddIndent(n int) {
	w.SetIndent(w.indent + n)
}

// SetIndent pushes an absolute indent.
func (w *writer) SetIndent(n int) {
	w.stack = append(w.stack, w.indent)
	w.indent = n
}

// ClrIndent pops back to the previous indent.
func (w *writer) ClrIndent() {
	if n := len(w.stack); n > 0 {
		w.indent = w.stack[n-1]
		w.stack = w.stack[:n-1]
	}
}

// Column is where the next byte will land.
func (w *writer) Column() int {
	if w.fresh {
		return w.indent
	}
	return w.col
}

// AtLineStart reports whether nothing has been written on the current line.
func (w *writer) AtLineStart() bool {
	return w.fresh
}

func (w *writer) WriteString(s string) {
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		line := s
		if i >= 0 {
			line = s[:i]
		}
		if line != "" {
			if w.fresh {
				w.buf.WriteString(strings.Repeat(" ", w.indent))
				w.col = w.indent
				w.fresh = false
			}
			w.buf.WriteString(line)
			w.col += utf8.RuneCountInString(line)
		}
		if i < 0 {
			return
		}
		w.buf.WriteByte('\n')
		w.fresh = true
		w.col = 0
		s = s[i+1:]
	}
}

func (w *writer) Bytes() []byte {
	return w.buf.Bytes()
}
