package parser

import (
	"bufio"
	"io"
	"iter"
	"strings"
)

// DefaultCommand is the command character used when none is configured.
const DefaultCommand = '@'

// commandChars are the characters that form a control token after the
// command character.
const commandChars = "@{}[]<>i|mfu()od"

// Tokenizer splits a character stream into control tokens, newline tokens
// and literal spans. A literal span never contains a newline or the start
// of a control token.
type Tokenizer struct {
	r       *bufio.Reader
	command rune
	lines   int
	pending []rune // Runes read ahead but not yet returned
	err     error
}

// NewTokenizer returns a tokenizer over r using command as the command character.
func NewTokenizer(r io.Reader, command rune) *Tokenizer {
	if command == 0 {
		command = DefaultCommand
	}
	return &Tokenizer{r: bufio.NewReader(r), command: command}
}

// LineNumber returns the number of newlines consumed so far.
func (t *Tokenizer) LineNumber() int {
	return t.lines
}

// Err returns the first read error other than io.EOF.
func (t *Tokenizer) Err() error {
	if t.err == io.EOF {
		return nil
	}
	return t.err
}

// IsCommand reports whether tok is a control token for this tokenizer.
func (t *Tokenizer) IsCommand(tok string) bool {
	r := []rune(tok)
	return len(r) == 2 && r[0] == t.command && strings.ContainsRune(commandChars, r[1])
}

// All yields the remaining tokens. The sequence cannot be restarted.
func (t *Tokenizer) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			tok, ok := t.Next()
			if !ok || !yield(tok) {
				return
			}
		}
	}
}

// Next returns the next token, or false at end of input.
func (t *Tokenizer) Next() (string, bool) {
	var text strings.Builder
	for {
		r, ok := t.read()
		if !ok {
			if text.Len() > 0 {
				return text.String(), true
			}
			return "", false
		}
		if r == '\n' {
			if text.Len() > 0 {
				t.unread(r)
				return text.String(), true
			}
			t.lines++
			return "\n", true
		}
		if r == t.command {
			next, ok := t.read()
			if ok && strings.ContainsRune(commandChars, next) {
				if text.Len() > 0 {
					t.unread(next)
					t.unread(r)
					return text.String(), true
				}
				return string([]rune{r, next}), true
			}
			if ok {
				t.unread(next)
			}
		}
		text.WriteRune(r)
	}
}

func (t *Tokenizer) read() (rune, bool) {
	if n := len(t.pending); n > 0 {
		r := t.pending[n-1]
		t.pending = t.pending[:n-1]
		return r, true
	}
	if t.err != nil {
		return 0, false
	}
	r, _, err := t.r.ReadRune()
	if err != nil {
		t.err = err
		return 0, false
	}
	return r, true
}

// unread pushes r back; runes come back out in reverse order of pushing.
func (t *Tokenizer) unread(r rune) {
	t.pending = append(t.pending, r)
}
