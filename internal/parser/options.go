package parser

import (
	"fmt"
	"strings"

	"github.com/dgallion1/litweb/internal/web"
)

// splitWords splits an option line the way a shell would: whitespace
// separates words, single and double quotes group them.
func splitWords(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		inWord  bool
		quote   rune
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\r':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}

// newChunk builds an @o or @d chunk from its option line. Unknown options
// are returned as warnings; the chunk is usable either way.
func newChunk(kind web.ChunkKind, line string) (*web.Chunk, []string, error) {
	words, err := splitWords(line)
	if err != nil {
		return nil, nil, err
	}
	c := web.NewChunk(kind, "")
	c.Options = words

	var (
		name     []string
		warnings []string
	)
	takeValue := func(i int, opt string) (string, int) {
		if i+1 >= len(words) {
			warnings = append(warnings, fmt.Sprintf("option %s needs a value", opt))
			return "", i
		}
		return words[i+1], i + 1
	}
	for i := 0; i < len(words); i++ {
		w := words[i]
		if len(name) > 0 || !strings.HasPrefix(w, "-") {
			name = append(name, w)
			continue
		}
		switch {
		case w == "-style":
			c.Style, i = takeValue(i, w)
		case kind == web.Output && w == "-start":
			c.CommentStart, i = takeValue(i, w)
		case kind == web.Output && w == "-end":
			c.CommentEnd, i = takeValue(i, w)
		case kind == web.Output && w == "-noweave":
			c.Weave = false
		case kind != web.Output && w == "-indent":
			c.Indent = web.IndentOn
		case kind != web.Output && w == "-noindent":
			c.Indent = web.IndentOff
		default:
			warnings = append(warnings, fmt.Sprintf("unknown option %s", w))
		}
	}
	c.Name = strings.Join(name, " ")
	return c, warnings, nil
}
