package web

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Location is a position in a source file.
type Location struct {
	Name string // Source file name as given to the reader
	Line int    // 1-based line number
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.Name, l.Line)
}

// CommandKind tags the variant held by a Command.
type CommandKind int

const (
	TextCommand CommandKind = iota
	CodeCommand
	ReferenceCommand
	FileXrefCommand
	MacroXrefCommand
	UserIDXrefCommand
)

var commandKindNames = [...]string{
	TextCommand:       "text",
	CodeCommand:       "code",
	ReferenceCommand:  "reference",
	FileXrefCommand:   "file_xref",
	MacroXrefCommand:  "macro_xref",
	UserIDXrefCommand: "userid_xref",
}

func (k CommandKind) String() string {
	if int(k) < len(commandKindNames) {
		return commandKindNames[k]
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// IsXref reports whether the kind is one of the cross-reference markers.
func (k CommandKind) IsXref() bool {
	return k == FileXrefCommand || k == MacroXrefCommand || k == UserIDXrefCommand
}

// Command is the smallest unit inside a chunk.
type Command struct {
	Kind     CommandKind
	Text     string // Text and Code commands
	Name     string // Reference commands: the name as written, possibly abbreviated
	Location Location
}

// ChunkKind tags the variant held by a Chunk.
type ChunkKind int

const (
	Anonymous ChunkKind = iota
	Named
	Output
	NamedDocument
)

var chunkKindNames = [...]string{
	Anonymous:     "anonymous",
	Named:         "named",
	Output:        "output",
	NamedDocument: "named_document",
}

func (k ChunkKind) String() string {
	if int(k) < len(chunkKindNames) {
		return chunkKindNames[k]
	}
	return fmt.Sprintf("ChunkKind(%d)", int(k))
}

// IndentMode controls how a named chunk is indented where it is referenced.
type IndentMode int

const (
	IndentDefault IndentMode = iota
	IndentOn
	IndentOff
)

// Chunk is a named or anonymous unit of prose or code.
type Chunk struct {
	Kind     ChunkKind
	Name     string     // Empty for anonymous chunks
	Seq      int        // Sequence number; 0 when none was assigned
	Initial  bool       // First definition of its full name
	Options  []string   // Raw option words from the @o/@d line
	Commands []*Command // Commands in document order
	DefNames []string   // Identifiers declared with @|
	Location Location   // Where the chunk's content starts

	Indent       IndentMode
	CommentStart string // @o -start
	CommentEnd   string // @o -end
	Weave        bool   // False when @o -noweave was given
	Style        string // Language hint for markups that highlight code

	// Reference bookkeeping, updated while tangling.
	References   int
	ReferencedBy []*Chunk
}

// NewChunk returns an empty chunk of the given kind.
func NewChunk(kind ChunkKind, name string) *Chunk {
	return &Chunk{Kind: kind, Name: name, Weave: true}
}

// IsCode reports whether the chunk holds code rather than prose.
func (c *Chunk) IsCode() bool {
	return c.Kind == Named || c.Kind == Output
}

// Path returns the target file of an output chunk, or "" for other kinds.
func (c *Chunk) Path() string {
	if c.Kind != Output {
		return ""
	}
	return filepath.FromSlash(c.Name)
}

// AppendText adds text to the chunk, coalescing with a trailing text run.
// Prose chunks collect Text commands, code chunks collect Code commands.
func (c *Chunk) AppendText(text string, loc Location) {
	kind := TextCommand
	if c.IsCode() {
		kind = CodeCommand
	}
	if n := len(c.Commands); n > 0 && c.Commands[n-1].Kind == kind {
		c.Commands[n-1].Text += text
		return
	}
	c.Append(&Command{Kind: kind, Text: text, Location: loc})
}

// Append adds a command to the chunk.
func (c *Chunk) Append(cmd *Command) {
	if len(c.Commands) == 0 {
		c.Location = cmd.Location
	}
	c.Commands = append(c.Commands, cmd)
}

// AddReferrer records that from cites this chunk.
func (c *Chunk) AddReferrer(from *Chunk) {
	c.References++
	if from == nil {
		return
	}
	for _, r := range c.ReferencedBy {
		if r == from {
			return
		}
	}
	c.ReferencedBy = append(c.ReferencedBy, from)
}

// Text joins the chunk's text and code runs.
func (c *Chunk) Text() string {
	var b strings.Builder
	for _, cmd := range c.Commands {
		if cmd.Kind == TextCommand || cmd.Kind == CodeCommand {
			b.WriteString(cmd.Text)
		}
	}
	return b.String()
}

// IsAbbreviation reports whether name ends with the "..." suffix.
func IsAbbreviation(name string) bool {
	return strings.HasSuffix(name, "...")
}
