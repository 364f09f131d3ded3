// Package parser reads a web source into chunks: a tokenizer for the @
// control commands and a state-machine reader with error recovery and
// nested includes.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/litweb/internal/web"
)

// Sink receives the reader's diagnostics. *slog.Logger satisfies it.
type Sink interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// SupportedExtensions lists the file extensions treated as webs when a
// directory is given instead of a file.
var SupportedExtensions = map[string]bool{
	".w":   true,
	".web": true,
}

// IsSupportedExtension checks if a file extension names a web.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Option configures a Reader.
type Option func(*Reader)

// WithCommand sets the command character.
func WithCommand(c rune) Option {
	return func(r *Reader) {
		if c != 0 {
			r.command = c
		}
	}
}

// WithPermit downgrades failures of the listed commands to warnings.
// Only "@i" (missing include files) is currently honoured.
func WithPermit(commands ...string) Option {
	return func(r *Reader) {
		for _, c := range commands {
			r.permit[strings.TrimSpace(c)] = true
		}
	}
}

// WithSubstitutions sets the values available to @( name @).
func WithSubstitutions(s Substitutions) Option {
	return func(r *Reader) {
		for k, v := range s {
			r.subst[k] = v
		}
	}
}

// Reader loads webs. A Reader keeps its error count across loads.
type Reader struct {
	log     Sink
	command rune
	permit  map[string]bool
	subst   Substitutions

	errors    int
	lines     int
	including []string // Absolute paths of the files being read
}

// New returns a reader that reports to log.
func New(log Sink, opts ...Option) *Reader {
	r := &Reader{
		log:     log,
		command: DefaultCommand,
		permit:  make(map[string]bool),
		subst:   make(Substitutions),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Errors returns the number of parse errors seen so far.
func (r *Reader) Errors() int {
	return r.errors
}

// Lines returns the number of source lines read so far, includes counted.
func (r *Reader) Lines() int {
	return r.lines
}

// LoadFile opens and loads the web at path.
func (r *Reader) LoadFile(path string) ([]*web.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open web: %w", err)
	}
	defer f.Close()
	return r.Load(path, f)
}

func (r *Reader) errorf(format string, args ...any) {
	r.errors++
	r.log.Error(fmt.Sprintf(format, args...))
}

func (r *Reader) warnf(format string, args ...any) {
	r.log.Warn(fmt.Sprintf(format, args...))
}
