package web

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Compare with errors.Is.
var (
	ErrAmbiguous  = errors.New("ambiguous abbreviation")
	ErrNoFullName = errors.New("no full name")
	ErrUndefined  = errors.New("undefined chunk")
	ErrTangle     = errors.New("tangle error")
	ErrCycle      = errors.New("reference cycle")
)

// Error is a resolution or tangle failure tied to a source location.
type Error struct {
	Kind     error
	Location Location // Zero when the failure has no single source position
	Message  string
}

func (e *Error) Error() string {
	if e.Location.Name == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, loc Location, format string, args ...any) *Error {
	return &Error{Kind: kind, Location: loc, Message: fmt.Sprintf(format, args...)}
}

// AmbiguousError reports an abbreviation with several candidate names.
func AmbiguousError(target string, matches []string) *Error {
	return newError(ErrAmbiguous, Location{}, "ambiguous abbreviation '%s', matches %s", target, quoteList(matches))
}

// NoFullNameError reports an abbreviation that matches no defined name.
func NoFullNameError(loc Location, target string) *Error {
	return newError(ErrNoFullName, loc, "no full name for '%s'", target)
}

// UndefinedError reports a reference to a name with no definitions.
func UndefinedError(loc Location, name string) *Error {
	return newError(ErrUndefined, loc, "attempt to tangle an undefined chunk '%s'", name)
}

// TextTangleError reports prose found where code was expected.
func TextTangleError(loc Location, text string) *Error {
	return newError(ErrTangle, loc, "attempt to tangle a text block '%s'", snippet(text, 24))
}

// XrefTangleError reports a cross-reference marker found in code.
func XrefTangleError(loc Location) *Error {
	return newError(ErrTangle, loc, "illegal tangling of a cross reference")
}

// CycleError reports a chunk that references itself, directly or not.
func CycleError(loc Location, path []string) *Error {
	return newError(ErrCycle, loc, "reference cycle: %s", strings.Join(path, " -> "))
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func snippet(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n] + " [...]"
}

// Locate attaches loc to a resolution error raised without a location.
// Other errors are returned unchanged.
func Locate(err error, loc Location) error {
	var e *Error
	if errors.As(err, &e) && e.Location.Name == "" {
		return &Error{Kind: e.Kind, Location: loc, Message: e.Message}
	}
	return err
}
