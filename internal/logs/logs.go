// Package logs builds the run logger: a text handler for the console
// fanned out with a Tally that counts what was reported.
package logs

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	slogmulti "github.com/samber/slog-multi"
)

// Options configures New.
type Options struct {
	Level slog.Leveler // Console level; defaults to Info
	JSON  bool         // JSON records instead of key=value text
}

// New returns a logger writing to w. Every warning and error is also
// counted by the returned Tally, whatever the console level.
func New(w io.Writer, opts Options) (*slog.Logger, *Tally) {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	ho := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	if opts.JSON {
		console = slog.NewJSONHandler(w, ho)
	} else {
		console = slog.NewTextHandler(w, ho)
	}

	tally := &Tally{counts: new(counts)}
	return slog.New(slogmulti.Fanout(console, tally)), tally
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type counts struct {
	errors   atomic.Int64
	warnings atomic.Int64
}

// Tally is a slog.Handler counting warning and error records. Derived
// handlers share the counts of their parent.
type Tally struct {
	counts *counts
}

func (t *Tally) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn
}

func (t *Tally) Handle(_ context.Context, r slog.Record) error {
	switch {
	case r.Level >= slog.LevelError:
		t.counts.errors.Add(1)
	case r.Level >= slog.LevelWarn:
		t.counts.warnings.Add(1)
	}
	return nil
}

func (t *Tally) WithAttrs([]slog.Attr) slog.Handler { return t }

func (t *Tally) WithGroup(string) slog.Handler { return t }

// Errors returns the number of error records seen.
func (t *Tally) Errors() int {
	return int(t.counts.errors.Load())
}

// Warnings returns the number of warning records seen.
func (t *Tally) Warnings() int {
	return int(t.counts.warnings.Load())
}

// Reset zeroes both counts.
func (t *Tally) Reset() {
	t.counts.errors.Store(0)
	t.counts.warnings.Store(0)
}
