package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/litweb/internal/parser"
	"github.com/dgallion1/litweb/internal/pipeline"
	"github.com/spf13/cobra"
)

func newTangleCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tangle FILE.w...",
		Short: "Write the output files of each web",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.cfg.SkipWeave = true
			return o.build(cmd.Context(), args)
		},
	}
}

func newWeaveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "weave FILE.w...",
		Short: "Write the document of each web",
		Long: `Write the document of each web in the markup chosen with -w.

Markups: rst (default), html, tex, tex-minted, markdown, md-html, debug.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.cfg.SkipTangle = true
			return o.build(cmd.Context(), args)
		},
	}
}

// build runs the pipeline over the webs named by args and prints one
// summary line per web, then the run's error and warning counts. Any
// failure or logged error fails the command.
func (o *options) build(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paths, err := expandWebs(args)
	if err != nil {
		return err
	}

	o.tally.Reset()
	orch := pipeline.NewOrchestrator(o.cfg, version, o.log)
	orch.Start(ctx)
	defer orch.Stop()

	snaps, err := orch.Run(ctx, paths)
	if err != nil {
		return err
	}

	failed := false
	for _, s := range snaps {
		fmt.Fprintln(o.stdout, summaryLine(s))
		if s.Status != pipeline.StatusCompleted {
			failed = true
		}
	}
	fmt.Fprintf(o.stdout, "%d webs: %d errors, %d warnings\n", len(snaps), o.tally.Errors(), o.tally.Warnings())
	if failed || o.tally.Errors() > 0 {
		return errReported
	}
	return nil
}

// expandWebs replaces directory arguments with the webs they contain.
func expandWebs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("open web: %w", err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory: %w", err)
		}
		found := false
		for _, e := range entries {
			if !e.IsDir() && parser.IsSupportedExtension(e.Name()) {
				paths = append(paths, filepath.Join(arg, e.Name()))
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("no webs in %s", arg)
		}
	}
	return paths, nil
}

func summaryLine(s pipeline.JobSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s, %d lines, %d chunks", s.Path, s.Status, s.Summary.Lines, s.Summary.Chunks)
	if n := len(s.Summary.Written); n > 0 {
		fmt.Fprintf(&b, ", %d written", n)
	}
	if n := len(s.Summary.Unchanged); n > 0 {
		fmt.Fprintf(&b, ", %d unchanged", n)
	}
	if s.Summary.Document != "" {
		fmt.Fprintf(&b, ", woven to %s", s.Summary.Document)
	}
	for _, e := range s.Summary.Errors {
		fmt.Fprintf(&b, "\n  %s", e)
	}
	return b.String()
}
