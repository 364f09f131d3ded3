package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/litweb/internal/config"
	"github.com/dgallion1/litweb/internal/logs"
	"github.com/dgallion1/litweb/internal/weave"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

// errReported means the failure has already been logged.
var errReported = errors.New("errors reported")

type options struct {
	configFile  string
	command     string
	markup      string
	output      string
	permit      []string
	lineNumbers bool
	skip        []string
	workers     int
	verbose     bool
	debug       bool
	silent      bool
	addr        string

	stdout io.Writer
	stderr io.Writer

	cfg   config.Config // Resolved by setup
	log   *slog.Logger
	tally *logs.Tally
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &options{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "litweb [flags] FILE.w...",
		Short: "litweb - literate programming: tangle code and weave documents from webs",
		Long: `litweb reads literate webs: prose interleaved with named code chunks.

Tangling writes every @o output file, expanding chunk references with the
indentation of each reference. Weaving writes one document per web in a
markup such as rst, html, tex or markdown.

With no subcommand, litweb tangles and weaves each web given.`,
		Args:          cobra.ArbitraryArgs,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return o.build(cmd.Context(), args)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&o.configFile, "config", "", "YAML configuration file")
	pf.StringVarP(&o.command, "command", "c", "@", "Command character")
	pf.StringVarP(&o.markup, "weaver", "w", weave.DefaultMarkup, fmt.Sprintf("Weave markup %v", weave.Names()))
	pf.StringVarP(&o.output, "output", "o", "", "Output directory (default: next to each web)")
	pf.StringSliceVarP(&o.permit, "permit", "p", nil, "Commands whose failures only warn, e.g. @i")
	pf.BoolVarP(&o.lineNumbers, "line-numbers", "n", false, "Mark tangled code with source line numbers")
	pf.StringSliceVarP(&o.skip, "skip", "x", nil, "Skip a phase: t (tangle) or w (weave)")
	pf.IntVar(&o.workers, "workers", 4, "Webs processed concurrently")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "Log progress")
	pf.BoolVarP(&o.debug, "debug", "d", false, "Log debugging detail")
	pf.BoolVarP(&o.silent, "silent", "s", false, "Log warnings and errors only")

	root.AddCommand(newTangleCmd(o), newWeaveCmd(o), newServeCmd(o))
	return root
}

// setup resolves the configuration: environment, then --config, then
// flags given explicitly. It builds the logger.
func (o *options) setup(cmd *cobra.Command) error {
	cfg := config.Load()
	if o.configFile != "" {
		var err error
		if cfg, err = config.LoadFile(o.configFile); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("command") {
		cfg.Command = o.command
	}
	if flags.Changed("weaver") {
		cfg.Markup = o.markup
	}
	if flags.Changed("output") {
		cfg.OutputDir = o.output
	}
	if flags.Changed("permit") {
		cfg.Permit = o.permit
	}
	if flags.Changed("line-numbers") {
		cfg.LineNumbers = o.lineNumbers
	}
	if flags.Changed("workers") {
		cfg.WorkerCount = o.workers
	}
	if flags.Changed("addr") {
		cfg.Addr = o.addr
	}
	for _, s := range o.skip {
		switch s {
		case "t":
			cfg.SkipTangle = true
		case "w":
			cfg.SkipWeave = true
		default:
			return fmt.Errorf("unknown phase %q for --skip (want t or w)", s)
		}
	}
	switch {
	case o.debug:
		cfg.LogLevel = "debug"
	case o.verbose:
		cfg.LogLevel = "info"
	case o.silent:
		cfg.LogLevel = "warn"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, ok := weave.Lookup(cfg.Markup); !ok && !cfg.SkipWeave {
		return fmt.Errorf("unknown markup %q (have %v)", cfg.Markup, weave.Names())
	}

	level, _ := cfg.Level()
	o.log, o.tally = logs.New(o.stderr, logs.Options{Level: level, JSON: cfg.LogJSON})
	o.cfg = cfg
	return nil
}

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "litweb:", err)
		}
		os.Exit(1)
	}
}
