package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/litweb/internal/config"
	"github.com/dgallion1/litweb/internal/parser"
	"github.com/dgallion1/litweb/internal/tangle"
	"github.com/dgallion1/litweb/internal/weave"
	"github.com/dgallion1/litweb/internal/web"
)

// Worker processes a single web job. A worker owns no state between
// jobs: every job gets its own reader, tangler and weaver.
type Worker struct {
	cfg     config.Config
	log     *slog.Logger
	version string
}

func NewWorker(cfg config.Config, version string, log *slog.Logger) *Worker {
	return &Worker{cfg: cfg, version: version, log: log}
}

// Process loads, tangles and weaves the job's web. A web with syntax
// errors is neither tangled nor woven.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "web", job.Path)

	// Phase 1: Load
	job.SetStatus(StatusLoading, "loading")
	ld, err := Load(w.cfg, w.version, job.Path, log)
	if err != nil {
		log.Error("load failed", "error", err)
		job.AddError(fmt.Sprintf("read: %s", err))
		job.finish(StatusFailed, "loading")
		return
	}
	wb := ld.Web
	job.SetLoaded(wb, ld.Lines, ld.Errors, ContentHashHex(ld.Data))
	log.Info("loaded", "lines", ld.Lines, "chunks", len(wb.Chunks))

	if ld.Errors > 0 {
		job.AddError(fmt.Sprintf("%d syntax errors in the web", ld.Errors))
		job.finish(StatusFailed, "loading")
		return
	}

	hadErrors := false
	succeeded := false
	failedIn := ""

	// Phase 2: Tangle
	if !w.cfg.SkipTangle {
		if ctx.Err() != nil {
			job.AddError(ctx.Err().Error())
			job.finish(StatusFailed, "tangling")
			return
		}
		job.SetStatus(StatusTangling, "tangling")
		t := tangle.New(outputDir(w.cfg, job.Path), log)
		t.LineNumbers = w.cfg.LineNumbers
		t.Confine = job.Confine
		if err := t.Emit(wb); err != nil {
			job.AddError(err.Error())
			hadErrors = true
			failedIn = "tangling"
		}
		job.AddOutputs(t.Written(), t.Unchanged())
		if len(t.Written())+len(t.Unchanged()) > 0 {
			succeeded = true
		}
	}

	// Phase 3: Weave
	if !w.cfg.SkipWeave {
		if ctx.Err() != nil {
			job.AddError(ctx.Err().Error())
			job.finish(StatusFailed, "weaving")
			return
		}
		job.SetStatus(StatusWeaving, "weaving")
		v := weave.New(w.cfg.OutputDir, log)
		if err := v.SetMarkup(w.cfg.Markup); err != nil {
			job.AddError(err.Error())
			hadErrors = true
			failedIn = "weaving"
		} else if err := v.Emit(wb); err != nil {
			log.Error("weave failed", "error", err)
			job.AddError(err.Error())
			hadErrors = true
			failedIn = "weaving"
		} else {
			job.SetDocument(v.TargetPath(wb))
			succeeded = true
		}
	}

	switch {
	case hadErrors && succeeded:
		job.finish(StatusPartial, "done")
	case hadErrors:
		job.finish(StatusFailed, failedIn)
	default:
		job.finish(StatusCompleted, "done")
	}
}

// outputDir is where files of the web at path are written: the
// configured directory, or the web's own.
func outputDir(cfg config.Config, path string) string {
	if cfg.OutputDir != "" {
		return cfg.OutputDir
	}
	return filepath.Dir(path)
}

// Loaded is a parsed web with its source bytes.
type Loaded struct {
	Web    *web.Web
	Data   []byte
	Lines  int
	Errors int // Syntax errors logged while parsing
}

// Load reads and parses the web at path with the reader settings of cfg.
// Syntax errors are logged and counted; only read failures are returned.
func Load(cfg config.Config, version, path string, log *slog.Logger) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	subst := parser.DefaultSubstitutions(version, time.Now())
	for k, v := range cfg.Substitutions {
		subst[k] = v
	}
	r := parser.New(log,
		parser.WithCommand(cfg.CommandRune()),
		parser.WithPermit(cfg.Permit...),
		parser.WithSubstitutions(subst),
	)
	chunks, err := r.Load(path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	w := web.New(chunks)
	w.Path = path
	return &Loaded{Web: w, Data: data, Lines: r.Lines(), Errors: r.Errors()}, nil
}
