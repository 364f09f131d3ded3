package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/litweb/internal/api"
	"github.com/dgallion1/litweb/internal/pipeline"
	"github.com/spf13/cobra"
)

func newServeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [DIR]",
		Short: "Serve a directory of webs over HTTP",
		Long: `Serve the webs in DIR (default: the current directory).

Chunks, cross references, woven documents and tangled files are rendered
on request. POST /api/webs/{web}/build writes outputs to disk.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return o.serve(root)
		},
	}
	cmd.Flags().StringVar(&o.addr, "addr", ":8090", "Listen address")
	return cmd
}

func (o *options) serve(root string) error {
	log := o.log
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orch := pipeline.NewOrchestrator(o.cfg, version, log)
	orch.Start(ctx)

	srv := api.NewServer(root, orch, log, o.cfg, version)
	httpServer := &http.Server{
		Addr:         o.cfg.Addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), o.cfg.ShutdownTimeout)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
		orch.Stop()
	}()

	log.Info("starting litweb", "addr", o.cfg.Addr, "root", root, "version", version)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		return errReported
	}
	<-done
	return nil
}
