package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ah-its-andy/towebp/internal/api"
	"github.com/ah-its-andy/towebp/internal/progress"
	"github.com/ah-its-andy/towebp/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var serveAPI bool

	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Convert images as they appear in the given directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			codec, err := ctx.codec()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}
			withAPI := serveAPI || cmd.Flags().Changed("http-port")
			if withAPI && store == nil {
				return fmt.Errorf("serving the history API needs a history database (--history-db)")
			}

			orch := ctx.newOrchestrator(cmd, codec, store,
				func(total int) progress.Tracker { return progress.NewCounter(total) })

			var history watcher.History
			if store != nil {
				history = store
			}
			w, err := watcher.New(args, orch, history, watcher.Options{
				Output:          cfg.Output,
				TargetExt:       codec.TargetFormat(),
				Interval:        time.Duration(cfg.WatchIntervalSec) * time.Second,
				StabilityDelay:  time.Duration(cfg.StabilityDelaySec) * time.Second,
				StabilityChecks: cfg.StabilityChecks,
				MD5ChunkSize:    cfg.MD5ChunkSize,
				Batch:           ctx.batchOptions(codec, strings.Join(args, ","), "watch"),
			}, ctx.log)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error { return w.Run(gctx) })
			if withAPI {
				srv := api.NewServer(store, w, ctx.log)
				g.Go(func() error { return srv.ListenAndServe(gctx, cfg.HTTPAddr()) })
			}
			err = g.Wait()
			ctx.log.Info("watcher stopped")
			return err
		},
	}
	cmd.Flags().BoolVar(&serveAPI, "api", false, "Also serve the history API on http_port (implied by --http-port)")
	return cmd
}
