package main

import (
	"github.com/spf13/cobra"

	"github.com/ah-its-andy/towebp/internal/batch"
	"github.com/ah-its-andy/towebp/internal/converter"
	"github.com/ah-its-andy/towebp/internal/db"
	"github.com/ah-its-andy/towebp/internal/progress"
	"github.com/ah-its-andy/towebp/internal/scanner"
	"github.com/ah-its-andy/towebp/internal/worker"
)

func runConvert(cmd *cobra.Command, ctx *commandContext, input string) error {
	cfg, err := ctx.ensureConfig(cmd)
	if err != nil {
		return err
	}
	codec, err := ctx.codec()
	if err != nil {
		return err
	}

	plan, err := scanner.Resolve(scanner.Options{
		Input:     input,
		Output:    cfg.Output,
		Recursive: cfg.Recursive,
		Sort:      cfg.SortPaths,
		TargetExt: codec.TargetFormat(),
	})
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

	tracker := func(total int) progress.Tracker { return progress.NewTerminalBar(total) }
	if ctx.flags.noProgress {
		tracker = func(total int) progress.Tracker { return progress.NewCounter(total) }
	}
	orch := ctx.newOrchestrator(cmd, codec, store, tracker)

	opts := ctx.batchOptions(codec, plan.Root, plan.Mode.String())
	if plan.Mode == scanner.ModeSingle {
		return orch.RunSingle(cmd.Context(), plan.Jobs[0], opts)
	}
	orch.Run(cmd.Context(), plan.Jobs, opts)
	return nil
}

func (c *commandContext) newOrchestrator(cmd *cobra.Command, codec converter.Codec, store *db.DB, tracker batch.TrackerFactory) *batch.Orchestrator {
	cfg := c.config
	w := converter.NewWorker(codec, cfg.Quality,
		converter.WithPreserveTime(cfg.PreserveTime),
		converter.WithLogger(c.log))

	opts := []batch.Option{
		batch.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
		batch.WithLogger(c.log),
		batch.WithTrackerFactory(tracker),
	}
	if store != nil {
		opts = append(opts, batch.WithHistory(store, cfg.MD5ChunkSize))
	}
	return batch.New(worker.NewPool(w, c.log), opts...)
}

func (c *commandContext) batchOptions(codec converter.Codec, root, mode string) batch.Options {
	cfg := c.config
	return batch.Options{
		Concurrency:   cfg.Concurrent,
		Replace:       cfg.Replace,
		ReplacePolicy: cfg.ReplacePolicy,
		Root:          root,
		Mode:          mode,
		Codec:         codec.Name(),
		Quality:       cfg.Quality,
	}
}
