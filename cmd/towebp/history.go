package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ah-its-andy/towebp/internal/db"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var failures bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversion batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(cmd); err != nil {
				return err
			}
			store, err := ctx.requireHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if failures {
				b, err := store.LatestBatch()
				if errors.Is(err, db.ErrNotFound) {
					fmt.Fprintln(out, "No batches recorded.")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderFailures(b))
				return nil
			}

			batches, total, err := store.ListBatches(limit, 0)
			if err != nil {
				return err
			}
			if len(batches) == 0 {
				fmt.Fprintln(out, "No batches recorded.")
				return nil
			}
			fmt.Fprintln(out, renderBatches(batches))
			fmt.Fprintf(out, "Showing %d of %d batches.\n", len(batches), total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of batches to show")
	cmd.Flags().BoolVar(&failures, "failures", false, "List the failed jobs of the latest batch")
	return cmd
}

func renderBatches(batches []db.Batch) string {
	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, []string{
			shortID(b.ID),
			b.StartedAt.Local().Format("2006-01-02 15:04:05"),
			b.Mode,
			b.Root,
			b.Codec,
			strconv.Itoa(b.Total),
			strconv.Itoa(b.Succeeded),
			strconv.Itoa(b.Failed),
			strconv.Itoa(b.Deleted),
			b.EndedAt.Sub(b.StartedAt).Round(time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"ID", "Started", "Mode", "Root", "Codec", "Total", "OK", "Failed", "Deleted", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderFailures(b *db.Batch) string {
	var rows [][]string
	for _, j := range b.Jobs {
		if j.Status != db.StatusFailed {
			continue
		}
		rows = append(rows, []string{strconv.Itoa(j.Position + 1), j.InputPath, j.Error})
	}
	if len(rows) == 0 {
		return fmt.Sprintf("Batch %s had no failures.", shortID(b.ID))
	}
	return renderTable([]string{"#", "Input", "Error"}, rows, []columnAlignment{alignRight})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
