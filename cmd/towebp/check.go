package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ah-its-andy/towebp/internal/converter"
	"github.com/ah-its-andy/towebp/internal/scanner"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the encoder executables are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			selected, err := ctx.codec()
			if err != nil {
				return err
			}

			var rows [][]string
			for _, info := range converter.ListInfo() {
				bin := info.Binary
				status := statusLabel(info.Available)
				if info.Name == selected.Name() {
					bin = selected.Binary()
					status = statusLabel(converter.Available(selected) == nil)
				}
				rows = append(rows, []string{info.Name, bin, info.TargetFormat, status})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Codec", "Binary", "Format", "Status"}, rows, nil))

			if err := converter.Available(selected); err != nil {
				return fmt.Errorf("selected codec %s is not usable: %w", cfg.Codec, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Using %s (%s).\n", selected.Name(), selected.Binary())
			fmt.Fprintf(cmd.OutOrStdout(), "Input formats: %s\n", strings.Join(scanner.Extensions(), ", "))
			return nil
		},
	}
}

func statusLabel(ok bool) string {
	if ok {
		return "found"
	}
	return "NOT FOUND"
}
