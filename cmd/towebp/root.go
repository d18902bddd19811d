package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ah-its-andy/towebp/internal/config"
	"github.com/ah-its-andy/towebp/internal/converter"
)

// rootFlags mirrors the config keys that can be overridden on the command
// line. Only flags the user actually set are applied.
type rootFlags struct {
	configPath    string
	output        string
	quality       int
	recursive     bool
	concurrent    int
	replace       bool
	replacePolicy string
	sortPaths     bool
	preserveTime  bool
	codec         string
	codecPath     string
	historyDB     string
	logLevel      string
	logFormat     string
	httpPort      int
	noProgress    bool
}

func newRootCommand() *cobra.Command {
	converter.RegisterBuiltins()

	flags := &rootFlags{}
	ctx := newCommandContext(flags)
	def := config.Default()

	rootCmd := &cobra.Command{
		Use:   "towebp <input>",
		Short: "Convert images to WebP",
		Long: "Convert a single image, or every image in a directory, to WebP " +
			"using an external encoder.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, ctx, args[0])
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Configuration file path (TOML)")
	pf.StringVarP(&flags.output, "output", "o", "", "Output file or directory (default: next to the input)")
	pf.IntVarP(&flags.quality, "quality", "q", def.Quality, "Encoder quality (0-100)")
	pf.BoolVarP(&flags.recursive, "recursive", "r", false, "Recurse into subdirectories")
	pf.IntVarP(&flags.concurrent, "concurrent", "c", def.Concurrent, "Maximum parallel conversions")
	pf.BoolVar(&flags.replace, "replace", false, "Delete originals after conversion")
	pf.StringVar(&flags.replacePolicy, "replace-policy", def.ReplacePolicy, "Which originals --replace deletes: all or success")
	pf.BoolVar(&flags.sortPaths, "sort", false, "Process files in lexicographic path order")
	pf.BoolVar(&flags.preserveTime, "preserve-time", false, "Set output mtime to the source capture time")
	pf.StringVar(&flags.codec, "codec", def.Codec, "Encoder to use ("+strings.Join(converter.Names(), ", ")+")")
	pf.StringVar(&flags.codecPath, "codec-path", "", "Encoder executable (default: looked up on PATH)")
	pf.StringVar(&flags.historyDB, "history-db", "", "SQLite file to record conversion history in")
	pf.StringVar(&flags.logLevel, "log-level", def.LogLevel, "Log level: debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", def.LogFormat, "Log format: console or json")
	pf.IntVar(&flags.httpPort, "http-port", def.HTTPPort, "Port of the history API (serve, watch)")
	pf.BoolVar(&flags.noProgress, "no-progress", false, "Disable the progress bar")

	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))

	return rootCmd
}

