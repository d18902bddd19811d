package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ah-its-andy/towebp/internal/config"
	"github.com/ah-its-andy/towebp/internal/converter"
	"github.com/ah-its-andy/towebp/internal/db"
	"github.com/ah-its-andy/towebp/internal/logging"
)

type commandContext struct {
	flags  *rootFlags
	config *config.Config
	log    *zap.SugaredLogger
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads and validates the layered configuration and builds
// the logger. It is safe to call more than once per command.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := config.Load(c.flags.configPath)
	if err != nil {
		return nil, err
	}
	c.flags.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}
	c.config = cfg
	c.log = log
	return cfg, nil
}

// apply copies every flag the user set onto cfg.
func (f *rootFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("output") {
		cfg.Output = f.output
	}
	if changed("quality") {
		cfg.Quality = f.quality
	}
	if changed("recursive") {
		cfg.Recursive = f.recursive
	}
	if changed("concurrent") {
		cfg.Concurrent = f.concurrent
	}
	if changed("replace") {
		cfg.Replace = f.replace
	}
	if changed("replace-policy") {
		cfg.ReplacePolicy = f.replacePolicy
	}
	if changed("sort") {
		cfg.SortPaths = f.sortPaths
	}
	if changed("preserve-time") {
		cfg.PreserveTime = f.preserveTime
	}
	if changed("codec") {
		cfg.Codec = f.codec
	}
	if changed("codec-path") {
		cfg.CodecPath = f.codecPath
	}
	if changed("history-db") {
		cfg.HistoryDB = f.historyDB
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if changed("http-port") {
		cfg.HTTPPort = f.httpPort
	}
}

func (c *commandContext) codec() (converter.Codec, error) {
	return converter.Get(c.config.Codec, c.config.CodecPath)
}

// openHistory opens the history database, or returns nil when none is
// configured.
func (c *commandContext) openHistory() (*db.DB, error) {
	if c.config.HistoryDB == "" {
		return nil, nil
	}
	store, err := db.Open(c.config.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", c.config.HistoryDB, err)
	}
	return store, nil
}

// requireHistory is openHistory for commands that cannot run without it.
func (c *commandContext) requireHistory() (*db.DB, error) {
	if c.config.HistoryDB == "" {
		return nil, fmt.Errorf("no history database configured (set --history-db or history_db)")
	}
	return c.openHistory()
}
