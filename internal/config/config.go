package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Replace policies decide which originals are removed after a batch.
const (
	ReplaceAll       = "all"
	ReplaceOnSuccess = "success"
)

// Config holds every tunable of a conversion run. Values are layered:
// defaults, then the optional TOML file, then TOWEBP_* environment
// variables, then command-line flags (applied by the CLI).
type Config struct {
	Output        string `toml:"output"`
	Quality       int    `toml:"quality"`
	Recursive     bool   `toml:"recursive"`
	Concurrent    int    `toml:"concurrent"`
	Replace       bool   `toml:"replace"`
	ReplacePolicy string `toml:"replace_policy"`
	SortPaths     bool   `toml:"sort"`
	PreserveTime  bool   `toml:"preserve_time"`
	Codec         string `toml:"codec"`
	CodecPath     string `toml:"codec_path"`
	HistoryDB     string `toml:"history_db"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	HTTPPort      int    `toml:"http_port"`

	WatchIntervalSec  int   `toml:"watch_interval"`
	StabilityDelaySec int   `toml:"stability_delay"`
	StabilityChecks   int   `toml:"stability_checks"`
	MD5ChunkSize      int64 `toml:"md5_chunk_size"`

	// Warnings collects environment values that were ignored because they
	// did not parse. The CLI logs them once a logger exists.
	Warnings []string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Quality:           80,
		Concurrent:        4,
		ReplacePolicy:     ReplaceAll,
		Codec:             "ffmpeg",
		LogLevel:          "info",
		LogFormat:         "console",
		HTTPPort:          8000,
		WatchIntervalSec:  5,
		StabilityDelaySec: 1,
		StabilityChecks:   5,
		MD5ChunkSize:      4 * 1024 * 1024,
	}
}

// Load builds a Config from defaults, the TOML file at path (or
// $TOWEBP_CONFIG when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("TOWEBP_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: %s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Output = getEnv("TOWEBP_OUTPUT", c.Output)
	c.Quality = c.getEnvInt("TOWEBP_QUALITY", c.Quality)
	c.Recursive = c.getEnvBool("TOWEBP_RECURSIVE", c.Recursive)
	c.Concurrent = c.getEnvInt("TOWEBP_CONCURRENT", c.Concurrent)
	c.Replace = c.getEnvBool("TOWEBP_REPLACE", c.Replace)
	c.ReplacePolicy = getEnv("TOWEBP_REPLACE_POLICY", c.ReplacePolicy)
	c.SortPaths = c.getEnvBool("TOWEBP_SORT", c.SortPaths)
	c.PreserveTime = c.getEnvBool("TOWEBP_PRESERVE_TIME", c.PreserveTime)
	c.Codec = getEnv("TOWEBP_CODEC", c.Codec)
	c.CodecPath = getEnv("TOWEBP_CODEC_PATH", c.CodecPath)
	c.HistoryDB = getEnv("TOWEBP_HISTORY_DB", c.HistoryDB)
	c.LogLevel = getEnv("TOWEBP_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("TOWEBP_LOG_FORMAT", c.LogFormat)
	c.HTTPPort = c.getEnvInt("TOWEBP_HTTP_PORT", c.HTTPPort)
	c.WatchIntervalSec = c.getEnvInt("TOWEBP_WATCH_INTERVAL", c.WatchIntervalSec)
	c.StabilityDelaySec = c.getEnvInt("TOWEBP_STABILITY_DELAY", c.StabilityDelaySec)
	c.StabilityChecks = c.getEnvInt("TOWEBP_STABILITY_CHECKS", c.StabilityChecks)
	c.MD5ChunkSize = c.getEnvInt64("TOWEBP_MD5_CHUNK_SIZE", c.MD5ChunkSize)
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 0 and 100, got %d", c.Quality)
	}
	if c.Concurrent < 1 {
		return fmt.Errorf("concurrent must be at least 1, got %d", c.Concurrent)
	}
	switch c.ReplacePolicy {
	case ReplaceAll, ReplaceOnSuccess:
	default:
		return fmt.Errorf("replace policy must be %q or %q, got %q", ReplaceAll, ReplaceOnSuccess, c.ReplacePolicy)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", c.LogFormat)
	}
	if strings.TrimSpace(c.Codec) == "" {
		return errors.New("codec must not be empty")
	}
	if c.WatchIntervalSec < 1 {
		return fmt.Errorf("watch interval must be at least 1 second, got %d", c.WatchIntervalSec)
	}
	if c.StabilityChecks < 2 {
		return fmt.Errorf("stability checks must be at least 2, got %d", c.StabilityChecks)
	}
	if c.MD5ChunkSize <= 0 {
		return fmt.Errorf("md5 chunk size must be positive, got %d", c.MD5ChunkSize)
	}
	return nil
}

// HTTPAddr is the listen address of the history API.
func (c *Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func (c *Config) getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		c.warnf("invalid integer value for %s: %s, using %d", key, v, def)
		return def
	}
	return i
}

func (c *Config) getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		c.warnf("invalid integer value for %s: %s, using %d", key, v, def)
		return def
	}
	return i
}

func (c *Config) getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		c.warnf("invalid boolean value for %s: %s, using %t", key, v, def)
		return def
	}
	return b
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}
