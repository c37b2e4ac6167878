// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package config loads the danger-index YAML configuration and applies
// environment overrides on top of the built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bonial-oss/vendor-danger-index/internal/cache"
	"github.com/bonial-oss/vendor-danger-index/internal/datasource/nvd"
	"github.com/bonial-oss/vendor-danger-index/internal/logger"
	"github.com/bonial-oss/vendor-danger-index/internal/scoring"
)

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "danger-index.yaml"

const appDirName = "vendor-danger-index"

// Environment variables that override file values.
const (
	EnvDataDir  = "DANGER_INDEX_DATA_DIR"
	EnvDatabase = "DANGER_INDEX_DATABASE"
	EnvCacheDir = "DANGER_INDEX_CACHE_DIR"
	EnvLogLevel = "DANGER_INDEX_LOG_LEVEL"
	EnvNVDKey   = "NVD_API_KEY"
)

// Config is the full runtime configuration.
type Config struct {
	DataDir  string          `yaml:"data_dir"`
	Database string          `yaml:"database"`
	CacheDir string          `yaml:"cache_dir"`
	CacheTTL time.Duration   `yaml:"cache_ttl"`
	Weights  scoring.Weights `yaml:"weights"`
	NVD      NVD             `yaml:"nvd"`
	Log      Log             `yaml:"log"`
}

// NVD configures the CVE feed.
type NVD struct {
	APIKey     string        `yaml:"api_key"`
	Years      int           `yaml:"years"`
	WindowDays int           `yaml:"window_days"`
	Severity   string        `yaml:"severity"`
	PageSize   int           `yaml:"page_size"`
	PageDelay  time.Duration `yaml:"page_delay"`
}

// Log configures the global logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	n := nvd.DefaultOptions()
	return &Config{
		DataDir:  "data",
		Database: filepath.Join("data", "danger_index.db"),
		CacheTTL: cache.DefaultTTL,
		Weights:  scoring.DefaultWeights(),
		NVD: NVD{
			Years:      n.Years,
			WindowDays: n.WindowDays,
			Severity:   n.Severity,
			PageSize:   n.PageSize,
			PageDelay:  n.PageDelay,
		},
		Log: Log{Level: "info", Format: string(logger.FormatText)},
	}
}

// Load reads path on top of the defaults. An empty path tries DefaultFile
// and silently falls back to defaults when it does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return cfg, nil
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides values with any environment variables that are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvNVDKey); v != "" {
		c.NVD.APIKey = v
	}
}

// Validate checks the log and NVD settings. Weights are validated by the
// commands that score, after flag overrides are applied.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch logger.Format(c.Log.Format) {
	case logger.FormatText, logger.FormatJSON, "":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.NVD.Years < 1 || c.NVD.WindowDays < 1 || c.NVD.WindowDays > 120 {
		return fmt.Errorf("nvd: years must be >= 1 and window_days within 1..120")
	}
	return nil
}

// ResolveCacheDir returns CacheDir, or a directory under XDG_DATA_HOME
// (falling back to the home directory) when it is unset.
func (c *Config) ResolveCacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appDirName), nil
}

// NVDOptions converts the NVD section to source options.
func (c *Config) NVDOptions() nvd.Options {
	return nvd.Options{
		APIKey:     c.NVD.APIKey,
		Years:      c.NVD.Years,
		WindowDays: c.NVD.WindowDays,
		Severity:   c.NVD.Severity,
		PageSize:   c.NVD.PageSize,
		PageDelay:  c.NVD.PageDelay,
	}
}

// DataFile returns name inside the data directory.
func (c *Config) DataFile(name string) string {
	return filepath.Join(c.DataDir, name)
}
