// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bonial-oss/vendor-danger-index/internal/config"
	"github.com/bonial-oss/vendor-danger-index/internal/counts"
	"github.com/bonial-oss/vendor-danger-index/internal/logger"
	"github.com/bonial-oss/vendor-danger-index/internal/scoring"
	"github.com/bonial-oss/vendor-danger-index/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Exit codes beyond the generic failure.
const (
	ExitInput       = 2
	ExitWeights     = 3
	ExitPersistence = 4
)

// ExitError signals a non-zero exit code with an optional message.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// classify attaches an exit code to errors callers can act on.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	var upsertErr *store.UpsertError
	switch {
	case errors.Is(err, scoring.ErrInvalidWeights):
		return &ExitError{Code: ExitWeights, Err: err}
	case errors.Is(err, counts.ErrNotFound),
		errors.Is(err, counts.ErrMalformed),
		errors.Is(err, counts.ErrEmpty),
		errors.Is(err, counts.ErrNegativeCount):
		return &ExitError{Code: ExitInput, Err: err}
	case errors.As(err, &upsertErr):
		return &ExitError{Code: ExitPersistence, Err: err}
	}
	return err
}

// globalOptions holds the persistent flag values.
type globalOptions struct {
	ConfigPath   string
	LogLevel     string
	LogFormat    string
	CacheDir     string
	DataDir      string
	Database     string
	SkipDBUpdate bool
}

// app is the state shared by all subcommands once flags are parsed.
type app struct {
	opts globalOptions
	cfg  *config.Config
}

// NewRootCommand creates the root cobra command with all subcommands.
func NewRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:     "danger-index",
		Short:   "Rank software vendors by CVE, CISA KEV and ransomware exposure",
		Version: Version,
		Long: `danger-index combines three per-vendor counts (high severity CVEs from NVD,
entries in the CISA Known Exploited Vulnerabilities catalog and
vulnerabilities used by ransomware actors) into a 0-100 danger score.

Usage:
  danger-index fetch all
  danger-index populate
  danger-index list --top 20`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.opts.ConfigPath, "config", "", "Config file (default "+config.DefaultFile+" if present)")
	flags.StringVar(&a.opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.opts.LogFormat, "log-format", "", "Log format: text, json")
	flags.StringVar(&a.opts.CacheDir, "cache-dir", "", "Override cache directory")
	flags.StringVar(&a.opts.DataDir, "data-dir", "", "Directory holding the count files")
	flags.StringVar(&a.opts.Database, "database", "", "SQLite database path")
	flags.BoolVar(&a.opts.SkipDBUpdate, "skip-db-update", false, "Use cached feed data without update check")

	cmd.AddCommand(
		newFetchCommand(a),
		newScoreCommand(a),
		newPopulateCommand(a),
		newListCommand(a),
	)
	return cmd
}

// init loads the configuration, layers environment and flags on top and
// sets up the logger.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.opts.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.opts.LogFormat
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = a.opts.CacheDir
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = a.opts.DataDir
	}
	if flags.Changed("database") {
		cfg.Database = a.opts.Database
	}

	if err := cfg.Validate(); err != nil {
		return classify(fmt.Errorf("invalid configuration: %w", err))
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if err := logger.Init(os.Stderr, level, logger.Format(cfg.Log.Format)); err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}
