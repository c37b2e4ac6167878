// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bonial-oss/vendor-danger-index/internal/counts"
	"github.com/bonial-oss/vendor-danger-index/internal/datasource/kev"
	"github.com/bonial-oss/vendor-danger-index/internal/datasource/nvd"
	"github.com/bonial-oss/vendor-danger-index/internal/datasource/ransomware"
	"github.com/bonial-oss/vendor-danger-index/internal/httpx"
	"github.com/bonial-oss/vendor-danger-index/internal/logger"
	"github.com/bonial-oss/vendor-danger-index/internal/scoring"
	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

// countSource is a feed that produces vendor counts.
type countSource interface {
	Name() string
	Load(ctx context.Context, skipUpdate bool) error
	Counts() types.VendorCounts
}

// fetchTarget pairs a source with the file its counts are written to.
type fetchTarget struct {
	source countSource
	file   string
}

const sourceAll = "all"

func newFetchCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:       "fetch {cve|kev|ransomware|all}",
		Short:     "Download a feed and write its per-vendor counts",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"cve", "kev", "ransomware", sourceAll},
		RunE: func(cmd *cobra.Command, args []string) error {
			return classify(a.fetch(cmd.Context(), args[0], output))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write counts to this file instead of the data dir (single source only)")
	return cmd
}

// targets builds the fetch targets for name, or every source for "all".
func (a *app) targets(name string) ([]fetchTarget, error) {
	cacheDir, err := a.cfg.ResolveCacheDir()
	if err != nil {
		return nil, err
	}
	ttl := a.cfg.CacheTTL
	client := httpx.NewClient(httpx.DefaultOptions())
	// NVD paging handles its own retries and rate limiting.
	nvdClient := &http.Client{Timeout: 2 * time.Minute}

	all := map[string]fetchTarget{
		"cve":        {nvd.NewSource(cacheDir, ttl, nvdClient, a.cfg.NVDOptions()), a.cfg.DataFile(counts.CVEFile)},
		"kev":        {kev.NewSource(cacheDir, ttl, client), a.cfg.DataFile(counts.CISAFile)},
		"ransomware": {ransomware.NewSource(cacheDir, ttl, client), a.cfg.DataFile(counts.RansomwareFile)},
	}
	if name == sourceAll {
		return []fetchTarget{all["cve"], all["kev"], all["ransomware"]}, nil
	}
	t, ok := all[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}
	return []fetchTarget{t}, nil
}

func (a *app) fetch(ctx context.Context, name, output string) error {
	targets, err := a.targets(name)
	if err != nil {
		return err
	}
	if output != "" {
		if len(targets) != 1 {
			return &ExitError{Code: ExitInput, Message: "--output requires a single source"}
		}
		targets[0].file = output
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			start := time.Now()
			if err := t.source.Load(gctx, a.opts.SkipDBUpdate); err != nil {
				return fmt.Errorf("loading %s data: %w", t.source.Name(), err)
			}
			c := t.source.Counts()
			if err := counts.Save(t.file, c); err != nil {
				return err
			}
			logger.InfoContext(gctx, "Wrote vendor counts",
				"source", t.source.Name(),
				"vendors", humanize.Comma(int64(len(c))),
				"total", humanize.Comma(int64(scoring.Total(c))),
				"file", t.file,
				"took", time.Since(start).Round(time.Millisecond),
			)
			return nil
		})
	}
	return g.Wait()
}
