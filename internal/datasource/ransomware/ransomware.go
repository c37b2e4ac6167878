// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package ransomware counts vulnerabilities exploited by ransomware actors
// per vendor, using the markdown tables of the Ransomware Vulnerability
// Matrix.
package ransomware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bonial-oss/vendor-danger-index/internal/cache"
	"github.com/bonial-oss/vendor-danger-index/internal/counts"
	"github.com/bonial-oss/vendor-danger-index/internal/httpx"
	"github.com/bonial-oss/vendor-danger-index/internal/logger"
	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

const (
	cacheFilename   = "ransomware_counts.json"
	baseURL         = "https://raw.githubusercontent.com/BushidoUK/Ransomware-Vulnerability-Matrix/main/Vulnerabilities/"
	maxResponseSize = 10 * 1024 * 1024
)

// MatrixFile is one markdown page of the matrix. When MapAllTo is set,
// every table in the file is attributed to that vendor.
type MatrixFile struct {
	Name     string
	MapAllTo string
}

// DefaultFiles are the matrix pages that carry vendor tables. The
// Microsoft page only lists Microsoft products under product headers.
var DefaultFiles = []MatrixFile{
	{Name: "Applications.md"},
	{Name: "FileTransferServers.md"},
	{Name: "Linux.md"},
	{Name: "Microsoft.md", MapAllTo: "Microsoft"},
	{Name: "NetworkEdge.md"},
	{Name: "Virtualization.md"},
}

// Source provides ransomware matrix counts with caching support.
type Source struct {
	cache   *cache.Cache
	client  *http.Client
	baseURL string
	files   []MatrixFile
	counts  types.VendorCounts
}

// NewSource creates a ransomware source with its cache under
// cacheDir/ransomware/.
func NewSource(cacheDir string, ttl time.Duration, client *http.Client) *Source {
	return &Source{
		cache:   cache.New(filepath.Join(cacheDir, "ransomware"), ttl),
		client:  client,
		baseURL: baseURL,
		files:   DefaultFiles,
	}
}

// Name identifies the source in logs.
func (s *Source) Name() string { return "ransomware" }

// Counts returns the loaded counts per vendor.
func (s *Source) Counts() types.VendorCounts {
	return s.counts
}

// Load fetches and parses the matrix, using cache when appropriate.
func (s *Source) Load(ctx context.Context, skipUpdate bool) error {
	if skipUpdate && s.cache.Exists(cacheFilename) {
		return s.loadFromCache()
	}

	if s.cache.IsFresh() {
		return s.loadFromCache()
	}

	c, err := s.download(ctx)
	if err == nil {
		data, err := counts.Marshal(c)
		if err != nil {
			return err
		}
		if storeErr := s.cache.Store(cacheFilename, s.baseURL, data); storeErr != nil {
			return fmt.Errorf("storing ransomware counts in cache: %w", storeErr)
		}
		s.counts = c
		return nil
	}

	if s.cache.Exists(cacheFilename) && ctx.Err() == nil {
		logger.Warn("Failed to download ransomware matrix, using stale cache", "error", err)
		return s.loadFromCache()
	}

	return fmt.Errorf("downloading ransomware matrix: %w", err)
}

func (s *Source) loadFromCache() error {
	data, err := s.cache.Load(cacheFilename)
	if err != nil {
		return fmt.Errorf("loading ransomware counts from cache: %w", err)
	}
	c, err := counts.Parse(data)
	if errors.Is(err, counts.ErrEmpty) {
		c, err = types.VendorCounts{}, nil
	}
	if err != nil {
		return fmt.Errorf("parsing cached ransomware counts: %w", err)
	}
	s.counts = c
	return nil
}

// download fetches every matrix page. Pages that fail are logged and
// skipped; it is an error only when none could be fetched.
func (s *Source) download(ctx context.Context) (types.VendorCounts, error) {
	total := make(types.VendorCounts)
	var errs []error
	for _, f := range s.files {
		url := s.baseURL + f.Name
		data, err := httpx.Get(ctx, s.client, url, maxResponseSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Failed to fetch ransomware matrix page", "file", f.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
			continue
		}
		for vendor, n := range ParseMarkdown(string(data), f.MapAllTo) {
			total[vendor] += n
		}
	}
	if len(errs) == len(s.files) {
		return nil, errors.Join(errs...)
	}
	logger.Info("Parsed ransomware matrix", "vendors", len(total), "failed_pages", len(errs))
	return total, nil
}

// ParseMarkdown counts table data rows under each "### `Vendor`" header.
// Header and separator rows of a table are not counted. A vendor header
// with an empty table is recorded with a count of 0.
func ParseMarkdown(content, mapAllTo string) types.VendorCounts {
	c := make(types.VendorCounts)
	var current string
	prevWasRow := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "### `") && strings.HasSuffix(line, "`"):
			current = strings.Trim(line, "# `")
			if mapAllTo != "" {
				current = mapAllTo
			}
			if _, ok := c[current]; !ok {
				c[current] = 0
			}
			prevWasRow = false
		case current == "" || !strings.Contains(line, "|"):
			prevWasRow = false
		case isSeparatorRow(line):
			// The row above a separator is the table header.
			if prevWasRow && c[current] > 0 {
				c[current]--
			}
			prevWasRow = false
		default:
			c[current]++
			prevWasRow = true
		}
	}
	return c
}

// isSeparatorRow reports whether line is a markdown table delimiter row
// such as "|---|:---:|".
func isSeparatorRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.Contains(trimmed, "-") {
		return false
	}
	for _, r := range trimmed {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}
