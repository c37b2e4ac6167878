// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package kev counts CISA Known Exploited Vulnerabilities per vendor.
package kev

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bonial-oss/vendor-danger-index/internal/cache"
	"github.com/bonial-oss/vendor-danger-index/internal/httpx"
	"github.com/bonial-oss/vendor-danger-index/internal/logger"
	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

const (
	cacheFilename   = "known_exploited_vulnerabilities.json"
	primaryURL      = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	fallbackURL     = "https://raw.githubusercontent.com/cisagov/kev-data/main/known_exploited_vulnerabilities.json"
	maxResponseSize = 50 * 1024 * 1024 // 50 MB

	// UnknownVendor is used for catalog entries without a vendorProject.
	UnknownVendor = "Unknown"
)

// Source provides CISA KEV data with caching support.
type Source struct {
	cache   *cache.Cache
	client  *http.Client
	urls    []string
	catalog types.KEVCatalog
}

// NewSource creates a KEV source with its cache under cacheDir/kev/.
func NewSource(cacheDir string, ttl time.Duration, client *http.Client) *Source {
	return &Source{
		cache:  cache.New(filepath.Join(cacheDir, "kev"), ttl),
		client: client,
		urls:   []string{primaryURL, fallbackURL},
	}
}

// Name identifies the source in logs.
func (s *Source) Name() string { return "kev" }

// Load fetches the KEV catalog, using cache when appropriate.
//
// Logic:
//  1. If skipUpdate and cache exists -> load from cache.
//  2. If cache is fresh -> load from cache.
//  3. Download from the CISA feed, falling back to the GitHub mirror.
//  4. If download succeeds -> store in cache, parse.
//  5. If download fails and cache exists -> warn, load stale cache.
//  6. If download fails and no cache -> return error.
func (s *Source) Load(ctx context.Context, skipUpdate bool) error {
	if skipUpdate && s.cache.Exists(cacheFilename) {
		return s.loadFromCache()
	}

	if s.cache.IsFresh() {
		return s.loadFromCache()
	}

	data, origin, err := s.download(ctx)
	if err == nil {
		if err := s.parseJSON(data); err != nil {
			return err
		}
		if storeErr := s.cache.Store(cacheFilename, origin, data); storeErr != nil {
			return fmt.Errorf("storing KEV data in cache: %w", storeErr)
		}
		return nil
	}

	if s.cache.Exists(cacheFilename) {
		logger.Warn("Failed to download KEV data, using stale cache", "error", err)
		return s.loadFromCache()
	}

	return fmt.Errorf("downloading KEV data: %w", err)
}

// Counts returns the number of catalog entries per vendorProject.
func (s *Source) Counts() types.VendorCounts {
	return CountVendors(s.catalog.Vulnerabilities)
}

// CatalogVersion returns the version of the loaded catalog.
func (s *Source) CatalogVersion() string {
	return s.catalog.CatalogVersion
}

// CountVendors tallies entries by their vendorProject field.
func CountVendors(entries []types.KEVEntry) types.VendorCounts {
	counts := make(types.VendorCounts)
	for _, entry := range entries {
		vendor := entry.VendorProject
		if vendor == "" {
			vendor = UnknownVendor
		}
		counts[vendor]++
	}
	return counts
}

func (s *Source) loadFromCache() error {
	data, err := s.cache.Load(cacheFilename)
	if err != nil {
		return fmt.Errorf("loading KEV data from cache: %w", err)
	}
	return s.parseJSON(data)
}

// download tries each URL in order and returns the first success.
func (s *Source) download(ctx context.Context) ([]byte, string, error) {
	var errs []string
	for _, url := range s.urls {
		data, err := httpx.Get(ctx, s.client, url, maxResponseSize)
		if err == nil {
			return data, url, nil
		}
		logger.Debug("KEV download attempt failed", "url", url, "error", err)
		errs = append(errs, fmt.Sprintf("%s: %v", url, err))
	}
	return nil, "", fmt.Errorf("all KEV mirrors failed: %s", strings.Join(errs, "; "))
}

func (s *Source) parseJSON(data []byte) error {
	var catalog types.KEVCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("unmarshaling KEV catalog: %w", err)
	}
	s.catalog = catalog
	logger.Debug("Loaded KEV catalog", "version", catalog.CatalogVersion, "entries", len(catalog.Vulnerabilities))
	return nil
}
