// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package nvd counts CVEs per vendor using the NVD CVE API 2.0. Vendors are
// taken from the CPE match criteria of each CVE configuration.
package nvd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sethvargo/go-retry"

	"github.com/bonial-oss/vendor-danger-index/internal/cache"
	"github.com/bonial-oss/vendor-danger-index/internal/counts"
	"github.com/bonial-oss/vendor-danger-index/internal/httpx"
	"github.com/bonial-oss/vendor-danger-index/internal/logger"
	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

const (
	cacheFilename = "cve_counts.json"
	apiEndpoint   = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	// maximum page size with the 2.0 API is 2000
	maxPageSize     = 2000
	maxResponseSize = 200 * 1024 * 1024
	timeLayout      = "2006-01-02T15:04:05.000Z"
)

// Options control which CVEs are counted and how the API is paged.
type Options struct {
	APIKey     string
	Years      int
	WindowDays int
	Severity   string
	PageSize   int
	PageDelay  time.Duration
}

// DefaultOptions counts HIGH severity CVEs published in the last five years,
// requested in 120-day windows. NVD asks for 6 seconds between requests.
func DefaultOptions() Options {
	return Options{
		Years:      5,
		WindowDays: 120,
		Severity:   "HIGH",
		PageSize:   maxPageSize,
		PageDelay:  6 * time.Second,
	}
}

// Window is a publication date range. The NVD API limits a single
// request range to 120 days.
type Window struct {
	Start time.Time
	End   time.Time
}

// Source provides CVE counts per vendor with caching support.
type Source struct {
	cache     *cache.Cache
	client    *http.Client
	endpoint  string
	opts      Options
	retryBase time.Duration
	now       func() time.Time
	counts    types.VendorCounts
}

// NewSource creates an NVD source with its cache under cacheDir/nvd/.
func NewSource(cacheDir string, ttl time.Duration, client *http.Client, opts Options) *Source {
	if opts.PageSize <= 0 || opts.PageSize > maxPageSize {
		opts.PageSize = maxPageSize
	}
	return &Source{
		cache:     cache.New(filepath.Join(cacheDir, "nvd"), ttl),
		client:    client,
		endpoint:  apiEndpoint,
		opts:      opts,
		retryBase: 6 * time.Second,
		now:       time.Now,
	}
}

// Name identifies the source in logs.
func (s *Source) Name() string { return "cve" }

// Counts returns the loaded CVE counts per vendor.
func (s *Source) Counts() types.VendorCounts {
	return s.counts
}

// Load fetches CVE counts, using cache when appropriate. The cache holds
// the aggregated counts rather than the raw API pages.
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
		if storeErr := s.cache.Store(cacheFilename, s.endpoint, data); storeErr != nil {
			return fmt.Errorf("storing CVE counts in cache: %w", storeErr)
		}
		s.counts = c
		return nil
	}

	if s.cache.Exists(cacheFilename) && ctx.Err() == nil {
		logger.Warn("Failed to download NVD data, using stale cache", "error", err)
		return s.loadFromCache()
	}

	return fmt.Errorf("downloading NVD data: %w", err)
}

func (s *Source) loadFromCache() error {
	data, err := s.cache.Load(cacheFilename)
	if err != nil {
		return fmt.Errorf("loading CVE counts from cache: %w", err)
	}
	c, err := counts.Parse(data)
	if errors.Is(err, counts.ErrEmpty) {
		c, err = types.VendorCounts{}, nil
	}
	if err != nil {
		return fmt.Errorf("parsing cached CVE counts: %w", err)
	}
	s.counts = c
	return nil
}

// Windows splits [start, end) into consecutive ranges of at most days days.
func Windows(start, end time.Time, days int) []Window {
	if days <= 0 {
		days = 120
	}
	var windows []Window
	for cur := start; cur.Before(end); {
		next := cur.AddDate(0, 0, days)
		if next.After(end) {
			next = end
		}
		windows = append(windows, Window{Start: cur, End: next})
		cur = next
	}
	return windows
}

func (s *Source) download(ctx context.Context) (types.VendorCounts, error) {
	end := s.now().UTC()
	start := end.AddDate(0, 0, -365*s.opts.Years)
	windows := Windows(start, end, s.opts.WindowDays)

	c := make(types.VendorCounts)
	var fetched int
	for i, w := range windows {
		if i > 0 {
			if err := sleep(ctx, s.opts.PageDelay); err != nil {
				return nil, err
			}
		}
		vulns, err := s.fetchWindow(ctx, w)
		if err != nil {
			return nil, err
		}
		fetched += len(vulns)
		CountVendors(vulns, c)
	}
	logger.Info("Fetched CVEs from NVD", "total", humanize.Comma(int64(fetched)), "vendors", len(c))
	return c, nil
}

// fetchWindow pages through every CVE published within w.
func (s *Source) fetchWindow(ctx context.Context, w Window) ([]types.NVDVulnerability, error) {
	var vulns []types.NVDVulnerability
	startIndex := 0
	total := -1
	for {
		page, err := s.fetchPage(ctx, w, startIndex)
		if err != nil {
			return nil, err
		}
		if total < 0 {
			total = page.TotalResults
			if total == 0 {
				logger.Debug("No vulnerabilities found for this interval", "start", w.Start.Format(timeLayout), "end", w.End.Format(timeLayout))
				return nil, nil
			}
		}
		vulns = append(vulns, page.Vulnerabilities...)
		logger.Info("Fetched CVE page",
			"fetched", humanize.Comma(int64(len(vulns))),
			"total", humanize.Comma(int64(total)),
			"window_start", w.Start.Format(time.DateOnly))

		if len(vulns) >= total || len(page.Vulnerabilities) == 0 {
			return vulns, nil
		}
		startIndex += s.opts.PageSize
		if err := sleep(ctx, s.opts.PageDelay); err != nil {
			return nil, err
		}
	}
}

// fetchPage downloads one page, retrying server errors and rate limiting
// with exponential backoff.
func (s *Source) fetchPage(ctx context.Context, w Window, startIndex int) (*types.NVDPage, error) {
	apiURL, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.endpoint, err)
	}
	params := url.Values{}
	params.Set("pubStartDate", w.Start.UTC().Format(timeLayout))
	params.Set("pubEndDate", w.End.UTC().Format(timeLayout))
	if s.opts.Severity != "" {
		params.Set("cvssV2Severity", s.opts.Severity)
	}
	params.Set("resultsPerPage", strconv.Itoa(s.opts.PageSize))
	params.Set("startIndex", strconv.Itoa(startIndex))
	apiURL.RawQuery = params.Encode()

	var page types.NVDPage
	backoff := retry.WithMaxRetries(3, retry.NewExponential(s.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL.String(), nil)
		if err != nil {
			return fmt.Errorf("request creation for %q failed: %w", apiURL, err)
		}
		req.Header.Set("User-Agent", httpx.UserAgent)
		if s.opts.APIKey != "" {
			// apiKey is the header name NVD expects
			//nolint:canonicalheader
			req.Header["apiKey"] = []string{s.opts.APIKey}
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("request for %q failed: %w", apiURL, err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
			// NVD answers 403 when the rolling rate limit is exceeded.
			logger.Warn("Rate limited by NVD, retrying", "status", resp.Status)
			return retry.RetryableError(fmt.Errorf("rate limited for %q: %s", apiURL, resp.Status))
		case resp.StatusCode/100 == 5:
			logger.Warn("Bad response from NVD, retrying", "status", resp.Status)
			return retry.RetryableError(fmt.Errorf("bad response for %q: %s", apiURL, resp.Status))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("bad response for %q: %s", apiURL, resp.Status)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("reading response body for %q: %w", apiURL, err))
		}
		page = types.NVDPage{}
		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("failed to decode NVD data from %q: %w", apiURL, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve %q: %w", apiURL, err)
	}
	return &page, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
