// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package httpx builds the retrying HTTP client shared by the feed fetchers.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/bonial-oss/vendor-danger-index/internal/logger"
)

// UserAgent identifies the fetchers to feed operators.
const UserAgent = "vendor-danger-index/1.0"

// Options tune the retrying client.
type Options struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// DefaultOptions retries 3 times, waiting between 1s and 4s.
func DefaultOptions() Options {
	return Options{
		Timeout:      60 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 1 * time.Second,
		RetryWaitMax: 4 * time.Second,
	}
}

// LeveledLogger forwards retryablehttp logs to the global logger.
type LeveledLogger struct{}

var _ retryablehttp.LeveledLogger = LeveledLogger{}

func (LeveledLogger) Error(msg string, keysAndValues ...any) {
	logger.Error(msg, keysAndValues...)
}

func (LeveledLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug(msg, keysAndValues...)
}

func (LeveledLogger) Debug(msg string, keysAndValues ...any) {
	logger.Debug(msg, keysAndValues...)
}

func (LeveledLogger) Warn(msg string, keysAndValues ...any) {
	logger.Warn(msg, keysAndValues...)
}

// NewClient returns a standard *http.Client that retries connection
// errors and 5xx responses.
func NewClient(opts Options) *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = opts.RetryMax
	c.RetryWaitMin = opts.RetryWaitMin
	c.RetryWaitMax = opts.RetryWaitMax
	c.Logger = LeveledLogger{}
	c.HTTPClient.Timeout = opts.Timeout
	return c.StandardClient()
}

// ErrResponseTooLarge is returned by Get when the body exceeds its limit.
var ErrResponseTooLarge = errors.New("response body too large")

// Get downloads url and returns its body. Any status other than 200 is an
// error, as is a body longer than limit bytes.
func Get(ctx context.Context, client *http.Client, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrResponseTooLarge, url, limit)
	}
	return data, nil
}
