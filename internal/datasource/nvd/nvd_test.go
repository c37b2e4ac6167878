// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package nvd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

func TestVendorFromCPE(t *testing.T) {
	tests := []struct {
		criteria string
		want     string
	}{
		{"cpe:2.3:o:microsoft:windows_10:-:*:*:*:*:*:*:*", "Microsoft"},
		{"cpe:2.3:a:apache_software_foundation:tomcat:9.0.0:*:*:*:*:*:*:*", "Apache Software Foundation"},
		{"cpe:2.3:h:cisco:asa_5505:-:*:*:*:*:*:*:*", "Cisco"},
		{"cpe:2.3:a:IBM:websphere:*:*:*:*:*:*:*:*", "Ibm"},
		{`cpe:2.3:a:o\'reilly:book:*:*:*:*:*:*:*:*`, `O\'Reilly`},
		{"cpe:2.3:a:3com:switch:*:*:*:*:*:*:*:*", "3Com"},
		{"cpe:2.3:a:node.js:node.js:*:*:*:*:*:*:*:*", "Node.Js"},
		{"cpe:2.3:a:*:anything:*:*:*:*:*:*:*:*", UnknownVendor},
		{"cpe:/a:microsoft:ie:8", UnknownVendor},
		{"not a cpe", UnknownVendor},
		{"", UnknownVendor},
	}
	for _, tt := range tests {
		t.Run(tt.criteria, func(t *testing.T) {
			assert.Equal(t, tt.want, VendorFromCPE(tt.criteria))
		})
	}
}

func TestCountVendors(t *testing.T) {
	vulns := []types.NVDVulnerability{
		{CVE: types.NVDCVE{
			ID: "CVE-2024-0001",
			Configurations: []types.NVDConfiguration{{Nodes: []types.NVDNode{{CPEMatch: []types.NVDCPEMatch{
				{Criteria: "cpe:2.3:o:microsoft:windows_10:-:*:*:*:*:*:*:*"},
				{Criteria: "cpe:2.3:o:microsoft:windows_11:-:*:*:*:*:*:*:*"},
			}}}}},
		}},
		{CVE: types.NVDCVE{
			ID: "CVE-2024-0002",
			Configurations: []types.NVDConfiguration{{Nodes: []types.NVDNode{{CPEMatch: []types.NVDCPEMatch{
				{Criteria: "cpe:2.3:a:fortinet:fortios:*:*:*:*:*:*:*:*"},
			}}}}},
		}},
		{CVE: types.NVDCVE{ID: "CVE-2024-0003"}},
	}

	c := make(types.VendorCounts)
	CountVendors(vulns, c)
	assert.Equal(t, types.VendorCounts{"Microsoft": 2, "Fortinet": 1}, c)
}

func TestWindows(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 250)

	windows := Windows(start, end, 120)
	require.Len(t, windows, 3)
	assert.Equal(t, start, windows[0].Start)
	assert.Equal(t, start.AddDate(0, 0, 120), windows[0].End)
	assert.Equal(t, windows[0].End, windows[1].Start)
	assert.Equal(t, end, windows[2].End)

	assert.Empty(t, Windows(end, start, 120))
}

// pageJSON returns a page holding one CVE per index in [from, to).
func pageJSON(from, to, total int) string {
	vulns := ""
	for i := from; i < to; i++ {
		if vulns != "" {
			vulns += ","
		}
		vulns += fmt.Sprintf(`{"cve":{"id":"CVE-2024-%04d","configurations":[{"nodes":[{"cpeMatch":[{"vulnerable":true,"criteria":"cpe:2.3:a:vendor_%d:product:*:*:*:*:*:*:*:*"}]}]}]}}`, i, i%2)
	}
	return fmt.Sprintf(`{"resultsPerPage":%d,"startIndex":%d,"totalResults":%d,"vulnerabilities":[%s]}`, to-from, from, total, vulns)
}

func newTestSource(t *testing.T, endpoint string) *Source {
	t.Helper()
	s := NewSource(t.TempDir(), 0, &http.Client{Timeout: 5 * time.Second}, Options{
		APIKey:     "secret",
		Years:      1,
		WindowDays: 400,
		Severity:   "HIGH",
		PageSize:   2,
	})
	s.endpoint = endpoint
	s.retryBase = time.Millisecond
	s.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestSource_Load_Pages(t *testing.T) {
	const total = 5
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "secret", r.Header.Get("apiKey"))
		assert.Equal(t, "HIGH", q.Get("cvssV2Severity"))
		assert.Equal(t, "2", q.Get("resultsPerPage"))
		assert.Equal(t, "2025-01-01T00:00:00.000Z", q.Get("pubStartDate"))

		start, err := strconv.Atoi(q.Get("startIndex"))
		assert.NoError(t, err)
		end := min(start+2, total)
		_, _ = w.Write([]byte(pageJSON(start, end, total)))
	}))
	defer srv.Close()

	s := newTestSource(t, srv.URL)
	require.NoError(t, s.Load(context.Background(), false))

	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, types.VendorCounts{"Vendor 0": 3, "Vendor 1": 2}, s.Counts())

	// A second load is served from the fresh cache.
	s2 := newTestSource(t, srv.URL)
	s2.cache = s.cache
	require.NoError(t, s2.Load(context.Background(), false))
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, s.Counts(), s2.Counts())
}

func TestSource_Load_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(pageJSON(0, 1, 1)))
	}))
	defer srv.Close()

	s := newTestSource(t, srv.URL)
	require.NoError(t, s.Load(context.Background(), false))
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, 1, s.Counts()["Vendor 0"])
}

func TestSource_Load_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := newTestSource(t, srv.URL)
	err := s.Load(context.Background(), false)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSource_Load_EmptyWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"resultsPerPage":0,"startIndex":0,"totalResults":0,"vulnerabilities":[]}`))
	}))
	defer srv.Close()

	s := newTestSource(t, srv.URL)
	require.NoError(t, s.Load(context.Background(), false))
	assert.Empty(t, s.Counts())

	// The empty result is cached and can be reloaded.
	require.NoError(t, s.Load(context.Background(), true))
	assert.Empty(t, s.Counts())
}
