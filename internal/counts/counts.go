// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package counts reads and writes the flat vendor -> count JSON files that
// sit between the fetch and scoring stages.
package counts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

// File names used inside the data directory.
const (
	CVEFile        = "cve_counts.json"
	CISAFile       = "cisa_counts.json"
	RansomwareFile = "ransomware_actors_counts.json"
	ScoresFile     = "danger_index.json"
)

var (
	ErrNotFound      = errors.New("counts file not found")
	ErrMalformed     = errors.New("malformed counts file")
	ErrEmpty         = errors.New("counts file is empty")
	ErrNegativeCount = errors.New("negative vendor count")
)

var prettyOptions = &pretty.Options{Width: 80, Prefix: "", Indent: "    ", SortKeys: false}

// Load reads a counts file. The returned error wraps ErrNotFound,
// ErrMalformed, ErrEmpty or ErrNegativeCount so callers can tell the
// outcomes apart with errors.Is.
func Load(path string) (types.VendorCounts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadOptional is Load, except that a missing or empty file yields an
// empty map. Malformed files are still an error.
func LoadOptional(path string) (types.VendorCounts, error) {
	c, err := Load(path)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmpty) {
		return types.VendorCounts{}, nil
	}
	return c, err
}

// Parse decodes a flat JSON object of string keys to non-negative integers.
func Parse(data []byte) (types.VendorCounts, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top-level value must be an object", ErrMalformed)
	}

	c := make(types.VendorCounts)
	var parseErr error
	root.ForEach(func(key, value gjson.Result) bool {
		vendor := key.String()
		if value.Type != gjson.Number {
			parseErr = fmt.Errorf("%w: count for %q is %s, want a number", ErrMalformed, vendor, value.Type)
			return false
		}
		n, err := parseCount(value.Raw)
		if err != nil {
			parseErr = fmt.Errorf("%w: count for %q is %s: %v", ErrMalformed, vendor, value.Raw, err)
			return false
		}
		if n < 0 {
			parseErr = fmt.Errorf("%w: %q has %s", ErrNegativeCount, vendor, value.Raw)
			return false
		}
		c[vendor] = n
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(c) == 0 {
		return nil, ErrEmpty
	}
	return c, nil
}

// maxExactCount is the largest count a JSON number in exponent or
// fraction form can carry without losing precision.
const maxExactCount = 1 << 53

// parseCount reads a JSON number as an int. Plain integers are parsed
// exactly; forms like 1e2 or 4.0 must be whole and within 2^53.
func parseCount(raw string) (int, error) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > math.MaxInt || n < math.MinInt {
			return 0, errors.New("out of range")
		}
		return int(n), nil
	} else if errors.Is(err, strconv.ErrRange) {
		return 0, errors.New("out of range")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, errors.New("want an integer")
	}
	if math.Abs(f) > maxExactCount {
		return 0, errors.New("out of range")
	}
	return int(f), nil
}

// Marshal encodes counts as a JSON object ordered by count descending,
// then vendor name, indented with four spaces.
func Marshal(c types.VendorCounts) ([]byte, error) {
	vendors := make([]string, 0, len(c))
	for vendor := range c {
		vendors = append(vendors, vendor)
	}
	sort.Slice(vendors, func(i, j int) bool {
		if c[vendors[i]] != c[vendors[j]] {
			return c[vendors[i]] > c[vendors[j]]
		}
		return vendors[i] < vendors[j]
	})

	return marshalOrdered(len(vendors), func(i int) (string, string) {
		return vendors[i], strconv.Itoa(c[vendors[i]])
	})
}

// MarshalScores encodes ranked scores as a JSON object in rank order.
func MarshalScores(ranked []types.Ranked) ([]byte, error) {
	return marshalOrdered(len(ranked), func(i int) (string, string) {
		return ranked[i].Vendor, strconv.FormatFloat(ranked[i].Score, 'f', -1, 64)
	})
}

// Save writes counts to path, creating parent directories.
func Save(path string, c types.VendorCounts) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// SaveScores writes ranked scores to path, creating parent directories.
func SaveScores(path string, ranked []types.Ranked) error {
	data, err := MarshalScores(ranked)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func marshalOrdered(n int, entry func(i int) (key, value string)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		key, value := entry(i)
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("encoding vendor name %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.WriteString(value)
	}
	buf.WriteByte('}')
	return pretty.PrettyOptions(buf.Bytes(), prettyOptions), nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}
