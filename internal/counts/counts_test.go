// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package counts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "counts.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeTemp(t, `{"Microsoft": 120, "Apple": 3, "Zero": 0, "Float": 4.0}`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.VendorCounts{"Microsoft": 120, "Apple": 3, "Zero": 0, "Float": 4}, c)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"invalid json", `{"a": 1`, ErrMalformed},
		{"array", `[1, 2]`, ErrMalformed},
		{"string value", `{"a": "1"}`, ErrMalformed},
		{"fractional value", `{"a": 1.5}`, ErrMalformed},
		{"nested object", `{"a": {"b": 1}}`, ErrMalformed},
		{"negative", `{"a": 2, "b": -1}`, ErrNegativeCount},
		{"exponent beyond int range", `{"a": 1e30}`, ErrMalformed},
		{"exponent beyond exact float range", `{"a": 1e17}`, ErrMalformed},
		{"integer beyond int64", `{"a": 92233720368547758080}`, ErrMalformed},
		{"empty object", `{}`, ErrEmpty},
		{"blank file", "  \n", ErrEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_LargeIntegersKeepPrecision(t *testing.T) {
	c, err := Parse([]byte(`{"A": 9007199254740993, "B": 1e2}`))
	require.NoError(t, err)
	assert.Equal(t, 9007199254740993, c["A"])
	assert.Equal(t, 100, c["B"])
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadOptional(t *testing.T) {
	c, err := LoadOptional(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, c)

	c, err = LoadOptional(writeTemp(t, `{}`))
	require.NoError(t, err)
	assert.Empty(t, c)

	_, err = LoadOptional(writeTemp(t, `not json`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSave_OrderedByCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", CVEFile)
	c := types.VendorCounts{"Apple": 3, "Microsoft": 120, "Cisco": 3, "AT&T": 7}

	require.NoError(t, Save(path, c))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "{\n    \"Microsoft\": 120"), "unexpected layout:\n%s", out)
	idx := func(s string) int { return strings.Index(out, s) }
	assert.Less(t, idx(`"Microsoft"`), idx(`"AT`))
	assert.Less(t, idx(`"AT`), idx(`"Apple"`))
	assert.Less(t, idx(`"Apple"`), idx(`"Cisco"`))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestSaveScores_RankOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), ScoresFile)
	ranked := []types.Ranked{
		{Vendor: "X", Score: 100},
		{Vendor: "Y", Score: 82.89},
	}
	require.NoError(t, SaveScores(path, ranked))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"X\": 100,\n    \"Y\": 82.89\n}\n", string(data))
}
