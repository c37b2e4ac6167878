// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/vendor-danger-index/internal/counts"
	"github.com/bonial-oss/vendor-danger-index/internal/scoring"
	"github.com/bonial-oss/vendor-danger-index/internal/store"
)

// testEnv lays out a data dir with the three count files and returns the
// global flags pointing at it.
func testEnv(t *testing.T, cve, cisa, ransomware string) (string, []string) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, env := range []string{"DANGER_INDEX_DATA_DIR", "DANGER_INDEX_DATABASE", "DANGER_INDEX_CACHE_DIR", "DANGER_INDEX_LOG_LEVEL"} {
		t.Setenv(env, "")
	}

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	for name, content := range map[string]string{
		counts.CVEFile:        cve,
		counts.CISAFile:       cisa,
		counts.RansomwareFile: ransomware,
	} {
		if content == "" {
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o644))
	}
	return dir, []string{
		"--data-dir", dataDir,
		"--database", filepath.Join(dir, "db", "danger_index.db"),
		"--cache-dir", filepath.Join(dir, "cache"),
		"--log-level", "error",
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

const (
	cveJSON        = `{"X": 30, "Y": 10}`
	cisaJSON       = `{"X": 5, "Y": 5}`
	ransomwareJSON = `{"X": 0, "Y": 2}`
)

func TestScore_JSON(t *testing.T) {
	_, global := testEnv(t, cveJSON, cisaJSON, ransomwareJSON)

	out, err := run(t, append([]string{"score", "--format", "json"}, global...)...)
	require.NoError(t, err)

	var got map[string]float64
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]float64{"X": 100, "Y": 82.89}, got)
}

func TestScore_OutputFile(t *testing.T) {
	dir, global := testEnv(t, cveJSON, cisaJSON, ransomwareJSON)
	path := filepath.Join(dir, "scores.json")

	_, err := run(t, append([]string{"score", "--output", path}, global...)...)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Y": 82.89`)
}

func TestScore_InvalidWeights(t *testing.T) {
	_, global := testEnv(t, cveJSON, cisaJSON, ransomwareJSON)

	_, err := run(t, append([]string{"score", "--weight-cve", "0.9"}, global...)...)
	require.Error(t, err)
	assert.Equal(t, ExitWeights, exitCode(err))
	assert.ErrorIs(t, err, scoring.ErrInvalidWeights)
}

func TestScore_MissingFile(t *testing.T) {
	_, global := testEnv(t, cveJSON, cisaJSON, "")

	_, err := run(t, append([]string{"score"}, global...)...)
	require.Error(t, err)
	assert.Equal(t, ExitInput, exitCode(err))
	assert.ErrorIs(t, err, counts.ErrNotFound)

	out, err := run(t, append([]string{"score", "--allow-missing", "--format", "json"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"X": 100`)
}

func TestScore_MalformedFile(t *testing.T) {
	_, global := testEnv(t, `{"X": "many"}`, cisaJSON, ransomwareJSON)

	_, err := run(t, append([]string{"score"}, global...)...)
	require.Error(t, err)
	assert.Equal(t, ExitInput, exitCode(err))
}

func TestPopulateAndList(t *testing.T) {
	dir, global := testEnv(t, cveJSON, cisaJSON, ransomwareJSON)

	out, err := run(t, append([]string{"populate"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Populated 2 vendors (2 created, 0 updated)")

	out, err = run(t, append([]string{"populate"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "(0 created, 2 updated)")

	out, err = run(t, append([]string{"list", "--format", "json", "--top", "1"}, global...)...)
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "X", rows[0]["name"])

	out, err = run(t, append([]string{"list"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Vendor Danger Index")
	assert.Contains(t, out, "82.9")

	out, err = run(t, append([]string{"list", "--top", "1"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 1")
	assert.NotContains(t, out, "82.9")

	st, err := store.Open(filepath.Join(dir, "db", "danger_index.db"))
	require.NoError(t, err)
	defer st.Close()
	y, err := st.Get(t.Context(), "Y")
	require.NoError(t, err)
	assert.Equal(t, 2, y.RansomwareCount)
}

func TestConfigFileWeights(t *testing.T) {
	dir, global := testEnv(t, cveJSON, cisaJSON, ransomwareJSON)
	cfgPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("weights:\n  cve: 1\n  cisa: 0\n  ransomware: 0\n"), 0o644))

	out, err := run(t, append([]string{"score", "--format", "json", "--config", cfgPath}, global...)...)
	require.NoError(t, err)
	var got map[string]float64
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]float64{"X": 100, "Y": 33.33}, got)
}

func TestConfigFileWeightsFixedByFlags(t *testing.T) {
	dir, global := testEnv(t, cveJSON, cisaJSON, ransomwareJSON)
	cfgPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("weights:\n  cve: 0.5\n  cisa: 0.5\n  ransomware: 0.5\n"), 0o644))

	_, err := run(t, append([]string{"score", "--config", cfgPath}, global...)...)
	require.Error(t, err)
	assert.Equal(t, ExitWeights, exitCode(err))

	out, err := run(t, append([]string{"score", "--format", "json", "--config", cfgPath, "--weight-ransomware", "0"}, global...)...)
	require.NoError(t, err)
	var got map[string]float64
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got, "X")

	_, err = run(t, append([]string{"list", "--config", cfgPath}, global...)...)
	require.NoError(t, err, "commands that do not score ignore the weights")
}

func TestFetch_RejectsUnknownSource(t *testing.T) {
	_, global := testEnv(t, "", "", "")
	_, err := run(t, append([]string{"fetch", "epss"}, global...)...)
	require.Error(t, err)
}

func TestFetch_OutputNeedsSingleSource(t *testing.T) {
	_, global := testEnv(t, "", "", "")
	_, err := run(t, append([]string{"fetch", "all", "--output", "x.json"}, global...)...)
	require.Error(t, err)
	assert.Equal(t, ExitInput, exitCode(err))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.Equal(t, ExitWeights, exitCode(classify(scoring.ErrInvalidWeights)))
	assert.Equal(t, ExitInput, exitCode(classify(counts.ErrEmpty)))
	assert.Equal(t, ExitPersistence, exitCode(classify(errors.Join(&store.UpsertError{Vendor: "A", Err: errors.New("x")}))))
	assert.Equal(t, -1, exitCode(classify(errors.New("other"))))
}
