// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestInit_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(&buf, slog.LevelInfo, FormatText))

	Debug("hidden")
	Info("scored vendors", "count", 3)
	Warn("stale cache", "error", errors.New("offline"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "scored vendors")
	assert.Contains(t, out, "count=")
	assert.Contains(t, out, "3")
	assert.Contains(t, out, "offline")
}

func TestInit_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(&buf, slog.LevelDebug, FormatJSON))

	Debug("page fetched", "start_index", 2000)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "page fetched", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
	assert.EqualValues(t, 2000, rec["start_index"])
}

func TestInit_UnknownFormat(t *testing.T) {
	assert.Error(t, Init(&bytes.Buffer{}, slog.LevelInfo, "xml"))
}
