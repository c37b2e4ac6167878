// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package output renders vendor scores as tables or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bonial-oss/vendor-danger-index/internal/counts"
	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

// WriteJSON encodes data with two-space indentation.
func WriteJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// WriteScoresJSON writes a {"vendor": score} object ordered by score, the
// same layout as the scores file.
func WriteScoresJSON(w io.Writer, ranked []types.Ranked) error {
	data, err := counts.MarshalScores(ranked)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing scores: %w", err)
	}
	return nil
}
