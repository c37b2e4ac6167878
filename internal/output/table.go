// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	aqtable "github.com/aquasecurity/table"
	"github.com/aquasecurity/tml"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

const tableTitle = "Vendor Danger Index"

// TableConfig controls table rendering.
type TableConfig struct {
	IsTerminal bool // true when output goes to a terminal (enables ANSI styling)
	Top        int  // show only the first Top rows when positive
}

// IsOutputToTerminal returns true if the writer is stdout connected to a
// character device (TTY).
func IsOutputToTerminal(output io.Writer) bool {
	return output == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
}

// Band names a range of danger scores.
type Band string

const (
	BandCritical Band = "CRITICAL"
	BandHigh     Band = "HIGH"
	BandMedium   Band = "MEDIUM"
	BandLow      Band = "LOW"
	BandMinimal  Band = "MINIMAL"
)

var bandOrder = []Band{BandCritical, BandHigh, BandMedium, BandLow, BandMinimal}

// ScoreBand maps a 0-100 danger score to its band.
func ScoreBand(score float64) Band {
	switch {
	case score >= 80:
		return BandCritical
	case score >= 60:
		return BandHigh
	case score >= 40:
		return BandMedium
	case score >= 20:
		return BandLow
	default:
		return BandMinimal
	}
}

var bandColors = map[Band]func(a ...any) string{
	BandMinimal:  color.New(color.FgCyan).SprintFunc(),
	BandLow:      color.New(color.FgBlue).SprintFunc(),
	BandMedium:   color.New(color.FgYellow).SprintFunc(),
	BandHigh:     color.New(color.FgHiRed).SprintFunc(),
	BandCritical: color.New(color.FgRed).SprintFunc(),
}

// formatScore prints a score with one decimal, colored by band on a TTY.
func formatScore(score float64, isTerminal bool) string {
	s := strconv.FormatFloat(score, 'f', 1, 64)
	if isTerminal {
		return bandColors[ScoreBand(score)](s)
	}
	return s
}

// WriteVendorTable writes stored vendor records, already ordered by score,
// with their per-source counts.
func WriteVendorTable(w io.Writer, records []types.VendorRecord, cfg TableConfig) error {
	scores := make([]float64, len(records))
	for i := range records {
		scores[i] = records[i].DangerScore
	}
	writeHeader(w, scores, cfg.IsTerminal)

	tw := newTableWriter(w, cfg.IsTerminal)
	tw.SetHeaders("Rank", "Vendor", "CVEs", "CISA KEV", "Ransomware", "Danger Score")
	for i := range limit(len(records), cfg.Top) {
		r := &records[i]
		tw.AddRow(
			strconv.Itoa(i+1),
			r.Name,
			humanize.Comma(int64(r.CVECount)),
			humanize.Comma(int64(r.CISAKEVCount)),
			humanize.Comma(int64(r.RansomwareCount)),
			formatScore(r.DangerScore, cfg.IsTerminal),
		)
	}
	tw.Render()
	return nil
}

// WriteScoreTable writes ranked scores without counts.
func WriteScoreTable(w io.Writer, ranked []types.Ranked, cfg TableConfig) error {
	scores := make([]float64, len(ranked))
	for i := range ranked {
		scores[i] = ranked[i].Score
	}
	writeHeader(w, scores, cfg.IsTerminal)

	tw := newTableWriter(w, cfg.IsTerminal)
	tw.SetHeaders("Rank", "Vendor", "Danger Score")
	for i := range limit(len(ranked), cfg.Top) {
		tw.AddRow(strconv.Itoa(i+1), ranked[i].Vendor, formatScore(ranked[i].Score, cfg.IsTerminal))
	}
	tw.Render()
	return nil
}

func limit(n, top int) int {
	if top > 0 && top < n {
		return top
	}
	return n
}

// writeHeader writes the title and band summary line.
func writeHeader(w io.Writer, scores []float64, isTerminal bool) {
	if isTerminal {
		_ = tml.Fprintf(w, "<underline><bold>%s</bold></underline>\n", tableTitle)
	} else {
		fmt.Fprintln(w, tableTitle)
		fmt.Fprintln(w, strings.Repeat("=", utf8.RuneCountInString(tableTitle)))
	}
	fmt.Fprintln(w, bandSummary(scores))
	fmt.Fprintln(w)
}

// bandSummary returns a line like:
// Total: 5 (CRITICAL: 1, HIGH: 1, MEDIUM: 1, LOW: 2, MINIMAL: 0)
func bandSummary(scores []float64) string {
	counts := make(map[Band]int, len(bandOrder))
	for _, s := range scores {
		counts[ScoreBand(s)]++
	}
	parts := make([]string, len(bandOrder))
	for i, b := range bandOrder {
		parts[i] = fmt.Sprintf("%s: %d", b, counts[b])
	}
	return fmt.Sprintf("Total: %d (%s)", len(scores), strings.Join(parts, ", "))
}

// newTableWriter creates a table writer with borders and row separators.
// When isTerminal is true, header and line styles use ANSI formatting.
func newTableWriter(w io.Writer, isTerminal bool) *aqtable.Table {
	tw := aqtable.New(w)
	if isTerminal {
		tw.SetHeaderStyle(aqtable.StyleBold)
		tw.SetLineStyle(aqtable.StyleDim)
	}
	tw.SetBorders(true)
	tw.SetRowLines(true)
	return tw
}
