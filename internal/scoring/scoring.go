// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package scoring computes the vendor danger index.
//
// Each source is sum-normalized against the total of its positive counts.
// For every vendor only the sources with a positive count contribute, and
// their weights are rescaled to sum to 1 for that vendor. Raw scores are
// then scaled so the top vendor scores exactly 100.
package scoring

import (
	"math"
	"sort"

	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

const numSources = 3

// Inputs holds the three per-source count maps. Any map may be nil.
type Inputs struct {
	CVE        types.VendorCounts
	CISA       types.VendorCounts
	Ransomware types.VendorCounts
}

func (in Inputs) sources() [numSources]types.VendorCounts {
	return [numSources]types.VendorCounts{in.CVE, in.CISA, in.Ransomware}
}

// Universe returns the sorted union of vendor names across all sources.
func (in Inputs) Universe() []string {
	seen := make(map[string]struct{})
	for _, src := range in.sources() {
		for vendor := range src {
			seen[vendor] = struct{}{}
		}
	}
	vendors := make([]string, 0, len(seen))
	for vendor := range seen {
		vendors = append(vendors, vendor)
	}
	sort.Strings(vendors)
	return vendors
}

// Total returns the sum of the positive counts in c. Zero and negative
// entries are left out of the divisor.
func Total(c types.VendorCounts) int {
	var total int
	for _, n := range c {
		if n > 0 {
			total += n
		}
	}
	return total
}

// Compute returns the unscaled danger index per vendor. Vendors without a
// positive count in any weighted source are left out of the result.
func Compute(in Inputs, w Weights) map[string]float64 {
	srcs := in.sources()
	weights := w.values()

	var totals [numSources]int
	for i, src := range srcs {
		totals[i] = Total(src)
	}

	raw := make(map[string]float64)
	for _, vendor := range in.Universe() {
		var norm, active [numSources]float64
		var activeSum float64
		for i, src := range srcs {
			count := src[vendor]
			if count > 0 && totals[i] > 0 {
				norm[i] = float64(count) / float64(totals[i])
				active[i] = weights[i]
				activeSum += weights[i]
			}
		}
		if activeSum == 0 {
			continue
		}

		var score float64
		for i := range srcs {
			score += (active[i] / activeSum) * norm[i]
		}
		raw[vendor] = score
	}
	return raw
}

// Scale rescales raw scores so the maximum becomes 100, rounding to two
// decimals. When the maximum is 0 every vendor scores 0.
func Scale(raw map[string]float64) map[string]float64 {
	scaled := make(map[string]float64, len(raw))
	if len(raw) == 0 {
		return scaled
	}

	var maxRaw float64
	for _, v := range raw {
		if v > maxRaw {
			maxRaw = v
		}
	}
	if maxRaw == 0 {
		for vendor := range raw {
			scaled[vendor] = 0
		}
		return scaled
	}

	factor := 100 / maxRaw
	for vendor, v := range raw {
		scaled[vendor] = round2(v * factor)
	}
	return scaled
}

// Score computes and scales the danger index in one step.
func Score(in Inputs, w Weights) map[string]float64 {
	return Scale(Compute(in, w))
}

// Excluded returns the vendors of the universe that received no score.
func Excluded(in Inputs, scores map[string]float64) []string {
	var out []string
	for _, vendor := range in.Universe() {
		if _, ok := scores[vendor]; !ok {
			out = append(out, vendor)
		}
	}
	return out
}

// Rank orders scores descending, breaking ties by vendor name.
func Rank(scores map[string]float64) []types.Ranked {
	ranked := make([]types.Ranked, 0, len(scores))
	for vendor, score := range scores {
		ranked = append(ranked, types.Ranked{Vendor: vendor, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Vendor < ranked[j].Vendor
	})
	return ranked
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
