// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package refresh runs a scoring pass and writes the result to the vendor
// store.
package refresh

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/bonial-oss/vendor-danger-index/internal/logger"
	"github.com/bonial-oss/vendor-danger-index/internal/scoring"
	"github.com/bonial-oss/vendor-danger-index/internal/store"
	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

// Upserter persists vendor records.
type Upserter interface {
	Upsert(ctx context.Context, rows []types.VendorRecord) (store.UpsertSummary, error)
}

// Result is the outcome of a refresh.
type Result struct {
	Scores   map[string]float64
	Ranked   []types.Ranked
	Excluded []string
	Summary  store.UpsertSummary
}

// BuildRecords turns scores into rows in rank order, taking counts from
// the inputs. A vendor missing from a source has a count of 0.
func BuildRecords(in scoring.Inputs, scores map[string]float64) []types.VendorRecord {
	ranked := scoring.Rank(scores)
	rows := make([]types.VendorRecord, len(ranked))
	for i, r := range ranked {
		rows[i] = types.VendorRecord{
			Name:            r.Vendor,
			CVECount:        in.CVE.Get(r.Vendor),
			CISAKEVCount:    in.CISA.Get(r.Vendor),
			RansomwareCount: in.Ransomware.Get(r.Vendor),
			DangerScore:     r.Score,
		}
	}
	return rows
}

// Refresh scores the inputs and upserts every scored vendor. Scoring
// completes before the first write. When some vendors fail to persist the
// Result is still returned together with the joined errors.
func Refresh(ctx context.Context, st Upserter, in scoring.Inputs, w scoring.Weights) (*Result, error) {
	scores := scoring.Score(in, w)
	res := &Result{
		Scores:   scores,
		Ranked:   scoring.Rank(scores),
		Excluded: scoring.Excluded(in, scores),
	}

	summary, err := st.Upsert(ctx, BuildRecords(in, scores))
	res.Summary = summary

	logger.InfoContext(ctx, "Scored vendors",
		"scored", humanize.Comma(int64(len(scores))),
		"excluded", humanize.Comma(int64(len(res.Excluded))),
		"created", summary.Created,
		"updated", summary.Updated,
		"failed", summary.Failed,
	)
	if err != nil {
		return res, fmt.Errorf("persisting scores: %w", err)
	}
	return res, nil
}
