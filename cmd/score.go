// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bonial-oss/vendor-danger-index/internal/counts"
	"github.com/bonial-oss/vendor-danger-index/internal/logger"
	"github.com/bonial-oss/vendor-danger-index/internal/output"
	"github.com/bonial-oss/vendor-danger-index/internal/scoring"
	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

func newScoreCommand(a *app) *cobra.Command {
	var (
		in     inputFlags
		format string
		out    string
		top    int
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute danger scores from count files without touching the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := in.resolveWeights(cmd, a)
			if err != nil {
				return classify(err)
			}
			inputs, err := in.load(a)
			if err != nil {
				return classify(err)
			}

			scores := scoring.Score(inputs, w)
			ranked := scoring.Rank(scores)
			if excluded := scoring.Excluded(inputs, scores); len(excluded) > 0 {
				logger.Debug("Vendors without signal", "count", len(excluded))
			}

			if out != "" {
				if err := counts.SaveScores(out, ranked); err != nil {
					return err
				}
				logger.Info("Wrote scores", "file", out, "vendors", len(ranked))
				return nil
			}
			return writeScores(cmd.OutOrStdout(), ranked, format, top)
		},
	}

	in.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&format, "format", "table", "Output format: table, json")
	flags.StringVarP(&out, "output", "o", "", "Write scores as JSON to this file")
	flags.IntVar(&top, "top", 0, "Show only the N highest scores in table output")
	return cmd
}

func writeScores(w io.Writer, ranked []types.Ranked, format string, top int) error {
	switch format {
	case "json":
		return output.WriteScoresJSON(w, ranked)
	case "table":
		return output.WriteScoreTable(w, ranked, output.TableConfig{
			IsTerminal: output.IsOutputToTerminal(w),
			Top:        top,
		})
	default:
		return &ExitError{Code: ExitInput, Message: fmt.Sprintf("unsupported output format: %s", format)}
	}
}
