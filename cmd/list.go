// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bonial-oss/vendor-danger-index/internal/output"
	"github.com/bonial-oss/vendor-danger-index/internal/store"
)

func newListCommand(a *app) *cobra.Command {
	var (
		format string
		top    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show stored vendors ordered by danger score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := store.Open(a.cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.List(cmd.Context(), top)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch format {
			case "json":
				return output.WriteJSON(w, records)
			case "table":
				return output.WriteVendorTable(w, records, output.TableConfig{
					IsTerminal: output.IsOutputToTerminal(w),
				})
			default:
				return &ExitError{Code: ExitInput, Message: fmt.Sprintf("unsupported output format: %s", format)}
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&format, "format", "table", "Output format: table, json")
	flags.IntVar(&top, "top", 0, "Show only the N most dangerous vendors")
	return cmd
}
