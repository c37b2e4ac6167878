// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bonial-oss/vendor-danger-index/internal/refresh"
	"github.com/bonial-oss/vendor-danger-index/internal/store"
)

func newPopulateCommand(a *app) *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Score the count files and upsert every vendor into the database",
		Long: `populate reads the three count files, computes the danger index and
writes each scored vendor to the vendors table. Vendors missing from this
run keep their stored values. A vendor that fails to persist does not stop
the others; the command then exits with status 4.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := in.resolveWeights(cmd, a)
			if err != nil {
				return classify(err)
			}
			inputs, err := in.load(a)
			if err != nil {
				return classify(err)
			}

			st, err := store.Open(a.cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := refresh.Refresh(cmd.Context(), st, inputs, w)
			if err != nil {
				return classify(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Populated %d vendors (%d created, %d updated) in %s\n",
				len(res.Ranked), res.Summary.Created, res.Summary.Updated, a.cfg.Database)
			return nil
		},
	}
	in.register(cmd)
	return cmd
}
