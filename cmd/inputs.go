// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bonial-oss/vendor-danger-index/internal/counts"
	"github.com/bonial-oss/vendor-danger-index/internal/scoring"
	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

// inputFlags are the count file and weight flags shared by score and
// populate. Empty file flags fall back to the data dir.
type inputFlags struct {
	CVEFile        string
	CISAFile       string
	RansomwareFile string
	AllowMissing   bool
	weights        scoring.Weights
}

func (f *inputFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.CVEFile, "cve-file", "", "CVE counts file (default <data-dir>/"+counts.CVEFile+")")
	flags.StringVar(&f.CISAFile, "cisa-file", "", "CISA KEV counts file (default <data-dir>/"+counts.CISAFile+")")
	flags.StringVar(&f.RansomwareFile, "ransomware-file", "", "Ransomware counts file (default <data-dir>/"+counts.RansomwareFile+")")
	flags.BoolVar(&f.AllowMissing, "allow-missing", false, "Treat a missing or empty counts file as no signal")

	d := scoring.DefaultWeights()
	flags.Float64Var(&f.weights.CVE, "weight-cve", d.CVE, "Weight of the CVE source")
	flags.Float64Var(&f.weights.CISA, "weight-cisa", d.CISA, "Weight of the CISA KEV source")
	flags.Float64Var(&f.weights.Ransomware, "weight-ransomware", d.Ransomware, "Weight of the ransomware source")
}

// resolveWeights layers changed weight flags over the configured weights
// and validates the result.
func (f *inputFlags) resolveWeights(cmd *cobra.Command, a *app) (scoring.Weights, error) {
	w := a.cfg.Weights
	flags := cmd.Flags()
	if flags.Changed("weight-cve") {
		w.CVE = f.weights.CVE
	}
	if flags.Changed("weight-cisa") {
		w.CISA = f.weights.CISA
	}
	if flags.Changed("weight-ransomware") {
		w.Ransomware = f.weights.Ransomware
	}
	return w, w.Validate()
}

// load reads the three count files.
func (f *inputFlags) load(a *app) (scoring.Inputs, error) {
	var (
		in  scoring.Inputs
		err error
	)
	load := counts.Load
	if f.AllowMissing {
		load = counts.LoadOptional
	}
	files := []struct {
		path string
		def  string
		dst  *types.VendorCounts
	}{
		{f.CVEFile, counts.CVEFile, &in.CVE},
		{f.CISAFile, counts.CISAFile, &in.CISA},
		{f.RansomwareFile, counts.RansomwareFile, &in.Ransomware},
	}
	for _, file := range files {
		path := file.path
		if path == "" {
			path = a.cfg.DataFile(file.def)
		}
		if *file.dst, err = load(path); err != nil {
			return in, err
		}
	}
	return in, nil
}
