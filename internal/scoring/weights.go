// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned by Weights.Validate.
var ErrInvalidWeights = errors.New("invalid weights")

const weightSumTolerance = 1e-6

// Weights are the configured per-source weights. They are intended to sum
// to 1.0; Compute does not enforce it, callers validate.
type Weights struct {
	CVE        float64 `yaml:"cve" json:"cve"`
	CISA       float64 `yaml:"cisa" json:"cisa"`
	Ransomware float64 `yaml:"ransomware" json:"ransomware"`
}

// DefaultWeights returns 0.4 for CVE, 0.35 for CISA KEV and 0.25 for ransomware.
func DefaultWeights() Weights {
	return Weights{CVE: 0.4, CISA: 0.35, Ransomware: 0.25}
}

// Sum returns the total of all three weights.
func (w Weights) Sum() float64 {
	return w.CVE + w.CISA + w.Ransomware
}

// Validate rejects negative weights and weights whose sum is not 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"cve": w.CVE, "cisa": w.CISA, "ransomware": w.Ransomware} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s weight %v is negative", ErrInvalidWeights, name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %v, must equal 1", ErrInvalidWeights, sum)
	}
	return nil
}

func (w Weights) values() [numSources]float64 {
	return [numSources]float64{w.CVE, w.CISA, w.Ransomware}
}
