// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package nvd

import (
	"strings"
	"unicode"

	"github.com/knqyf263/go-cpe/naming"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

// UnknownVendor is used when a CPE string has no usable vendor.
const UnknownVendor = "Unknown"

// VendorFromCPE extracts the vendor field of a CPE 2.3 formatted string,
// with underscores turned into spaces and every run of letters
// title-cased, e.g. "cpe:2.3:a:apache_software_foundation:..." ->
// "Apache Software Foundation". The field is used as written, escapes
// included, so o\'reilly becomes O\'Reilly.
func VendorFromCPE(criteria string) string {
	if !strings.HasPrefix(criteria, "cpe:2.3:") {
		return UnknownVendor
	}
	if _, err := naming.UnbindFS(criteria); err != nil {
		return UnknownVendor
	}
	vendor := strings.Split(criteria, ":")[3]
	if vendor == "*" || vendor == "-" {
		return UnknownVendor
	}
	vendor = strings.ReplaceAll(vendor, "_", " ")
	if strings.TrimSpace(vendor) == "" {
		return UnknownVendor
	}
	return titleLetterRuns(vendor)
}

// titleLetterRuns upper-cases the first letter of every run of letters and
// lower-cases the rest, so letters after digits or punctuation start a new
// word: "3com" -> "3Com", "node.js" -> "Node.Js".
func titleLetterRuns(s string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	b.Grow(len(s))
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(caser.String(s[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(caser.String(s[start:]))
	}
	return b.String()
}

// CountVendors adds one to the vendor of every CPE match of every CVE.
func CountVendors(vulns []types.NVDVulnerability, c types.VendorCounts) {
	for _, v := range vulns {
		for _, cfg := range v.CVE.Configurations {
			for _, node := range cfg.Nodes {
				for _, match := range node.CPEMatch {
					c[VendorFromCPE(match.Criteria)]++
				}
			}
		}
	}
}
