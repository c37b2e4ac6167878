// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

// KEVEntry represents a single entry in the CISA KEV catalog JSON.
type KEVEntry struct {
	CVEID                      string `json:"cveID"`
	VendorProject              string `json:"vendorProject"`
	Product                    string `json:"product"`
	DateAdded                  string `json:"dateAdded"`
	KnownRansomwareCampaignUse string `json:"knownRansomwareCampaignUse"`
}

// KEVCatalog represents the CISA KEV catalog JSON structure.
type KEVCatalog struct {
	CatalogVersion  string     `json:"catalogVersion"`
	DateReleased    string     `json:"dateReleased"`
	Count           int        `json:"count"`
	Vulnerabilities []KEVEntry `json:"vulnerabilities"`
}

// NVDPage is one page of the NVD CVE API 2.0 response. Only the fields
// needed to attribute CVEs to vendors are decoded.
type NVDPage struct {
	ResultsPerPage  int                `json:"resultsPerPage"`
	StartIndex      int                `json:"startIndex"`
	TotalResults    int                `json:"totalResults"`
	Vulnerabilities []NVDVulnerability `json:"vulnerabilities"`
}

// NVDVulnerability wraps a single CVE item.
type NVDVulnerability struct {
	CVE NVDCVE `json:"cve"`
}

// NVDCVE holds the CVE identifier and its applicability configurations.
type NVDCVE struct {
	ID             string             `json:"id"`
	Configurations []NVDConfiguration `json:"configurations"`
}

// NVDConfiguration is a group of CPE match nodes.
type NVDConfiguration struct {
	Nodes []NVDNode `json:"nodes"`
}

// NVDNode lists the CPE match criteria of a configuration node.
type NVDNode struct {
	Operator string        `json:"operator"`
	CPEMatch []NVDCPEMatch `json:"cpeMatch"`
}

// NVDCPEMatch is a single CPE 2.3 criteria string.
type NVDCPEMatch struct {
	Vulnerable bool   `json:"vulnerable"`
	Criteria   string `json:"criteria"`
}
