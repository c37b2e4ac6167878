// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// VendorCounts maps a vendor name to the number of times it occurs in one
// signal source. Vendor names are matched by exact string comparison.
type VendorCounts map[string]int

// Get returns the count for vendor, or 0 when the vendor is absent.
func (c VendorCounts) Get(vendor string) int {
	return c[vendor]
}

// Ranked is a single vendor score in a descending score listing.
type Ranked struct {
	Vendor string  `json:"vendor"`
	Score  float64 `json:"score"`
}

// VendorRecord is the persisted row for a vendor. Counts and score are
// overwritten on every scoring run that includes the vendor.
type VendorRecord struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	Name            string    `gorm:"column:name;size:100;uniqueIndex;not null" json:"name"`
	CVECount        int       `gorm:"column:cve_count;not null" json:"cve_count"`
	CISAKEVCount    int       `gorm:"column:cisa_kev_count;not null" json:"cisa_kev_count"`
	RansomwareCount int       `gorm:"column:ransomware_count;not null" json:"ransomware_count"`
	DangerScore     float64   `gorm:"column:danger_score;not null;index" json:"danger_score"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// TableName pins the table name used by the presentation layer.
func (VendorRecord) TableName() string {
	return "vendors"
}
