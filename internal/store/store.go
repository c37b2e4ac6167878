// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package store persists vendor records in a SQLite database through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bonial-oss/vendor-danger-index/internal/logger"
	"github.com/bonial-oss/vendor-danger-index/internal/types"
)

// ErrVendorNotFound is returned by Get when no row has the given name.
var ErrVendorNotFound = errors.New("vendor not found")

// UpsertError records the failure to persist a single vendor. Other vendors
// in the same batch are unaffected.
type UpsertError struct {
	Vendor string
	Err    error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upserting vendor %q: %v", e.Vendor, e.Err)
}

func (e *UpsertError) Unwrap() error { return e.Err }

// UpsertSummary counts the outcome of an Upsert call.
type UpsertSummary struct {
	Created int
	Updated int
	Failed  int
}

// Store is an open vendor database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path and migrates
// the vendors table.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("accessing database handle: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&types.VendorRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrating vendors table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert writes the counts and score of each record, matching existing rows
// by exact name. Every vendor is written in its own transaction; failures
// are collected as *UpsertError and returned joined. Vendors not in rows
// are left untouched.
func (s *Store) Upsert(ctx context.Context, rows []types.VendorRecord) (UpsertSummary, error) {
	var (
		summary UpsertSummary
		errs    []error
	)
	for i := range rows {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		created, err := s.upsertOne(ctx, &rows[i])
		switch {
		case err != nil:
			summary.Failed++
			logger.WarnContext(ctx, "Failed to persist vendor", "vendor", rows[i].Name, "error", err)
			errs = append(errs, &UpsertError{Vendor: rows[i].Name, Err: err})
		case created:
			summary.Created++
		default:
			summary.Updated++
		}
	}
	return summary, errors.Join(errs...)
}

func (s *Store) upsertOne(ctx context.Context, rec *types.VendorRecord) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing types.VendorRecord
		err := tx.Where("name = ?", rec.Name).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row := types.VendorRecord{
				Name:            rec.Name,
				CVECount:        rec.CVECount,
				CISAKEVCount:    rec.CISAKEVCount,
				RansomwareCount: rec.RansomwareCount,
				DangerScore:     rec.DangerScore,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			created = true
			return nil
		}
		if err != nil {
			return err
		}
		// A map so zero counts are written too.
		return tx.Model(&existing).Updates(map[string]any{
			"cve_count":        rec.CVECount,
			"cisa_kev_count":   rec.CISAKEVCount,
			"ransomware_count": rec.RansomwareCount,
			"danger_score":     rec.DangerScore,
		}).Error
	})
	return created, err
}

// List returns stored vendors by danger score, highest first. A positive
// limit caps the number of rows.
func (s *Store) List(ctx context.Context, limit int) ([]types.VendorRecord, error) {
	var rows []types.VendorRecord
	q := s.db.WithContext(ctx).Order("danger_score DESC").Order("name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing vendors: %w", err)
	}
	return rows, nil
}

// Get returns the vendor with exactly the given name.
func (s *Store) Get(ctx context.Context, name string) (*types.VendorRecord, error) {
	var row types.VendorRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrVendorNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading vendor %s: %w", name, err)
	}
	return &row, nil
}
