// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package cache stores downloaded feed data on disk together with the time
// it was fetched, so repeated runs within the TTL skip the network.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultTTL is how long a downloaded feed is considered fresh.
const DefaultTTL = 24 * time.Hour

const metadataFilename = "metadata.json"

// Metadata records when and from where the cached data was downloaded.
type Metadata struct {
	DownloadedAt string `json:"downloaded_at"`
	Origin       string `json:"origin,omitempty"`
}

// Cache is a directory holding feed files plus a metadata.json.
type Cache struct {
	dir string
	ttl time.Duration
}

// New returns a cache rooted at dir. A non-positive ttl means DefaultTTL.
func New(dir string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{dir: dir, ttl: ttl}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Age returns how long ago the cached data was downloaded.
func (c *Cache) Age() (time.Duration, bool) {
	meta, err := c.loadMetadata()
	if err != nil {
		return 0, false
	}
	downloadedAt, err := time.Parse(time.RFC3339, meta.DownloadedAt)
	if err != nil {
		return 0, false
	}
	return time.Since(downloadedAt), true
}

// IsFresh reports whether the cached data is younger than the TTL.
func (c *Cache) IsFresh() bool {
	age, ok := c.Age()
	return ok && age < c.ttl
}

// Store writes data under filename and stamps the metadata with the
// current time and origin.
func (c *Cache) Store(filename, origin string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if err := writeAtomic(filepath.Join(c.dir, filename), data); err != nil {
		return fmt.Errorf("writing cache data: %w", err)
	}
	meta := Metadata{
		DownloadedAt: time.Now().UTC().Format(time.RFC3339),
		Origin:       origin,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := writeAtomic(filepath.Join(c.dir, metadataFilename), metaBytes); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// Load returns the cached contents of filename.
func (c *Cache) Load(filename string) ([]byte, error) {
	return os.ReadFile(filepath.Join(c.dir, filename))
}

// Exists reports whether filename is present in the cache.
func (c *Cache) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(c.dir, filename))
	return err == nil
}

func (c *Cache) loadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, metadataFilename))
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// writeAtomic writes to a temporary file and renames it into place so a
// crash never leaves a truncated cache file behind.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".new"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
