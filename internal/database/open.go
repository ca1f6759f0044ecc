// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"io/fs"
	"path/filepath"
)

// OpenCache opens the conditional-HTTP-cache database at dataDir/cache.sqlite.
func OpenCache(dataDir string, migrations fs.FS) (*DB, error) {
	return Open(filepath.Join(dataDir, "cache.sqlite"), migrations)
}

// OpenData opens the subscriptions/index/mapping database at
// dataDir/data.sqlite.
func OpenData(dataDir string, migrations fs.FS) (*DB, error) {
	return Open(filepath.Join(dataDir, "data.sqlite"), migrations)
}
