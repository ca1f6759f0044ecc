// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package store holds the data.sqlite-backed persistent stores: the
// subscription list, the denormalized subject index, the Mikan/Bangumi
// mapping table, and the download task queue.
package store

import (
	"context"
	"embed"
	"errors"
	"strings"

	"github.com/autobrr/animefun/internal/database"
	"github.com/autobrr/animefun/internal/dbinterface"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Stores bundles every persistent store over one data.sqlite connection.
type Stores struct {
	db *database.DB

	Subscriptions *SubscriptionStore
	Index         *SubjectIndexStore
	Mapping       *MappingStore
	Downloads     *DownloadTaskStore
}

// Open opens (creating if necessary) data.sqlite under dataDir, applies
// migrations, and constructs every store over the shared connection.
func Open(dataDir string) (*Stores, error) {
	db, err := database.OpenData(dataDir, migrationFiles)
	if err != nil {
		return nil, err
	}

	if err := addCoverURLColumn(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Stores{
		db:            db,
		Subscriptions: &SubscriptionStore{db: db},
		Index:         &SubjectIndexStore{db: db},
		Mapping:       &MappingStore{db: db},
		Downloads:     &DownloadTaskStore{db: db},
	}, nil
}

// Close closes the underlying database connection.
func (s *Stores) Close() error {
	return s.db.Close()
}

// addCoverURLColumn is a best-effort additive migration applied outside the
// numbered migrations table: subjects_index predates the cover_url column
// in deployments that migrated from an older schema, so this ALTER runs on
// every startup and tolerates "duplicate column" once it has already
// applied.
func addCoverURLColumn(db *database.DB) error {
	_, err := db.ExecContext(context.Background(), `ALTER TABLE subjects_index ADD COLUMN cover_url TEXT NOT NULL DEFAULT ''`)
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "duplicate column") {
		return nil
	}
	return err
}

var errNotFound = errors.New("store: not found")

// ErrNotFound is returned by Get-style lookups that find no row.
var ErrNotFound = errNotFound

// querier is satisfied by *database.DB and *database.Tx.
type querier = dbinterface.Querier
