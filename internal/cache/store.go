// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package cache implements the conditional-HTTP cache store: a single
// key/value table with ETag/Last-Modified metadata and a per-row TTL, backed
// by cache.sqlite.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/animefun/internal/database"
	"github.com/autobrr/animefun/internal/dbinterface"
	"github.com/autobrr/animefun/internal/metrics/collector"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Entry is a cached response body plus the metadata needed for conditional
// revalidation.
type Entry struct {
	Value        []byte
	ETag         string
	LastModified string
}

// Store is the SQLite-backed conditional cache. All methods are safe for
// concurrent use.
type Store struct {
	db              dbinterface.Querier
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	metrics         *collector.CacheMetrics
}

// OptFunc configures a Store at construction time.
type OptFunc func(*Store)

// WithCleanupInterval overrides the default opportunistic-cleanup cadence.
// Passing 0 disables the background sweep entirely; set_entry still deletes
// expired rows opportunistically on every write.
func WithCleanupInterval(interval time.Duration) OptFunc {
	return func(s *Store) { s.cleanupInterval = interval }
}

// WithMetrics records every GetEntry call against m, labeled by the key's
// kind prefix (the segment before its first ':', e.g. "subject", "mikan").
func WithMetrics(m *collector.CacheMetrics) OptFunc {
	return func(s *Store) { s.metrics = m }
}

func cacheKindOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Open opens (or creates and migrates) cache.sqlite under dataDir and
// returns a ready Store.
func Open(dataDir string, opts ...OptFunc) (*Store, *database.DB, error) {
	db, err := database.OpenCache(dataDir, migrationsFS)
	if err != nil {
		return nil, nil, err
	}
	return New(db, opts...), db, nil
}

// New wraps an already-open connection (typically a *database.DB, but any
// dbinterface.Querier works, which keeps tests able to use testdb clones).
func New(db dbinterface.Querier, opts ...OptFunc) *Store {
	s := &Store{
		db:              db,
		cleanupInterval: 10 * time.Minute,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cleanupInterval > 0 {
		s.stopCleanup = make(chan struct{})
		go s.startCleanup()
	}

	return s
}

// GetEntry returns the cached entry for key if it exists and has not
// expired. An expired row is deleted as a side effect of the read.
func (s *Store) GetEntry(ctx context.Context, key string) (*Entry, bool, error) {
	now := time.Now().Unix()

	var entry Entry
	var etag, lastModified sql.NullString
	row := s.db.QueryRowContext(ctx,
		"SELECT value, etag, last_modified FROM cache WHERE key = ? AND expires_at > ?",
		key, now)

	if err := row.Scan(&entry.Value, &etag, &lastModified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lazily clean up an expired row, if any, under the same key.
			_, _ = s.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ? AND expires_at <= ?", key, now)
			s.recordMiss(key)
			return nil, false, nil
		}
		return nil, false, err
	}

	entry.ETag = etag.String
	entry.LastModified = lastModified.String
	s.recordHit(key)
	return &entry, true, nil
}

func (s *Store) recordHit(key string) {
	if s.metrics != nil {
		s.metrics.Hits.WithLabelValues(cacheKindOf(key)).Inc()
	}
}

func (s *Store) recordMiss(key string) {
	if s.metrics != nil {
		s.metrics.Misses.WithLabelValues(cacheKindOf(key)).Inc()
	}
}

// SetEntry upserts key with value and optional revalidation metadata,
// floors ttl at 1 second, and opportunistically deletes all expired rows.
func (s *Store) SetEntry(ctx context.Context, key string, value []byte, etag, lastModified string, ttl time.Duration) error {
	if ttl < time.Second {
		ttl = time.Second
	}

	now := time.Now()
	expiresAt := now.Add(ttl).Unix()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache (key, value, etag, last_modified, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			etag = excluded.etag,
			last_modified = excluded.last_modified,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
	`, key, value, nullable(etag), nullable(lastModified), now.Unix(), expiresAt)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM cache WHERE expires_at <= ?", now.Unix())
	return err
}

// TouchExpiry refreshes a row's TTL (and, for a 304 revalidation, its
// metadata) without altering the stored value.
func (s *Store) TouchExpiry(ctx context.Context, key, etag, lastModified string, ttl time.Duration) error {
	if ttl < time.Second {
		ttl = time.Second
	}
	expiresAt := time.Now().Add(ttl).Unix()

	_, err := s.db.ExecContext(ctx,
		"UPDATE cache SET etag = ?, last_modified = ?, expires_at = ? WHERE key = ?",
		nullable(etag), nullable(lastModified), expiresAt, key)
	return err
}

// Stop terminates the background cleanup goroutine, if running.
func (s *Store) Stop() {
	if s.stopCleanup != nil {
		close(s.stopCleanup)
	}
}

func (s *Store) startCleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.db.ExecContext(context.Background(), "DELETE FROM cache WHERE expires_at <= ?", time.Now().Unix()); err != nil {
				log.Warn().Err(err).Msg("cache: periodic cleanup failed")
			}
		case <-s.stopCleanup:
			return
		}
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
