// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/autobrr/animefun/internal/database"
)

// Mapping mirrors the mikan_bangumi_map table (§3).
type Mapping struct {
	BgmSubjectID   int
	MikanBangumiID int
	Confidence     float64
	Source         string
	Locked         bool
	UpdatedAt      time.Time
}

// MappingStore owns the mikan_bangumi_map table.
type MappingStore struct {
	db *database.DB
}

// Get returns the mapping for bgmSubjectID, or ErrNotFound.
func (s *MappingStore) Get(ctx context.Context, bgmSubjectID int) (*Mapping, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT bgm_subject_id, mikan_bangumi_id, confidence, source, locked, updated_at
		FROM mikan_bangumi_map WHERE bgm_subject_id = ?`, bgmSubjectID)

	var m Mapping
	var locked int
	var updatedAt int64
	switch err := row.Scan(&m.BgmSubjectID, &m.MikanBangumiID, &m.Confidence, &m.Source, &locked, &updatedAt); {
	case err == nil:
		m.Locked = locked != 0
		m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		return &m, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

// Upsert writes a resolved mapping, skipping the write entirely if the
// existing row is locked (§4.7: "locked rows are not overwritten by
// resolver").
func (s *MappingStore) Upsert(ctx context.Context, m Mapping) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mikan_bangumi_map (bgm_subject_id, mikan_bangumi_id, confidence, source, locked, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(bgm_subject_id) DO UPDATE SET
			mikan_bangumi_id = excluded.mikan_bangumi_id,
			confidence       = excluded.confidence,
			source           = excluded.source,
			locked           = excluded.locked,
			updated_at       = excluded.updated_at
		WHERE mikan_bangumi_map.locked = 0`,
		m.BgmSubjectID, m.MikanBangumiID, m.Confidence, m.Source, boolToInt(m.Locked), time.Now().Unix())
	return err
}

// Lock marks a mapping as manually bound (UI-initiated), inserting the row if
// it does not exist yet, and sets source="manual" and locked=true so the
// resolver never overwrites it.
func (s *MappingStore) Lock(ctx context.Context, bgmSubjectID, mikanBangumiID int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mikan_bangumi_map (bgm_subject_id, mikan_bangumi_id, confidence, source, locked, updated_at)
		VALUES (?, ?, 1.0, 'manual', 1, ?)
		ON CONFLICT(bgm_subject_id) DO UPDATE SET
			mikan_bangumi_id = excluded.mikan_bangumi_id,
			confidence       = 1.0,
			source           = 'manual',
			locked           = 1,
			updated_at       = excluded.updated_at`,
		bgmSubjectID, mikanBangumiID, time.Now().Unix())
	return err
}
