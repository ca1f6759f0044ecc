// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/autobrr/animefun/internal/database"
)

// Subscription mirrors the subscriptions table (§3).
type Subscription struct {
	SubjectID  int
	AddedAt    time.Time
	Notify     bool
	LastSeenEp int
}

// SubscriptionWithName is a Subscription left-joined with its index row's
// display name, for UI listing.
type SubscriptionWithName struct {
	Subscription
	Name   string
	NameCN string
}

// SubscriptionStore owns the subscriptions table.
type SubscriptionStore struct {
	db *database.DB
}

// Toggle inserts a new subscription if one doesn't exist (added=true), or
// removes it (and its index row) if one does (added=false). notify is only
// used on insert.
func (s *SubscriptionStore) Toggle(ctx context.Context, subjectID int, notify bool) (added bool, err error) {
	var exists int
	row := s.db.QueryRowContext(ctx, `SELECT 1 FROM subscriptions WHERE subject_id = ?`, subjectID)
	switch err := row.Scan(&exists); err {
	case nil:
		if _, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE subject_id = ?`, subjectID); err != nil {
			return false, err
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM subjects_index WHERE subject_id = ?`, subjectID); err != nil {
			return false, err
		}
		return false, nil
	case sql.ErrNoRows:
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO subscriptions (subject_id, added_at, notify, last_seen_ep) VALUES (?, ?, ?, 0)`,
			subjectID, time.Now().Unix(), boolToInt(notify))
		if err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, err
	}
}

// Clear removes every subscription and index row.
func (s *SubscriptionStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM subjects_index`)
	return err
}

// List returns every subscription in added_at DESC order, with the display
// name left-joined from the subject index.
func (s *SubscriptionStore) List(ctx context.Context) ([]SubscriptionWithName, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.subject_id, s.added_at, s.notify, s.last_seen_ep,
		       COALESCE(i.name, ''), COALESCE(i.name_cn, '')
		FROM subscriptions s
		LEFT JOIN subjects_index i ON i.subject_id = s.subject_id
		ORDER BY s.added_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubscriptionWithName
	for rows.Next() {
		var sub SubscriptionWithName
		var addedAt int64
		var notify int
		if err := rows.Scan(&sub.SubjectID, &addedAt, &notify, &sub.LastSeenEp, &sub.Name, &sub.NameCN); err != nil {
			return nil, err
		}
		sub.AddedAt = time.Unix(addedAt, 0).UTC()
		sub.Notify = notify != 0
		out = append(out, sub)
	}
	return out, rows.Err()
}

// ListAll returns every subscription (no join), for the background workers.
func (s *SubscriptionStore) ListAll(ctx context.Context) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subject_id, added_at, notify, last_seen_ep FROM subscriptions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var sub Subscription
		var addedAt int64
		var notify int
		if err := rows.Scan(&sub.SubjectID, &addedAt, &notify, &sub.LastSeenEp); err != nil {
			return nil, err
		}
		sub.AddedAt = time.Unix(addedAt, 0).UTC()
		sub.Notify = notify != 0
		out = append(out, sub)
	}
	return out, rows.Err()
}

// AdvanceLastSeenEp sets last_seen_ep to newMax, but only if newMax is
// strictly greater than the current value (monotonicity, §5).
func (s *SubscriptionStore) AdvanceLastSeenEp(ctx context.Context, subjectID, newMax int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET last_seen_ep = ? WHERE subject_id = ? AND last_seen_ep < ?`,
		newMax, subjectID, newMax)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
