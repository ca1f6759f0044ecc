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

// DownloadTask mirrors the download_tasks table, grounded on the original
// downloader repository's schema.
type DownloadTask struct {
	ID        int64
	AnimeID   int
	EpisodeID *int
	InfoHash  string
	MagnetURL string
	SavePath  string
	Status    string
	Metadata  string
	CreatedAt time.Time
}

// DownloadTaskStore owns the download_tasks table.
type DownloadTaskStore struct {
	db *database.DB
}

// Add inserts a new download task and returns its id.
func (s *DownloadTaskStore) Add(ctx context.Context, t DownloadTask) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO download_tasks (anime_id, episode_id, info_hash, magnet_url, save_path, status, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AnimeID, t.EpisodeID, t.InfoHash, t.MagnetURL, t.SavePath, orDefault(t.Status, "pending"), orDefault(t.Metadata, "{}"), time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns every download task, newest first.
func (s *DownloadTaskStore) List(ctx context.Context) ([]DownloadTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, anime_id, episode_id, info_hash, magnet_url, save_path, status, metadata, created_at
		FROM download_tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DownloadTask
	for rows.Next() {
		t, err := scanDownloadTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get returns a single task by id, or ErrNotFound.
func (s *DownloadTaskStore) Get(ctx context.Context, id int64) (*DownloadTask, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, anime_id, episode_id, info_hash, magnet_url, save_path, status, metadata, created_at
		FROM download_tasks WHERE id = ?`, id)
	t, err := scanDownloadTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByInfoHash returns a single task by its torrent info hash, or ErrNotFound.
func (s *DownloadTaskStore) GetByInfoHash(ctx context.Context, infoHash string) (*DownloadTask, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, anime_id, episode_id, info_hash, magnet_url, save_path, status, metadata, created_at
		FROM download_tasks WHERE info_hash = ?`, infoHash)
	t, err := scanDownloadTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateStatus sets a task's status.
func (s *DownloadTaskStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE download_tasks SET status = ? WHERE id = ?`, status, id)
	return err
}

// Delete removes a task.
func (s *DownloadTaskStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM download_tasks WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDownloadTask(row rowScanner) (DownloadTask, error) {
	var t DownloadTask
	var createdAt int64
	err := row.Scan(&t.ID, &t.AnimeID, &t.EpisodeID, &t.InfoHash, &t.MagnetURL, &t.SavePath, &t.Status, &t.Metadata, &createdAt)
	if err != nil {
		return t, err
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return t, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
