// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/autobrr/animefun/internal/database"
)

// SubjectIndexRow is the denormalized mirror of a remote subject (§3, §4.9).
type SubjectIndexRow struct {
	SubjectID   int
	AddedAt     time.Time
	UpdatedAt   time.Time
	Name        string
	NameCN      string
	Tags        []string
	RatingScore *float64
	RatingRank  *int
	RatingTotal *int
	StatusCode  int
	StatusOrd   int
	CoverURL    string
}

func tagsCSV(tags []string) string {
	if len(tags) == 0 {
		return ",,"
	}
	return "," + strings.Join(tags, ",") + ","
}

// SubjectIndexStore owns the subjects_index table.
type SubjectIndexStore struct {
	db *database.DB
}

// UpsertIfChanged inserts row if absent, or updates it only if any mirrored
// column differs from the incoming value. Returns true if a row was
// inserted or actually mutated.
func (s *SubjectIndexStore) UpsertIfChanged(ctx context.Context, row SubjectIndexRow) (changed bool, err error) {
	tags := tagsCSV(row.Tags)
	now := time.Now().Unix()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subjects_index (
			subject_id, added_at, updated_at, name, name_cn, tags_csv,
			rating_score, rating_rank, rating_total, status_code, status_ord, cover_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			updated_at   = excluded.updated_at,
			name         = excluded.name,
			name_cn      = excluded.name_cn,
			tags_csv     = excluded.tags_csv,
			rating_score = excluded.rating_score,
			rating_rank  = excluded.rating_rank,
			rating_total = excluded.rating_total,
			status_code  = excluded.status_code,
			status_ord   = excluded.status_ord,
			cover_url    = excluded.cover_url
		WHERE
			name         IS NOT excluded.name OR
			name_cn      IS NOT excluded.name_cn OR
			tags_csv     IS NOT excluded.tags_csv OR
			rating_score IS NOT excluded.rating_score OR
			rating_rank  IS NOT excluded.rating_rank OR
			rating_total IS NOT excluded.rating_total OR
			status_code  IS NOT excluded.status_code OR
			status_ord   IS NOT excluded.status_ord OR
			cover_url    IS NOT excluded.cover_url`,
		row.SubjectID, now, now, row.Name, row.NameCN, tags,
		row.RatingScore, row.RatingRank, row.RatingTotal, row.StatusCode, row.StatusOrd, row.CoverURL,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Delete removes a subject's index row.
func (s *SubjectIndexStore) Delete(ctx context.Context, subjectID int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subjects_index WHERE subject_id = ?`, subjectID)
	return err
}

// QueryParams controls QueryFull's filter/sort/page.
type QueryParams struct {
	Keywords   string
	Genres     []string
	MinRating  *float64
	MaxRating  *float64
	StatusCode *int
	Sort       string // "status" | "rank" | "score" | "heat" | "match" | "" (default: added_at desc)
	Limit      int
	Offset     int
}

// QueryFull runs the filtered/sorted/paged subject listing (§4.9).
func (s *SubjectIndexStore) QueryFull(ctx context.Context, p QueryParams) ([]SubjectIndexRow, int, error) {
	var where []string
	var args []any

	if kw := strings.TrimSpace(p.Keywords); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		where = append(where, `(LOWER(name) LIKE ? OR LOWER(name_cn) LIKE ?)`)
		args = append(args, like, like)
	}
	for _, g := range p.Genres {
		where = append(where, `tags_csv LIKE ?`)
		args = append(args, "%,"+strings.ToLower(g)+",%")
	}
	if p.MinRating != nil {
		where = append(where, `rating_score >= ?`)
		args = append(args, *p.MinRating)
	}
	if p.MaxRating != nil {
		where = append(where, `rating_score <= ?`)
		args = append(args, *p.MaxRating)
	}
	if p.StatusCode != nil {
		where = append(where, `status_code = ?`)
		args = append(args, *p.StatusCode)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countRow := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subjects_index`+whereClause, args...)
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy, orderArgs := orderByClause(p.Sort, strings.ToLower(strings.TrimSpace(p.Keywords)))

	query := `SELECT subject_id, added_at, updated_at, name, name_cn, tags_csv,
			rating_score, rating_rank, rating_total, status_code, status_ord, cover_url
		FROM subjects_index` + whereClause + orderBy + ` LIMIT ? OFFSET ?`
	queryArgs := append(append([]any{}, args...), orderArgs...)
	queryArgs = append(queryArgs, p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []SubjectIndexRow
	for rows.Next() {
		row, err := scanIndexRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

func orderByClause(sort, keywordLower string) (clause string, args []any) {
	switch sort {
	case "status":
		return " ORDER BY status_ord ASC", nil
	case "rank":
		return " ORDER BY (rating_rank IS NULL) ASC, rating_rank ASC", nil
	case "score":
		return " ORDER BY COALESCE(rating_score, 0) DESC", nil
	case "heat":
		return " ORDER BY COALESCE(rating_total, 0) DESC", nil
	case "match":
		if keywordLower == "" {
			return " ORDER BY added_at DESC", nil
		}
		prefix := keywordLower + "%"
		return " ORDER BY CASE" +
			" WHEN LOWER(name) LIKE ? THEN 0" +
			" WHEN LOWER(name_cn) LIKE ? THEN 1" +
			" ELSE 2 END ASC", []any{prefix, prefix}
	default:
		return " ORDER BY added_at DESC", nil
	}
}

func scanIndexRow(rows *sql.Rows) (SubjectIndexRow, error) {
	var row SubjectIndexRow
	var addedAt, updatedAt int64
	var tagsCSV string
	if err := rows.Scan(&row.SubjectID, &addedAt, &updatedAt, &row.Name, &row.NameCN, &tagsCSV,
		&row.RatingScore, &row.RatingRank, &row.RatingTotal, &row.StatusCode, &row.StatusOrd, &row.CoverURL); err != nil {
		return row, err
	}
	row.AddedAt = time.Unix(addedAt, 0).UTC()
	row.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	row.Tags = splitTagsCSV(tagsCSV)
	return row, nil
}

func splitTagsCSV(csv string) []string {
	trimmed := strings.Trim(csv, ",")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, ",")
}
