// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"time"

	"github.com/autobrr/animefun/internal/catalog"
	"github.com/autobrr/animefun/internal/downloader"
)

// SubscriptionDTO is a subscription as presented to the UI.
type SubscriptionDTO struct {
	SubjectID  int       `json:"subject_id"`
	Name       string    `json:"name,omitempty"`
	NameCN     string    `json:"name_cn,omitempty"`
	AddedAt    time.Time `json:"added_at"`
	Notify     bool      `json:"notify"`
	LastSeenEp int       `json:"last_seen_ep"`
}

// ToggleRequest is the body of POST /subscriptions/toggle.
type ToggleRequest struct {
	SubjectID int  `json:"subject_id"`
	Notify    bool `json:"notify"`
}

// ToggleResponse reports whether the toggle added or removed the subscription.
type ToggleResponse struct {
	Added bool `json:"added"`
}

// SubjectIndexDTO is a row of the denormalized subject index, as returned
// by the subscription query endpoint.
type SubjectIndexDTO struct {
	SubjectID   int       `json:"subject_id"`
	Name        string    `json:"name"`
	NameCN      string    `json:"name_cn"`
	Tags        []string  `json:"tags,omitempty"`
	RatingScore *float64  `json:"rating_score,omitempty"`
	RatingRank  *int      `json:"rating_rank,omitempty"`
	RatingTotal *int      `json:"rating_total,omitempty"`
	StatusCode  int       `json:"status_code"`
	CoverURL    string    `json:"cover_url,omitempty"`
	AddedAt     time.Time `json:"added_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QueryResponse is the paged subscription-query response envelope.
type QueryResponse struct {
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Data   []SubjectIndexDTO `json:"data"`
}

// SearchRequestDTO mirrors catalog.SearchRequest as a JSON wire body.
type SearchRequestDTO struct {
	Keyword string               `json:"keyword"`
	Sort    string               `json:"sort,omitempty"`
	Filter  catalog.SearchFilter `json:"filter,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
	Offset  int                  `json:"offset,omitempty"`
}

// DownloaderConfigRequest is the body of PUT /downloader/config.
type DownloaderConfigRequest struct {
	APIURL   string `json:"api_url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

func toDownloaderConfig(req DownloaderConfigRequest) downloader.Config {
	return downloader.Config{APIURL: req.APIURL, Username: req.Username, Password: req.Password}
}

// TorrentDTO is a single torrent, as reported by the live qBittorrent client.
type TorrentDTO struct {
	Hash     string  `json:"hash"`
	Name     string  `json:"name"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
	Size     int64   `json:"size"`
}

// AddTorrentRequest is the body of POST /torrents.
type AddTorrentRequest struct {
	AnimeID   int    `json:"anime_id"`
	EpisodeID *int   `json:"episode_id,omitempty"`
	MagnetURL string `json:"magnet_url"`
	SavePath  string `json:"save_path,omitempty"`
}

// TorrentHashesRequest is the body of the pause/resume endpoints.
type TorrentHashesRequest struct {
	Hashes []string `json:"hashes"`
}
