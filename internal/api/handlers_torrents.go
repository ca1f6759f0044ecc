// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"
	"regexp"
	"strings"

	qbt "github.com/autobrr/go-qbittorrent"

	"github.com/autobrr/animefun/internal/store"
)

var magnetHashRe = regexp.MustCompile(`(?i)urn:btih:([0-9a-f]{40}|[2-7a-z]{32})`)

func extractInfoHash(magnet string) string {
	m := magnetHashRe.FindStringSubmatch(magnet)
	if len(m) < 2 {
		return ""
	}
	return strings.ToLower(m[1])
}

// listTorrents handles GET /api/torrents.
func (h *handlers) listTorrents(w http.ResponseWriter, r *http.Request) {
	client := h.deps.Downloader.Client()
	if client == nil {
		RespondError(w, http.StatusServiceUnavailable, "downloader not configured")
		return
	}

	torrents, err := client.GetTorrentsCtx(r.Context(), qbt.TorrentFilterOptions{})
	if err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}

	out := make([]TorrentDTO, 0, len(torrents))
	for _, t := range torrents {
		out = append(out, TorrentDTO{
			Hash:     t.Hash,
			Name:     t.Name,
			State:    string(t.State),
			Progress: t.Progress,
			Size:     t.Size,
		})
	}
	RespondJSON(w, http.StatusOK, out)
}

// addTorrent handles POST /api/torrents: adds the magnet to qBittorrent and
// records a local bookkeeping row keyed by its info hash.
func (h *handlers) addTorrent(w http.ResponseWriter, r *http.Request) {
	var body AddTorrentRequest
	if !DecodeJSON(w, r, &body) {
		return
	}
	if body.MagnetURL == "" {
		RespondError(w, http.StatusBadRequest, "magnet_url is required")
		return
	}

	client := h.deps.Downloader.Client()
	if client == nil {
		RespondError(w, http.StatusServiceUnavailable, "downloader not configured")
		return
	}

	options := map[string]string{}
	if body.SavePath != "" {
		options["savepath"] = body.SavePath
		options["autoTMM"] = "false"
	}

	if err := client.AddTorrentFromUrlsCtx(r.Context(), []string{body.MagnetURL}, options); err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}

	task := store.DownloadTask{
		AnimeID:   body.AnimeID,
		EpisodeID: body.EpisodeID,
		InfoHash:  extractInfoHash(body.MagnetURL),
		MagnetURL: body.MagnetURL,
		SavePath:  body.SavePath,
		Status:    "downloading",
	}
	id, err := h.deps.Stores.Downloads.Add(r.Context(), task)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	task.ID = id
	RespondJSON(w, http.StatusCreated, task)
}

// pauseTorrents handles POST /api/torrents/pause.
func (h *handlers) pauseTorrents(w http.ResponseWriter, r *http.Request) {
	var body TorrentHashesRequest
	if !DecodeJSON(w, r, &body) {
		return
	}
	client := h.deps.Downloader.Client()
	if client == nil {
		RespondError(w, http.StatusServiceUnavailable, "downloader not configured")
		return
	}
	if err := client.Pause(r.Context(), body.Hashes); err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, nil)
}

// resumeTorrents handles POST /api/torrents/resume.
func (h *handlers) resumeTorrents(w http.ResponseWriter, r *http.Request) {
	var body TorrentHashesRequest
	if !DecodeJSON(w, r, &body) {
		return
	}
	client := h.deps.Downloader.Client()
	if client == nil {
		RespondError(w, http.StatusServiceUnavailable, "downloader not configured")
		return
	}
	if err := client.Resume(r.Context(), body.Hashes); err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, nil)
}

// deleteTorrent handles DELETE /api/torrents/{id}: removes the torrent from
// qBittorrent (optionally its files, via ?delete_files=true) and drops the
// local bookkeeping row.
func (h *handlers) deleteTorrent(w http.ResponseWriter, r *http.Request) {
	idInt, ok := ParseIntParam(w, r, "id")
	if !ok {
		return
	}
	id := int64(idInt)

	task, err := h.deps.Stores.Downloads.Get(r.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			RespondError(w, http.StatusNotFound, "task not found")
			return
		}
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if client := h.deps.Downloader.Client(); client != nil && task.InfoHash != "" {
		deleteFiles := r.URL.Query().Get("delete_files") == "true"
		if err := client.DeleteTorrentsCtx(r.Context(), []string{task.InfoHash}, deleteFiles); err != nil {
			RespondError(w, http.StatusBadGateway, err.Error())
			return
		}
	}

	if err := h.deps.Stores.Downloads.Delete(r.Context(), id); err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, nil)
}
