// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"
)

// getDownloaderConfig handles GET /api/downloader/config. The returned
// password is always redacted (downloader.Config.Redacted).
func (h *handlers) getDownloaderConfig(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, h.deps.Downloader.Get())
}

// setDownloaderConfig handles PUT /api/downloader/config: persists the new
// config and reconnects the live qBittorrent client against it. An empty
// password leaves the previously stored credential untouched.
func (h *handlers) setDownloaderConfig(w http.ResponseWriter, r *http.Request) {
	var body DownloaderConfigRequest
	if !DecodeJSON(w, r, &body) {
		return
	}
	if body.APIURL == "" {
		RespondError(w, http.StatusBadRequest, "api_url is required")
		return
	}

	if err := h.deps.Downloader.Set(r.Context(), toDownloaderConfig(body)); err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, h.deps.Downloader.Get())
}
