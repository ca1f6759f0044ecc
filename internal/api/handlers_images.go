// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"
)

// getImage handles GET /api/images?url=...: proxies a remote cover image
// through the content-addressed image cache and serves the cached file.
func (h *handlers) getImage(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		RespondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if h.deps.Images == nil {
		RespondError(w, http.StatusServiceUnavailable, "image cache not configured")
		return
	}

	path, err := h.deps.Images.Fetch(r.Context(), url)
	if err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	http.ServeFile(w, r, path)
}
