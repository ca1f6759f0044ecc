// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"
)

// getMikanResources handles GET /api/subjects/{id}/mikan-resources: resolve
// the subject's Mikan mapping, then list its RSS resource feed.
func (h *handlers) getMikanResources(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id")
	if !ok {
		return
	}

	mikanID, found, err := h.deps.Mapping.Resolve(r.Context(), id)
	if err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	if !found {
		RespondJSON(w, http.StatusOK, []any{})
		return
	}

	items, err := h.deps.Mikan.FetchRSS(r.Context(), mikanID)
	if err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, items)
}
