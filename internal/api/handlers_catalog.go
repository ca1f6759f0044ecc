// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"

	"github.com/autobrr/animefun/internal/catalog"
)

type handlers struct {
	deps *Dependencies
}

// getCalendar handles GET /api/calendar.
func (h *handlers) getCalendar(w http.ResponseWriter, r *http.Request) {
	days, err := h.deps.Catalog.FetchCalendar(r.Context())
	if err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, days)
}

// getSubject handles GET /api/subjects/{id}.
func (h *handlers) getSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id")
	if !ok {
		return
	}
	subject, err := h.deps.Catalog.FetchSubject(r.Context(), id)
	if err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, subject)
}

// getSubjectStatus handles GET /api/subjects/{id}/status.
func (h *handlers) getSubjectStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id")
	if !ok {
		return
	}
	status, err := h.deps.Status.Calculate(r.Context(), id)
	if err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, status)
}

// getEpisodes handles GET /api/subjects/{id}/episodes.
func (h *handlers) getEpisodes(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIntParam(w, r, "id")
	if !ok {
		return
	}
	epType := queryInt(r, "type", 0)
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	episodes, err := h.deps.Catalog.FetchEpisodes(r.Context(), id, epType, limit, offset)
	if err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, episodes)
}

// searchSubjects handles POST /api/search.
func (h *handlers) searchSubjects(w http.ResponseWriter, r *http.Request) {
	var body SearchRequestDTO
	if !DecodeJSON(w, r, &body) {
		return
	}

	req := catalog.SearchRequest{
		Keyword: body.Keyword,
		Sort:    body.Sort,
		Filter:  body.Filter,
		Limit:   body.Limit,
		Offset:  body.Offset,
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	resp, err := h.deps.Catalog.SearchSubject(r.Context(), req)
	if err != nil {
		RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, resp)
}
