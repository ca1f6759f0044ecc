// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/autobrr/animefun/internal/refreshworker"
	"github.com/autobrr/animefun/internal/store"
)

// listSubscriptions handles GET /api/subscriptions.
func (h *handlers) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.deps.Stores.Subscriptions.List(r.Context())
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]SubscriptionDTO, 0, len(subs))
	for _, s := range subs {
		out = append(out, SubscriptionDTO{
			SubjectID:  s.SubjectID,
			Name:       s.Name,
			NameCN:     s.NameCN,
			AddedAt:    s.AddedAt,
			Notify:     s.Notify,
			LastSeenEp: s.LastSeenEp,
		})
	}
	RespondJSON(w, http.StatusOK, out)
}

// toggleSubscription handles POST /api/subscriptions/toggle.
func (h *handlers) toggleSubscription(w http.ResponseWriter, r *http.Request) {
	var body ToggleRequest
	if !DecodeJSON(w, r, &body) {
		return
	}
	if body.SubjectID == 0 {
		RespondError(w, http.StatusBadRequest, "subject_id is required")
		return
	}

	added, err := h.deps.Stores.Subscriptions.Toggle(r.Context(), body.SubjectID, body.Notify)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if added {
		h.enqueueIndexUpsert(body.SubjectID)
	}
	RespondJSON(w, http.StatusOK, ToggleResponse{Added: added})
}

// enqueueIndexUpsert runs RefreshOne in the background so a newly toggled-on
// subscription gets an index row immediately rather than waiting for the
// next refresh sweep (§3, §4.10). Detached from the request context since
// the response is already on its way back to the caller.
func (h *handlers) enqueueIndexUpsert(subjectID int) {
	if h.deps.Catalog == nil || h.deps.Status == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.deps.Logger.Warn().Interface("panic", r).Int("subject_id", subjectID).Msg("toggle-on index upsert panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := refreshworker.RefreshOne(ctx, h.deps.Catalog, h.deps.Status, h.deps.Stores.Index, subjectID); err != nil {
			h.deps.Logger.Warn().Err(err).Int("subject_id", subjectID).Msg("toggle-on index upsert")
		}
	}()
}

// clearSubscriptions handles POST /api/subscriptions/clear.
func (h *handlers) clearSubscriptions(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Stores.Subscriptions.Clear(r.Context()); err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, nil)
}

// querySubscriptions handles GET /api/subscriptions/query, the filtered,
// sorted, paged view over the subject index.
func (h *handlers) querySubscriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := store.QueryParams{
		Keywords:  q.Get("keywords"),
		Sort:      q.Get("sort"),
		MinRating: queryFloatPtr(r, "min_rating"),
		MaxRating: queryFloatPtr(r, "max_rating"),
		Limit:     queryInt(r, "limit", 50),
		Offset:    queryInt(r, "offset", 0),
	}
	if genres := q["genre"]; len(genres) > 0 {
		params.Genres = genres
	}
	if sc := q.Get("status_code"); sc != "" {
		if n, ok := parseStatusCode(sc); ok {
			params.StatusCode = &n
		}
	}

	rows, total, err := h.deps.Stores.Index.QueryFull(r.Context(), params)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]SubjectIndexDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, SubjectIndexDTO{
			SubjectID:   row.SubjectID,
			Name:        row.Name,
			NameCN:      row.NameCN,
			Tags:        row.Tags,
			RatingScore: row.RatingScore,
			RatingRank:  row.RatingRank,
			RatingTotal: row.RatingTotal,
			StatusCode:  row.StatusCode,
			CoverURL:    row.CoverURL,
			AddedAt:     row.AddedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}

	RespondJSON(w, http.StatusOK, QueryResponse{Total: total, Limit: params.Limit, Offset: params.Offset, Data: out})
}

func parseStatusCode(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
