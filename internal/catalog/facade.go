// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package catalog is the Bangumi facade: four typed, cached operations over
// the cachedapi adapter.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/autobrr/animefun/internal/cachedapi"
)

const (
	calendarTTL = 6 * time.Hour
	subjectTTL  = 24 * time.Hour
	episodesTTL = time.Hour
	searchTTL   = time.Hour
)

// Facade exposes the Bangumi catalog operations.
type Facade struct {
	adapter *cachedapi.Adapter
	host    string
}

// New builds a Facade pointed at host (e.g. https://api.bgm.tv).
func New(adapter *cachedapi.Adapter, host string) *Facade {
	return &Facade{adapter: adapter, host: strings.TrimSuffix(host, "/")}
}

// FetchCalendar returns the weekly broadcast schedule.
func (f *Facade) FetchCalendar(ctx context.Context) ([]CalendarDay, error) {
	build := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, f.host+"/calendar", nil)
	}

	var days []CalendarDay
	if err := f.adapter.FetchJSON(ctx, "calendar", build, calendarTTL, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// FetchSubject returns the full catalog record for id.
func (f *Facade) FetchSubject(ctx context.Context, id int) (*Subject, error) {
	key := fmt.Sprintf("subject:%d", id)
	build := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v0/subjects/%d", f.host, id), nil)
	}

	var subject Subject
	if err := f.adapter.FetchJSON(ctx, key, build, subjectTTL, &subject); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FetchEpisodes returns a page of episodes for subject id. epType, limit,
// and offset of 0 are treated as "unset" (omitted from the query/key); an
// explicit type=0 is never sent, so epType 0 requests every episode type.
func (f *Facade) FetchEpisodes(ctx context.Context, id, epType, limit, offset int) (*PagedEpisodes, error) {
	key := fmt.Sprintf("episodes:%d:%s:%s:%s", id, optInt(epType), optInt(limit), optInt(offset))

	build := func(ctx context.Context) (*http.Request, error) {
		q := url.Values{}
		q.Set("subject_id", strconv.Itoa(id))
		if epType != 0 {
			q.Set("type", strconv.Itoa(epType))
		}
		if limit != 0 {
			q.Set("limit", strconv.Itoa(limit))
		}
		if offset != 0 {
			q.Set("offset", strconv.Itoa(offset))
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, f.host+"/v0/episodes?"+q.Encode(), nil)
	}

	var page PagedEpisodes
	if err := f.adapter.FetchJSON(ctx, key, build, episodesTTL, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchSubject performs a filtered subject search. The cache key is built
// from a canonicalized copy of req so equivalent requests (e.g. list-valued
// filters in a different order) share one cache entry.
func (f *Facade) SearchSubject(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	key := "search:" + canonicalSearchKey(req)

	build := func(ctx context.Context) (*http.Request, error) {
		payload := struct {
			Keyword string       `json:"keyword"`
			Sort    string       `json:"sort,omitempty"`
			Filter  SearchFilter `json:"filter"`
		}{Keyword: req.Keyword, Sort: req.Sort, Filter: req.Filter}

		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}

		q := url.Values{}
		if req.Limit != 0 {
			q.Set("limit", strconv.Itoa(req.Limit))
		}
		if req.Offset != 0 {
			q.Set("offset", strconv.Itoa(req.Offset))
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.host+"/v0/search/subjects?"+q.Encode(), strings.NewReader(string(body)))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	}

	var resp SearchResponse
	if err := f.adapter.FetchJSON(ctx, key, build, searchTTL, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func optInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// canonicalSearchKey sorts every list-valued filter ascending before
// marshaling, so two semantically-equivalent requests hash to the same key
// regardless of caller-supplied ordering.
func canonicalSearchKey(req SearchRequest) string {
	f := req.Filter
	f.Type = append([]int(nil), f.Type...)
	f.Tag = append([]string(nil), f.Tag...)
	f.AirDate = append([]string(nil), f.AirDate...)
	f.Rating = append([]string(nil), f.Rating...)
	f.RatingCount = append([]string(nil), f.RatingCount...)
	f.Rank = append([]string(nil), f.Rank...)

	sort.Ints(f.Type)
	sort.Strings(f.Tag)
	sort.Strings(f.AirDate)
	sort.Strings(f.Rating)
	sort.Strings(f.RatingCount)
	sort.Strings(f.Rank)

	canonical := struct {
		Keyword string       `json:"keyword"`
		Sort    string       `json:"sort,omitempty"`
		Filter  SearchFilter `json:"filter"`
		Limit   int          `json:"limit,omitempty"`
		Offset  int          `json:"offset,omitempty"`
	}{Keyword: req.Keyword, Sort: req.Sort, Filter: f, Limit: req.Limit, Offset: req.Offset}

	body, err := json.Marshal(canonical)
	if err != nil {
		// Marshaling a plain struct of strings/ints/slices cannot fail.
		return req.Keyword
	}
	return string(body)
}
