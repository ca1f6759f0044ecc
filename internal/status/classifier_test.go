// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package status_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/autobrr/animefun/internal/cache"
	"github.com/autobrr/animefun/internal/cachedapi"
	"github.com/autobrr/animefun/internal/catalog"
	"github.com/autobrr/animefun/internal/httpgateway"
	"github.com/autobrr/animefun/internal/status"
)

// fixture is a minimal fake Bangumi server: one subject, an optional
// calendar hit, and a flat episode list served back in two pages (first,
// last) the way the classifier's targeted two-call fetch expects.
type fixture struct {
	date          string
	eps           int
	totalEpisodes int
	onCalendar    bool
	episodeDates  []string // airdate for each episode, in sort order
}

func newClassifier(t *testing.T, f fixture) *status.Classifier {
	t.Helper()
	const subjectID = 12381

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v0/subjects/12381":
			fmt.Fprintf(w, `{"id":12381,"eps":%d,"total_episodes":%d,"date":%q}`, f.eps, f.totalEpisodes, f.date)
		case r.URL.Path == "/calendar":
			if f.onCalendar {
				fmt.Fprint(w, `[{"weekday":{"id":1},"items":[{"id":12381}]}]`)
			} else {
				fmt.Fprint(w, `[{"weekday":{"id":1},"items":[]}]`)
			}
		case r.URL.Path == "/v0/episodes":
			offset := 0
			if o := r.URL.Query().Get("offset"); o != "" {
				fmt.Sscanf(o, "%d", &offset)
			}
			total := len(f.episodeDates)
			if total == 0 {
				fmt.Fprint(w, `{"total":0,"limit":1,"offset":0,"data":[]}`)
				return
			}
			fmt.Fprintf(w, `{"total":%d,"limit":1,"offset":%d,"data":[{"id":%d,"type":0,"sort":%d,"airdate":%q}]}`,
				total, offset, offset+1, offset+1, f.episodeDates[offset])
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	store, db, err := cache.Open(t.TempDir(), cache.WithCleanupInterval(0))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := catalog.New(cachedapi.New(httpgateway.New(), store), srv.URL)
	return status.New(c)
}

func daysAgo(n int) string {
	return time.Now().UTC().AddDate(0, 0, -n).Format("2006-01-02")
}

func daysFromNow(n int) string {
	return time.Now().UTC().AddDate(0, 0, n).Format("2006-01-02")
}

func TestClassifier_PreAir(t *testing.T) {
	c := newClassifier(t, fixture{date: daysFromNow(10)})
	got, err := c.Calculate(context.Background(), 12381)
	require.NoError(t, err)
	require.Equal(t, status.PreAir, got.Code)
}

func TestClassifier_AiringViaCalendar(t *testing.T) {
	c := newClassifier(t, fixture{
		date:         daysAgo(60),
		onCalendar:   true,
		episodeDates: []string{daysAgo(60)},
	})
	got, err := c.Calculate(context.Background(), 12381)
	require.NoError(t, err)
	require.Equal(t, status.Airing, got.Code)
}

func TestClassifier_Finished(t *testing.T) {
	// Mirrors the spec's scenario 3: date 2018-01-06, eps=12, not on the
	// current calendar, episodes reaching the expected total.
	c := newClassifier(t, fixture{
		date:          "2018-01-06",
		eps:           12,
		totalEpisodes: 12,
		episodeDates:  []string{"2018-01-06", "2018-03-24"},
	})
	got, err := c.Calculate(context.Background(), 12381)
	require.NoError(t, err)
	require.Equal(t, status.Finished, got.Code)
}

func TestClassifier_AiringViaRecentEpisode(t *testing.T) {
	c := newClassifier(t, fixture{
		date:          daysAgo(90),
		eps:           24,
		totalEpisodes: 10,
		episodeDates:  append([]string{daysAgo(90)}, daysAgo(5)),
	})
	got, err := c.Calculate(context.Background(), 12381)
	require.NoError(t, err)
	require.Equal(t, status.Airing, got.Code)
}

func TestClassifier_OnHiatus(t *testing.T) {
	c := newClassifier(t, fixture{
		date:          daysAgo(90),
		eps:           24,
		totalEpisodes: 10,
		episodeDates:  append([]string{daysAgo(90)}, daysAgo(40)),
	})
	got, err := c.Calculate(context.Background(), 12381)
	require.NoError(t, err)
	require.Equal(t, status.OnHiatus, got.Code)
}

func TestClassifier_UnknownWithNoFirstAirDate(t *testing.T) {
	c := newClassifier(t, fixture{})
	got, err := c.Calculate(context.Background(), 12381)
	require.NoError(t, err)
	require.Equal(t, status.Unknown, got.Code)
}
