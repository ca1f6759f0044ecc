// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/animefun/internal/cache"
	"github.com/autobrr/animefun/internal/cachedapi"
	"github.com/autobrr/animefun/internal/catalog"
	"github.com/autobrr/animefun/internal/httpgateway"
)

func newFacade(t *testing.T, host string) *catalog.Facade {
	t.Helper()
	store, db, err := cache.Open(t.TempDir(), cache.WithCleanupInterval(0))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return catalog.New(cachedapi.New(httpgateway.New(), store), host)
}

func TestFacade_FetchSubject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/subjects/12381", r.URL.Path)
		w.Write([]byte(`{"id":12381,"name":"overlord","eps":13,"total_episodes":13}`))
	}))
	defer srv.Close()

	f := newFacade(t, srv.URL)
	subject, err := f.FetchSubject(context.Background(), 12381)
	require.NoError(t, err)
	assert.Equal(t, 12381, subject.ID)
	assert.Equal(t, "overlord", subject.Name)
	assert.Equal(t, 13, subject.Eps)
}

func TestFacade_FetchEpisodesBuildsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12381", r.URL.Query().Get("subject_id"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"total":1,"limit":1,"offset":0,"data":[{"id":1,"name":"ep1","airdate":"2020-01-01","sort":1}]}`))
	}))
	defer srv.Close()

	f := newFacade(t, srv.URL)
	page, err := f.FetchEpisodes(context.Background(), 12381, 0, 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "ep1", page.Data[0].Name)
}

func TestFacade_SearchSubjectCanonicalKeyIgnoresFilterOrder(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"total":0,"limit":0,"offset":0,"data":[]}`))
	}))
	defer srv.Close()

	f := newFacade(t, srv.URL)

	_, err := f.SearchSubject(context.Background(), catalog.SearchRequest{
		Keyword: "overlord",
		Filter:  catalog.SearchFilter{Tag: []string{"b", "a"}},
	})
	require.NoError(t, err)

	_, err = f.SearchSubject(context.Background(), catalog.SearchRequest{
		Keyword: "overlord",
		Filter:  catalog.SearchFilter{Tag: []string{"a", "b"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "reordered filter list should hit the same cache key")
}
