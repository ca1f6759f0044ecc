// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package mikan_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/animefun/internal/cache"
	"github.com/autobrr/animefun/internal/cachedapi"
	"github.com/autobrr/animefun/internal/httpgateway"
	"github.com/autobrr/animefun/internal/mikan"
)

func newFacade(t *testing.T, host string) *mikan.Facade {
	t.Helper()
	store, db, err := cache.Open(t.TempDir(), cache.WithCleanupInterval(0))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	gw := httpgateway.New()
	return mikan.New(cachedapi.New(gw, store), gw, host)
}

func TestFacade_SearchCandidatesCollectsDistinctIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="/Home/Bangumi/3001">A</a>
			<a href="/Home/Bangumi/3002">B</a>
			<a href="/Home/Bangumi/3001">A again</a>
		</body></html>`))
	}))
	defer srv.Close()

	f := newFacade(t, srv.URL)
	ids, err := f.SearchCandidates(context.Background(), "Overlord", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{3001, 3002}, ids)
}

func TestFacade_ResolveSubjectFindsBangumiLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="https://bgm.tv/subject/12381">link</a></body></html>`))
	}))
	defer srv.Close()

	f := newFacade(t, srv.URL)
	id, ok, err := f.ResolveSubject(context.Background(), 3001)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 12381, id)
}

func TestFacade_FetchRSSParsesItemsWithTitleHeuristics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<item>
  <title>[字幕组] 某动画 - 05 [1080p]</title>
  <link>https://mikanani.me/Home/Episode/abc</link>
  <enclosure url="magnet:?xt=urn:btih:abc" length="123456" />
  <pubDate>Mon, 01 Jan 2024 00:00:00 +0800</pubDate>
</item>
</channel></rss>`))
	}))
	defer srv.Close()

	f := newFacade(t, srv.URL)
	items, err := f.FetchRSS(context.Background(), 3001)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Episode)
	assert.Equal(t, 1080, items[0].Resolution)
	assert.EqualValues(t, 123456, items[0].SizeBytes)
}
