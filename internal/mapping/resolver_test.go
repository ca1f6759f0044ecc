// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package mapping_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/animefun/internal/cache"
	"github.com/autobrr/animefun/internal/cachedapi"
	"github.com/autobrr/animefun/internal/catalog"
	"github.com/autobrr/animefun/internal/httpgateway"
	"github.com/autobrr/animefun/internal/mapping"
	"github.com/autobrr/animefun/internal/mikan"
	"github.com/autobrr/animefun/internal/store"
)

type harness struct {
	resolver *mapping.Resolver
	stores   *store.Stores
	requests atomic.Int32
}

// newHarness wires one fake upstream server serving both Bangumi-shaped and
// Mikan-shaped responses, matched by path, standing in for the two distinct
// hosts a real deployment would point at.
func newHarness(t *testing.T, mikanCandidates []int, resolvedSubjectByCandidate map[int]int) *harness {
	t.Helper()
	h := &harness{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.requests.Add(1)
		switch {
		case r.URL.Path == "/v0/subjects/12381":
			w.Write([]byte(`{"id":12381,"name":"overlord","name_cn":"不死者之王"}`))
		case r.URL.Path == "/Home/Search":
			body := ""
			for _, id := range mikanCandidates {
				body += fmt.Sprintf(`<a href="/Home/Bangumi/%d">x</a>`, id)
			}
			w.Write([]byte(`<html><body>` + body + `</body></html>`))
		case r.URL.Path == "/Home/Bangumi/1":
			fmt.Fprintf(w, `<html><body><a href="https://bgm.tv/subject/%d">x</a></body></html>`, resolvedSubjectByCandidate[1])
		case r.URL.Path == "/Home/Bangumi/2":
			fmt.Fprintf(w, `<html><body><a href="https://bgm.tv/subject/%d">x</a></body></html>`, resolvedSubjectByCandidate[2])
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	cacheStore, cacheDB, err := cache.Open(t.TempDir(), cache.WithCleanupInterval(0))
	require.NoError(t, err)
	t.Cleanup(func() { cacheDB.Close() })

	stores, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	gw := httpgateway.New()
	adapter := cachedapi.New(gw, cacheStore)
	cat := catalog.New(adapter, srv.URL)
	mik := mikan.New(adapter, gw, srv.URL)

	h.resolver = mapping.New(cat, mik, cacheStore, stores.Mapping)
	h.stores = stores
	return h
}

func TestResolver_ResolvesAndPersistsMapping(t *testing.T) {
	h := newHarness(t, []int{1, 2}, map[int]int{1: 999, 2: 12381})

	mikanID, ok, err := h.resolver.Resolve(context.Background(), 12381)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, mikanID)

	m, err := h.stores.Mapping.Get(context.Background(), 12381)
	require.NoError(t, err)
	assert.Equal(t, 2, m.MikanBangumiID)
	assert.Equal(t, "explicit", m.Source)
}

func TestResolver_NoMatchSetsNegativeMarker(t *testing.T) {
	h := newHarness(t, []int{1}, map[int]int{1: 999})

	_, ok, err := h.resolver.Resolve(context.Background(), 12381)
	require.NoError(t, err)
	assert.False(t, ok)

	before := h.requests.Load()
	_, ok, err = h.resolver.Resolve(context.Background(), 12381)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, h.requests.Load(), "second resolve should short-circuit on the negative marker")
}

func TestResolver_CachedMappingSkipsNetwork(t *testing.T) {
	h := newHarness(t, []int{1, 2}, map[int]int{1: 999, 2: 12381})

	_, _, err := h.resolver.Resolve(context.Background(), 12381)
	require.NoError(t, err)
	before := h.requests.Load()

	mikanID, ok, err := h.resolver.Resolve(context.Background(), 12381)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, mikanID)
	assert.Equal(t, before, h.requests.Load())
}
