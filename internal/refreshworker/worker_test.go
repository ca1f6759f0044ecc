// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package refreshworker_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/animefun/internal/cache"
	"github.com/autobrr/animefun/internal/cachedapi"
	"github.com/autobrr/animefun/internal/catalog"
	"github.com/autobrr/animefun/internal/httpgateway"
	"github.com/autobrr/animefun/internal/refreshworker"
	"github.com/autobrr/animefun/internal/status"
	"github.com/autobrr/animefun/internal/store"
)

func newWorker(t *testing.T) (*refreshworker.Worker, *store.Stores) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v0/subjects/12381":
			fmt.Fprint(w, `{"id":12381,"name":"overlord","name_cn":"不死者之王","eps":13,"total_episodes":13,
				"rating":{"score":8.1,"total":500,"rank":120},"tags":[{"name":"fantasy","count":10}]}`)
		case r.URL.Path == "/calendar":
			fmt.Fprint(w, `[]`)
		case r.URL.Path == "/v0/episodes":
			fmt.Fprint(w, `{"total":13,"limit":1,"offset":0,"data":[{"id":1,"type":0,"sort":1,"airdate":"2015-07-08"}]}`)
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
	cls := status.New(cat)

	w := refreshworker.New(cat, cls, stores.Subscriptions, stores.Index, zerolog.Nop())
	return w, stores
}

func TestRefreshWorker_SweepUpsertsIndexRowForSubscription(t *testing.T) {
	ctx := context.Background()
	w, stores := newWorker(t)

	_, err := stores.Subscriptions.Toggle(ctx, 12381, false)
	require.NoError(t, err)

	w.Sweep(ctx)

	rows, total, err := stores.Index.QueryFull(ctx, store.QueryParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "overlord", rows[0].Name)
	assert.Equal(t, []string{"fantasy"}, rows[0].Tags)
}
