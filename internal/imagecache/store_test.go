// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package imagecache

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/animefun/internal/httpgateway"
)

const onePxPNG = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89\x00\x00\x00\nIDATx\x9cc\x00\x01\x00\x00\x05\x00\x01\r\n-\xb4\x00\x00\x00\x00IEND\xaeB`\x82"

func TestStore_FetchCachesAndKeysByURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte(onePxPNG))
	}))
	defer srv.Close()

	dir := t.TempDir()
	store, err := Open(dir, httpgateway.New())
	require.NoError(t, err)
	defer store.Stop()

	path, err := store.Fetch(t.Context(), srv.URL+"/cover.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, Key(srv.URL+"/cover.png")+".png"), path)

	cachedPath, ok := store.Path(srv.URL + "/cover.png")
	require.True(t, ok)
	assert.Equal(t, path, cachedPath)
}

func TestStore_FetchIsIdempotentAcrossCalls(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte(onePxPNG))
	}))
	defer srv.Close()

	store, err := Open(t.TempDir(), httpgateway.New())
	require.NoError(t, err)
	defer store.Stop()

	_, err = store.Fetch(t.Context(), srv.URL+"/cover.png")
	require.NoError(t, err)
	_, err = store.Fetch(t.Context(), srv.URL+"/cover.png")
	require.NoError(t, err)

	assert.Equal(t, 1, hits)
}

func TestStore_SweepRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, httpgateway.New())
	require.NoError(t, err)
	defer store.Stop()

	stalePath := filepath.Join(dir, "stale.jpg")
	require.NoError(t, os.WriteFile(stalePath, []byte("x"), 0o644))
	old := time.Now().Add(-91 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stalePath, old, old))

	freshPath := filepath.Join(dir, "fresh.jpg")
	require.NoError(t, os.WriteFile(freshPath, []byte("x"), 0o644))

	store.sweep()

	_, err = os.Stat(stalePath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshPath)
	assert.NoError(t, err)
}

func TestResolveExt_SniffsFormatWhenContentTypeAmbiguous(t *testing.T) {
	ext := resolveExt("application/octet-stream", []byte(onePxPNG))
	assert.Equal(t, ".png", ext)
}
