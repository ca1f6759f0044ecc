// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package cachedapi layers conditional HTTP revalidation and request
// coalescing on top of the cache store and HTTP gateway, giving facades a
// single fetch_api(key, request, ttl) primitive.
package cachedapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/autobrr/animefun/internal/cache"
	"github.com/autobrr/animefun/internal/httpgateway"
	"github.com/autobrr/animefun/pkg/httphelpers"
)

// Adapter is the cached API client shared by the catalog and Mikan facades.
type Adapter struct {
	gw    *httpgateway.Gateway
	store *cache.Store

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

type inflightCall struct {
	done chan struct{}
	body []byte
	err  error
}

// New builds an Adapter over an already-constructed Gateway and cache Store.
func New(gw *httpgateway.Gateway, store *cache.Store) *Adapter {
	return &Adapter{
		gw:       gw,
		store:    store,
		inflight: make(map[string]*inflightCall),
	}
}

// RequestBuilder produces a fresh, unsent *http.Request bound to ctx. It is
// invoked at most once per fetch_api call (the adapter attaches conditional
// headers to the result before sending).
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// FetchJSON implements the conditional fetch_api contract: on a cache hit it
// returns the cached value without any network I/O; on a miss or expiry it
// issues a conditional request (If-None-Match / If-Modified-Since when
// metadata exists), handles 304 by refreshing the cache TTL, and handles 2xx
// by decoding, caching, and returning the fresh value. out must be a pointer;
// the adapter unmarshals into it on both the cache-hit and refreshed paths.
func (a *Adapter) FetchJSON(ctx context.Context, key string, build RequestBuilder, ttl time.Duration, out any) error {
	entry, found, err := a.store.GetEntry(ctx, key)
	if err != nil {
		return fmt.Errorf("cache get %q: %w", key, err)
	}
	if found {
		return json.Unmarshal(entry.Value, out)
	}

	req, err := build(ctx)
	if err != nil {
		return err
	}
	if entry != nil {
		if entry.ETag != "" {
			req.Header.Set("If-None-Match", entry.ETag)
		}
		if entry.LastModified != "" {
			req.Header.Set("If-Modified-Since", entry.LastModified)
		}
	}

	resp, err := a.gw.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %q: %w", key, err)
	}
	defer httphelpers.DrainAndClose(resp)

	switch {
	case resp.StatusCode == http.StatusNotModified && entry != nil:
		if err := a.store.TouchExpiry(ctx, key, entry.ETag, entry.LastModified, ttl); err != nil {
			return fmt.Errorf("touch cache entry %q: %w", key, err)
		}
		return json.Unmarshal(entry.Value, out)

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body %q: %w", key, err)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}

		// Re-marshal out (not the raw body) so repeated cache round-trips are
		// byte-stable regardless of upstream field ordering.
		canonical, marshalErr := json.Marshal(out)
		if marshalErr == nil {
			body = canonical
		}

		if err := a.store.SetEntry(ctx, key, body, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), ttl); err != nil {
			return fmt.Errorf("cache set %q: %w", key, err)
		}
		return nil

	default:
		return fmt.Errorf("fetch %q: unexpected status %d", key, resp.StatusCode)
	}
}

// FetchBytesCoalesced performs a coalesced, cached byte fetch (used by the
// Mikan RSS path): concurrent callers for the same key share one in-flight
// HTTP request rather than issuing duplicates.
func (a *Adapter) FetchBytesCoalesced(ctx context.Context, key string, build RequestBuilder, ttl time.Duration) ([]byte, error) {
	entry, found, err := a.store.GetEntry(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}
	if found {
		return entry.Value, nil
	}

	a.mu.Lock()
	if call, ok := a.inflight[key]; ok {
		a.mu.Unlock()
		select {
		case <-call.done:
			return call.body, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	a.inflight[key] = call
	a.mu.Unlock()

	body, err := a.ownedFetch(ctx, key, build, ttl, entry)

	call.body, call.err = body, err
	close(call.done)

	a.mu.Lock()
	delete(a.inflight, key)
	a.mu.Unlock()

	return body, err
}

func (a *Adapter) ownedFetch(ctx context.Context, key string, build RequestBuilder, ttl time.Duration, entry *cache.Entry) ([]byte, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		if entry.ETag != "" {
			req.Header.Set("If-None-Match", entry.ETag)
		}
		if entry.LastModified != "" {
			req.Header.Set("If-Modified-Since", entry.LastModified)
		}
	}

	resp, err := a.gw.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", key, err)
	}
	defer httphelpers.DrainAndClose(resp)

	if resp.StatusCode == http.StatusNotModified && entry != nil {
		if err := a.store.TouchExpiry(ctx, key, entry.ETag, entry.LastModified, ttl); err != nil {
			return nil, fmt.Errorf("touch cache entry %q: %w", key, err)
		}
		return entry.Value, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %q: unexpected status %d", key, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body %q: %w", key, err)
	}

	if err := a.store.SetEntry(ctx, key, body, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), ttl); err != nil {
		return nil, fmt.Errorf("cache set %q: %w", key, err)
	}

	return body, nil
}
