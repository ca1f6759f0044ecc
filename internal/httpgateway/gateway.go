// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package httpgateway is the single process-wide HTTP client used for every
// outbound call to Bangumi and Mikan. It owns connection reuse and a global
// rate limiter; it never retries.
package httpgateway

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	userAgent      = "animefun/0.1"
	requestTimeout = 10 * time.Second

	rateLimit = 2 // requests per second
	rateBurst = 2
)

// Gateway is a shared HTTP client gated by a token-bucket rate limiter.
// A single Gateway instance is meant to be constructed once per process and
// shared by every facade.
type Gateway struct {
	client  *http.Client
	limiter *rate.Limiter
}

// New builds a Gateway with a tuned, connection-reusing transport and the
// spec's fixed rate budget (2 req/s, burst 2).
func New() *Gateway {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Gateway{
		client: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
	}
}

// Do admits the request through the rate limiter (respecting ctx
// cancellation, in which case no token is consumed) and then sends it with
// the shared client. There is no retry at this layer; callers decide.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	if err := g.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	return g.client.Do(req)
}

// Get is a convenience wrapper building a GET request bound to ctx.
func (g *Gateway) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return g.Do(req)
}
