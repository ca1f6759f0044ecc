// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package qbittorrent wraps the single configured qBittorrent WebUI instance
// (§6): login, major-version branching (v4 pause/resume vs v5 stop/start),
// and the torrent add/list/delete surface the API layer dispatches onto.
package qbittorrent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/avast/retry-go"
	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog/log"
)

var v5Boundary = semver.MustParse("5.0.0")

// parseWebAPIVersion parses the version string reported by GET
// /api/v2/app/webapiversion.
func parseWebAPIVersion(version string) (*semver.Version, error) {
	return semver.NewVersion(version)
}

// Client wraps the single download-client instance configured via
// downloader.json. Unlike the teacher's multi-instance pool, this backend
// talks to exactly one qBittorrent install.
type Client struct {
	*qbt.Client

	webAPIVersion string
	isV5          bool

	mu              sync.RWMutex
	lastHealthCheck time.Time
	isHealthy       bool
}

// NewClient logs into instanceHost and classifies its major API version.
// Login is retried with bounded backoff: the local downloader is a
// different trust/latency domain than the rate-limited upstream catalog
// gateway, which explicitly forbids retries (§4.1).
func NewClient(ctx context.Context, instanceHost, username, password string) (*Client, error) {
	qbtClient := qbt.NewClient(qbt.Config{
		Host:     instanceHost,
		Username: username,
		Password: password,
		Timeout:  30,
	})

	err := retry.Do(
		func() error { return qbtClient.LoginCtx(ctx) },
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("login to qbittorrent at %s: %w", instanceHost, err)
	}

	webAPIVersion, err := qbtClient.GetWebAPIVersionCtx(ctx)
	if err != nil {
		webAPIVersion = ""
	}

	isV5 := false
	if webAPIVersion != "" {
		if v, err := parseWebAPIVersion(webAPIVersion); err == nil {
			isV5 = !v.LessThan(v5Boundary)
		}
	}

	client := &Client{
		Client:          qbtClient,
		webAPIVersion:   webAPIVersion,
		isV5:            isV5,
		lastHealthCheck: time.Now(),
		isHealthy:       true,
	}

	log.Debug().
		Str("host", instanceHost).
		Str("webAPIVersion", webAPIVersion).
		Bool("isV5", isV5).
		Msg("qbittorrent client connected")

	return client, nil
}

// GetWebAPIVersion returns the version string observed at login.
func (c *Client) GetWebAPIVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.webAPIVersion
}

// IsHealthy reports the outcome of the most recent HealthCheck.
func (c *Client) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isHealthy
}

// GetLastHealthCheck returns when HealthCheck last ran.
func (c *Client) GetLastHealthCheck() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastHealthCheck
}

// HealthCheck re-verifies the session is alive, retrying the login once on
// failure before declaring the instance unhealthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.GetWebAPIVersionCtx(ctx)
	if err != nil {
		err = retry.Do(
			func() error { return c.LoginCtx(ctx) },
			retry.Attempts(2),
			retry.Delay(500*time.Millisecond),
			retry.Context(ctx),
		)
		if err == nil {
			_, err = c.GetWebAPIVersionCtx(ctx)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastHealthCheck = time.Now()
	c.isHealthy = err == nil
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Pause stops the given torrents, using the v5 "stop" endpoint or the v4
// "pause" endpoint depending on the version observed at login.
func (c *Client) Pause(ctx context.Context, hashes []string) error {
	if c.isV5 {
		return c.StopCtx(ctx, hashes)
	}
	return c.PauseCtx(ctx, hashes)
}

// Resume restarts the given torrents, using the v5 "start" endpoint or the
// v4 "resume" endpoint depending on the version observed at login.
func (c *Client) Resume(ctx context.Context, hashes []string) error {
	if c.isV5 {
		return c.StartCtx(ctx, hashes)
	}
	return c.ResumeCtx(ctx, hashes)
}
