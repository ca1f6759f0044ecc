// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"testing"
	"time"
)

func TestClient_GetWebAPIVersionDoesNotBlockOnHealthCheckMutex(t *testing.T) {
	t.Parallel()

	client := &Client{webAPIVersion: "2.9.3", isHealthy: true}
	client.mu.RLock()
	defer client.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.GetWebAPIVersion()
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("GetWebAPIVersion blocked on an already-held read lock")
	}
}

func TestClient_IsHealthyReflectsLastHealthCheck(t *testing.T) {
	t.Parallel()

	client := &Client{isHealthy: true, lastHealthCheck: time.Now()}
	if !client.IsHealthy() {
		t.Fatal("expected client to report healthy before any failed check")
	}

	client.mu.Lock()
	client.isHealthy = false
	client.mu.Unlock()

	if client.IsHealthy() {
		t.Fatal("expected client to report unhealthy after isHealthy flipped false")
	}
}

func TestClient_V5BoundaryClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version string
		wantV5  bool
	}{
		{"2.8.3", false},
		{"2.11.4", false},
		{"5.0.0", true},
		{"5.1.2", true},
	}

	for _, tt := range tests {
		client := &Client{webAPIVersion: tt.version}
		v, err := parseWebAPIVersion(tt.version)
		if err != nil {
			t.Fatalf("unexpected parse error for %q: %v", tt.version, err)
		}
		client.isV5 = !v.LessThan(v5Boundary)
		if client.isV5 != tt.wantV5 {
			t.Errorf("version %q: got isV5=%v, want %v", tt.version, client.isV5, tt.wantV5)
		}
	}
}
