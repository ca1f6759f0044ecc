// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package imagecache is the content-addressed on-disk blob store for cover
// images (§6): files are named {sha256_hex}.{ext} under an images/
// directory, where sha256_hex hashes the scheme-stripped source URL and ext
// is taken from the response's Content-Type when the file is written, falling
// back to sniffing the image bytes when that type is not a known image. A
// background sweep deletes files whose mtime has aged past the 90-day TTL,
// the same opportunistic-cleanup idiom internal/cache uses for expired rows.
package imagecache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"

	"github.com/autobrr/animefun/internal/httpgateway"
)

const (
	ttl             = 90 * 24 * time.Hour
	sweepInterval   = 6 * time.Hour
	defaultImageExt = ".jpg"
)

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Store fetches and caches cover images under dir, keyed by a hash of their
// source URL.
type Store struct {
	dir     string
	gateway *httpgateway.Gateway

	stopSweep chan struct{}
}

// Open ensures dir exists and starts the TTL sweep. Call Stop to halt it.
func Open(dir string, gateway *httpgateway.Gateway) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &Store{dir: dir, gateway: gateway, stopSweep: make(chan struct{})}
	go s.runSweep()
	return s, nil
}

// Stop halts the background TTL sweep.
func (s *Store) Stop() {
	close(s.stopSweep)
}

// Key returns the content-addressed base name (without extension) for url.
func Key(url string) string {
	stripped := stripScheme(url)
	sum := sha256.Sum256([]byte(stripped))
	return hex.EncodeToString(sum[:])
}

// Path resolves the on-disk path for url if it has already been fetched,
// trying every known extension. Returns ok=false if no cached file exists.
func (s *Store) Path(url string) (string, bool) {
	key := Key(url)
	for _, ext := range extByContentType {
		p := filepath.Join(s.dir, key+ext)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	p := filepath.Join(s.dir, key+defaultImageExt)
	if _, err := os.Stat(p); err == nil {
		return p, true
	}
	return "", false
}

// Fetch returns the cached path for url, downloading and caching it first if
// necessary. The file's mtime is refreshed on every hit so actively-viewed
// covers don't age out from under an active subscription.
func (s *Store) Fetch(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", errors.New("imagecache: empty url")
	}

	if p, ok := s.Path(url); ok {
		now := time.Now()
		_ = os.Chtimes(p, now, now)
		return p, nil
	}

	resp, err := s.gateway.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	ext := resolveExt(resp.Header.Get("Content-Type"), body)
	path := filepath.Join(s.dir, Key(url)+ext)

	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// resolveExt trusts a known Content-Type when present; otherwise it sniffs
// the actual format from the body (needed for WebP, which Go's stdlib image
// package can't decode without golang.org/x/image/webp registering itself).
func resolveExt(contentType string, body []byte) string {
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if ext, ok := extByContentType[mediaType]; ok {
		return ext
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return defaultImageExt
	}
	if ext, ok := extByContentType["image/"+format]; ok {
		return ext
	}
	return defaultImageExt
}

func stripScheme(url string) string {
	if idx := strings.Index(url, "://"); idx != -1 {
		return url[idx+3:]
	}
	return url
}

func (s *Store) runSweep() {
	timer := time.NewTimer(sweepInterval)
	defer timer.Stop()

	for {
		select {
		case <-s.stopSweep:
			return
		case <-timer.C:
			s.sweep()
			timer.Reset(sweepInterval)
		}
	}
}

func (s *Store) sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Warn().Err(err).Msg("imagecache: sweep readdir failed")
		return
	}

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("imagecache: sweep complete")
	}
}
