// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package testdb provides a migrated data directory for tests: a fresh
// cache.sqlite/data.sqlite pair cloned from a package-level template so
// every test pays migration cost once per key, not once per test.
package testdb

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/autobrr/animefun/internal/cache"
	"github.com/autobrr/animefun/internal/store"
)

type templateState struct {
	once sync.Once
	dir  string
	err  error
}

var (
	templatesMu sync.Mutex
	templates   = make(map[string]*templateState)
)

// DataDir returns a fresh, already-migrated data directory for a test by
// cloning a package-level template directory containing cache.sqlite and
// data.sqlite. key scopes the template across tests that want distinct
// schemas or seed data; reuse a key to share the migration cost.
func DataDir(t *testing.T, key string) string {
	t.Helper()

	state := getTemplateState(key)
	state.once.Do(func() {
		state.dir, state.err = createTemplateDir(key)
	})
	if state.err != nil {
		t.Fatalf("prepare test data dir %q: %v", key, state.err)
	}

	dst := t.TempDir()
	if err := cloneDir(state.dir, dst); err != nil {
		t.Fatalf("clone test data dir %q to %s: %v", key, dst, err)
	}

	return dst
}

func getTemplateState(key string) *templateState {
	templatesMu.Lock()
	defer templatesMu.Unlock()

	state, ok := templates[key]
	if ok {
		return state
	}

	state = &templateState{}
	templates[key] = state
	return state
}

func createTemplateDir(key string) (string, error) {
	dir, err := os.MkdirTemp("", fmt.Sprintf("animefun-%s-template-", sanitizeKey(key)))
	if err != nil {
		return "", err
	}

	stores, err := store.Open(dir)
	if err != nil {
		return "", err
	}
	if err := stores.Close(); err != nil {
		return "", err
	}

	_, cacheDB, err := cache.Open(dir)
	if err != nil {
		return "", err
	}
	if err := cacheDB.Close(); err != nil {
		return "", err
	}

	return dir, nil
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "testdb"
	}

	var b strings.Builder
	b.Grow(len(key))
	for _, ch := range key {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
			continue
		}
		b.WriteByte('-')
	}

	return b.String()
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return err
	}

	return dstFile.Close()
}

// cloneDir copies every top-level file (the .sqlite databases and any
// -wal/-shm sidecars left by a non-graceful close) from src into dst.
func cloneDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}
