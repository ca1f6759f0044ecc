// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func testMigrations(sql string) fstest.MapFS {
	return fstest.MapFS{
		"001_init.sql": &fstest.MapFile{Data: []byte(sql)},
	}
}

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	dir := t.TempDir()
	migrations := testMigrations(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`)

	db, err := Open(filepath.Join(dir, "test.sqlite"), migrations)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = db.ExecContext(ctx, "INSERT INTO widgets (name) VALUES (?)", "a")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM widgets").Scan(&count))
	require.Equal(t, 1, count)

	// Reopening against the same file must not re-run the migration (it would
	// fail with "table already exists" if it did).
	db2, err := Open(filepath.Join(dir, "test.sqlite"), migrations)
	require.NoError(t, err)
	defer db2.Close()

	require.NoError(t, db2.QueryRowContext(ctx, "SELECT COUNT(*) FROM widgets").Scan(&count))
	require.Equal(t, 1, count)
}

func TestExecContextRoutesWritesSerially(t *testing.T) {
	dir := t.TempDir()
	migrations := testMigrations(`CREATE TABLE counters (id INTEGER PRIMARY KEY, value INTEGER NOT NULL);`)

	db, err := Open(filepath.Join(dir, "test.sqlite"), migrations)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = db.ExecContext(ctx, "INSERT INTO counters (id, value) VALUES (1, 0)")
	require.NoError(t, err)

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := db.ExecContext(ctx, "UPDATE counters SET value = value + 1 WHERE id = 1")
			done <- err
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-done)
	}

	var value int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT value FROM counters WHERE id = 1").Scan(&value))
	require.Equal(t, 20, value)
}
