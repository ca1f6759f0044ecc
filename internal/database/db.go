// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package database provides a small SQLite connection wrapper shared by the
// cache store and the data stores. Reads go through a normal pool; writes are
// serialized through a single dedicated connection and a writer goroutine so
// SQLite never sees concurrent writers contending on the same file.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
)

const (
	connectionSetupTimeout  = 10 * time.Second
	defaultBusyTimeoutMillis = 5000
	writeChannelBuffer      = 64
	stmtCacheTTL            = 5 * time.Minute
)

var driverInit sync.Once

type writeReq struct {
	ctx   context.Context
	query string
	args  []any
	resCh chan writeRes
}

type writeRes struct {
	result sql.Result
	err    error
}

// DB wraps a single SQLite file, providing WAL pragmas, a prepared-statement
// cache, and a serialized write path.
type DB struct {
	path      string
	conn      *sql.DB
	writeConn *sql.Conn
	writeCh   chan writeReq
	stmts     *ttlcache.Cache[string, *sql.Stmt]

	stop      chan struct{}
	closeOnce sync.Once
	writerWG  sync.WaitGroup
	closing   atomic.Bool
	closeErr  error
}

// Tx wraps sql.Tx to provide the same prepared-statement cache as DB.
type Tx struct {
	tx *sql.Tx
	db *DB
}

func (t *Tx) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return t.tx.PrepareContext(ctx, query)
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	stmt, err := t.db.getStmt(ctx, query)
	if err != nil {
		return t.tx.ExecContext(ctx, query, args...)
	}
	txStmt := t.tx.StmtContext(ctx, stmt)
	defer txStmt.Close()
	return txStmt.ExecContext(ctx, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	stmt, err := t.db.getStmt(ctx, query)
	if err != nil {
		return t.tx.QueryContext(ctx, query, args...)
	}
	txStmt := t.tx.StmtContext(ctx, stmt)
	return txStmt.QueryContext(ctx, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	stmt, err := t.db.getStmt(ctx, query)
	if err != nil {
		return t.tx.QueryRowContext(ctx, query, args...)
	}
	txStmt := t.tx.StmtContext(ctx, stmt)
	return txStmt.QueryRowContext(ctx, args...)
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

func registerConnectionHook() {
	driverInit.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
			defer cancel()

			return applyConnectionPragmas(ctx, func(ctx context.Context, stmt string) error {
				_, err := conn.ExecContext(ctx, stmt, nil)
				if err != nil {
					return fmt.Errorf("connection hook exec %q: %w", stmt, err)
				}
				return nil
			})
		})
	})
}

type pragmaExecFn func(ctx context.Context, stmt string) error

func applyConnectionPragmas(ctx context.Context, exec pragmaExecFn) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", defaultBusyTimeoutMillis),
		"PRAGMA analysis_limit = 400",
	}

	for _, pragma := range pragmas {
		if err := exec(ctx, pragma); err != nil {
			return fmt.Errorf("apply connection pragma %q: %w", pragma, err)
		}
	}

	return nil
}

// Open opens (and migrates) the SQLite database at path, applying every
// *.sql file found at the root of migrations in lexical order exactly once,
// tracked in a migrations table.
func Open(path string, migrations fs.FS) (*DB, error) {
	log.Info().Msgf("initializing database at: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w", dir, err)
	}

	registerConnectionHook()

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", path, err)
	}

	// Single connection during migrations avoids stale-schema readers.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
	defer cancel()
	if err := applyConnectionPragmas(ctx, func(ctx context.Context, stmt string) error {
		_, execErr := conn.ExecContext(ctx, stmt)
		return execErr
	}); err != nil {
		conn.Close()
		return nil, err
	}

	stmtOpts := ttlcache.Options[string, *sql.Stmt]{}.SetDefaultTTL(stmtCacheTTL).
		SetDeallocationFunc(func(k string, s *sql.Stmt, _ ttlcache.DeallocationReason) {
			if s != nil {
				_ = s.Close()
			}
		})

	db := &DB{
		path:    path,
		conn:    conn,
		writeCh: make(chan writeReq, writeChannelBuffer),
		stmts:   ttlcache.New(stmtOpts),
		stop:    make(chan struct{}),
	}

	if err := db.migrate(migrations); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	conn.SetMaxOpenConns(0)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxLifetime(0)

	ctx2, cancel2 := context.WithTimeout(context.Background(), connectionSetupTimeout)
	defer cancel2()
	writeConn, err := conn.Conn(ctx2)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("acquire write connection: %w", err)
	}
	db.writeConn = writeConn

	db.writerWG.Add(1)
	go db.writerLoop()

	log.Info().Msgf("database ready: %s", path)
	return db, nil
}

func (db *DB) getStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if s, found := db.stmts.Get(query); found && s != nil {
		return s, nil
	}

	s, err := db.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	db.stmts.Set(query, s, ttlcache.DefaultTTL)
	return s, nil
}

func (db *DB) execWrite(ctx context.Context, stmt *sql.Stmt, query string, args []any) (sql.Result, error) {
	if stmt != nil {
		return stmt.ExecContext(ctx, args...)
	}
	return db.writeConn.ExecContext(ctx, query, args...)
}

func isWriteQuery(query string) bool {
	q := strings.TrimLeftFunc(query, unicode.IsSpace)
	if q == "" {
		return false
	}

	upper := strings.ToUpper(q)
	return strings.HasPrefix(upper, "INSERT") ||
		strings.HasPrefix(upper, "UPDATE") ||
		strings.HasPrefix(upper, "REPLACE") ||
		strings.HasPrefix(upper, "DELETE")
}

// ExecContext routes write queries through the single writer goroutine and
// uses prepared statements for reads. Do not use this for queries with a
// RETURNING clause; use QueryRowContext/QueryContext instead.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if !isWriteQuery(query) {
		stmt, err := db.getStmt(ctx, query)
		if err != nil {
			return db.conn.ExecContext(ctx, query, args...)
		}
		return stmt.ExecContext(ctx, args...)
	}

	if db.closing.Load() {
		return nil, fmt.Errorf("db stopping")
	}

	resCh := make(chan writeRes, 1)
	req := writeReq{ctx: ctx, query: query, args: args, resCh: resCh}
	select {
	case db.writeCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-db.stop:
		return nil, fmt.Errorf("db stopping")
	}

	res := <-resCh
	return res.result, res.err
}

func (db *DB) writerLoop() {
	defer db.writerWG.Done()

	draining := false
	for {
		if draining {
			select {
			case req, ok := <-db.writeCh:
				if !ok {
					return
				}
				db.processWrite(req)
			default:
				return
			}
			continue
		}

		select {
		case req, ok := <-db.writeCh:
			if !ok {
				return
			}
			db.processWrite(req)
		case <-db.stop:
			draining = true
		}
	}
}

func (db *DB) processWrite(req writeReq) {
	stmt, err := db.getStmt(req.ctx, req.query)
	if err != nil {
		res, execErr := db.execWrite(req.ctx, nil, req.query, req.args)
		select {
		case req.resCh <- writeRes{result: res, err: execErr}:
		default:
		}
		return
	}

	res, execErr := db.execWrite(req.ctx, stmt, req.query, req.args)
	select {
	case req.resCh <- writeRes{result: res, err: execErr}:
	default:
	}
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return db.conn.QueryContext(ctx, query, args...)
	}
	return stmt.QueryContext(ctx, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return db.conn.QueryRowContext(ctx, query, args...)
	}
	return stmt.QueryRowContext(ctx, args...)
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	var tx *sql.Tx
	var err error

	if opts != nil && opts.ReadOnly {
		tx, err = db.conn.BeginTx(ctx, opts)
	} else {
		tx, err = db.writeConn.BeginTx(ctx, opts)
	}
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, db: db}, nil
}

func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
		defer cancel()
		if _, err := db.conn.ExecContext(ctx, "PRAGMA optimize"); err != nil {
			log.Warn().Err(err).Msg("pragma optimize on close")
		}

		db.closing.Store(true)
		close(db.stop)
		db.writerWG.Wait()
		db.stmts.Close()

		if db.writeConn != nil {
			if err := db.writeConn.Close(); err != nil {
				log.Warn().Err(err).Msg("close write connection")
			}
		}

		db.closeErr = db.conn.Close()
	})

	return db.closeErr
}

// Conn exposes the underlying read pool for callers that need direct access
// (e.g. test fixtures).
func (db *DB) Conn() *sql.DB { return db.conn }

func (db *DB) migrate(migrations fs.FS) error {
	ctx := context.Background()

	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	pending, err := db.findPendingMigrations(ctx, files)
	if err != nil {
		return fmt.Errorf("find pending migrations: %w", err)
	}

	if len(pending) == 0 {
		log.Debug().Msg("no pending migrations")
		return nil
	}

	return db.applyAllMigrations(ctx, migrations, pending)
}

func (db *DB) findPendingMigrations(ctx context.Context, allFiles []string) ([]string, error) {
	var pending []string

	for _, filename := range allFiles {
		var count int
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE filename = ?", filename).Scan(&count); err != nil {
			return nil, fmt.Errorf("check migration status for %s: %w", filename, err)
		}
		if count == 0 {
			pending = append(pending, filename)
		}
	}

	return pending, nil
}

func (db *DB) applyAllMigrations(ctx context.Context, migrations fs.FS, files []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, filename := range files {
		content, err := fs.ReadFile(migrations, filename)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", filename, err)
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", filename, err)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (filename) VALUES (?)", filename); err != nil {
			return fmt.Errorf("record migration %s: %w", filename, err)
		}

		log.Info().Str("migration", filename).Msg("applied migration")
	}

	return tx.Commit()
}

// NewForTest wraps an already-open, already-migrated *sql.DB (e.g. a
// testdb template clone) without going through the writer/pragma setup,
// for tests that want the store API over a plain connection.
func NewForTest(conn *sql.DB) *DB {
	stmtOpts := ttlcache.Options[string, *sql.Stmt]{}.SetDefaultTTL(stmtCacheTTL)
	db := &DB{
		conn:    conn,
		writeCh: make(chan writeReq, writeChannelBuffer),
		stmts:   ttlcache.New(stmtOpts),
		stop:    make(chan struct{}),
	}
	writeConn, err := conn.Conn(context.Background())
	if err == nil {
		db.writeConn = writeConn
	}
	db.writerWG.Add(1)
	go db.writerLoop()
	return db
}
