// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // database/sql driver
	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/recerr"
)

// defaultQueryTimeout bounds statements whose caller context carries no
// deadline of its own.
const defaultQueryTimeout = 30 * time.Second

// DB wraps the DuckDB connection pool together with the prepared
// statement cache. All methods are safe for concurrent use; DuckDB
// serializes writes internally.
type DB struct {
	conn   *sql.DB
	cfg    config.DatabaseConfig
	logger zerolog.Logger

	stmtMu    sync.RWMutex
	stmtCache map[string]*sql.Stmt
}

// New opens (creating if necessary) the DuckDB database at cfg.Path and
// bootstraps the schema. The returned DB owns the connection; callers
// must Close it.
func New(cfg config.DatabaseConfig) (*DB, error) {
	const op = "database.New"

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, recerr.E(recerr.KindInternal, op, fmt.Errorf("create data dir: %w", err))
		}
	}

	preserveOrder := "false"
	if cfg.PreserveInsertionOrder {
		preserveOrder = "true"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%s",
		cfg.Path, threads, cfg.MaxMemory, preserveOrder)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, fmt.Errorf("open duckdb: %w", err))
	}

	conn.SetMaxOpenConns(threads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	db := &DB{
		conn:      conn,
		cfg:       cfg,
		logger:    logging.With().Str("component", "database").Logger(),
		stmtCache: make(map[string]*sql.Stmt),
	}

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, err
	}

	db.logger.Info().
		Str("path", cfg.Path).
		Int("threads", threads).
		Str("max_memory", cfg.MaxMemory).
		Msg("Database ready")

	return db, nil
}

// initialize bootstraps the schema and flushes the WAL so a fresh
// database is durable before first use.
func (db *DB) initialize() error {
	if err := db.createSchema(); err != nil {
		return err
	}
	return db.Checkpoint(context.Background())
}

// Conn exposes the underlying pool for callers that need raw SQL
// access (integration tests, ad-hoc maintenance).
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	const op = "database.Ping"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	return nil
}

// Checkpoint flushes the DuckDB write-ahead log into the main file.
func (db *DB) Checkpoint(ctx context.Context) error {
	const op = "database.Checkpoint"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return recerr.E(recerr.KindInternal, op, fmt.Errorf("checkpoint: %w", err))
	}
	return nil
}

// Close checkpoints and closes the database. Prepared statements are
// closed first so the driver does not hold the file open.
func (db *DB) Close() error {
	const op = "database.Close"

	db.stmtMu.Lock()
	for _, stmt := range db.stmtCache {
		closeQuietly(stmt)
	}
	db.stmtCache = make(map[string]*sql.Stmt)
	db.stmtMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		db.logger.Warn().Err(err).Msg("Checkpoint before close failed")
	}

	if err := db.conn.Close(); err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	return nil
}

// prepared returns a cached prepared statement for query, preparing it
// on first use. Statements live until Close.
func (db *DB) prepared(ctx context.Context, query string) (*sql.Stmt, error) {
	db.stmtMu.RLock()
	stmt, ok := db.stmtCache[query]
	db.stmtMu.RUnlock()
	if ok {
		return stmt, nil
	}

	db.stmtMu.Lock()
	defer db.stmtMu.Unlock()
	if stmt, ok = db.stmtCache[query]; ok {
		return stmt, nil
	}

	stmt, err := db.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	db.stmtCache[query] = stmt
	return stmt, nil
}

// ensureContext guarantees a deadline on database operations so a hung
// query cannot wedge a pipeline stage.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultQueryTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

// closeQuietly closes a resource in a cleanup path where the error is
// not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
