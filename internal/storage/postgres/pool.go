// Package postgres is the pluggable durable backend for evidence,
// escalation, override, retention-hold, and responsibility records. The
// ledger itself
// always lives in internal/ledger's SQLite store (spec §6.2); this
// package is the optional durable store for the other append-only
// indexes, selected when LEXECON_POSTGRES_URL is configured, with an
// in-memory store used otherwise.
//
// Connection lifecycle, migration running, and retry-on-conflict are
// grounded directly on akashi's internal/storage/{pool.go,migrate.go,
// retry.go}; the pgvector/LISTEN-NOTIFY/idempotency-table machinery
// those files also carry is dropped here (justified in DESIGN.md) —
// this domain has no vector search and no outbound notification
// channel that needs a dedicated connection.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgxpool.Pool for the postgres-backed stores.
type DB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a DB with a connection pool to dsn.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &DB{pool: pool, logger: logger}, nil
}

// Pool exposes the underlying pgxpool.Pool for callers that need raw
// query access (e.g. the per-entity store implementations).
func (db *DB) Pool() *pgxpool.Pool { return db.pool }

// Close releases the pool.
func (db *DB) Close() { db.pool.Close() }
