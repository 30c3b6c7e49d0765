// Package store is the Measurement Store: the relational persistence layer
// shared by every pipeline stage. Each stage owns a disjoint column set
// (spec.md §3 "Ownership") but all of them go through this one Repository,
// matching the teacher's single internal/repository.Repository design.
package store

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository wraps a pgx connection pool. All pipeline components share one
// instance per process; pgxpool itself is safe for concurrent use.
type Repository struct {
	db *pgxpool.Pool
}

// New connects to Postgres and returns a ready Repository.
func New(ctx context.Context, dbURL string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConns = int32(n)
		}
	}
	if v := os.Getenv("DB_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinConns = int32(n)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	return &Repository{db: pool}, nil
}

// Migrate applies the bundled schema. It is idempotent (CREATE TABLE IF NOT
// EXISTS throughout) so it is safe to run on every process start.
func (r *Repository) Migrate(ctx context.Context, schemaSQL string) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() {
	r.db.Close()
}

// Pool exposes the underlying pool for components (ops server health check)
// that need a raw ping without a dedicated Repository method.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.db
}
