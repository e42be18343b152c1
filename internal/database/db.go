package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

type Config struct {
	DSN         string
	MaxConns    int32
	MinConns    int32
	MaxConnLife time.Duration
	MaxConnIdle time.Duration
}

func DefaultConfig(dsn string) Config {
	return Config{
		DSN:         dsn,
		MaxConns:    4,
		MinConns:    0,
		MaxConnLife: time.Hour,
		MaxConnIdle: 5 * time.Minute,
	}
}

func New(ctx context.Context, cfg Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLife
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdle

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// WithTx runs fn in a transaction, rolling back when fn fails.
func (db *DB) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS summary_products (
	id          UUID PRIMARY KEY,
	run_id      UUID NOT NULL,
	position    INTEGER NOT NULL,
	title       TEXT,
	brand       TEXT,
	price       TEXT,
	sale_price  TEXT,
	price_value DOUBLE PRECISION NOT NULL DEFAULT 0,
	url         TEXT,
	image       TEXT,
	badges      JSONB NOT NULL DEFAULT '[]',
	scraped_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS summary_products_run_id_idx ON summary_products (run_id);

CREATE TABLE IF NOT EXISTS product_details (
	url            TEXT PRIMARY KEY,
	run_id         UUID NOT NULL,
	brand          TEXT,
	title          TEXT,
	price          TEXT,
	stock          TEXT,
	description    TEXT NOT NULL DEFAULT '',
	details        JSONB NOT NULL DEFAULT '{}',
	images         JSONB NOT NULL DEFAULT '[]',
	specifications JSONB NOT NULL DEFAULT '{}',
	reviews        JSONB NOT NULL DEFAULT '{}',
	questions      JSONB NOT NULL DEFAULT '[]',
	scraped_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// EnsureSchema creates the result tables when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
