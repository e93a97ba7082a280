// Package store persists analyses to Postgres and keeps recent uploads in
// memory.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return pool, nil
}

// schema creates every table the repository writes. Per-period tables are
// keyed on (entity_id, period) so that re-runs overwrite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS smes (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		industry TEXT NOT NULL,
		details JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS financial_records (
		entity_id UUID NOT NULL REFERENCES smes(id) ON DELETE CASCADE,
		period TEXT NOT NULL,
		revenue DOUBLE PRECISION NOT NULL,
		cogs DOUBLE PRECISION NOT NULL,
		gross_profit DOUBLE PRECISION NOT NULL,
		operating_expenses DOUBLE PRECISION NOT NULL,
		ebitda DOUBLE PRECISION NOT NULL,
		net_profit DOUBLE PRECISION NOT NULL,
		ending_cash DOUBLE PRECISION,
		statement JSONB NOT NULL,
		run_id UUID NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (entity_id, period)
	)`,
	`CREATE TABLE IF NOT EXISTS credit_scores (
		entity_id UUID NOT NULL REFERENCES smes(id) ON DELETE CASCADE,
		period TEXT NOT NULL,
		credit_score DOUBLE PRECISION,
		credit_rating TEXT NOT NULL,
		components JSONB NOT NULL,
		run_id UUID NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (entity_id, period)
	)`,
	`CREATE TABLE IF NOT EXISTS forecasts (
		entity_id UUID NOT NULL REFERENCES smes(id) ON DELETE CASCADE,
		period TEXT NOT NULL,
		forecast_revenue DOUBLE PRECISION NOT NULL,
		lower_bound DOUBLE PRECISION NOT NULL,
		upper_bound DOUBLE PRECISION NOT NULL,
		method TEXT NOT NULL,
		run_id UUID NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (entity_id, period)
	)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
		entity_id UUID NOT NULL REFERENCES smes(id) ON DELETE CASCADE,
		period TEXT NOT NULL,
		context JSONB NOT NULL,
		items JSONB NOT NULL,
		run_id UUID NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (entity_id, period)
	)`,
}

// Migrate creates missing tables. The binaries call it at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range schema {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
