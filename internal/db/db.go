package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/001_generations.sql
var generationsSchema string

// NewPool opens a traced connection pool and verifies it with a ping,
// retrying while the database is still starting.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	config.MaxConns = 25
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := ping(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Migrate creates the tables this service writes to. It is safe to run repeatedly.
func Migrate(ctx context.Context, conn DBTX) error {
	if _, err := conn.Exec(ctx, generationsSchema); err != nil {
		return fmt.Errorf("failed to apply generations schema: %w", err)
	}
	return nil
}
