package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/corray333/backend-labs/checkout/internal/config"
	"github.com/corray333/backend-labs/checkout/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Client represents a Postgres client.
type Client struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

// Pool returns the underlying connection pool.
func (p *Client) Pool() *pgxpool.Pool {
	return p.pool
}

// DB returns a database/sql handle backed by the pool.
func (p *Client) DB() *sql.DB {
	return p.db
}

// Ping checks that the database is reachable.
func (p *Client) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the database connection for graceful shutdown.
func (p *Client) Close() error {
	err := p.db.Close()
	p.pool.Close()

	return err
}

// MustNewClient creates a new Postgres client and applies pending migrations.
func MustNewClient(cfg config.PostgresConfig) *Client {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		panic(fmt.Sprintf("failed to parse postgres config: %v", err))
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create postgres pool: %v", err))
	}

	if err := pool.Ping(context.Background()); err != nil {
		panic(fmt.Sprintf("failed to ping postgres: %v", err))
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := Migrate(db); err != nil {
		panic(err)
	}

	return &Client{
		pool: pool,
		db:   db,
	}
}

// Migrate applies the embedded goose migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
