package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hongminglow/guest-account/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// Ensure Provider satisfies the storage.ConnectionProvider interface at compile time.
var _ storage.ConnectionProvider = (*Provider)(nil)

// Provider checks connections out of a pgx pool, one per request.
type Provider struct {
	db   *sql.DB
	pool *pgxpool.Pool
}

// Open creates the pool, verifies the database is reachable and makes sure
// the accounts table exists.
func Open(ctx context.Context, databaseURL string) (*Provider, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", &storage.ConnectionError{Err: err})
	}

	p := &Provider{db: stdlib.OpenDBFromPool(pool), pool: pool}
	if err := p.db.PingContext(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping database: %w", &storage.ConnectionError{Err: err})
	}
	if err := EnsureSchema(ctx, p.db); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewProvider wraps an already opened database handle.
func NewProvider(db *sql.DB) *Provider {
	return &Provider{db: db}
}

// Acquire checks out a dedicated connection. The caller must Close it.
func (p *Provider) Acquire(ctx context.Context) (storage.Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, &storage.ConnectionError{Err: err}
	}
	return conn, nil
}

// Ping reports whether the database currently accepts connections.
func (p *Provider) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return &storage.ConnectionError{Err: err}
	}
	return nil
}

// Close releases database resources.
func (p *Provider) Close() {
	if p.db != nil {
		_ = p.db.Close()
	}
	if p.pool != nil {
		p.pool.Close()
	}
}

const schema = `
	CREATE TABLE IF NOT EXISTS guest_accounts (
		id UUID PRIMARY KEY,
		is_guest BOOLEAN NOT NULL DEFAULT TRUE,
		correlation_digest BYTEA UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

// EnsureSchema creates the accounts table when it is missing.
func EnsureSchema(ctx context.Context, db storage.DBTX) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
