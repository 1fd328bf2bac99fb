package storage

import (
	"context"
	"database/sql"

	"github.com/hongminglow/guest-account/internal/models"
)

// DBTX is the subset of database/sql used by the account store.
// *sql.DB, *sql.Conn and *sql.Tx all satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn is a connection owned by a single request. Close hands it back to the pool.
type Conn interface {
	DBTX
	Close() error
}

// ConnectionProvider hands out one connection per request.
type ConnectionProvider interface {
	Acquire(ctx context.Context) (Conn, error)
}

// AccountStore captures persistence operations needed by the guest sign-in flow.
type AccountStore interface {
	// FindOrCreateGuest returns the guest account tied to correlationToken,
	// creating it on first use. An empty token always creates a new account.
	FindOrCreateGuest(ctx context.Context, db DBTX, correlationToken string) (models.Account, error)
}
