package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hongminglow/guest-account/internal/models"
	"github.com/hongminglow/guest-account/internal/storage"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/blake2b"
)

// Ensure AccountStore satisfies the storage.AccountStore interface at compile time.
var _ storage.AccountStore = (*AccountStore)(nil)

const (
	insertGuestQuery = `
		INSERT INTO guest_accounts (id, is_guest, correlation_digest, created_at)
		VALUES ($1, TRUE, $2, $3)
		ON CONFLICT (correlation_digest) DO NOTHING
		RETURNING id::text, is_guest, created_at`

	findByDigestQuery = `
		SELECT id::text, is_guest, created_at
		FROM guest_accounts
		WHERE correlation_digest = $1`
)

// AccountStore persists guest accounts. It holds no connection of its own;
// every call runs on the handle the caller passes in.
type AccountStore struct {
	now   func() time.Time
	newID func() string
}

// NewAccountStore creates a store that stamps rows with the current time and
// random UUIDs.
func NewAccountStore() *AccountStore {
	return &AccountStore{now: time.Now, newID: uuid.NewString}
}

// FindOrCreateGuest returns the guest tied to correlationToken, inserting it on
// first use. Without a token every call inserts a new guest.
func (s *AccountStore) FindOrCreateGuest(ctx context.Context, db storage.DBTX, correlationToken string) (models.Account, error) {
	if correlationToken == "" {
		acct, err := s.insert(ctx, db, nil)
		if err != nil {
			return models.Account{}, &storage.StoreError{Op: "create guest account", Err: err}
		}
		return acct, nil
	}

	digest := Digest(correlationToken)
	acct, err := s.findByDigest(ctx, db, digest)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Account{}, &storage.StoreError{Op: "find guest account", Err: err}
	}

	acct, err = s.insert(ctx, db, digest)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrAlreadyExists) {
		return models.Account{}, &storage.StoreError{Op: "create guest account", Err: err}
	}

	// A concurrent sign-in with the same token inserted first.
	acct, err = s.findByDigest(ctx, db, digest)
	if err != nil {
		return models.Account{}, &storage.StoreError{Op: "find guest account", Err: err}
	}
	return acct, nil
}

// Digest returns the value stored in correlation_digest for a token. Raw
// tokens are never written to the table.
func Digest(token string) []byte {
	sum := blake2b.Sum256([]byte(token))
	return sum[:]
}

func (s *AccountStore) insert(ctx context.Context, db storage.DBTX, digest []byte) (models.Account, error) {
	var digestArg any
	if digest != nil {
		digestArg = digest
	}
	row := db.QueryRowContext(ctx, insertGuestQuery, s.newID(), digestArg, s.now().UTC())
	acct, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.Account{}, fmt.Errorf("%w: %w", storage.ErrAlreadyExists, err)
		}
		return models.Account{}, err
	}
	return acct, nil
}

func (s *AccountStore) findByDigest(ctx context.Context, db storage.DBTX, digest []byte) (models.Account, error) {
	return scanAccount(db.QueryRowContext(ctx, findByDigestQuery, digest))
}

func scanAccount(row *sql.Row) (models.Account, error) {
	var acct models.Account
	if err := row.Scan(&acct.ID, &acct.Guest, &acct.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, storage.ErrNotFound
		}
		return models.Account{}, fmt.Errorf("db error: %w", err)
	}
	acct.CreatedAt = acct.CreatedAt.UTC()
	return acct, nil
}
