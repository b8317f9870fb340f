package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. Both the pool and a pgx.Tx satisfy it, so a key
// can be claimed inside the transaction it guards.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// IdempotencyStore persists processed keys for one module.
type IdempotencyStore struct {
	module string
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(module string) *IdempotencyStore {
	return &IdempotencyStore{module: module}
}

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = Conflict("Request already processed")

// Claim inserts key. A replayed key yields ErrIdempotencyConflict.
func (s *IdempotencyStore) Claim(ctx context.Context, db Execer, key string) error {
	if s == nil || s.module == "" {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	_, err := db.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, key, s.module, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}
