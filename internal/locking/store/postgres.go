package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const createLocksTable = `
CREATE TABLE IF NOT EXISTS resource_locks (
	lock_key   TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// The conflict branch only fires for expired rows, which makes insert-or-takeover a
// single atomic statement.
const acquireLock = `
INSERT INTO resource_locks (lock_key, token, expires_at)
VALUES ($1, $2, now() + ($3 * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
	SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, created_at = now()
	WHERE resource_locks.expires_at <= now()`

// pgxConn is the subset of *pgxpool.Pool used here.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db pgxConn
}

func NewPostgresStore(db pgxConn) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createLocksTable); err != nil {
		return fmt.Errorf("create resource_locks: %w", err)
	}
	return nil
}

func (s *PostgresStore) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	tag, err := s.db.Exec(ctx, acquireLock, key, token, ttl.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Release(ctx context.Context, key, token string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM resource_locks WHERE lock_key = $1 AND token = $2`, key, token)
	if err != nil {
		return false, fmt.Errorf("release lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) IsHeld(ctx context.Context, key string) (bool, error) {
	var held bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM resource_locks WHERE lock_key = $1 AND expires_at > now())`, key,
	).Scan(&held)
	if err != nil {
		return false, fmt.Errorf("check lock: %w", err)
	}
	return held, nil
}
