package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// setupPostgres returns a pool against LOCKSTORE_PG_DSN, or a throwaway container when
// LOCKSTORE_PG_CONTAINER=1. Otherwise the test is skipped.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("LOCKSTORE_PG_DSN")
	if dsn == "" {
		if os.Getenv("LOCKSTORE_PG_CONTAINER") != "1" {
			t.Skip("set LOCKSTORE_PG_DSN or LOCKSTORE_PG_CONTAINER=1 to run postgres lock store tests")
		}
		pgC, err := postgres.Run(ctx,
			"postgres:16",
			postgres.WithDatabase("locks"),
			postgres.WithUsername("testuser"),
			postgres.WithPassword("testpass"),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

		dsn, err = pgC.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresStore(t *testing.T) {
	pool := setupPostgres(t)
	s := NewPostgresStore(pool)
	ctx := context.Background()
	require.NoError(t, s.EnsureSchema(ctx))

	key := "lock:m:payment_link:" + time.Now().Format("150405.000000")

	ok, err := s.TryAcquire(ctx, key, "token-a", 300*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.TryAcquire(ctx, key, "token-b", time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "held key must not be acquirable")

	time.Sleep(400 * time.Millisecond)

	ok, err = s.TryAcquire(ctx, key, "token-b", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired key must be taken over")

	deleted, err := s.Release(ctx, key, "token-a")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.Release(ctx, key, "token-b")
	require.NoError(t, err)
	assert.True(t, deleted)

	held, err := s.IsHeld(ctx, key)
	require.NoError(t, err)
	assert.False(t, held)
}
