// Package store holds the lock store backends selectable with LOCK_STORE.
package store

import (
	"context"
	"fmt"
	"payrouter/internal/locking"
	"payrouter/pkg/config"
)

// FromConfig builds the configured backend. Remote backends are wrapped in a Breaker.
// The matching client must already be connected on cfg.Client.
func FromConfig(ctx context.Context, cfg *config.Config) (locking.Store, error) {
	var s locking.Store
	switch cfg.LockStore {
	case config.LockStoreMemory:
		cfg.Log.Warn("Using in-memory lock store; locks are not shared between instances")
		return NewMemoryStore(), nil
	case config.LockStoreRedis:
		if cfg.Client.Redis == nil {
			return nil, fmt.Errorf("lock store redis: client not connected")
		}
		s = NewRedisStore(cfg.Client.Redis, "payrouter:")
	case config.LockStoreMongo:
		if cfg.Client.Mongo == nil {
			return nil, fmt.Errorf("lock store mongo: client not connected")
		}
		ms := NewMongoStore(cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
		if err := ms.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		s = ms
	case config.LockStorePostgres:
		if cfg.Client.Postgres == nil {
			return nil, fmt.Errorf("lock store postgres: client not connected")
		}
		ps := NewPostgresStore(cfg.Client.Postgres)
		if err := ps.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		s = ps
	default:
		return nil, fmt.Errorf("unknown lock store %q", cfg.LockStore)
	}

	return NewBreaker(s, cfg.Log, BreakerSettings{
		Name:        "lock-store-" + cfg.LockStore,
		MaxFailures: cfg.LockBreakerMaxFailures,
		OpenTimeout: cfg.LockBreakerOpenTimeout,
	}), nil
}
