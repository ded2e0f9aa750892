package main

import (
	"context"
	"time"

	"payrouter/internal/locking/store"
	mongoMigration "payrouter/internal/migrations/mongo"
	"payrouter/pkg/config"
)

const JobName = "payrouter-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.SetLockStoreClient()
	cfg.Log.Info("Starting migration job")
	defer cfg.GracefulShutdown()

	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.Log); err != nil {
		cfg.Log.Fatal("Mongo migration failed", "error", err)
	}

	// Building the lock store creates its index or table.
	if _, err := store.FromConfig(ctx, cfg); err != nil {
		cfg.Log.Fatal("Lock store migration failed", "error", err, "lock_store", cfg.LockStore)
	}
	cfg.Log.Info("Migration completed successfully")
}
