package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "payrouter"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLockStore          = LockStoreMemory
	DefaultLockTTL            = 30 * time.Second
	DefaultLockReleaseTimeout = 5 * time.Second
	DefaultRedisAddr          = "localhost:6379"

	DefaultLockBreakerMaxFailures = 5
	DefaultLockBreakerOpenTimeout = 10 * time.Second

	DefaultPaymentLinkTTL     = 15 * time.Minute
	DefaultPaymentLinkBaseURL = "http://localhost:8080/payment_link"

	DefaultPaginationLimit = 10
)

const (
	LockStoreMemory   = "memory"
	LockStoreRedis    = "redis"
	LockStoreMongo    = "mongo"
	LockStorePostgres = "postgres"
)
