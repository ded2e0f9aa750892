package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLockStore          = "LOCK_STORE"
	EnvLockTTL            = "LOCK_TTL"
	EnvLockReleaseTimeout = "LOCK_RELEASE_TIMEOUT"
	EnvRedisAddr          = "REDIS_ADDR"
	EnvRedisPassword      = "REDIS_PASSWORD"
	EnvPostgresDSN        = "POSTGRES_DSN"

	EnvLockBreakerMaxFailures = "LOCK_BREAKER_MAX_FAILURES"
	EnvLockBreakerOpenTimeout = "LOCK_BREAKER_OPEN_TIMEOUT"

	EnvJWTSecret = "JWT_SECRET"

	EnvPaymentLinkTTL     = "PAYMENT_LINK_TTL"
	EnvPaymentLinkBaseURL = "PAYMENT_LINK_BASE_URL"

	EnvExecutionEventsTopic = "EXECUTION_EVENTS_TOPIC"
)
