package config

import (
	"fmt"
	"os"
	"payrouter/pkg/client"
	"payrouter/pkg/logger"
	"regexp"
	"slices"
	"strconv"
	"time"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	LockStore          string
	LockTTL            time.Duration
	LockReleaseTimeout time.Duration
	RedisAddr          string
	RedisPassword      string
	PostgresDSN        string

	LockBreakerMaxFailures int
	LockBreakerOpenTimeout time.Duration

	JWTSecret string

	PaymentLinkTTL     time.Duration
	PaymentLinkBaseURL string

	ExecutionEventsTopic string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		LockStore:          getEnvStr(EnvLockStore, DefaultLockStore),
		LockTTL:            getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockReleaseTimeout: getEnvDuration(EnvLockReleaseTimeout, DefaultLockReleaseTimeout),
		RedisAddr:          getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword:      getEnvStr(EnvRedisPassword, ""),
		PostgresDSN:        getEnvStr(EnvPostgresDSN, ""),

		LockBreakerMaxFailures: getEnvNum(EnvLockBreakerMaxFailures, DefaultLockBreakerMaxFailures),
		LockBreakerOpenTimeout: getEnvDuration(EnvLockBreakerOpenTimeout, DefaultLockBreakerOpenTimeout),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		PaymentLinkTTL:     getEnvDuration(EnvPaymentLinkTTL, DefaultPaymentLinkTTL),
		PaymentLinkBaseURL: getEnvStr(EnvPaymentLinkBaseURL, DefaultPaymentLinkBaseURL),

		ExecutionEventsTopic: getEnvStr(EnvExecutionEventsTopic, ""),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetLockStoreClient connects whichever backend LOCK_STORE selects. Mongo is always
// connected by SetMongo, memory needs nothing.
func (cfg *Config) SetLockStoreClient() {
	switch cfg.LockStore {
	case LockStoreRedis:
		cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.MongoConnTimeout)
	case LockStorePostgres:
		cfg.Client.SetPostgres(cfg.Log, cfg.PostgresDSN, cfg.MongoConnTimeout)
	}
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	validStores := []string{LockStoreMemory, LockStoreRedis, LockStoreMongo, LockStorePostgres}
	if !slices.Contains(validStores, cfg.LockStore) {
		errors = append(errors, fmt.Sprintf("LockStore must be one of %v, got: %s", validStores, cfg.LockStore))
	}
	if cfg.LockStore == LockStoreRedis && cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty when LockStore is redis")
	}
	if cfg.LockStore == LockStorePostgres && cfg.PostgresDSN == "" {
		errors = append(errors, "PostgresDSN cannot be empty when LockStore is postgres")
	}
	if cfg.LockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("LockTTL must be positive, got: %s", cfg.LockTTL))
	}
	if cfg.LockReleaseTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("LockReleaseTimeout must be positive, got: %s", cfg.LockReleaseTimeout))
	}
	if cfg.LockBreakerMaxFailures <= 0 {
		errors = append(errors, fmt.Sprintf("LockBreakerMaxFailures must be positive, got: %d", cfg.LockBreakerMaxFailures))
	}
	if cfg.LockBreakerOpenTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("LockBreakerOpenTimeout must be positive, got: %s", cfg.LockBreakerOpenTimeout))
	}

	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 32 {
		errors = append(errors, "JWTSecret must be at least 32 characters when set")
	}

	if cfg.PaymentLinkTTL <= 0 {
		errors = append(errors, fmt.Sprintf("PaymentLinkTTL must be positive, got: %s", cfg.PaymentLinkTTL))
	}
	if cfg.PaymentLinkBaseURL == "" {
		errors = append(errors, "PaymentLinkBaseURL cannot be empty")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"lock_store", cfg.LockStore,
		"lock_ttl", cfg.LockTTL,
		"lock_release_timeout", cfg.LockReleaseTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"postgres_dsn_set", cfg.PostgresDSN != "",
		"lock_breaker_max_failures", cfg.LockBreakerMaxFailures,
		"lock_breaker_open_timeout", cfg.LockBreakerOpenTimeout,
		"jwt_enabled", cfg.JWTSecret != "",
		"payment_link_ttl", cfg.PaymentLinkTTL,
		"payment_link_base_url", cfg.PaymentLinkBaseURL,
		"execution_events_topic", cfg.ExecutionEventsTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
