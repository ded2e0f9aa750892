package main

import (
	"context"
	"payrouter/internal/auth"
	authrepo "payrouter/internal/auth/repository"
	"payrouter/internal/locking"
	"payrouter/internal/locking/store"
	"payrouter/internal/paymentlinks/handler"
	"payrouter/internal/paymentlinks/repository"
	"payrouter/internal/paymentlinks/service"
	"payrouter/internal/paymentlinks/validator"
	"payrouter/internal/pipeline"
	"payrouter/internal/telemetry"
	"payrouter/pkg/app"
	"payrouter/pkg/config"
	"payrouter/pkg/kafka"
	kafka_config "payrouter/pkg/kafka/config"
	kafka_middleware "payrouter/pkg/kafka/middleware"
)

const ServiceName = "payrouter"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetLockStoreClient()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	defer cancel()

	cfg.Log.Info("Starting payment router")
	serverApp := app.NewApplication(cfg)

	locks := initLocks(ctx, cfg)
	events := initEvents(cfg, serverApp)
	state := pipeline.NewState(cfg, cfg.Log, locks, events)

	linkRepo := repository.NewMongoPaymentLinkRepository(cfg)
	if err := linkRepo.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to create payment link indexes", "error", err)
	}
	linkService := service.NewPaymentLinkService(
		linkRepo,
		validator.NewPaymentLinkValidator(cfg.Log),
		cfg.Log,
		service.Options{
			DefaultTTL: cfg.PaymentLinkTTL,
			BaseURL:    cfg.PaymentLinkBaseURL,
		},
	)

	linkHandler := handler.NewPaymentLinkHandler(state, linkService, initAuthenticators(cfg, linkRepo))
	healthHandler := handler.NewHealthHandler(cfg.Client.Mongo, locks, cfg.Log)

	serverApp.SetApp(linkHandler, healthHandler)
	serverApp.Run()
}

func initLocks(ctx context.Context, cfg *config.Config) *locking.Manager {
	lockStore, err := store.FromConfig(ctx, cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize lock store", "error", err, "lock_store", cfg.LockStore)
	}
	cfg.Log.Info("Lock manager initialized", "lock_store", cfg.LockStore, "ttl", cfg.LockTTL)
	return locking.NewManager(lockStore, cfg.Log, locking.Options{
		TTL:            cfg.LockTTL,
		ReleaseTimeout: cfg.LockReleaseTimeout,
	})
}

// initEvents always logs execution events and also publishes them to Kafka when a
// topic is configured.
func initEvents(cfg *config.Config, serverApp *app.Application) pipeline.EventSink {
	sinks := telemetry.MultiSink{telemetry.NewLogSink(cfg.Log)}
	if cfg.ExecutionEventsTopic == "" {
		return sinks
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.ExecutionEventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	sink := telemetry.NewKafkaSink(producer, cfg.Log, telemetry.KafkaSinkOptions{
		BufferSize:   kafkaCfg.EventBufferSize,
		BatchSize:    kafkaCfg.EventBatchSize,
		FlushEvery:   kafkaCfg.EventFlushEvery,
		WriteTimeout: kafkaCfg.ProducerWriteTimeout,
		Source:       ServiceName,
	})
	serverApp.OnShutdown(sink)
	cfg.Log.Info("Execution events published to Kafka", "topic", cfg.ExecutionEventsTopic)
	return append(sinks, sink)
}

func initAuthenticators(cfg *config.Config, secrets auth.SecretStore) handler.Authenticators {
	keys := authrepo.NewMongoAPIKeyRepository(cfg)
	authn := handler.Authenticators{
		APIKey:      auth.NewAPIKeyValidator(keys),
		Publishable: auth.NewPublishableKeyValidator(keys),
		Secrets:     secrets,
	}
	if cfg.JWTSecret != "" {
		authn.JWT = auth.NewJWTValidator(cfg.JWTSecret, ServiceName)
		cfg.Log.Info("JWT authentication enabled")
	}
	return authn
}
