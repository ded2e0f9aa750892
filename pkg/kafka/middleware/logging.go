package kafka_middleware

import (
	"context"
	"time"

	"payrouter/pkg/kafka"
	"payrouter/pkg/logger"
)

// LoggingProducerMiddleware logs failed publishes at Warn and successful ones at Debug.
func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		duration := time.Since(start)

		if err != nil {
			log.Warn("Failed to publish message",
				"topic", msg.Topic,
				"key", msg.Key,
				"event_id", msg.EventID(),
				"correlation_id", msg.CorrelationID(),
				"duration_ms", duration.Milliseconds(),
				"error", err,
			)
			return err
		}

		log.Debug("Published message",
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.EventID(),
			"duration_ms", duration.Milliseconds(),
		)
		return nil
	}
}
