package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerWriteTimeout = 5 * time.Second
	DefaultProducerRequireAcks  = 1 // Leader ack is enough for telemetry
	DefaultProducerCompression  = "snappy"

	DefaultEventBufferSize = 1024
	DefaultEventBatchSize  = 100
	DefaultEventFlushEvery = 500 * time.Millisecond
)
