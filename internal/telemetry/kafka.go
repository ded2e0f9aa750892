package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"payrouter/internal/pipeline"
	"payrouter/pkg/kafka"
	"payrouter/pkg/logger"
)

const (
	EventTypeExecution     = "pipeline.execution"
	executionSchemaVersion = "1"
)

var ErrSinkClosed = errors.New("telemetry: sink closed")

// Publisher is the part of kafka.Producer the sink needs.
type Publisher interface {
	PublishBatch(ctx context.Context, messages []kafka.Message) error
	Close() error
}

type KafkaSinkOptions struct {
	BufferSize   int
	BatchSize    int
	FlushEvery   time.Duration
	WriteTimeout time.Duration
	Source       string
}

// KafkaSink buffers events and publishes them in batches keyed by merchant. Emit never
// blocks: when the buffer is full the event is dropped and counted.
type KafkaSink struct {
	publisher Publisher
	log       *logger.Logger
	opts      KafkaSinkOptions

	mu      sync.RWMutex
	closed  bool
	events  chan pipeline.Event
	done    chan struct{}
	dropped atomic.Int64
	once    sync.Once
}

func NewKafkaSink(publisher Publisher, log *logger.Logger, opts KafkaSinkOptions) *KafkaSink {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	if opts.BatchSize <= 0 || opts.BatchSize > opts.BufferSize {
		opts.BatchSize = min(100, opts.BufferSize)
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 500 * time.Millisecond
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	s := &KafkaSink{
		publisher: publisher,
		log:       log,
		opts:      opts,
		events:    make(chan pipeline.Event, opts.BufferSize),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *KafkaSink) Emit(_ context.Context, ev pipeline.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			s.log.Warn("Execution event buffer full, dropping events", "dropped_total", n, "flow", ev.FlowName)
		}
	}
}

func (s *KafkaSink) Dropped() int64 {
	return s.dropped.Load()
}

func (s *KafkaSink) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.opts.FlushEvery)
	defer ticker.Stop()

	batch := make([]pipeline.Event, 0, s.opts.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.publish(batch)
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= s.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (s *KafkaSink) publish(batch []pipeline.Event) {
	messages := make([]kafka.Message, 0, len(batch))
	for _, ev := range batch {
		key := ev.MerchantID
		if key == "" {
			key = "anonymous"
		}
		msg, err := kafka.NewMessage().
			WithKey(key).
			WithValue(ev).
			WithTimestamp(ev.Timestamp).
			WithEventType(EventTypeExecution).
			WithSchemaVersion(executionSchemaVersion).
			WithSource(s.opts.Source).
			WithCorrelationID(ev.RequestID).
			Build()
		if err != nil {
			s.log.Error("Failed to encode execution event", "flow", ev.FlowName, "error", err)
			continue
		}
		messages = append(messages, msg)
	}
	if len(messages) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()
	if err := s.publisher.PublishBatch(ctx, messages); err != nil {
		s.log.Error("Failed to publish execution events", "count", len(messages), "error", err)
	}
}

// Close stops accepting events, flushes what is buffered and closes the publisher.
func (s *KafkaSink) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()

		select {
		case <-s.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		if cerr := s.publisher.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
