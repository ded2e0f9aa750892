package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"payrouter/internal/pipeline"
	apperrors "payrouter/pkg/errors"
	"payrouter/pkg/kafka"
	"payrouter/pkg/logger"
)

type mockPublisher struct {
	mu        sync.Mutex
	batches   [][]kafka.Message
	err       error
	closed    bool
	published chan struct{}
	block     chan struct{}
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{published: make(chan struct{}, 16)}
}

func (m *mockPublisher) PublishBatch(_ context.Context, messages []kafka.Message) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	m.batches = append(m.batches, messages)
	m.mu.Unlock()
	m.published <- struct{}{}
	return m.err
}

func (m *mockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockPublisher) messages() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []kafka.Message
	for _, b := range m.batches {
		all = append(all, b...)
	}
	return all
}

func event(merchant string) pipeline.Event {
	return pipeline.Event{
		Flow:       pipeline.FlowPaymentLinkInitiate,
		FlowName:   pipeline.FlowPaymentLinkInitiate.String(),
		Outcome:    apperrors.ClassSuccess,
		Status:     200,
		MerchantID: merchant,
		RequestID:  "req-" + merchant,
		Timestamp:  time.Now(),
	}
}

func TestKafkaSink_FlushesFullBatch(t *testing.T) {
	pub := newMockPublisher()
	sink := NewKafkaSink(pub, logger.Discard(), KafkaSinkOptions{BufferSize: 10, BatchSize: 2, FlushEvery: time.Hour})

	sink.Emit(context.Background(), event("merchant_1"))
	sink.Emit(context.Background(), event("merchant_2"))

	select {
	case <-pub.published:
	case <-time.After(time.Second):
		t.Fatal("batch was not published")
	}

	msgs := pub.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Key != "merchant_1" || msgs[0].Headers[kafka.HeaderEventType] != EventTypeExecution ||
		msgs[0].Headers[kafka.HeaderCorrelationID] != "req-merchant_1" {
		t.Errorf("unexpected message: %+v", msgs[0])
	}

	var decoded map[string]any
	if err := json.Unmarshal(msgs[0].Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["flow"] != "payment_link_initiate" || decoded["outcome"] != "success" {
		t.Errorf("unexpected payload: %v", decoded)
	}

	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestKafkaSink_CloseFlushesBuffered(t *testing.T) {
	pub := newMockPublisher()
	sink := NewKafkaSink(pub, logger.Discard(), KafkaSinkOptions{BufferSize: 10, BatchSize: 10, FlushEvery: time.Hour})

	sink.Emit(context.Background(), event(""))
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	msgs := pub.messages()
	if len(msgs) != 1 || msgs[0].Key != "anonymous" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if !pub.closed {
		t.Error("publisher should be closed")
	}

	// emits after close are ignored
	sink.Emit(context.Background(), event("merchant_1"))
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestKafkaSink_DropsWhenFull(t *testing.T) {
	pub := newMockPublisher()
	pub.block = make(chan struct{})
	sink := NewKafkaSink(pub, logger.Discard(), KafkaSinkOptions{BufferSize: 1, BatchSize: 1, FlushEvery: time.Hour})

	// first event is taken by the worker which then blocks in PublishBatch
	sink.Emit(context.Background(), event("m1"))
	deadline := time.Now().Add(time.Second)
	for len(sink.events) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	sink.Emit(context.Background(), event("m2"))
	sink.Emit(context.Background(), event("m3"))

	if sink.Dropped() != 1 {
		t.Fatalf("expected 1 dropped event, got %d", sink.Dropped())
	}

	close(pub.block)
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := len(pub.messages()); n != 2 {
		t.Fatalf("expected 2 published, got %d", n)
	}
}

func TestKafkaSink_PublishErrorIsLogged(t *testing.T) {
	pub := newMockPublisher()
	pub.err = errors.New("kafka: leader not available")
	sink := NewKafkaSink(pub, logger.Discard(), KafkaSinkOptions{BufferSize: 4, BatchSize: 1, FlushEvery: time.Hour})

	sink.Emit(context.Background(), event("m1"))
	<-pub.published
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

type countingSink struct{ n int }

func (c *countingSink) Emit(context.Context, pipeline.Event) { c.n++ }

func TestMultiSink(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	multi := MultiSink{a, NewLogSink(logger.Discard()), b}

	multi.Emit(context.Background(), event("m1"))

	if a.n != 1 || b.n != 1 {
		t.Fatalf("every sink should get the event once: %d %d", a.n, b.n)
	}
}
