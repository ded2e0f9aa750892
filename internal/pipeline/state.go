package pipeline

import (
	"context"
	"time"

	"payrouter/internal/locking"
	"payrouter/pkg/config"
	"payrouter/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "payrouter/internal/pipeline"

// EventSink receives exactly one Event per pipeline execution. Emit must not block on
// slow backends.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// State is the application handle threaded into every execution. It is built once at
// startup and not mutated afterwards.
type State struct {
	Config *config.Config
	Log    *logger.Logger
	Locks  *locking.Manager
	Events EventSink
	Tracer trace.Tracer
	Now    func() time.Time
}

func NewState(cfg *config.Config, log *logger.Logger, locks *locking.Manager, events EventSink) *State {
	return &State{
		Config: cfg,
		Log:    log,
		Locks:  locks,
		Events: events,
		Tracer: otel.Tracer(tracerName),
		Now:    time.Now,
	}
}

func (s *State) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *State) tracer() trace.Tracer {
	if s.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return s.Tracer
}
