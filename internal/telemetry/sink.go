// Package telemetry delivers pipeline execution events to their consumers.
package telemetry

import (
	"context"

	"payrouter/internal/pipeline"
	apperrors "payrouter/pkg/errors"
	"payrouter/pkg/logger"
)

// LogSink writes one structured log line per execution.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(_ context.Context, ev pipeline.Event) {
	args := []any{
		"flow", ev.FlowName,
		"outcome", string(ev.Outcome),
		"status", ev.Status,
		"duration_ms", ev.DurationMS,
		"locked", ev.Locked,
	}
	if ev.MerchantID != "" {
		args = append(args, "merchant_id", ev.MerchantID)
	}
	if ev.RequestID != "" {
		args = append(args, "request_id", ev.RequestID)
	}
	if ev.ErrorCode != "" {
		args = append(args, "error_code", ev.ErrorCode, "detail", ev.Detail)
	}

	switch ev.Outcome {
	case apperrors.ClassInternal, apperrors.ClassInfrastructure:
		s.log.Error("Pipeline execution failed", args...)
	case apperrors.ClassSuccess:
		s.log.Info("Pipeline execution completed", args...)
	default:
		s.log.Warn("Pipeline execution rejected", args...)
	}
}

// MultiSink fans an event out to every sink in order.
type MultiSink []pipeline.EventSink

func (m MultiSink) Emit(ctx context.Context, ev pipeline.Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}
