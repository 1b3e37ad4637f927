// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package delivery renders templates and writes the result to their
// destination: a file (Stream) or a message queue (Queue).
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/templatesvc/internal/log"
	"github.com/ManuGH/templatesvc/internal/metrics"
	"github.com/ManuGH/templatesvc/internal/status"
	"github.com/ManuGH/templatesvc/internal/telemetry"
	"github.com/ManuGH/templatesvc/internal/templates"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Deliverer performs one delivery attempt for one template.
type Deliverer interface {
	Deliver(ctx context.Context, t *templates.Template) error
}

// Strategy is a delivery implementation for a single kind.
type Strategy interface {
	Deliver(ctx context.Context, t *templates.Template) (int64, error)
}

// Service routes a template to the strategy for its kind and records the
// outcome in logs, metrics and traces.
type Service struct {
	stream Strategy
	queue  Strategy
}

// NewService creates a Service. A nil strategy makes that kind unsupported.
func NewService(stream, queue Strategy) *Service {
	return &Service{stream: stream, queue: queue}
}

// Deliver renders t once. Failures are reported and returned; they never
// affect other templates.
func (s *Service) Deliver(ctx context.Context, t *templates.Template) error {
	if t == nil {
		return status.ErrInvalidArgument
	}
	ctx, span := telemetry.Tracer().Start(ctx, "template.deliver",
		trace.WithAttributes(telemetry.TemplateAttributes(t.Source, t.Target, t.Kind.String(), t.KeepOpen)...))
	defer span.End()

	logger := log.WithComponentFromContext(ctx, "delivery").With().
		Str(log.FieldTemplate, t.Source).
		Str(log.FieldTarget, t.Target).
		Str(log.FieldKind, t.Kind.String()).
		Logger()
	logger.Debug().Str(log.FieldEvent, "delivery.render").Msg("rendering template")

	start := time.Now()
	var (
		n   int64
		err error
	)
	switch strategy := s.strategyFor(t.Kind); {
	case strategy != nil:
		n, err = strategy.Deliver(ctx, t)
	default:
		err = fmt.Errorf("template %s: type %q: %w", t.Source, t.TypeName, status.ErrUnsupported)
	}
	elapsed := time.Since(start)

	label := status.Label(err)
	errno := int(status.Errno(err))
	metrics.ObserveDelivery(t.Kind.String(), label, elapsed.Seconds(), n)
	span.SetAttributes(telemetry.DeliveryAttributes(n, label, errno)...)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, label)
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "delivery.failed").
			Str(log.FieldStatus, label).
			Int(log.FieldErrno, errno).
			Msg("template delivery failed")
		return err
	}
	span.SetStatus(codes.Ok, "")
	logger.Debug().
		Str(log.FieldEvent, "delivery.ok").
		Int64(log.FieldBytes, n).
		Dur("duration", elapsed).
		Msg("template delivered")
	return nil
}

func (s *Service) strategyFor(k templates.DeliveryKind) Strategy {
	switch k {
	case templates.KindStream:
		return s.stream
	case templates.KindQueue:
		return s.queue
	default:
		return nil
	}
}
