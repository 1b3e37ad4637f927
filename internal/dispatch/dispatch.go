// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dispatch runs the event loop: it waits for store notifications and
// delivers every template whose trigger variables match.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/templatesvc/internal/delivery"
	"github.com/ManuGH/templatesvc/internal/log"
	"github.com/ManuGH/templatesvc/internal/metrics"
	"github.com/ManuGH/templatesvc/internal/status"
	"github.com/ManuGH/templatesvc/internal/telemetry"
	"github.com/ManuGH/templatesvc/internal/templates"
	"github.com/ManuGH/templatesvc/internal/varstore"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Result summarizes the fan-out of one event.
type Result struct {
	// Hits is the number of templates delivered.
	Hits int
	// Failures is the number of those deliveries that failed.
	Failures int
	// Err is the most severe delivery error, nil when every delivery succeeded.
	Err error
}

// Options configures a Dispatcher.
type Options struct {
	Registry  *templates.Registry
	Store     varstore.Store
	Deliverer delivery.Deliverer
	// Sources optionally reports changed template files; each change
	// re-renders the templates built from that file.
	Sources <-chan string
	Logger  zerolog.Logger
}

// Dispatcher maps store events to template deliveries. All deliveries run on
// the goroutine that calls Run, one at a time, in event order.
type Dispatcher struct {
	registry  *templates.Registry
	store     varstore.Store
	deliverer delivery.Deliverer
	sources   <-chan string
	logger    zerolog.Logger

	// throttles the log line for events that match no template
	unmatched *rate.Limiter
	seq       uint64
}

// New validates opts and returns a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	switch {
	case opts.Registry == nil:
		return nil, fmt.Errorf("dispatch: registry: %w", status.ErrInvalidArgument)
	case opts.Store == nil:
		return nil, fmt.Errorf("dispatch: store: %w", status.ErrInvalidArgument)
	case opts.Deliverer == nil:
		return nil, fmt.Errorf("dispatch: deliverer: %w", status.ErrInvalidArgument)
	}
	return &Dispatcher{
		registry:  opts.Registry,
		store:     opts.Store,
		deliverer: opts.Deliverer,
		sources:   opts.Sources,
		logger:    opts.Logger,
		unmatched: rate.NewLimiter(rate.Every(time.Second), 5),
	}, nil
}

// Dispatch delivers every template with a trigger resolved to ev.Handle,
// exactly once per template and most-recently-configured first. A failing
// delivery never stops the scan. Events other than modifications are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, ev varstore.Event) Result {
	metrics.IncEvent(ev.Kind.String())

	d.seq++
	ctx = log.ContextWithEventID(ctx, d.seq)
	logger := log.WithContext(ctx, d.logger)

	if ev.Kind != varstore.EventModified || !ev.Handle.Valid() {
		logger.Debug().
			Str(log.FieldEvent, "dispatch.ignored").
			Stringer(log.FieldKind, ev.Kind).
			Stringer(log.FieldHandle, ev.Handle).
			Msg("ignoring notification")
		return Result{}
	}

	ctx, span := telemetry.Tracer().Start(ctx, "event.dispatch",
		trace.WithAttributes(telemetry.EventAttributes(ev.Kind.String(), uint32(ev.Handle))...))
	defer span.End()

	var res Result
	for _, t := range d.registry.All() {
		if !t.Matches(ev.Handle) {
			continue
		}
		res.record(d.deliver(ctx, t))
	}
	span.SetAttributes(attribute.Int(telemetry.EventHitsKey, res.Hits))
	metrics.SetOpenHandles(d.registry.OpenHandles())

	if res.Hits == 0 {
		metrics.IncUnmatchedEvent()
		if d.unmatched.Allow() {
			logger.Debug().
				Str(log.FieldEvent, "dispatch.unmatched").
				Stringer(log.FieldHandle, ev.Handle).
				Str(log.FieldTrigger, ev.Name).
				Msg("notification matched no template")
		}
		return res
	}

	entry := logger.Debug()
	if res.Err != nil {
		entry = logger.Warn().Err(res.Err).Str(log.FieldStatus, status.Label(res.Err))
	}
	entry.Str(log.FieldEvent, "dispatch.done").
		Str(log.FieldTrigger, ev.Name).
		Int("hits", res.Hits).
		Int("failures", res.Failures).
		Msg("notification dispatched")
	return res
}

// SourceChanged re-renders every template built from path.
func (d *Dispatcher) SourceChanged(ctx context.Context, path string) Result {
	metrics.IncSourceChange()
	d.seq++
	ctx = log.ContextWithEventID(ctx, d.seq)

	var res Result
	for _, t := range d.registry.BySource(path) {
		// Without triggers a template is unreachable.
		if len(t.Triggers) == 0 {
			continue
		}
		res.record(d.deliver(ctx, t))
	}
	metrics.SetOpenHandles(d.registry.OpenHandles())

	logger := log.WithContext(ctx, d.logger)
	logger.Info().
		Str(log.FieldEvent, "dispatch.source_changed").
		Str(log.FieldPath, path).
		Int("hits", res.Hits).
		Int("failures", res.Failures).
		Msg("template source changed")
	return res
}

func (d *Dispatcher) deliver(ctx context.Context, t *templates.Template) error {
	metrics.IncTemplateHit()
	return d.deliverer.Deliver(ctx, t)
}

func (r *Result) record(err error) {
	r.Hits++
	if err != nil {
		r.Failures++
		r.Err = status.Worst(r.Err, err)
	}
}

// Run waits for events and dispatches them until ctx is done, which is a
// clean stop, or the store fails.
func (d *Dispatcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	events := make(chan varstore.Event)
	waitErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			ev, err := d.store.Wait(ctx)
			if err != nil {
				waitErr <- err
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	d.logger.Info().
		Str(log.FieldEvent, "dispatch.started").
		Int("templates", d.registry.Len()).
		Msg("waiting for notifications")

	sources := d.sources
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-waitErr:
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		case ev := <-events:
			d.Dispatch(ctx, ev)
		case path, ok := <-sources:
			if !ok {
				sources = nil
				continue
			}
			d.SourceChanged(ctx, path)
		}
	}
}
