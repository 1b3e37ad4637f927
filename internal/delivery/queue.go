// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/templatesvc/internal/metrics"
	"github.com/ManuGH/templatesvc/internal/mq"
	"github.com/ManuGH/templatesvc/internal/render"
	"github.com/ManuGH/templatesvc/internal/renderbuf"
	"github.com/ManuGH/templatesvc/internal/status"
	"github.com/ManuGH/templatesvc/internal/templates"
	"github.com/rs/zerolog"
)

// Queue renders a template into the shared render buffer and sends the
// result as one message.
type Queue struct {
	Lookup    render.Lookup
	Buffer    *renderbuf.Buffer
	Transport mq.Transport
	// Envelope wraps the rendered document; nil sends it raw.
	Envelope mq.Envelope
	Logger   zerolog.Logger
}

// Deliver renders t.Source and sends it to the queue named t.Target.
//
// The buffer holds exactly one document: it is reset before every render.
// The queue is opened on first use and closed after a failed send or when
// t.KeepOpen is false.
func (q *Queue) Deliver(ctx context.Context, t *templates.Template) (int64, error) {
	if t == nil || q.Lookup == nil {
		return 0, status.ErrInvalidArgument
	}
	if q.Buffer == nil {
		return 0, fmt.Errorf("render buffer: %w", status.ErrNotFound)
	}

	q.Buffer.Reset()

	src, err := openSource(t.Source)
	if err != nil {
		return 0, err
	}
	n, err := render.ToSink(ctx, q.Lookup, src, q.Buffer)
	if cerr := src.Close(); cerr != nil {
		q.Logger.Debug().Err(cerr).Str("path", t.Source).Msg("close template source")
	}
	metrics.SetRenderBufferHighWater(q.Buffer.HighWater())
	if err != nil {
		return n, err
	}

	if t.Queue == nil {
		if q.Transport == nil {
			return n, fmt.Errorf("open queue %s: no transport: %w", t.Target, status.ErrResourceUnavailable)
		}
		h, err := q.Transport.Open(ctx, t.Target)
		if err != nil {
			if !errors.Is(err, status.ErrResourceUnavailable) {
				err = fmt.Errorf("open queue %s: %w: %w", t.Target, status.ErrResourceUnavailable, err)
			}
			return n, err
		}
		t.Queue = h
	}

	err = q.send(ctx, t)
	if err != nil || !t.KeepOpen {
		if cerr := t.Queue.Close(); cerr != nil {
			q.Logger.Debug().Err(cerr).Str("target", t.Target).Msg("close queue")
		}
		t.Queue = nil
	}
	return n, err
}

func (q *Queue) send(ctx context.Context, t *templates.Template) error {
	data, err := q.Buffer.Data()
	if err != nil {
		return fmt.Errorf("read render buffer: %w", err)
	}
	msg := data
	if q.Envelope != nil {
		if msg, err = q.Envelope.Wrap(t.Source, data); err != nil {
			return fmt.Errorf("wrap message for %s: %w: %w", t.Target, status.ErrTransport, err)
		}
	}
	if err := t.Queue.Send(ctx, msg); err != nil {
		if status.Label(err) == "transport" && !errors.Is(err, status.ErrTransport) {
			err = fmt.Errorf("send to %s: %w: %w", t.Target, status.ErrTransport, err)
		}
		return err
	}
	return nil
}
