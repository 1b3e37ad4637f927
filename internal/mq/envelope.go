// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mq

import (
	"encoding/json"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Envelope wraps a rendered document into the message put on the queue.
type Envelope interface {
	Wrap(template string, body []byte) ([]byte, error)
}

// Raw sends the rendered document as is.
type Raw struct{}

func (Raw) Wrap(_ string, body []byte) ([]byte, error) { return body, nil }

// RenderedEventType is the CloudEvents type of a rendered template.
const RenderedEventType = "io.templatesvc.template.rendered"

// CloudEvents wraps the document in a structured-mode CloudEvents JSON event
// whose subject is the template source path.
type CloudEvents struct {
	Source string
	Now    func() time.Time
}

func (c CloudEvents) Wrap(template string, body []byte) ([]byte, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(c.Source)
	e.SetType(RenderedEventType)
	e.SetSubject(template)
	e.SetTime(now())
	if err := e.SetData("text/plain", body); err != nil {
		return nil, fmt.Errorf("set event data: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return json.Marshal(e)
}

// NewEnvelope returns the envelope for a configured kind ("raw" or "cloudevents").
func NewEnvelope(kind, source string) (Envelope, error) {
	switch kind {
	case "", "raw":
		return Raw{}, nil
	case "cloudevents":
		if source == "" {
			source = "templatesvc"
		}
		return CloudEvents{Source: source}, nil
	default:
		return nil, fmt.Errorf("unsupported envelope %q (supported: raw, cloudevents)", kind)
	}
}
