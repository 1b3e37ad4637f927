// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package templates holds the trigger-to-template data model: templates, the
// trigger variables they are built from and the registry the dispatcher scans.
package templates

import (
	"errors"
	"fmt"
	"io"

	"github.com/ManuGH/templatesvc/internal/mq"
	"github.com/ManuGH/templatesvc/internal/status"
	"github.com/ManuGH/templatesvc/internal/varstore"
)

// DeliveryKind selects how a rendered template reaches its destination.
type DeliveryKind int

const (
	KindUnknown DeliveryKind = iota
	KindStream               // render straight into a file or stream ("fd")
	KindQueue                // render into the buffer, send as one message ("mq")
)

// ParseKind maps a configured type to a DeliveryKind. An empty type means "fd".
func ParseKind(s string) DeliveryKind {
	switch s {
	case "", "fd":
		return KindStream
	case "mq":
		return KindQueue
	default:
		return KindUnknown
	}
}

func (k DeliveryKind) String() string {
	switch k {
	case KindStream:
		return "fd"
	case KindQueue:
		return "mq"
	default:
		return "unknown"
	}
}

// TriggerVar is a trigger variable owned by one template. Handle stays
// invalid until subscription setup resolves it.
type TriggerVar struct {
	Name   string
	Handle varstore.Handle
}

// Template binds a template source to a destination and a delivery kind.
type Template struct {
	Source   string
	Target   string
	Kind     DeliveryKind
	TypeName string // configured type, kept for diagnostics
	KeepOpen bool
	Append   bool
	Atomic   bool

	// Triggers are kept newest first.
	Triggers []*TriggerVar

	// Output is the open destination of a Stream template. Only delivery
	// sets it; nil means the next render reopens the destination.
	Output io.WriteCloser
	// Queue is the open destination queue of a Queue template.
	Queue mq.Queue
}

// AddTrigger prepends a trigger variable for name.
func (t *Template) AddTrigger(name string) (*TriggerVar, error) {
	if name == "" {
		return nil, fmt.Errorf("trigger name: %w", status.ErrInvalidArgument)
	}
	tv := &TriggerVar{Name: name}
	t.Triggers = append([]*TriggerVar{tv}, t.Triggers...)
	return tv, nil
}

// Matches reports whether any resolved trigger of t has handle h.
func (t *Template) Matches(h varstore.Handle) bool {
	if !h.Valid() {
		return false
	}
	for _, tv := range t.Triggers {
		if tv.Handle == h {
			return true
		}
	}
	return false
}

// CloseHandles releases the destination descriptor or queue handle, if open.
func (t *Template) CloseHandles() error {
	var errs []error
	if t.Output != nil {
		if err := t.Output.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", t.Target, err))
		}
		t.Output = nil
	}
	if t.Queue != nil {
		if err := t.Queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close queue %s: %w", t.Target, err))
		}
		t.Queue = nil
	}
	return errors.Join(errs...)
}
