// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package varstore is the client side of the variable store: name to handle
// resolution, modify notifications and value lookup for rendering.
package varstore

import (
	"context"
	"errors"
	"fmt"
)

// Handle is the store-assigned identifier of a variable.
type Handle uint32

// InvalidHandle marks a variable that has not been resolved.
const InvalidHandle Handle = 0

// Valid reports whether h refers to a resolved variable.
func (h Handle) Valid() bool { return h != InvalidHandle }

func (h Handle) String() string { return fmt.Sprintf("%d", uint32(h)) }

// EventKind distinguishes the notifications delivered by Wait.
type EventKind int

const (
	EventOther EventKind = iota
	EventModified
	EventDeleted
)

func (k EventKind) String() string {
	switch k {
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	default:
		return "other"
	}
}

// Event is a single notification for a subscribed variable.
type Event struct {
	Kind   EventKind
	Handle Handle
	Name   string
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("variable store closed")

// Store is a connection to the variable store.
type Store interface {
	// Resolve returns the handle for name, or an error wrapping status.ErrNotFound.
	Resolve(ctx context.Context, name string) (Handle, error)
	// Subscribe requests modify notifications for h.
	Subscribe(ctx context.Context, h Handle) error
	// Wait blocks until the next notification or until ctx is done.
	Wait(ctx context.Context) (Event, error)
	// Values returns the current textual value of every known name.
	// Unknown names are absent from the result.
	Values(ctx context.Context, names []string) (map[string]string, error)
	// Ping checks the connection.
	Ping(ctx context.Context) error
	Close() error
}
