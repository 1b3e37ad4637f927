// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package varstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManuGH/templatesvc/internal/status"
)

// Memory is an in-process variable store used for tests and local runs.
// Set and Delete notify subscribers the way the real store does.
type Memory struct {
	mu         sync.Mutex
	values     map[string]string
	handles    map[string]Handle
	names      map[Handle]string
	subscribed map[Handle]bool
	next       Handle

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemory creates an empty in-memory store. buffer bounds the number of
// undelivered notifications before Set blocks.
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = 64
	}
	return &Memory{
		values:     make(map[string]string),
		handles:    make(map[string]Handle),
		names:      make(map[Handle]string),
		subscribed: make(map[Handle]bool),
		events:     make(chan Event, buffer),
		done:       make(chan struct{}),
	}
}

// Set creates or modifies a variable and notifies subscribers.
func (m *Memory) Set(name, value string) {
	m.mu.Lock()
	m.values[name] = value
	h, ok := m.handles[name]
	notify := ok && m.subscribed[h]
	m.mu.Unlock()

	if notify {
		m.emit(Event{Kind: EventModified, Handle: h, Name: name})
	}
}

// Delete removes a variable and notifies subscribers.
func (m *Memory) Delete(name string) {
	m.mu.Lock()
	delete(m.values, name)
	h, ok := m.handles[name]
	notify := ok && m.subscribed[h]
	m.mu.Unlock()

	if notify {
		m.emit(Event{Kind: EventDeleted, Handle: h, Name: name})
	}
}

func (m *Memory) emit(ev Event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

func (m *Memory) Resolve(_ context.Context, name string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed() {
		return InvalidHandle, ErrClosed
	}
	if h, ok := m.handles[name]; ok {
		return h, nil
	}
	if _, ok := m.values[name]; !ok {
		return InvalidHandle, fmt.Errorf("resolve %q: %w", name, status.ErrNotFound)
	}
	m.next++
	h := m.next
	m.handles[name] = h
	m.names[h] = name
	return h, nil
}

func (m *Memory) Subscribe(_ context.Context, h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed() {
		return ErrClosed
	}
	if _, ok := m.names[h]; !ok {
		return fmt.Errorf("subscribe handle %s: %w", h, status.ErrInvalidArgument)
	}
	m.subscribed[h] = true
	return nil
}

func (m *Memory) Wait(ctx context.Context) (Event, error) {
	select {
	case ev := <-m.events:
		return ev, nil
	case <-m.done:
		return Event{}, ErrClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (m *Memory) Values(_ context.Context, names []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v, ok := m.values[n]; ok {
			out[n] = v
		}
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error {
	if m.isClosed() {
		return ErrClosed
	}
	return nil
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

func (m *Memory) isClosed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

var _ Store = (*Memory)(nil)
