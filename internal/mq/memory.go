// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mq

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManuGH/templatesvc/internal/status"
)

// Memory is an in-process transport that records opens and messages.
type Memory struct {
	mu       sync.Mutex
	opens    map[string]int
	closes   map[string]int
	messages map[string][][]byte
	openErrs map[string]error
	sendErr  error
}

// NewMemory creates an empty in-memory transport.
func NewMemory() *Memory {
	return &Memory{
		opens:    make(map[string]int),
		closes:   make(map[string]int),
		messages: make(map[string][][]byte),
		openErrs: make(map[string]error),
	}
}

// FailOpen makes subsequent opens of name fail with err (nil clears it).
func (m *Memory) FailOpen(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.openErrs, name)
		return
	}
	m.openErrs[name] = err
}

// FailSend makes subsequent sends fail with err (nil clears it).
func (m *Memory) FailSend(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// Opens returns how many times name was opened.
func (m *Memory) Opens(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[name]
}

// Closes returns how many handles for name were closed.
func (m *Memory) Closes(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes[name]
}

// Messages returns a copy of every message sent to name.
func (m *Memory) Messages(name string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.messages[name]))
	copy(out, m.messages[name])
	return out
}

func (m *Memory) Open(_ context.Context, name string) (Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.openErrs[name]; ok {
		return nil, fmt.Errorf("open queue %q: %w: %w", name, status.ErrResourceUnavailable, err)
	}
	m.opens[name]++
	return &memQueue{m: m, name: name}, nil
}

type memQueue struct {
	m      *Memory
	name   string
	closed bool
}

func (q *memQueue) Name() string { return q.name }

func (q *memQueue) Send(_ context.Context, msg []byte) error {
	q.m.mu.Lock()
	defer q.m.mu.Unlock()
	if q.closed {
		return fmt.Errorf("send to %q: %w: %w", q.name, status.ErrTransport, ErrQueueClosed)
	}
	if q.m.sendErr != nil {
		return fmt.Errorf("send to %q: %w: %w", q.name, status.ErrTransport, q.m.sendErr)
	}
	q.m.messages[q.name] = append(q.m.messages[q.name], append([]byte(nil), msg...))
	return nil
}

func (q *memQueue) Close() error {
	q.m.mu.Lock()
	defer q.m.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.m.closes[q.name]++
	}
	return nil
}

var _ Transport = (*Memory)(nil)
