// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mq is the message queue transport used by queue delivery. A queue
// accepts one bounded message per Send.
package mq

import (
	"context"
	"errors"
)

// ErrQueueClosed is returned by Send on a closed queue handle.
var ErrQueueClosed = errors.New("queue closed")

// Queue is an open handle to a destination queue.
type Queue interface {
	Name() string
	Send(ctx context.Context, msg []byte) error
	Close() error
}

// Transport opens destination queues, creating them if absent.
type Transport interface {
	Open(ctx context.Context, name string) (Queue, error)
}
