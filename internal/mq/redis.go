// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mq

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ManuGH/templatesvc/internal/status"
	"github.com/redis/go-redis/v9"
)

// Mode selects the Redis data type a queue is stored in.
type Mode string

const (
	ModeList   Mode = "list"   // RPUSH onto a list
	ModeStream Mode = "stream" // XADD onto a stream
)

// StreamField is the stream entry field holding the message body.
const StreamField = "body"

// RedisOptions configures the Redis transport.
type RedisOptions struct {
	Mode Mode
	// StreamMaxLen caps stream length (approximate trimming). Zero disables trimming.
	StreamMaxLen int64
}

// RedisTransport stores queues as Redis lists or streams. Queues are created
// implicitly by the first send.
type RedisTransport struct {
	client *redis.Client
	opts   RedisOptions
}

// NewRedisTransport creates a transport on an existing client.
func NewRedisTransport(client *redis.Client, opts RedisOptions) *RedisTransport {
	if opts.Mode == "" {
		opts.Mode = ModeList
	}
	return &RedisTransport{client: client, opts: opts}
}

// Open checks the connection and returns a write handle for name.
func (t *RedisTransport) Open(ctx context.Context, name string) (Queue, error) {
	if name == "" {
		return nil, fmt.Errorf("open queue: %w", status.ErrInvalidArgument)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := t.client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("open queue %q: %w: %w", name, status.ErrResourceUnavailable, err)
	}
	return &redisQueue{t: t, name: name}, nil
}

type redisQueue struct {
	t      *RedisTransport
	name   string
	closed atomic.Bool
}

func (q *redisQueue) Name() string { return q.name }

func (q *redisQueue) Send(ctx context.Context, msg []byte) error {
	if q.closed.Load() {
		return fmt.Errorf("send to %q: %w: %w", q.name, status.ErrTransport, ErrQueueClosed)
	}

	var err error
	switch q.t.opts.Mode {
	case ModeStream:
		args := &redis.XAddArgs{
			Stream: q.name,
			Values: map[string]any{StreamField: msg},
		}
		if q.t.opts.StreamMaxLen > 0 {
			args.MaxLen = q.t.opts.StreamMaxLen
			args.Approx = true
		}
		err = q.t.client.XAdd(ctx, args).Err()
	default:
		err = q.t.client.RPush(ctx, q.name, msg).Err()
	}
	if err != nil {
		return fmt.Errorf("send to %q: %w: %w", q.name, status.ErrTransport, err)
	}
	return nil
}

func (q *redisQueue) Close() error {
	q.closed.Store(true)
	return nil
}

var _ Transport = (*RedisTransport)(nil)
