// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package varstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/templatesvc/internal/status"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number

	// ConfigureNotifications enables keyspace notifications on the server at
	// open time. Leave it off when the server is managed elsewhere.
	ConfigureNotifications bool
}

// keyspaceEvents is the notify-keyspace-events class set needed to observe
// writes to string, list, set, hash, sorted set and stream variables.
const keyspaceEvents = "K$lshzxeg"

// Redis is a variable store backed by plain Redis keys. Modification events
// arrive as keyspace notifications on __keyspace@<db>__:<name>.
type Redis struct {
	client *redis.Client
	owned  bool
	prefix string
	logger zerolog.Logger

	mu      sync.Mutex
	handles map[string]Handle
	names   map[Handle]string
	next    Handle
	pubsub  *redis.PubSub
	msgs    <-chan *redis.Message
	closed  bool
}

// NewRedisClient creates a go-redis client with the service's timeouts.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*Redis, error) {
	client := NewRedisClient(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if cfg.ConfigureNotifications {
		if err := client.ConfigSet(pingCtx, "notify-keyspace-events", keyspaceEvents).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("enable keyspace notifications: %w", err)
		}
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to variable store")

	s := NewRedis(client, cfg.DB, logger)
	s.owned = true
	return s, nil
}

// NewRedis wraps an existing client. The client is not closed by Close.
func NewRedis(client *redis.Client, db int, logger zerolog.Logger) *Redis {
	return &Redis{
		client:  client,
		prefix:  fmt.Sprintf("__keyspace@%d__:", db),
		logger:  logger,
		handles: make(map[string]Handle),
		names:   make(map[Handle]string),
	}
}

// Client exposes the underlying connection so the queue transport can share it.
func (s *Redis) Client() *redis.Client { return s.client }

// Channel returns the keyspace channel for a variable name.
func (s *Redis) Channel(name string) string { return s.prefix + name }

func (s *Redis) Resolve(ctx context.Context, name string) (Handle, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return InvalidHandle, ErrClosed
	}
	if h, ok := s.handles[name]; ok {
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	n, err := s.client.Exists(ctx, name).Result()
	if err != nil {
		return InvalidHandle, fmt.Errorf("resolve %q: %w", name, err)
	}
	if n == 0 {
		return InvalidHandle, fmt.Errorf("resolve %q: %w", name, status.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[name]; ok {
		return h, nil
	}
	s.next++
	h := s.next
	s.handles[name] = h
	s.names[h] = name
	return h, nil
}

func (s *Redis) Subscribe(ctx context.Context, h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	name, ok := s.names[h]
	if !ok {
		return fmt.Errorf("subscribe handle %s: %w", h, status.ErrInvalidArgument)
	}

	channel := s.Channel(name)
	if s.pubsub == nil {
		// Client.Subscribe drops the SUBSCRIBE error, so channels are added below.
		s.pubsub = s.client.Subscribe(ctx)
		s.msgs = s.pubsub.Channel(redis.WithChannelSize(256))
	}
	if err := s.pubsub.Subscribe(ctx, channel); err != nil {
		return fmt.Errorf("subscribe %q: %w", name, err)
	}
	return nil
}

func (s *Redis) Wait(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		msgs, closed := s.msgs, s.closed
		s.mu.Unlock()
		if closed {
			return Event{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return Event{}, ErrClosed
			}
			ev, known := s.decode(msg)
			if !known {
				s.logger.Debug().Str("channel", msg.Channel).Msg("notification for unknown channel")
				continue
			}
			return ev, nil
		}
	}
}

func (s *Redis) decode(msg *redis.Message) (Event, bool) {
	name, ok := strings.CutPrefix(msg.Channel, s.prefix)
	if !ok {
		return Event{}, false
	}
	s.mu.Lock()
	h, ok := s.handles[name]
	s.mu.Unlock()
	if !ok {
		return Event{}, false
	}
	return Event{Kind: keyspaceKind(msg.Payload), Handle: h, Name: name}, true
}

// keyspaceKind maps a keyspace notification payload (the command class) to an EventKind.
func keyspaceKind(payload string) EventKind {
	switch payload {
	case "del", "expired", "evicted":
		return EventDeleted
	case "rename_from", "rename_to", "move_from", "move_to", "persist", "expire":
		return EventOther
	default:
		return EventModified
	}
}

func (s *Redis) Values(ctx context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	if len(names) == 0 {
		return out, nil
	}
	vals, err := s.client.MGet(ctx, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("read variables: %w", err)
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[names[i]] = str
		}
	}
	return out, nil
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Redis) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ps := s.pubsub
	s.mu.Unlock()

	var firstErr error
	if ps != nil {
		if err := ps.Close(); err != nil {
			firstErr = fmt.Errorf("close subscription: %w", err)
		}
	}
	if s.owned {
		if err := s.client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close client: %w", err)
		}
	}
	return firstErr
}

var _ Store = (*Redis)(nil)
