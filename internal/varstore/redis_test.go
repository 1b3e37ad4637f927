// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package varstore

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/templatesvc/internal/status"
	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a store against a throwaway miniredis server.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := OpenRedis(context.Background(), RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

func waitSubscribed(t *testing.T, mr *miniredis.Miniredis, channel string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] > 0
	}, 2*time.Second, 5*time.Millisecond, "subscription to %s never became active", channel)
}

func TestRedisResolve(t *testing.T) {
	mr, s := setupMiniRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("/sys/test/info", "x"))

	h, err := s.Resolve(ctx, "/sys/test/info")
	require.NoError(t, err)
	require.True(t, h.Valid())

	again, err := s.Resolve(ctx, "/sys/test/info")
	require.NoError(t, err)
	require.Equal(t, h, again)

	_, err = s.Resolve(ctx, "/sys/missing")
	require.ErrorIs(t, err, status.ErrNotFound)
}

func TestRedisKeyspaceNotification(t *testing.T) {
	mr, s := setupMiniRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("/a", "1"))
	require.NoError(t, mr.Set("/b", "1"))

	ha, err := s.Resolve(ctx, "/a")
	require.NoError(t, err)
	hb, err := s.Resolve(ctx, "/b")
	require.NoError(t, err)
	require.NoError(t, s.Subscribe(ctx, ha))
	require.NoError(t, s.Subscribe(ctx, hb))
	waitSubscribed(t, mr, s.Channel("/a"))
	waitSubscribed(t, mr, s.Channel("/b"))

	mr.Publish(s.Channel("/b"), "set")
	mr.Publish(s.Channel("/a"), "del")

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	ev, err := s.Wait(waitCtx)
	require.NoError(t, err)
	require.Equal(t, Event{Kind: EventModified, Handle: hb, Name: "/b"}, ev)

	ev, err = s.Wait(waitCtx)
	require.NoError(t, err)
	require.Equal(t, EventDeleted, ev.Kind)
	require.Equal(t, ha, ev.Handle)
}

func TestRedisSubscribeReportsEveryFailure(t *testing.T) {
	mr, s := setupMiniRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mr.Set("/a", "1"))
	require.NoError(t, mr.Set("/b", "1"))

	ha, err := s.Resolve(ctx, "/a")
	require.NoError(t, err)
	hb, err := s.Resolve(ctx, "/b")
	require.NoError(t, err)

	mr.Close()

	require.Error(t, s.Subscribe(ctx, ha), "first subscription must surface the dial error")
	require.Error(t, s.Subscribe(ctx, hb))
}

func TestRedisSubscribeUnknownHandle(t *testing.T) {
	_, s := setupMiniRedis(t)
	err := s.Subscribe(context.Background(), Handle(99))
	require.ErrorIs(t, err, status.ErrInvalidArgument)
}

func TestRedisWaitCancelled(t *testing.T) {
	_, s := setupMiniRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisValues(t *testing.T) {
	mr, s := setupMiniRedis(t)
	require.NoError(t, mr.Set("/a", "alpha"))
	require.NoError(t, mr.Set("/b", "beta"))

	vals, err := s.Values(context.Background(), []string{"/a", "/missing", "/b"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"/a": "alpha", "/b": "beta"}, vals)
}

func TestKeyspaceKind(t *testing.T) {
	require.Equal(t, EventModified, keyspaceKind("set"))
	require.Equal(t, EventModified, keyspaceKind("incrby"))
	require.Equal(t, EventDeleted, keyspaceKind("expired"))
	require.Equal(t, EventOther, keyspaceKind("rename_from"))
}

func TestOpenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := OpenRedis(context.Background(), RedisConfig{Addr: addr}, zerolog.Nop())
	require.Error(t, err)
}
