// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ManuGH/templatesvc/internal/status"
	"github.com/alicebob/miniredis/v2"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisTransport(t *testing.T, opts RedisOptions) (*miniredis.Miniredis, *RedisTransport) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisTransport(client, opts)
}

func TestRedisListQueue(t *testing.T) {
	mr, tr := newRedisTransport(t, RedisOptions{})
	ctx := context.Background()

	q, err := tr.Open(ctx, "/queue/x")
	require.NoError(t, err)
	require.Equal(t, "/queue/x", q.Name())

	require.NoError(t, q.Send(ctx, []byte("M1")))
	require.NoError(t, q.Send(ctx, []byte("M2")))

	got, err := mr.List("/queue/x")
	require.NoError(t, err)
	require.Equal(t, []string{"M1", "M2"}, got)

	require.NoError(t, q.Close())
	err = q.Send(ctx, []byte("M3"))
	require.ErrorIs(t, err, ErrQueueClosed)
	require.ErrorIs(t, err, status.ErrTransport)
}

func TestRedisStreamQueue(t *testing.T) {
	_, tr := newRedisTransport(t, RedisOptions{Mode: ModeStream, StreamMaxLen: 100})
	ctx := context.Background()

	q, err := tr.Open(ctx, "render:out")
	require.NoError(t, err)
	require.NoError(t, q.Send(ctx, []byte("doc")))

	entries, err := tr.client.XRange(ctx, "render:out", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "doc", entries[0].Values[StreamField])
}

func TestRedisOpenUnavailable(t *testing.T) {
	mr, tr := newRedisTransport(t, RedisOptions{})
	mr.Close()

	_, err := tr.Open(context.Background(), "/queue/x")
	require.ErrorIs(t, err, status.ErrResourceUnavailable)
}

func TestMemoryTransport(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	q, err := m.Open(ctx, "q")
	require.NoError(t, err)
	require.NoError(t, q.Send(ctx, []byte("a")))

	m.FailSend(errors.New("queue full"))
	require.ErrorIs(t, q.Send(ctx, []byte("b")), status.ErrTransport)
	m.FailSend(nil)

	require.NoError(t, q.Close())
	require.Equal(t, 1, m.Opens("q"))
	require.Equal(t, 1, m.Closes("q"))
	require.Equal(t, [][]byte{[]byte("a")}, m.Messages("q"))

	m.FailOpen("q", errors.New("no such queue"))
	_, err = m.Open(ctx, "q")
	require.ErrorIs(t, err, status.ErrResourceUnavailable)
}

func TestCloudEventsEnvelope(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	env := CloudEvents{Source: "templatesvc-test", Now: func() time.Time { return fixed }}

	raw, err := env.Wrap("/usr/share/templates/test.tmpl", []byte("rendered body"))
	require.NoError(t, err)

	var ev cloudevents.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	require.Equal(t, RenderedEventType, ev.Type())
	require.Equal(t, "templatesvc-test", ev.Source())
	require.Equal(t, "/usr/share/templates/test.tmpl", ev.Subject())
	require.True(t, ev.Time().Equal(fixed))
	require.NotEmpty(t, ev.ID())
	require.Equal(t, "rendered body", string(ev.Data()))
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope("", "")
	require.NoError(t, err)
	require.IsType(t, Raw{}, env)

	body, err := env.Wrap("t", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "x", string(body))

	env, err = NewEnvelope("cloudevents", "")
	require.NoError(t, err)
	require.Equal(t, "templatesvc", env.(CloudEvents).Source)

	_, err = NewEnvelope("protobuf", "")
	require.Error(t, err)
}
