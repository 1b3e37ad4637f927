// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ManuGH/templatesvc/internal/status"
	"github.com/stretchr/testify/require"
)

type mapLookup struct {
	values map[string]string
	asked  [][]string
	err    error
}

func (m *mapLookup) Values(_ context.Context, names []string) (map[string]string, error) {
	m.asked = append(m.asked, names)
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]string)
	for _, n := range names {
		if v, ok := m.values[n]; ok {
			out[n] = v
		}
	}
	return out, nil
}

func TestToSink(t *testing.T) {
	lookup := &mapLookup{values: map[string]string{
		"/sys/test/info": "hello",
		"/sys/count":     "3",
	}}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no placeholders", "plain text\n", "plain text\n"},
		{"single", "info=${/sys/test/info}\n", "info=hello\n"},
		{"repeated", "${/sys/count}-${/sys/count}", "3-3"},
		{"adjacent", "${/sys/test/info}${/sys/count}", "hello3"},
		{"unknown kept", "x=${/nope}", "x=${/nope}"},
		{"empty name kept", "x=${}", "x=${}"},
		{"unterminated", "x=${/sys/count", "x=${/sys/count"},
		{"dollar alone", "cost $5", "cost $5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			n, err := ToSink(context.Background(), lookup, strings.NewReader(tt.src), &out)
			require.NoError(t, err)
			require.Equal(t, tt.want, out.String())
			require.EqualValues(t, len(tt.want), n)
		})
	}
}

func TestToSinkAsksEachNameOnce(t *testing.T) {
	lookup := &mapLookup{values: map[string]string{}}
	_, err := ToSink(context.Background(), lookup, strings.NewReader("${a}${b}${a}"), &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a", "b"}}, lookup.asked)
}

func TestToSinkLookupFailure(t *testing.T) {
	boom := errors.New("store down")
	_, err := ToSink(context.Background(), &mapLookup{err: boom}, strings.NewReader("${a}"), &bytes.Buffer{})
	require.ErrorIs(t, err, boom)
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestToSinkWriteFailure(t *testing.T) {
	lookup := &mapLookup{}
	_, err := ToSink(context.Background(), lookup, strings.NewReader("abc"), failingWriter{errors.New("disk full")})
	require.ErrorIs(t, err, status.ErrTransport)

	_, err = ToSink(context.Background(), lookup, strings.NewReader("abc"), failingWriter{status.ErrResourceUnavailable})
	require.ErrorIs(t, err, status.ErrResourceUnavailable)
	require.NotErrorIs(t, err, status.ErrTransport)
}

func TestToSinkInvalidArguments(t *testing.T) {
	_, err := ToSink(context.Background(), nil, strings.NewReader(""), &bytes.Buffer{})
	require.ErrorIs(t, err, status.ErrInvalidArgument)
}
