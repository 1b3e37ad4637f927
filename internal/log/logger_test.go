// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestConfigureAttachesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "svc-test", Version: "v0.0.1"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("dispatch")
	l.Info().Str(FieldEvent, "dispatch.hit").Msg("hello")

	entry := decodeLine(t, &buf)
	require.Equal(t, "svc-test", entry["service"])
	require.Equal(t, "v0.0.1", entry["version"])
	require.Equal(t, "dispatch", entry["component"])
	require.Equal(t, "dispatch.hit", entry["event"])
}

func TestConfigureLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("test")
	l.Info().Msg("dropped")
	require.Zero(t, buf.Len())

	l.Warn().Msg("kept")
	require.NotZero(t, buf.Len())
}

func TestWithContextAddsEventID(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithEventID(context.Background(), 42)
	l := WithContext(ctx, base)
	l.Info().Msg("x")

	entry := decodeLine(t, &buf)
	require.EqualValues(t, 42, entry[FieldEventID])
}

func TestFromContextFallsBackToBase(t *testing.T) {
	require.NotNil(t, FromContext(context.Background()))
	//nolint:staticcheck // nil context is tolerated on purpose
	require.NotNil(t, FromContext(nil))
}

func TestDeriveAddsFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	l := Derive(func(c *zerolog.Context) {
		*c = c.Str(FieldComponent, "main").Str("config_path", "/etc/templatesvc.json")
	})
	l.Info().Msg("x")

	entry := decodeLine(t, &buf)
	require.Equal(t, "main", entry["component"])
	require.Equal(t, "/etc/templatesvc.json", entry["config_path"])

	buf.Reset()
	plain := Derive(nil)
	plain.Info().Msg("y")
	require.Equal(t, "templatesvc", decodeLine(t, &buf)["service"])
}
