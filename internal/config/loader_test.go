// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_JSONOriginalShape(t *testing.T) {
	tmpl := writeConfig(t, "test.tmpl", "hello ${/sys/test/info}\n")
	path := writeConfig(t, "templatesvc.json", `{
	"config": [
		{
			"trigger": ["/sys/test/info", "/sys/test/b"],
			"template": "`+tmpl+`",
			"type": "fd",
			"target": "/tmp/out",
			"keep_open": true,
			"append": true
		},
		{
			"trigger": ["/sys/test/c"],
			"template": "`+tmpl+`",
			"type": "mq",
			"target": "/test"
		}
	]
}`)

	cfg, err := NewLoader(path, "1.2.3").Load()
	require.NoError(t, err)

	want := []TemplateConfig{
		{
			Trigger:  []string{"/sys/test/info", "/sys/test/b"},
			Template: tmpl,
			Type:     "fd",
			Target:   "/tmp/out",
			KeepOpen: true,
			Append:   true,
		},
		{
			Trigger:  []string{"/sys/test/c"},
			Template: tmpl,
			Type:     "mq",
			Target:   "/test",
		},
	}
	if diff := cmp.Diff(want, cfg.Templates); diff != "" {
		t.Errorf("templates mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, DefaultBufferSize, cfg.Render.BufferSize)
	assert.Equal(t, "redis", cfg.Store.Kind)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "templatesvc.yaml", `
config:
  - trigger: [/a]
    template: /nonexistent/a.tmpl
    target: /tmp/a
store:
  kind: memory
render:
  buffer_size: 1024
queue:
  mode: stream
  stream_max_len: 100
  envelope: cloudevents
http:
  listen_addr: "127.0.0.1:9100"
log:
  level: debug
`)

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Templates = []TemplateConfig{{Trigger: []string{"/a"}, Template: "/nonexistent/a.tmpl", Target: "/tmp/a"}}
	want.Store.Kind = "memory"
	want.Render.BufferSize = 1024
	want.Queue.Mode = "stream"
	want.Queue.StreamMaxLen = 100
	want.Queue.Envelope = "cloudevents"
	want.HTTP.ListenAddr = "127.0.0.1:9100"
	want.Log.Level = "debug"

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "templatesvc.yaml", `
redis:
  addr: "10.0.0.1:6379"
render:
  buffer_size: 1024
`)
	t.Setenv(EnvRedisAddr, "10.0.0.2:6380")
	t.Setenv(EnvBufferSize, "2048")
	t.Setenv(EnvWatchTemplates, "yes")
	t.Setenv(EnvRedisDB, "not-a-number")

	l := NewLoader(path, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.2:6380", cfg.Redis.Addr)
	assert.Equal(t, 2048, cfg.Render.BufferSize)
	assert.True(t, cfg.WatchTemplates)
	assert.Equal(t, 0, cfg.Redis.DB, "invalid integer falls back to file value")
	assert.Contains(t, l.ConsumedEnvKeys, EnvRedisPassword)
	assert.Contains(t, l.ConsumedEnvKeys, EnvLogLevel)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader("", "dev").Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Templates)
	assert.Equal(t, "list", cfg.Queue.Mode)
	assert.Equal(t, "raw", cfg.Queue.Envelope)
}

func TestLoad_UnknownField(t *testing.T) {
	for name, body := range map[string]string{
		"c.yaml": "config: []\nbogus: 1\n",
		"c.json": `{"config": [], "bogus": 1}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, name, body), "").Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
		})
	}
}

func TestLoad_RejectsTrailingDocuments(t *testing.T) {
	_, err := NewLoader(writeConfig(t, "c.yaml", "config: []\n---\nconfig: []\n"), "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")

	_, err = NewLoader(writeConfig(t, "c.json", `{"config": []} {"config": []}`), "").Load()
	require.Error(t, err)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := NewLoader(writeConfig(t, "c.toml", "x = 1"), "").Load()
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.json"), "").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyFiles(t *testing.T) {
	for _, name := range []string{"empty.yaml", "empty.json"} {
		cfg, err := NewLoader(writeConfig(t, name, ""), "").Load()
		require.NoError(t, err, name)
		assert.Equal(t, DefaultBufferSize, cfg.Render.BufferSize)
	}
}
