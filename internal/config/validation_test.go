// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/templatesvc/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTemplate(t *testing.T) TemplateConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return TemplateConfig{Trigger: []string{"/a"}, Template: path, Type: "fd", Target: "/tmp/out"}
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verr validate.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
	fields := make([]string, 0, len(verr.Errors()))
	for _, e := range verr.Errors() {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestValidate_Defaults(t *testing.T) {
	warnings, err := Validate(Defaults())
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero buffer", func(c *Config) { c.Render.BufferSize = 0 }, "render.buffer_size"},
		{"negative buffer", func(c *Config) { c.Render.BufferSize = -1 }, "render.buffer_size"},
		{"store kind", func(c *Config) { c.Store.Kind = "etcd" }, "store.kind"},
		{"negative redis db", func(c *Config) { c.Redis.DB = -1 }, "redis.db"},
		{"redis db out of range", func(c *Config) { c.Redis.DB = 16 }, "redis.db"},
		{"queue mode", func(c *Config) { c.Queue.Mode = "fifo" }, "queue.mode"},
		{"envelope", func(c *Config) { c.Queue.Envelope = "avro" }, "queue.envelope"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"listen addr", func(c *Config) { c.HTTP.ListenAddr = "9100" }, "http.listen_addr"},
		{"empty template", func(c *Config) { c.Templates[0].Template = "" }, "config[0].template"},
		{"empty target", func(c *Config) { c.Templates[0].Target = " " }, "config[0].target"},
		{"atomic append", func(c *Config) { c.Templates[0].Atomic = true; c.Templates[0].Append = true }, "config[0].atomic"},
		{"atomic keep_open", func(c *Config) { c.Templates[0].Atomic = true; c.Templates[0].KeepOpen = true }, "config[0].atomic"},
		{"atomic mq", func(c *Config) { c.Templates[0].Atomic = true; c.Templates[0].Type = "mq" }, "config[0].atomic"},
		{"empty trigger name", func(c *Config) { c.Templates[0].Trigger = []string{""} }, "config[0].trigger[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Templates = []TemplateConfig{validTemplate(t)}
			tt.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, fieldsOf(t, err), tt.field)
		})
	}
}

func TestValidate_Warnings(t *testing.T) {
	cfg := Defaults()
	tmpl := validTemplate(t)
	tmpl.Trigger = nil
	tmpl.Type = "pipe"
	missing := validTemplate(t)
	missing.Template = filepath.Join(t.TempDir(), "gone.tmpl")
	cfg.Templates = []TemplateConfig{tmpl, missing}

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], "config[0].type")
	assert.Contains(t, warnings[1], "config[0].trigger")
	assert.Contains(t, warnings[2], "config[1].template")
}

func TestValidate_MemoryStoreSkipsRedisAddr(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Kind = "memory"
	cfg.Redis.Addr = ""
	_, err := Validate(cfg)
	require.NoError(t, err)
}
