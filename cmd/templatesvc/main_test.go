// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/templatesvc/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    cliOptions
		wantErr string
	}{
		{
			name: "defaults",
			args: nil,
			want: cliOptions{},
		},
		{
			name: "config and buffer override",
			args: []string{"-f", "/etc/templatesvc.json", "-s", "4096", "-v"},
			want: cliOptions{configPath: "/etc/templatesvc.json", bufferSize: 4096, bufferSet: true, verbose: true},
		},
		{
			name:    "zero buffer size",
			args:    []string{"-s", "0"},
			wantErr: "must be positive",
		},
		{
			name:    "negative buffer size",
			args:    []string{"-s", "-1"},
			wantErr: "must be positive",
		},
		{
			name:    "positional argument",
			args:    []string{"extra"},
			wantErr: "unexpected arguments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			got, err := parseFlags(tt.args, &stderr)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlags_Help(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseFlags([]string{"-h"}, &stderr)
	assert.True(t, errors.Is(err, flag.ErrHelp))
	assert.Contains(t, stderr.String(), "Usage:")
	assert.Contains(t, stderr.String(), "render buffer size")
}

func TestRun_HelpAndVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"-h"}, &stdout, &stderr))

	stdout.Reset()
	assert.Equal(t, 0, run([]string{"-version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), version.Version))
}

func TestRun_UsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"-s", "0"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "must be positive")
}

func TestRun_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "bad.yaml", "config:\n  - template: \"\"\n    target: /tmp/x\n")
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"-f", path}, &stdout, &stderr))
}

func TestLoadConfig_BufferOverride(t *testing.T) {
	path := writeConfig(t, "svc.json", `{"config": [], "render": {"buffer_size": 1024}}`)

	cfg, err := loadConfig(cliOptions{configPath: path})
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Render.BufferSize)

	cfg, err = loadConfig(cliOptions{configPath: path, bufferSize: 65536, bufferSet: true, verbose: true})
	require.NoError(t, err)
	assert.Equal(t, 65536, cfg.Render.BufferSize, "-s overrides the file")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestConfigCLI_Validate(t *testing.T) {
	good := writeConfig(t, "good.yaml", `
config:
  - trigger: ["/sys/test/info"]
    template: /usr/share/templates/test.tmpl
    type: fd
    target: /tmp/out
`)
	bad := writeConfig(t, "bad.yaml", "unknown_key: 1\n")

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, runConfigCLI([]string{"validate", "-f", good}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "is valid (1 templates)")

	stderr.Reset()
	assert.Equal(t, 1, runConfigCLI([]string{"validate", "--file", bad}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Configuration error")

	assert.Equal(t, 2, runConfigCLI([]string{"validate"}, &stdout, &stderr))
	assert.Equal(t, 2, runConfigCLI([]string{"frobnicate"}, &stdout, &stderr))
	assert.Equal(t, 0, runConfigCLI(nil, &stdout, &stderr))
}

func TestConfigCLI_DumpRedactsPassword(t *testing.T) {
	path := writeConfig(t, "svc.yaml", "redis:\n  addr: 10.0.0.5:6379\n  password: hunter2\n")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, runConfigCLI([]string{"dump", "-f", path}, &stdout, &stderr), stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "10.0.0.5:6379")
	assert.Contains(t, out, "***")
	assert.NotContains(t, out, "hunter2")

	stdout.Reset()
	require.Equal(t, 0, runConfigCLI([]string{"dump", "-f", path, "--format=json"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), `"addr": "10.0.0.5:6379"`)
	assert.NotContains(t, stdout.String(), "hunter2")

	assert.Equal(t, 2, runConfigCLI([]string{"dump", "-f", path, "--format=toml"}, &stdout, &stderr))
}
