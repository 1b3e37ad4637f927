// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "github.com/ManuGH/templatesvc/internal/renderbuf"

// DefaultBufferSize is the render buffer size used for queue delivery.
const DefaultBufferSize = renderbuf.DefaultSize

// Config is the complete service configuration.
type Config struct {
	// Templates is the list of trigger → template definitions.
	Templates []TemplateConfig `yaml:"config" json:"config"`

	Store          StoreConfig     `yaml:"store" json:"store"`
	Redis          RedisConfig     `yaml:"redis" json:"redis"`
	Render         RenderConfig    `yaml:"render" json:"render"`
	Queue          QueueConfig     `yaml:"queue" json:"queue"`
	WatchTemplates bool            `yaml:"watch_templates" json:"watch_templates"`
	HTTP           HTTPConfig      `yaml:"http" json:"http"`
	Log            LogConfig       `yaml:"log" json:"log"`
	Telemetry      TelemetryConfig `yaml:"telemetry" json:"telemetry"`

	// Version is set from the binary, never from the file.
	Version string `yaml:"-" json:"-"`
}

// TemplateConfig describes one triggered template.
type TemplateConfig struct {
	Trigger  []string `yaml:"trigger" json:"trigger"`
	Template string   `yaml:"template" json:"template"`
	Type     string   `yaml:"type" json:"type"` // fd | mq
	Target   string   `yaml:"target" json:"target"`
	KeepOpen bool     `yaml:"keep_open" json:"keep_open"`
	Append   bool     `yaml:"append" json:"append"`
	// Atomic replaces the target through a temp file and rename (fd only).
	Atomic bool `yaml:"atomic" json:"atomic"`
}

// StoreConfig selects the variable store backend.
type StoreConfig struct {
	Kind string `yaml:"kind" json:"kind"` // redis | memory
}

// RedisConfig holds the connection used by the store and the queue transport.
type RedisConfig struct {
	Addr                   string `yaml:"addr" json:"addr"`
	Password               string `yaml:"password" json:"password"`
	DB                     int    `yaml:"db" json:"db"`
	ConfigureNotifications bool   `yaml:"configure_notifications" json:"configure_notifications"`
}

// RenderConfig configures the shared render buffer.
type RenderConfig struct {
	BufferSize int    `yaml:"buffer_size" json:"buffer_size"`
	BufferName string `yaml:"buffer_name" json:"buffer_name"`
}

// QueueConfig configures queue delivery.
type QueueConfig struct {
	Mode         string `yaml:"mode" json:"mode"` // list | stream
	StreamMaxLen int64  `yaml:"stream_max_len" json:"stream_max_len"`
	Envelope     string `yaml:"envelope" json:"envelope"` // raw | cloudevents
	Source       string `yaml:"source" json:"source"`
}

// HTTPConfig configures the operational HTTP surface (metrics, health).
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
	// RateLimit is the per-client request budget per second; 0 disables limiting.
	RateLimit int `yaml:"rate_limit" json:"rate_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"` // grpc | http
	Endpoint     string  `yaml:"endpoint" json:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate"`
}
