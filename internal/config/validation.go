// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"

	"github.com/ManuGH/templatesvc/internal/validate"
)

// Validate checks cfg. Conditions the service can run with are returned as
// warnings; everything else is collected into a validate.ValidationError.
func Validate(cfg Config) (warnings []string, err error) {
	v := validate.New()

	v.OneOf("store.kind", cfg.Store.Kind, []string{"redis", "memory"})
	if cfg.Store.Kind == "redis" {
		v.NotEmpty("redis.addr", cfg.Redis.Addr)
		v.HostPort("redis.addr", cfg.Redis.Addr)
	}
	v.Range("redis.db", cfg.Redis.DB, 0, 15)

	v.Positive("render.buffer_size", cfg.Render.BufferSize)

	v.OneOf("queue.mode", cfg.Queue.Mode, []string{"list", "stream"})
	v.OneOf("queue.envelope", cfg.Queue.Envelope, []string{"raw", "cloudevents"})
	v.Forbid("queue.stream_max_len", cfg.Queue.StreamMaxLen < 0, "value cannot be negative", cfg.Queue.StreamMaxLen)

	v.HostPort("http.listen_addr", cfg.HTTP.ListenAddr)
	v.NonNegative("http.rate_limit", cfg.HTTP.RateLimit)

	if _, lerr := validate.ParseLogLevel(strings.ToLower(cfg.Log.Level)); lerr != nil {
		v.AddError("log.level", "invalid log level (must be: debug, info, warn, error)", cfg.Log.Level)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		v.AddError("telemetry.sampling_rate", "value must be between 0 and 1", cfg.Telemetry.SamplingRate)
	}

	warn := validate.New()
	for i, t := range cfg.Templates {
		field := fmt.Sprintf("config[%d]", i)
		v.NotEmpty(field+".template", t.Template)
		v.NotEmpty(field+".target", t.Target)

		switch t.Type {
		case "", "fd":
		case "mq":
			v.Forbid(field+".atomic", t.Atomic, "atomic is only supported for type fd", t.Atomic)
		default:
			warn.AddError(field+".type", "unknown type; deliveries will report unsupported", t.Type)
		}
		v.Forbid(field+".atomic", t.Atomic && t.Append, "atomic cannot be combined with append", t.Atomic)
		v.Forbid(field+".atomic", t.Atomic && t.KeepOpen, "atomic cannot be combined with keep_open", t.Atomic)

		if len(t.Trigger) == 0 {
			warn.AddError(field+".trigger", "no trigger variables; template will never render", nil)
		}
		for j, name := range t.Trigger {
			v.NotEmpty(fmt.Sprintf("%s.trigger[%d]", field, j), name)
		}
		if t.Template != "" {
			warn.ReadableFile(field+".template", t.Template)
		}
	}

	for _, e := range warn.Errors() {
		warnings = append(warnings, e.Error())
	}
	return warnings, v.Err()
}
