// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for dispatch and delivery spans.
const (
	EventKindKey   = "event.kind"
	EventHandleKey = "event.handle"
	EventHitsKey   = "event.hits"

	TemplateSourceKey = "template.source"
	TemplateTargetKey = "template.target"
	TemplateKindKey   = "template.kind"
	TemplateKeepOpen  = "template.keep_open"

	DeliveryBytesKey  = "delivery.bytes"
	DeliveryStatusKey = "delivery.status"
	DeliveryErrnoKey  = "delivery.errno"
)

// EventAttributes describes a store notification.
func EventAttributes(kind string, handle uint32) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(EventKindKey, kind),
		attribute.Int64(EventHandleKey, int64(handle)),
	}
}

// TemplateAttributes describes the template being delivered.
func TemplateAttributes(source, target, kind string, keepOpen bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(TemplateSourceKey, source),
		attribute.String(TemplateKindKey, kind),
		attribute.Bool(TemplateKeepOpen, keepOpen),
	}
	if target != "" {
		attrs = append(attrs, attribute.String(TemplateTargetKey, target))
	}
	return attrs
}

// DeliveryAttributes describes the outcome of one delivery.
func DeliveryAttributes(bytes int64, status string, errno int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(DeliveryBytesKey, bytes),
		attribute.String(DeliveryStatusKey, status),
		attribute.Int(DeliveryErrnoKey, errno),
	}
}
