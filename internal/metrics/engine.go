// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the Prometheus instruments of templatesvc.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event loop
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "templatesvc_events_total",
		Help: "Store notifications received, by event kind",
	}, []string{"kind"}) // kind=modified|deleted|other

	unmatchedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "templatesvc_unmatched_events_total",
		Help: "Modification events whose handle matched no template",
	})

	templateHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "templatesvc_template_hits_total",
		Help: "Templates selected for delivery by a modification event",
	})

	// Delivery
	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "templatesvc_deliveries_total",
		Help: "Delivery attempts by delivery kind and outcome",
	}, []string{"kind", "outcome"}) // outcome=ok|not_found|unavailable|transport|unsupported|invalid_argument

	deliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "templatesvc_delivery_duration_seconds",
		Help:    "Time spent rendering and delivering one template",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"kind"})

	renderedBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "templatesvc_rendered_bytes_total",
		Help: "Bytes written by successful renders",
	}, []string{"kind"})

	renderBufferHighWater = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "templatesvc_render_buffer_high_water_bytes",
		Help: "Largest document materialized in the render buffer",
	})

	openHandles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "templatesvc_open_destinations",
		Help: "Destinations (files or queues) currently held open by keep_open templates",
	})

	// Setup
	subscribedTriggers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "templatesvc_subscribed_triggers",
		Help: "Trigger variables with an active store subscription",
	})

	subscriptionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "templatesvc_subscription_failures_total",
		Help: "Trigger variables that could not be resolved or subscribed",
	})

	sourceChangesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "templatesvc_source_changes_total",
		Help: "Template source file changes that caused a re-render",
	})
)

func IncEvent(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	eventsTotal.WithLabelValues(kind).Inc()
}

func IncUnmatchedEvent() { unmatchedEventsTotal.Inc() }
func IncTemplateHit()    { templateHitsTotal.Inc() }
func IncSourceChange()   { sourceChangesTotal.Inc() }

// ObserveDelivery records one delivery attempt. bytes is only counted on success.
func ObserveDelivery(kind, outcome string, seconds float64, bytes int64) {
	deliveriesTotal.WithLabelValues(kind, outcome).Inc()
	deliveryDuration.WithLabelValues(kind).Observe(seconds)
	if outcome == "ok" && bytes > 0 {
		renderedBytesTotal.WithLabelValues(kind).Add(float64(bytes))
	}
}

func SetRenderBufferHighWater(n int) { renderBufferHighWater.Set(float64(n)) }
func SetOpenHandles(n int)           { openHandles.Set(float64(n)) }

// RecordSubscriptions publishes the result of subscription setup.
func RecordSubscriptions(subscribed, failed int) {
	subscribedTriggers.Set(float64(subscribed))
	subscriptionFailuresTotal.Add(float64(failed))
}
