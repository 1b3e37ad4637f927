// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"
	"time"

	"github.com/ManuGH/templatesvc/internal/health"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewOpsHandler builds the operational HTTP surface: Prometheus metrics and
// liveness/readiness probes. requestsPerSecond <= 0 disables rate limiting.
// Probe requests are traced with the global tracer provider.
func NewOpsHandler(hm *health.Manager, requestsPerSecond int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if requestsPerSecond > 0 {
		r.Use(httprate.Limit(
			requestsPerSecond,
			time.Second,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
			}),
		))
	}

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)

	// Probes are traced: readiness pings the variable store.
	return otelhttp.NewHandler(r, "templatesvc.ops",
		otelhttp.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/metrics"
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return "HTTP " + req.Method + " " + req.URL.Path
		}),
	)
}
