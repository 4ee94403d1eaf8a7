// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

// Package metrics exposes gateway counters, histograms and gauges in the
// Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "darcy"

// Collector owns every gateway metric and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	fallbacks       *prometheus.CounterVec
	probes          *prometheus.CounterVec
	providerHealthy *prometheus.GaugeVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a Collector backed by a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates a Collector registering into reg.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Provider call attempts by outcome.",
			},
			[]string{"provider", "outcome"},
		),
		attemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_attempt_duration_seconds",
				Help:      "Provider call attempt latency in seconds.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 10, 20, 30},
			},
			[]string{"provider"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallback_responses_total",
				Help:      "Chat turns answered with canned text.",
			},
			[]string{"crew"},
		),
		probes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_probes_total",
				Help:      "Health probes by result.",
			},
			[]string{"provider", "result"},
		),
		providerHealthy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_healthy",
				Help:      "1 when the last probe of the provider succeeded.",
			},
			[]string{"provider"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveAttempt records one provider call.
func (c *Collector) ObserveAttempt(providerID string, success bool, elapsed time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.attempts.WithLabelValues(providerID, outcome).Inc()
	c.attemptDuration.WithLabelValues(providerID).Observe(elapsed.Seconds())
}

// ObserveFallback records a canned reply.
func (c *Collector) ObserveFallback(crewID string) {
	c.fallbacks.WithLabelValues(crewID).Inc()
}

// ObserveProbe records a health probe and updates the health gauge.
func (c *Collector) ObserveProbe(providerID string, healthy bool, _ time.Duration) {
	result, value := "unhealthy", 0.0
	if healthy {
		result, value = "healthy", 1.0
	}
	c.probes.WithLabelValues(providerID, result).Inc()
	c.providerHealthy.WithLabelValues(providerID).Set(value)
}

// Handler serves the exposition format for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Middleware counts HTTP requests by chi route pattern so that path
// parameters do not explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
