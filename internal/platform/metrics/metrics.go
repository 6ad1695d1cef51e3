// Package metrics exposes the service's Prometheus collectors.
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

const namespace = "vouchers"

// Persist outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeInvalid = "invalid"
)

// Metrics groups the collectors registered for one registry. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	persists        *prometheus.CounterVec
	detections      *prometheus.CounterVec
	hydrateFailures *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry along with the Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		persists: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "condition_target_persist_total",
			Help:      "Condition target submissions by outcome.",
		}, []string{"operation", "outcome"}),
		detections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "condition_target_detections_total",
			Help:      "Preset detections by detected preset.",
		}, []string{"preset"}),
		hydrateFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "condition_target_hydrate_failures_total",
			Help:      "Stored target definitions that failed to parse, by storage location.",
		}, []string{"source"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObservePersist counts a create or update submission.
func (m *Metrics) ObservePersist(operation, outcome string) {
	if m == nil {
		return
	}
	m.persists.WithLabelValues(operation, outcome).Inc()
}

// ObserveDetection counts a detected preset.
func (m *Metrics) ObserveDetection(preset string) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(preset).Inc()
}

// ObserveHydrateFailure counts a stored definition that could not be parsed.
func (m *Metrics) ObserveHydrateFailure(source string) {
	if m == nil {
		return
	}
	m.hydrateFailures.WithLabelValues(source).Inc()
}

// Registry exposes the underlying registry for additional collectors and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request latency labelled with the matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
