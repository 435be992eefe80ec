// Package metrics exports engine and HTTP measurements in the Prometheus
// text format.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "elevadorpro"

// Recorder owns a private registry so several instances can coexist in
// tests.
type Recorder struct {
	registry   *prometheus.Registry
	opDuration *prometheus.HistogramVec
	opResults  *prometheus.CounterVec
	overlay    *prometheus.GaugeVec
	requests   *prometheus.CounterVec
}

// NewRecorder registers the collectors on a fresh registry. Process and Go
// runtime collectors are added when withRuntime is set.
func NewRecorder(withRuntime bool) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"operation"}),
		opResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
		}, []string{"operation", "result"}),
		overlay: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "overlay",
			Name:      "entries",
			Help:      "Overlay entries (records and tombstones) per collection.",
		}, []string{"collection"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
		}, []string{"method", "code"}),
	}
	r.registry.MustRegister(r.opDuration, r.opResults, r.overlay, r.requests)
	if withRuntime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Observe records one engine operation.
func (r *Recorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	r.opDuration.WithLabelValues(operation).Observe(duration.Seconds())
	r.opResults.WithLabelValues(operation, result).Inc()
}

// SetOverlayEntries sets the overlay size gauge of collection.
func (r *Recorder) SetOverlayEntries(collection string, entries int) {
	r.overlay.WithLabelValues(collection).Set(float64(entries))
}

// ObserveRequest counts one served HTTP request.
func (r *Recorder) ObserveRequest(method string, code int) {
	r.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
