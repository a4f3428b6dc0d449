// Package metrics provides Prometheus metrics for the catalog server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fe_catalog"

// Metrics holds all Prometheus metrics of the catalog server.
type Metrics struct {
	// Import metrics
	ImportsTotal   *prometheus.CounterVec
	ImportDuration prometheus.Histogram
	InstancePrices prometheus.Gauge
	StoreWrites    prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them with reg.
// A nil reg uses a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		ImportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Total number of catalog imports.",
		}, []string{"status"}),
		ImportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Catalog import duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17min
		}),
		InstancePrices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instance_prices",
			Help:      "Instance prices written by the last successful import.",
		}),
		StoreWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Total number of catalog entities written.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.ImportsTotal,
		m.ImportDuration,
		m.InstancePrices,
		m.StoreWrites,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// Handler returns the Prometheus HTTP handler of the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordImport records a finished import.
func (m *Metrics) RecordImport(status string, duration float64, instancePrices, writes int) {
	m.ImportsTotal.WithLabelValues(status).Inc()
	m.ImportDuration.Observe(duration)
	if status == StatusSuccess {
		m.InstancePrices.Set(float64(instancePrices))
	}
	m.StoreWrites.Add(float64(writes))
}

// RecordHTTPRequest records an HTTP request metric.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// Import statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)
