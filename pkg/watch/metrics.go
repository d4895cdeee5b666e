package watch

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reload statuses reported by RecordConfigReload.
const (
	ReloadSuccess = "success"
	ReloadError   = "error"
)

// Metrics holds the Prometheus metrics for watch mode. A nil *Metrics records nothing.
type Metrics struct {
	filesTotal      *prometheus.CounterVec
	fileDuration    prometheus.Histogram
	redactionsTotal *prometheus.CounterVec
	configReloads   *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates the watch metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanitizer_files_processed_total",
				Help: "Total number of documents processed by status",
			},
			[]string{"status"},
		),

		fileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sanitizer_file_duration_seconds",
				Help:    "Time spent reading, sanitizing and writing one document",
				Buckets: prometheus.DefBuckets,
			},
		),

		redactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanitizer_redactions_total",
				Help: "Total number of redactions applied by category",
			},
			[]string{"category"},
		),

		configReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanitizer_config_reloads_total",
				Help: "Total number of configuration reload attempts by status",
			},
			[]string{"status"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.filesTotal,
		m.fileDuration,
		m.redactionsTotal,
		m.configReloads,
	)

	return m
}

// RecordFile records one processed document.
func (m *Metrics) RecordFile(err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.filesTotal.WithLabelValues(status).Inc()
	m.fileDuration.Observe(duration.Seconds())
}

// RecordRedactions adds per-category redaction counts.
func (m *Metrics) RecordRedactions(counts map[string]int) {
	if m == nil {
		return
	}
	for category, n := range counts {
		if n > 0 {
			m.redactionsTotal.WithLabelValues(category).Add(float64(n))
		}
	}
}

// RecordConfigReload records a configuration reload attempt.
func (m *Metrics) RecordConfigReload(status string) {
	if m == nil {
		return
	}
	m.configReloads.WithLabelValues(status).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
