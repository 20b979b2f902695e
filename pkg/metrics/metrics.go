// Package metrics defines the Prometheus collectors for extraction runs and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Document outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnparseable = "unparseable"
	OutcomeEmpty       = "empty"
	OutcomeReadError   = "read_error"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsTotal  *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	VocabularySize  prometheus.Gauge
	DocumentsQueued prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DocumentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trecprep_documents_total",
				Help: "Documents processed by dataset and outcome (ok, unparseable, empty, read_error).",
			},
			[]string{"dataset", "outcome"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trecprep_stage_duration_seconds",
				Help:    "Per-document pipeline stage latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"stage"},
		),
		VocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trecprep_vocabulary_terms",
				Help: "Distinct terms in the aggregated vocabulary.",
			},
		),
		DocumentsQueued: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trecprep_documents_in_flight",
				Help: "Documents handed to workers and not yet merged.",
			},
		),
	}

	m.registry.MustRegister(
		m.DocumentsTotal,
		m.StageDuration,
		m.VocabularySize,
		m.DocumentsQueued,
	)
	return m
}

// ObserveDocument counts one finished document.
func (m *Metrics) ObserveDocument(dataset, outcome string) {
	m.DocumentsTotal.WithLabelValues(dataset, outcome).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
