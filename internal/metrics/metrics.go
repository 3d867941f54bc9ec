// Package metrics exposes Prometheus instrumentation for asking and indexing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rag"

// Outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation_error"
	OutcomeTimeout    = "timeout"
	OutcomeGeneration = "generation_error"
	OutcomeError      = "error"
	OutcomeFailed     = "failed"
)

// Recorder holds the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry prometheus.Gatherer

	askTotal        *prometheus.CounterVec
	askDuration     *prometheus.HistogramVec
	retrievedChunks prometheus.Histogram
	ingestedDocs    *prometheus.CounterVec
	indexedChunks   prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		askTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ask_requests_total",
				Help:      "Questions answered, by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		askDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ask_duration_seconds",
				Help:      "Time spent answering a question end to end",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"strategy"},
		),
		retrievedChunks: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retrieved_chunks",
				Help:      "Chunks kept per retrieval",
				Buckets:   prometheus.LinearBuckets(0, 1, 11),
			},
		),
		ingestedDocs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingested_documents_total",
				Help:      "Documents processed by the indexing pipeline, by outcome",
			},
			[]string{"outcome"},
		),
		indexedChunks: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "indexed_chunks",
				Help:      "Chunks in the loaded vector index",
			},
		),
	}
}

// Gatherer returns the registry for the /metrics handler.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// ObserveAsk records one ask call.
func (r *Recorder) ObserveAsk(strategy, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.askTotal.WithLabelValues(strategy, outcome).Inc()
	r.askDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// ObserveRetrieval records how many chunks a retrieval kept.
func (r *Recorder) ObserveRetrieval(chunks int) {
	if r == nil {
		return
	}
	r.retrievedChunks.Observe(float64(chunks))
}

// ObserveIngestion records one processed document.
func (r *Recorder) ObserveIngestion(outcome string) {
	if r == nil {
		return
	}
	r.ingestedDocs.WithLabelValues(outcome).Inc()
}

// SetIndexedChunks records the loaded index size.
func (r *Recorder) SetIndexedChunks(n int) {
	if r == nil {
		return
	}
	r.indexedChunks.Set(float64(n))
}
