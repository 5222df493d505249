package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	eventsTotal *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	gauges      *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		eventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalscan_events_total",
				Help: "Total number of events emitted, by category",
			},
			[]string{"category", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalscan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		gauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalscan_gauge",
				Help: "Point-in-time pipeline gauges (watchlist size, halts, queue depth)",
			},
			[]string{"name"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalscan_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEvent records an event emitted for a category.
func (r *Recorder) RecordEvent(category, symbol string) {
	r.eventsTotal.WithLabelValues(category, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordGauge records a point-in-time gauge value.
func (r *Recorder) RecordGauge(name string, value float64) {
	r.gauges.WithLabelValues(name).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
