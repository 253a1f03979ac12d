package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksPushed   *prometheus.CounterVec
	anomalies     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	wsConnections prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksPushed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickattrib_ticks_pushed_total",
				Help: "Total number of replay points pushed to feed consumers",
			},
			[]string{"symbol"},
		),
		anomalies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickattrib_anomalies_detected_total",
				Help: "Total number of ticks flagged anomalous",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickattrib_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tickattrib_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		wsConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tickattrib_ws_connections",
				Help: "Currently open websocket feed connections",
			},
		),
	}
}

// RecordTickPushed records one replay point delivered to a consumer.
func (r *Recorder) RecordTickPushed(symbol string) {
	r.ticksPushed.WithLabelValues(symbol).Inc()
}

// RecordAnomaly records one anomalous tick.
func (r *Recorder) RecordAnomaly(symbol string) {
	r.anomalies.WithLabelValues(symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// SetWSConnections sets the open connection gauge.
func (r *Recorder) SetWSConnections(n int) {
	r.wsConnections.Set(float64(n))
}
