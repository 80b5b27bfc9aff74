package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	snapshotsStored *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	itemsScanned    prometheus.Gauge
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		snapshotsStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flipscan_snapshots_stored_total",
				Help: "Total number of snapshots sent to backend",
			},
			[]string{"backend"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flipscan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		itemsScanned: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "flipscan_items_scanned",
				Help: "Number of items analyzed in the most recent scan",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flipscan_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSnapshotStored records a snapshot sent to a backend.
func (r *Recorder) RecordSnapshotStored(backend string) {
	r.snapshotsStored.WithLabelValues(backend).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordItemsScanned records the size of the latest scan.
func (r *Recorder) RecordItemsScanned(n int) {
	r.itemsScanned.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
