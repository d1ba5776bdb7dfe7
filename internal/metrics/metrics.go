package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"aria/internal/domain"
)

// Metrics holds Prometheus metrics for the extraction service.
//
// Metrics:
//   - aria_extraction_passes_total{transaction_type,status} - completed passes
//   - aria_extraction_failures_total{reason} - passes that returned an error
//   - aria_extraction_duration_seconds - end-to-end pass latency
//   - aria_extraction_ambiguities_total{field} - ambiguity notes emitted
//   - aria_extraction_missing_total{importance} - missing-info notes emitted
//   - aria_extraction_batch_in_flight - conversations currently being extracted in batches
//   - aria_handoffs_total{result} - handoff notifications attempted
//   - aria_archive_failures_total - record archive uploads that failed
type Metrics struct {
	PassesTotal      *prometheus.CounterVec
	FailuresTotal    *prometheus.CounterVec
	PassDuration     prometheus.Histogram
	AmbiguitiesTotal *prometheus.CounterVec
	MissingTotal     *prometheus.CounterVec
	BatchInFlight    prometheus.Gauge
	HandoffsTotal    *prometheus.CounterVec
	ArchiveFailures  prometheus.Counter
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PassesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aria_extraction_passes_total",
			Help: "Total number of extraction passes completed",
		}, []string{"transaction_type", "status"}),
		FailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aria_extraction_failures_total",
			Help: "Total number of extraction passes that failed",
		}, []string{"reason"}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aria_extraction_duration_seconds",
			Help:    "Duration of extraction passes in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		AmbiguitiesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aria_extraction_ambiguities_total",
			Help: "Total number of ambiguity notes emitted",
		}, []string{"field"}),
		MissingTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aria_extraction_missing_total",
			Help: "Total number of missing-info notes emitted",
		}, []string{"importance"}),
		BatchInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "aria_extraction_batch_in_flight",
			Help: "Number of batch conversations currently being extracted",
		}),
		HandoffsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aria_handoffs_total",
			Help: "Total number of handoff notifications attempted",
		}, []string{"result"}),
		ArchiveFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "aria_archive_failures_total",
			Help: "Total number of record archive uploads that failed",
		}),
	}
}

// ObservePass records a successful pass.
func (m *Metrics) ObservePass(record *domain.TransactionRecord, elapsed time.Duration) {
	m.PassesTotal.WithLabelValues(string(record.Type()), string(record.Status())).Inc()
	m.PassDuration.Observe(elapsed.Seconds())
	for _, n := range record.Ambiguities() {
		m.AmbiguitiesTotal.WithLabelValues(n.Field).Inc()
	}
	for _, n := range record.MissingCriticalInfo() {
		m.MissingTotal.WithLabelValues(string(n.Importance)).Inc()
	}
}

// ObserveFailure records a failed pass under reason.
func (m *Metrics) ObserveFailure(reason string, elapsed time.Duration) {
	m.FailuresTotal.WithLabelValues(reason).Inc()
	m.PassDuration.Observe(elapsed.Seconds())
}
