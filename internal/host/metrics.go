package host

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the host's counters and gauges, registered on a host-owned
// registry so embedding applications keep control of their metrics surface.
type Metrics struct {
	Registry *prometheus.Registry

	ApplicationsStarted   prometheus.Counter
	ApplicationsCompleted *prometheus.CounterVec
	ApplicationDuration   prometheus.Histogram
	SubmitAttempts        prometheus.Histogram
	ActiveRuns            prometheus.Gauge
	QueueDepth            prometheus.Gauge
}

// NewMetrics creates and registers the host metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		ApplicationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autoapply_applications_started_total",
			Help: "Total number of application runs started",
		}),
		ApplicationsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoapply_applications_completed_total",
			Help: "Total number of application runs completed, by terminal status",
		}, []string{"status"}),
		ApplicationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autoapply_application_duration_seconds",
			Help:    "Duration of application runs in seconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 8),
		}),
		SubmitAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autoapply_submit_attempts",
			Help:    "Submission attempts used per application run",
			Buckets: []float64{1, 2, 3, 4},
		}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autoapply_active_runs",
			Help: "Number of application runs currently in flight",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autoapply_queue_depth",
			Help: "Number of requests waiting in the queue",
		}),
	}

	registry.MustRegister(
		m.ApplicationsStarted,
		m.ApplicationsCompleted,
		m.ApplicationDuration,
		m.SubmitAttempts,
		m.ActiveRuns,
		m.QueueDepth,
	)
	return m
}
