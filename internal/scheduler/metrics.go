package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the scheduler core.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsRequeued  prometheus.Counter
	JobsAbandoned prometheus.Counter
	ClaimsLost    prometheus.Counter
	JobDuration   prometheus.Histogram
	QueueDepth    prometheus.Gauge
	InFlight      prometheus.Gauge
}

// NewMetrics registers the scheduler metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dfsched",
			Subsystem: "scheduler",
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs submitted",
		}),
		JobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dfsched",
			Subsystem: "scheduler",
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs completed by workers",
		}),
		JobsRequeued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dfsched",
			Subsystem: "scheduler",
			Name:      "jobs_requeued_total",
			Help:      "Total number of stuck jobs returned to the queue by the monitor",
		}),
		JobsAbandoned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dfsched",
			Subsystem: "scheduler",
			Name:      "jobs_abandoned_total",
			Help:      "Total number of jobs abandoned in processing after a handler fault",
		}),
		ClaimsLost: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dfsched",
			Subsystem: "scheduler",
			Name:      "claims_lost_total",
			Help:      "Total number of claim or completion attempts lost to a race (normal no-ops)",
		}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dfsched",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Handler execution time for completed jobs",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dfsched",
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Number of job ids currently waiting in the queue",
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dfsched",
			Subsystem: "scheduler",
			Name:      "jobs_in_flight",
			Help:      "Number of jobs currently being processed by workers",
		}),
	}
}
