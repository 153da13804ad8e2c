package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers the pipeline counters exposed on /metrics.
// Each collector owns its registry so tests can build them freely.
type Collector struct {
	registry *prometheus.Registry

	jobsSubmitted prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter
	jobRetries    prometheus.Counter

	processingDuration prometheus.Histogram
}

// NewCollector creates and registers all pipeline metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ka_jobs_submitted_total",
			Help: "Number of question jobs accepted and enqueued",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ka_jobs_completed_total",
			Help: "Number of jobs that reached COMPLETED",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ka_jobs_failed_total",
			Help: "Number of jobs that reached FAILED",
		}),
		jobRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ka_job_retries_total",
			Help: "Number of retried processing attempts",
		}),
		processingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ka_job_processing_seconds",
			Help:    "Wall time spent processing a job to a terminal state",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}

	c.registry.MustRegister(
		c.jobsSubmitted,
		c.jobsCompleted,
		c.jobsFailed,
		c.jobRetries,
		c.processingDuration,
	)

	return c
}

// RecordSubmitted increments the submitted jobs counter
func (c *Collector) RecordSubmitted() {
	c.jobsSubmitted.Inc()
}

// RecordCompleted increments the completed jobs counter and observes duration
func (c *Collector) RecordCompleted(d time.Duration) {
	c.jobsCompleted.Inc()
	c.processingDuration.Observe(d.Seconds())
}

// RecordFailed increments the failed jobs counter and observes duration
func (c *Collector) RecordFailed(d time.Duration) {
	c.jobsFailed.Inc()
	c.processingDuration.Observe(d.Seconds())
}

// RecordRetry increments the retry counter
func (c *Collector) RecordRetry() {
	c.jobRetries.Inc()
}

// Handler returns the Prometheus exposition handler for this collector
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
