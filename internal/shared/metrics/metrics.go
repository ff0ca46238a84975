package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "verification"

var registry = prometheus.NewRegistry()

var (
	jobsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_received_total",
		Help:      "Queue messages received by kind",
	}, []string{"kind"})
	jobsSucceeded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_succeeded_total",
		Help:      "Jobs completed successfully by kind",
	}, []string{"kind"})
	jobsRetried = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_retried_total",
		Help:      "Job attempts that failed and were scheduled again, by kind",
	}, []string{"kind"})
	jobsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_failed_total",
		Help:      "Jobs that failed permanently, by kind",
	}, []string{"kind"})
	jobsDeletedUnrecoverable = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_deleted_unrecoverable_total",
		Help:      "Queue messages dropped because they could not be decoded",
	})
	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_ms",
		Help:      "Job attempt duration in milliseconds",
		Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 300000},
	}, []string{"kind"})

	comparisonChunks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comparison_chunks_total",
		Help:      "Comparison chunks sent to the reasoning service",
	})
	comparisonRepairs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comparison_repairs_total",
		Help:      "Malformed reasoning responses sent through the repair request",
	})
	comparisonPlaceholders = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comparison_placeholder_rows_total",
		Help:      "Rows synthesized for items the model did not answer",
	})
	comparisonChunkDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "comparison_chunk_duration_ms",
		Help:      "Reasoning call latency per chunk in milliseconds",
		Buckets:   []float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000},
	})

	callbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "callback_deliveries_total",
		Help:      "Verdict callback deliveries by outcome",
	}, []string{"outcome"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		jobsReceived,
		jobsSucceeded,
		jobsRetried,
		jobsFailed,
		jobsDeletedUnrecoverable,
		jobDuration,
		comparisonChunks,
		comparisonRepairs,
		comparisonPlaceholders,
		comparisonChunkDuration,
		callbacks,
	)
}

// IncJobReceived counts a received queue message.
func IncJobReceived(kind string) { jobsReceived.WithLabelValues(kind).Inc() }

// IncJobSucceeded counts a succeeded job.
func IncJobSucceeded(kind string) { jobsSucceeded.WithLabelValues(kind).Inc() }

// IncJobRetried counts a failed attempt that will be retried.
func IncJobRetried(kind string) { jobsRetried.WithLabelValues(kind).Inc() }

// IncJobFailed counts a permanently failed job.
func IncJobFailed(kind string) { jobsFailed.WithLabelValues(kind).Inc() }

// IncJobDeletedUnrecoverable counts a dropped undecodable message.
func IncJobDeletedUnrecoverable() { jobsDeletedUnrecoverable.Inc() }

// ObserveJobDuration records one job attempt.
func ObserveJobDuration(kind string, d time.Duration) {
	jobDuration.WithLabelValues(kind).Observe(millis(d))
}

// IncComparisonChunks counts an executed comparison chunk.
func IncComparisonChunks() { comparisonChunks.Inc() }

// IncComparisonRepairs counts a repair request.
func IncComparisonRepairs() { comparisonRepairs.Inc() }

// AddComparisonPlaceholderRows counts synthesized rows.
func AddComparisonPlaceholderRows(n int) {
	if n > 0 {
		comparisonPlaceholders.Add(float64(n))
	}
}

// ObserveComparisonChunkDuration records reasoning latency for one chunk.
func ObserveComparisonChunkDuration(d time.Duration) {
	comparisonChunkDuration.Observe(millis(d))
}

// IncCallback counts a callback delivery outcome ("delivered", "failed", "skipped").
func IncCallback(outcome string) { callbacks.WithLabelValues(outcome).Inc() }

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(HTTPHandler())
}

// HTTPHandler is the plain net/http form of Handler.
func HTTPHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Registry returns the registry holding every metric of the process.
func Registry() *prometheus.Registry {
	return registry
}

func millis(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
