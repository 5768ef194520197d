// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Duration of each pipeline stage per video.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"stage"})

	pipelineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_failures_total",
		Help: "Pipeline runs that ended in failure, by error code.",
	}, []string{"error_code"})

	agentSearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agent_ad_searches_total",
		Help: "Ad index searches issued by the matching agent.",
	})

	uploadURLs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upload_urls_issued_total",
		Help: "Presigned upload URLs issued.",
	})
)

// ObserveStage records the wall time a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordFailure counts one failed pipeline run.
func RecordFailure(errorCode string) {
	pipelineFailures.WithLabelValues(errorCode).Inc()
}

// RecordAgentSearch counts one agent-issued ad search.
func RecordAgentSearch() {
	agentSearches.Inc()
}

// RecordUploadURL counts one issued upload URL.
func RecordUploadURL() {
	uploadURLs.Inc()
}
