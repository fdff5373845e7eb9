package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for studycast.
type Metrics struct {
	// LLM metrics
	LLMRequests *prometheus.CounterVec
	LLMLatency  *prometheus.HistogramVec
	LLMTokens   *prometheus.CounterVec

	// Pipeline metrics
	ChunksIngested    prometheus.Counter
	QuestionsBuilt    prometheus.Counter
	QuestionsSkipped  prometheus.Counter
	RemediationJobs   *prometheus.CounterVec
	RemediationQueued prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// Get returns the process-wide metrics, registering them on first use.
func Get() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			LLMRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "studycast_llm_requests_total",
					Help: "LLM requests by purpose and outcome",
				},
				[]string{"provider", "purpose", "success"},
			),
			LLMLatency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "studycast_llm_request_duration_seconds",
					Help:    "LLM request latency in seconds",
					Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s to 32s
				},
				[]string{"provider", "purpose"},
			),
			LLMTokens: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "studycast_llm_tokens_total",
					Help: "LLM tokens consumed",
				},
				[]string{"provider", "direction"},
			),
			ChunksIngested: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "studycast_corpus_chunks_ingested_total",
					Help: "Document chunks added to the corpus",
				},
			),
			QuestionsBuilt: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "studycast_questions_generated_total",
					Help: "Assessment questions generated",
				},
			),
			QuestionsSkipped: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "studycast_questions_skipped_total",
					Help: "Leaf skills skipped because question generation failed",
				},
			),
			RemediationJobs: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "studycast_remediation_records_total",
					Help: "Remediation records processed by outcome",
				},
				[]string{"outcome"},
			),
			RemediationQueued: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "studycast_remediation_queue_depth",
					Help: "Remediation batches waiting for a worker",
				},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "studycast_http_requests_total",
					Help: "HTTP requests by route and status",
				},
				[]string{"method", "route", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "studycast_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),
		}
	})
	return sharedMetrics
}
