// Package telemetry exposes Prometheus collectors for the research service.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	researchJobsTotal          *prometheus.CounterVec
	researchStageSeconds       *prometheus.HistogramVec
	researchPagesScrapedTotal  prometheus.Counter
	researchKeywordsTotal      prometheus.Histogram
	researchActiveJobs         prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		researchJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "research_jobs_total",
				Help: "Total number of research jobs, labeled by final status.",
			},
			[]string{"status"},
		)

		researchStageSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "research_stage_duration_seconds",
				Help:    "Histogram of per-stage pipeline durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		)

		researchPagesScrapedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "research_pages_scraped_total",
				Help: "Total pages successfully scraped across all jobs.",
			},
		)

		researchKeywordsTotal = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "research_keywords_per_job",
				Help:    "Distribution of keyword counts returned per job.",
				Buckets: []float64{10, 25, 50, 100, 200, 350, 500},
			},
		)

		researchActiveJobs = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "research_active_jobs",
				Help: "Number of jobs currently processing.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given final status.
func ObserveJob(status string) {
	researchJobsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, duration time.Duration) {
	researchStageSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObservePagesScraped adds to the scraped-pages counter.
func ObservePagesScraped(n int) {
	if n > 0 {
		researchPagesScrapedTotal.Add(float64(n))
	}
}

// ObserveKeywords records how many keywords a job's metrics stage produced.
func ObserveKeywords(n int) {
	researchKeywordsTotal.Observe(float64(n))
}

// IncActiveJobs increments the active jobs gauge.
func IncActiveJobs() {
	researchActiveJobs.Inc()
}

// DecActiveJobs decrements the active jobs gauge.
func DecActiveJobs() {
	researchActiveJobs.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
