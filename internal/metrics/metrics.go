// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database metrics.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curatus_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatus_db_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API metrics.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curatus_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "curatus_api_active_requests",
			Help: "Number of API requests currently in flight",
		},
	)

	// LLM metrics.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curatus_llm_call_duration_seconds",
			Help:    "Duration of LLM completions in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		},
		[]string{"caller"},
	)

	LLMCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatus_llm_call_errors_total",
			Help: "Total number of failed LLM completions",
		},
		[]string{"caller"},
	)

	// Embedding and search metrics.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curatus_search_duration_seconds",
			Help:    "Duration of index searches in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"index"}, // primary, multi, lexical, hybrid
	)

	IndexSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curatus_index_items",
			Help: "Current number of items per index",
		},
		[]string{"index"},
	)

	// Cache metrics.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatus_cache_hits_total",
			Help: "Total cache hits by cache name",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatus_cache_misses_total",
			Help: "Total cache misses by cache name",
		},
		[]string{"cache"},
	)

	// Job bus metrics.
	JobsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatus_jobs_published_total",
			Help: "Total job events published",
		},
		[]string{"topic"},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatus_jobs_processed_total",
			Help: "Total job events processed successfully",
		},
		[]string{"topic"},
	)

	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatus_jobs_failed_total",
			Help: "Total job events that failed processing",
		},
		[]string{"topic"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curatus_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 120, 300},
		},
		[]string{"topic"},
	)

	// Watch-history sync metrics.
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "curatus_sync_duration_seconds",
			Help:    "Duration of watch-history sync runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	SyncEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatus_sync_events_total",
			Help: "Total watch events ingested by sync",
		},
	)

	SyncErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatus_sync_errors_total",
			Help: "Total sync run failures",
		},
	)

	SyncSuppressedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "curatus_sync_suppressed_users",
			Help: "Users currently skipped due to auth failures",
		},
	)

	// Pipeline metrics.
	ListsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatus_lists_generated_total",
			Help: "Total chat lists generated",
		},
	)

	PhaseDetections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatus_phase_detections_total",
			Help: "Total phase detection runs",
		},
	)

	PairwiseJudgments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatus_pairwise_judgments_total",
			Help: "Total pairwise judgments recorded",
		},
	)
)

// RecordDBQuery records one query's latency and error state.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, endpoint, statusCode).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordLLMCall records one completion attempt by caller (intent,
// judge, pairwise, persona, labeler).
func RecordLLMCall(caller string, duration time.Duration, err error) {
	LLMCallDuration.WithLabelValues(caller).Observe(duration.Seconds())
	if err != nil {
		LLMCallErrors.WithLabelValues(caller).Inc()
	}
}

// RecordSearch records one index search.
func RecordSearch(index string, duration time.Duration) {
	SearchDuration.WithLabelValues(index).Observe(duration.Seconds())
}

// SetIndexSize publishes the current item count of an index.
func SetIndexSize(index string, n int) {
	IndexSize.WithLabelValues(index).Set(float64(n))
}

// RecordCacheHit increments the hit counter for a named cache.
func RecordCacheHit(cache string) {
	CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss increments the miss counter for a named cache.
func RecordCacheMiss(cache string) {
	CacheMisses.WithLabelValues(cache).Inc()
}

// RecordJobPublished counts one published job event.
func RecordJobPublished(topic string) {
	JobsPublished.WithLabelValues(topic).Inc()
}

// RecordJobProcessed counts one successfully processed job.
func RecordJobProcessed(topic string, duration time.Duration) {
	JobsProcessed.WithLabelValues(topic).Inc()
	JobDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// RecordJobFailed counts one failed job.
func RecordJobFailed(topic string) {
	JobsFailed.WithLabelValues(topic).Inc()
}

// RecordSyncRun records one sync run.
func RecordSyncRun(duration time.Duration, events int, err error) {
	SyncDuration.Observe(duration.Seconds())
	SyncEvents.Add(float64(events))
	if err != nil {
		SyncErrors.Inc()
	}
}
