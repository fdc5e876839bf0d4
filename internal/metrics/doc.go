// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

/*
Package metrics provides Prometheus instrumentation for the engine.

Collectors are registered with promauto at package load and exposed at
the /metrics endpoint in Prometheus text format:

	curl http://localhost:3917/metrics

Metric families, all prefixed curatus_:

  - db_query_duration_seconds / db_query_errors_total: DuckDB latency
    and failures, labeled by operation and table
  - api_request_duration_seconds / api_active_requests: HTTP surface
  - llm_call_duration_seconds / llm_call_errors_total: LLM completions,
    labeled by caller (intent, judge, pairwise, persona, labeler)
  - search_duration_seconds / index_items: index search latency and
    size, labeled by index (primary, multi, lexical, hybrid)
  - cache_hits_total / cache_misses_total: named caches
  - jobs_published_total / jobs_processed_total / jobs_failed_total /
    job_duration_seconds: job bus throughput, labeled by topic
  - sync_duration_seconds / sync_events_total / sync_errors_total /
    sync_suppressed_users: watch-history sync
  - lists_generated_total, phase_detections_total,
    pairwise_judgments_total: pipeline outcomes

Record helpers wrap the label plumbing so call sites stay one line.
*/
package metrics
