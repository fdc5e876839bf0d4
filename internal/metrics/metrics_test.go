// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "candidates"))

	RecordDBQuery("select", "candidates", 10*time.Millisecond, nil)
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "candidates")); got != before {
		t.Errorf("error counter moved on success: %v", got)
	}

	RecordDBQuery("select", "candidates", 10*time.Millisecond, errors.New("boom"))
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "candidates")); got != before+1 {
		t.Errorf("error counter = %v, want %v", got, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active requests = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
}

func TestRecordLLMCall(t *testing.T) {
	before := testutil.ToFloat64(LLMCallErrors.WithLabelValues("judge"))
	RecordLLMCall("judge", time.Second, nil)
	RecordLLMCall("judge", time.Second, errors.New("timeout"))
	if got := testutil.ToFloat64(LLMCallErrors.WithLabelValues("judge")); got != before+1 {
		t.Errorf("llm error counter = %v, want %v", got, before+1)
	}
}

func TestJobCounters(t *testing.T) {
	topic := "job.test.counters"
	RecordJobPublished(topic)
	RecordJobProcessed(topic, 50*time.Millisecond)
	RecordJobFailed(topic)

	if got := testutil.ToFloat64(JobsPublished.WithLabelValues(topic)); got != 1 {
		t.Errorf("published = %v, want 1", got)
	}
	if got := testutil.ToFloat64(JobsProcessed.WithLabelValues(topic)); got != 1 {
		t.Errorf("processed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(JobsFailed.WithLabelValues(topic)); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}

func TestRecordSyncRun(t *testing.T) {
	beforeEvents := testutil.ToFloat64(SyncEvents)
	beforeErrors := testutil.ToFloat64(SyncErrors)

	RecordSyncRun(2*time.Second, 37, nil)
	RecordSyncRun(time.Second, 0, errors.New("provider down"))

	if got := testutil.ToFloat64(SyncEvents); got != beforeEvents+37 {
		t.Errorf("sync events = %v, want %v", got, beforeEvents+37)
	}
	if got := testutil.ToFloat64(SyncErrors); got != beforeErrors+1 {
		t.Errorf("sync errors = %v, want %v", got, beforeErrors+1)
	}
}

func TestCacheCounters(t *testing.T) {
	RecordCacheHit("profile")
	RecordCacheMiss("profile")
	if got := testutil.ToFloat64(CacheHits.WithLabelValues("profile")); got < 1 {
		t.Errorf("cache hits = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("profile")); got < 1 {
		t.Errorf("cache misses = %v, want >= 1", got)
	}
}

func TestSetIndexSize(t *testing.T) {
	SetIndexSize("primary", 1234)
	if got := testutil.ToFloat64(IndexSize.WithLabelValues("primary")); got != 1234 {
		t.Errorf("index size = %v, want 1234", got)
	}
}
