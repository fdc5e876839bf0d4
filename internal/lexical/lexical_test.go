// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package lexical

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

func newTestIndex(t *testing.T, handler http.Handler) (*Index, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	idx, err := NewIndex(Options{
		Addresses:    []string{srv.URL},
		Timeout:      2 * time.Second,
		RetryTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx, srv
}

const searchBody = `{"hits":{"hits":[
	{"_score":4.0,"_source":{"candidate_id":1}},
	{"_score":2.0,"_source":{"candidate_id":2}},
	{"_score":1.0,"_source":{"candidate_id":3}}
]}}`

func TestSearchNormalizesScores(t *testing.T) {
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchBody))
	}))

	hits, err := idx.Search(context.Background(), "heat", 10, SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	want := []Hit{{ID: 1, Score: 1.0}, {ID: 2, Score: 0.5}, {ID: 3, Score: 0.25}}
	for i := range want {
		if hits[i] != want[i] {
			t.Errorf("hit %d = %+v, want %+v", i, hits[i], want[i])
		}
	}
}

func TestSearchRetriesOnceOnTransient(t *testing.T) {
	var calls int32
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchBody))
	}))

	hits, err := idx.Search(context.Background(), "heat", 10, SearchOptions{})
	if err != nil {
		t.Fatalf("Search after retry: %v", err)
	}
	if len(hits) != 3 {
		t.Errorf("got %d hits, want 3", len(hits))
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("server saw %d calls, want 2", n)
	}
}

func TestSearchGivesUpAfterSingleRetry(t *testing.T) {
	var calls int32
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
	}))

	_, err := idx.Search(context.Background(), "heat", 10, SearchOptions{})
	if err == nil {
		t.Fatal("Search succeeded against a dead back-end")
	}
	if !recerr.Retryable(err) {
		t.Errorf("error = %v, want transient", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("server saw %d calls, want exactly 2", n)
	}
}

func TestSearchBadRequestNotRetried(t *testing.T) {
	var calls int32
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"parse failure"}`, http.StatusBadRequest)
	}))

	_, err := idx.Search(context.Background(), "heat", 10, SearchOptions{})
	if err == nil {
		t.Fatal("Search succeeded on a 400")
	}
	if recerr.Retryable(err) {
		t.Errorf("400 reported transient: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server saw %d calls, want 1", n)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	var calls int32
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	hits, err := idx.Search(context.Background(), "   ", 10, SearchOptions{})
	if err != nil || hits != nil {
		t.Errorf("blank query: hits=%v err=%v, want nil/nil", hits, err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("blank query reached the server %d times", n)
	}
}

func TestIndexCandidatesBulkErrors(t *testing.T) {
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors":true,"items":[{"index":{"status":400,"error":{"type":"mapper_parsing_exception","reason":"bad field"}}}]}`))
	}))

	err := idx.IndexCandidates(context.Background(), []Doc{{CandidateID: 1, Title: "X", Active: true}})
	if err == nil {
		t.Fatal("bulk failure not reported")
	}
	if recerr.Retryable(err) {
		t.Errorf("mapping failure reported transient: %v", err)
	}
}

func TestIndexCandidatesEmpty(t *testing.T) {
	var calls int32
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	if err := idx.IndexCandidates(context.Background(), nil); err != nil {
		t.Fatalf("empty bulk: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("empty bulk reached the server %d times", n)
	}
}

func TestNewDoc(t *testing.T) {
	c := &models.Candidate{
		ID:                  42,
		MediaType:           models.MediaTypeShow,
		Title:               "The Wire",
		Cast:                []string{"Dominic West"},
		Networks:            []string{"HBO"},
		ProductionCountries: []string{"United States"},
		Active:              true,
	}

	d := NewDoc(c, nil)
	if d.CandidateID != 42 || d.MediaType != "show" || len(d.MoodTags) != 0 {
		t.Errorf("NewDoc without profile = %+v", d)
	}
	if d.Countries[0] != "United States" {
		t.Errorf("countries not mapped: %+v", d.Countries)
	}

	p := &models.ItemLLMProfile{MoodTags: []string{"gritty"}, Themes: []string{"institutions"}}
	d = NewDoc(c, p)
	if len(d.MoodTags) != 1 || d.MoodTags[0] != "gritty" || len(d.Themes) != 1 {
		t.Errorf("NewDoc with profile = %+v", d)
	}
}
