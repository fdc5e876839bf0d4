// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curatus/internal/recerr"
)

func completionHandler(t *testing.T, reply string, status int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream trouble"}}`))
			return
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": reply}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encoding response: %v", err)
		}
	}
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, `{"ok":true}`, http.StatusOK))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, APIKey: "test", Model: "test-model"})
	reply, err := client.Complete(context.Background(), Request{System: "sys", User: "user"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != `{"ok":true}` {
		t.Errorf("reply = %q", reply)
	}
}

func TestCompleteSendsBearerAndBody(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		completionHandler(t, "done", http.StatusOK)(w, r)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, APIKey: "secret", Model: "m1", Temperature: 0.2})
	if _, err := client.Complete(context.Background(), Request{System: "s", User: "u", Temperature: 0.7}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != "m1" {
		t.Errorf("model = %q", gotBody.Model)
	}
	if gotBody.Temperature != 0.7 {
		t.Errorf("temperature = %f, want per-request override", gotBody.Temperature)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" || gotBody.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
}

func TestCompleteErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   recerr.Kind
	}{
		{name: "server error is transient", status: http.StatusBadGateway, want: recerr.KindTransientExternal},
		{name: "rate limited is transient", status: http.StatusTooManyRequests, want: recerr.KindTransientExternal},
		{name: "unauthorized is auth", status: http.StatusUnauthorized, want: recerr.KindAuth},
		{name: "bad request is internal", status: http.StatusBadRequest, want: recerr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(completionHandler(t, "", tt.status))
			defer srv.Close()

			client := NewClient(Options{BaseURL: srv.URL, Model: "m"})
			_, err := client.Complete(context.Background(), Request{User: "u"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := recerr.KindOf(err); got != tt.want {
				t.Errorf("kind = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompleteBreakerOpens(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Model: "m", RatePerSecond: 1000, Burst: 1000})
	ctx := context.Background()

	for i := 0; i < breakerFailureThreshold; i++ {
		if _, err := client.Complete(ctx, Request{User: "u"}); err == nil {
			t.Fatal("expected failure")
		}
	}
	before := calls.Load()

	// Breaker is now open: the request must fail without reaching the
	// server.
	if _, err := client.Complete(ctx, Request{User: "u"}); err == nil {
		t.Fatal("expected breaker-open failure")
	}
	if calls.Load() != before {
		t.Errorf("open breaker still forwarded the request (%d calls)", calls.Load())
	}
}
