// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package events

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/curatus/internal/recerr"
)

func TestJobEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*JobEvent)
		topic   string
		wantErr bool
	}{
		{"list generation ok", func(e *JobEvent) { e.UserID = 1; e.Prompt = "cozy mysteries" }, TopicGenerateList, false},
		{"list generation missing prompt", func(e *JobEvent) { e.UserID = 1 }, TopicGenerateList, true},
		{"phase detect ok", func(e *JobEvent) { e.UserID = 7 }, TopicPhaseDetect, false},
		{"phase detect missing user", func(*JobEvent) {}, TopicPhaseDetect, true},
		{"index rebuild needs nothing", func(*JobEvent) {}, TopicIndexRebuild, false},
		{"history sync needs nothing", func(*JobEvent) {}, TopicHistorySync, false},
		{"unknown topic", func(*JobEvent) {}, "job.bogus", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewJobEvent(tt.topic)
			tt.mutate(e)
			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !recerr.IsKind(err, recerr.KindInput) {
				t.Errorf("err kind = %v, want input", err)
			}
		})
	}
}

func TestJobEventMissingID(t *testing.T) {
	e := &JobEvent{Topic: TopicIndexRebuild}
	if err := e.Validate(); !recerr.IsKind(err, recerr.KindInput) {
		t.Errorf("err = %v, want input error for missing job_id", err)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	e := NewJobEvent(TopicGenerateList)
	e.UserID = 42
	e.Prompt = "slow burn thrillers"
	e.Limit = 15

	msg, err := e.Message()
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if msg.UUID != e.JobID {
		t.Errorf("msg UUID = %q, want job id %q", msg.UUID, e.JobID)
	}
	if msg.Metadata.Get("user_id") != "42" {
		t.Errorf("user_id metadata = %q", msg.Metadata.Get("user_id"))
	}

	got, err := DecodeJob(msg)
	if err != nil {
		t.Fatalf("DecodeJob: %v", err)
	}
	if got.JobID != e.JobID || got.Prompt != e.Prompt || got.Limit != 15 || got.UserID != 42 {
		t.Errorf("round trip = %+v", got)
	}
	if got.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %d", got.SchemaVersion)
	}
}

func TestDecodeJobGarbage(t *testing.T) {
	msg := message.NewMessage("x", []byte("not json"))
	_, err := DecodeJob(msg)
	if !recerr.IsKind(err, recerr.KindDataIntegrity) {
		t.Errorf("err = %v, want data-integrity", err)
	}
}

func TestDecodeJobLegacySchema(t *testing.T) {
	msg := message.NewMessage("legacy",
		[]byte(`{"job_id":"legacy","topic":"job.index.rebuild","requested_at":"2026-08-01T00:00:00Z"}`))
	got, err := DecodeJob(msg)
	if err != nil {
		t.Fatalf("DecodeJob: %v", err)
	}
	if got.SchemaVersion != 1 {
		t.Errorf("schema version = %d, want defaulted 1", got.SchemaVersion)
	}
}
