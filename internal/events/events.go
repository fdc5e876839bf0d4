// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/curatus/internal/recerr"
)

// SchemaVersion is the current job event schema version.
const SchemaVersion = 1

// StreamName is the JetStream stream holding all job subjects.
const StreamName = "CURATUS_JOBS"

// TopicWildcard matches every job subject on the stream.
const TopicWildcard = "job.>"

// Job topics. One subject per job type so workers can subscribe
// selectively and the stream can be replayed per concern.
const (
	TopicGenerateList   = "job.list.generate"
	TopicPhaseDetect    = "job.phase.detect"
	TopicIndexRebuild   = "job.index.rebuild"
	TopicProfileRefresh = "job.profile.refresh"
	TopicHistorySync    = "job.history.sync"
)

// JobEvent is the canonical job payload. Every long-running operation
// rides this envelope; fields not relevant to a job type stay zero.
type JobEvent struct {
	// SchemaVersion tracks the event format for forward compatibility.
	SchemaVersion int `json:"schema_version,omitempty"`

	// JobID doubles as the NATS message id for deduplication.
	JobID string `json:"job_id"`

	// Topic is the job subject (job.list.generate, job.phase.detect...).
	Topic string `json:"topic"`

	// UserID scopes user-bound jobs (0 for global jobs such as index
	// rebuilds).
	UserID int64 `json:"user_id,omitempty"`

	// ListID identifies the target list for list jobs.
	ListID int64 `json:"list_id,omitempty"`

	// Prompt is the chat prompt for list generation jobs.
	Prompt string `json:"prompt,omitempty"`

	// Limit bounds the result size for list generation jobs.
	Limit int `json:"limit,omitempty"`

	// RequestedAt is when the job was enqueued.
	RequestedAt time.Time `json:"requested_at"`
}

// NewJobEvent creates a job event with a fresh id and timestamp.
func NewJobEvent(topic string) *JobEvent {
	return &JobEvent{
		SchemaVersion: SchemaVersion,
		JobID:         uuid.New().String(),
		Topic:         topic,
		RequestedAt:   time.Now().UTC(),
	}
}

// Validate checks the envelope before publish or dispatch.
func (e *JobEvent) Validate() error {
	const op = "events.Validate"
	if e.JobID == "" {
		return recerr.Input(op, "job_id is required")
	}
	switch e.Topic {
	case TopicGenerateList:
		if e.UserID == 0 || e.Prompt == "" {
			return recerr.Input(op, "list generation requires user_id and prompt")
		}
	case TopicPhaseDetect, TopicProfileRefresh:
		if e.UserID == 0 {
			return recerr.Input(op, "user-bound job requires user_id")
		}
	case TopicIndexRebuild, TopicHistorySync:
		// Global jobs carry no required payload.
	default:
		return recerr.Input(op, fmt.Sprintf("unknown job topic %q", e.Topic))
	}
	return nil
}

// Message serializes the event into a Watermill message keyed by the
// job id, with routing metadata for middleware and observability.
func (e *JobEvent) Message() (*message.Message, error) {
	const op = "events.Message"
	if err := e.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, recerr.Internal(op, err)
	}
	msg := message.NewMessage(e.JobID, data)
	msg.Metadata.Set("topic", e.Topic)
	if e.UserID != 0 {
		msg.Metadata.Set("user_id", fmt.Sprintf("%d", e.UserID))
	}
	return msg, nil
}

// DecodeJob parses a Watermill message back into a job event. Events
// from before the schema field default to version 1.
func DecodeJob(msg *message.Message) (*JobEvent, error) {
	const op = "events.DecodeJob"
	var e JobEvent
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return nil, recerr.E(recerr.KindDataIntegrity, op,
			fmt.Sprintf("undecodable job payload: %v", err))
	}
	if e.SchemaVersion == 0 {
		e.SchemaVersion = 1
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
