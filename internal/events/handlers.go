// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/logging"
)

// Worker is the slice of the core engine the job handlers drive.
type Worker interface {
	// GenerateChatList runs the full list-generation pipeline and
	// replaces the target list's items. listID 0 generates without
	// writing back.
	GenerateChatList(ctx context.Context, userID, listID int64, prompt string, limit int) error

	// DetectPhases recomputes a user's viewing phases.
	DetectPhases(ctx context.Context, userID int64) error

	// RebuildIndexes rebuilds the vector and lexical indexes.
	RebuildIndexes(ctx context.Context) error

	// RefreshProfile rebuilds a user's taste profile.
	RefreshProfile(ctx context.Context, userID int64) error

	// SyncHistory pulls watch history for all configured users.
	SyncHistory(ctx context.Context) error
}

// RegisterHandlers wires every job topic to the worker. Handlers log
// per-job outcomes; retry and poison behavior lives in the router.
func RegisterHandlers(r *Router, w Worker) {
	logger := logging.With().Str("component", "jobs").Logger()

	r.Handle("generate-list", TopicGenerateList, func(ctx context.Context, e *JobEvent) error {
		return logged(logger, e, w.GenerateChatList(ctx, e.UserID, e.ListID, e.Prompt, e.Limit))
	})
	r.Handle("detect-phases", TopicPhaseDetect, func(ctx context.Context, e *JobEvent) error {
		return logged(logger, e, w.DetectPhases(ctx, e.UserID))
	})
	r.Handle("rebuild-indexes", TopicIndexRebuild, func(ctx context.Context, e *JobEvent) error {
		return logged(logger, e, w.RebuildIndexes(ctx))
	})
	r.Handle("refresh-profile", TopicProfileRefresh, func(ctx context.Context, e *JobEvent) error {
		return logged(logger, e, w.RefreshProfile(ctx, e.UserID))
	})
	r.Handle("sync-history", TopicHistorySync, func(ctx context.Context, e *JobEvent) error {
		return logged(logger, e, w.SyncHistory(ctx))
	})
}

func logged(logger zerolog.Logger, e *JobEvent, err error) error {
	if err != nil {
		logger.Error().Err(err).
			Str("job_id", e.JobID).
			Str("topic", e.Topic).
			Int64("user_id", e.UserID).
			Msg("job failed")
		return err
	}
	logger.Info().
		Str("job_id", e.JobID).
		Str("topic", e.Topic).
		Int64("user_id", e.UserID).
		Msg("job completed")
	return nil
}
