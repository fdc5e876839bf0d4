// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package core

import (
	"context"

	"github.com/tomtom215/curatus/internal/metrics"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/pairwise"
	"github.com/tomtom215/curatus/internal/recerr"
)

// GetProfile returns the user's taste profile, rebuilding it first when
// forceRefresh is set.
func (e *Engine) GetProfile(ctx context.Context, userID int64, forceRefresh bool) (*models.UserProfile, error) {
	const op = "core.GetProfile"
	if e.profiles == nil {
		return nil, recerr.E(recerr.KindInternal, op, "profile service not configured")
	}
	return e.profiles.Get(ctx, userID, forceRefresh)
}

// CreateSession starts a pairwise training session seeded from a
// generated candidate pool.
func (e *Engine) CreateSession(ctx context.Context, userID int64, prompt string, listType models.ListType, pool []int64) (*models.PairwiseSession, error) {
	const op = "core.CreateSession"
	if e.trainer == nil {
		return nil, recerr.E(recerr.KindInternal, op, "pairwise trainer not configured")
	}
	return e.trainer.Create(ctx, userID, prompt, listType, pool)
}

// SessionStatus returns the session with its progress counters.
func (e *Engine) SessionStatus(ctx context.Context, sessionID string) (*models.PairwiseSession, error) {
	const op = "core.SessionStatus"
	if e.trainer == nil {
		return nil, recerr.E(recerr.KindInternal, op, "pairwise trainer not configured")
	}
	return e.trainer.Session(ctx, sessionID)
}

// NextPair serves the next undecided comparison for a session.
func (e *Engine) NextPair(ctx context.Context, sessionID string) (*pairwise.Pair, error) {
	const op = "core.NextPair"
	if e.trainer == nil {
		return nil, recerr.E(recerr.KindInternal, op, "pairwise trainer not configured")
	}
	return e.trainer.NextPair(ctx, sessionID)
}

// SubmitJudgment records one pairwise decision and returns the updated
// session.
func (e *Engine) SubmitJudgment(ctx context.Context, req pairwise.SubmitRequest) (*models.PairwiseSession, error) {
	const op = "core.SubmitJudgment"
	if e.trainer == nil {
		return nil, recerr.E(recerr.KindInternal, op, "pairwise trainer not configured")
	}
	session, err := e.trainer.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.PairwiseJudgments.Inc()
	return session, nil
}

// AbandonSession marks a session abandoned; partial judgments still
// contribute to preference weights.
func (e *Engine) AbandonSession(ctx context.Context, sessionID string) (*models.PairwiseSession, error) {
	const op = "core.AbandonSession"
	if e.trainer == nil {
		return nil, recerr.E(recerr.KindInternal, op, "pairwise trainer not configured")
	}
	return e.trainer.Abandon(ctx, sessionID)
}

// UserPreference returns the learned preference weights aggregated from
// the user's pairwise judgments.
func (e *Engine) UserPreference(ctx context.Context, userID int64) (*models.PreferenceWeights, error) {
	const op = "core.UserPreference"
	if e.trainer == nil {
		return nil, recerr.E(recerr.KindInternal, op, "pairwise trainer not configured")
	}
	return e.trainer.Weights(ctx, userID)
}
