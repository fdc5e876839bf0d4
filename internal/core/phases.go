// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package core

import (
	"context"

	"github.com/tomtom215/curatus/internal/metrics"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// DetectPhases segments the user's history into viewing phases and
// persists the result.
func (e *Engine) DetectPhases(ctx context.Context, userID int64) ([]*models.ViewingPhase, error) {
	const op = "core.DetectPhases"
	if e.phases == nil {
		return nil, recerr.E(recerr.KindInternal, op, "phase detector not configured")
	}
	detected, err := e.phases.DetectAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	metrics.PhaseDetections.Inc()
	return detected, nil
}

// CurrentPhase returns the phase covering the most recent watches, or a
// not-found error when the history is too thin to segment.
func (e *Engine) CurrentPhase(ctx context.Context, userID int64) (*models.ViewingPhase, error) {
	const op = "core.CurrentPhase"
	if e.phases == nil {
		return nil, recerr.E(recerr.KindInternal, op, "phase detector not configured")
	}
	return e.phases.Current(ctx, userID)
}

// PredictNextPhase extrapolates the likely next phase from transition
// history.
func (e *Engine) PredictNextPhase(ctx context.Context, userID int64) (*models.PhasePrediction, error) {
	const op = "core.PredictNextPhase"
	if e.phases == nil {
		return nil, recerr.E(recerr.KindInternal, op, "phase detector not configured")
	}
	return e.phases.PredictNext(ctx, userID)
}
