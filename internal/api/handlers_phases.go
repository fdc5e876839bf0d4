// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package api

import (
	"net/http"

	"github.com/tomtom215/curatus/internal/recerr"
)

// DetectPhases handles POST /api/v1/users/{userID}/phases/detect.
//
//	@Summary	Segment the user's history into viewing phases
//	@Tags		phases
//	@Produce	json
//	@Param		userID	path	int	true	"user id"
//	@Success	200	{object}	Response
//	@Router		/api/v1/users/{userID}/phases/detect [post]
func (h *Handler) DetectPhases(w http.ResponseWriter, r *http.Request) {
	const op = "api.DetectPhases"
	userID, err := pathInt64(r, "userID")
	if err != nil {
		respondError(w, r, recerr.Input(op, "userID must be an integer"))
		return
	}

	phases, err := h.engine.DetectPhases(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, phases)
}

// CurrentPhase handles GET /api/v1/users/{userID}/phases/current.
//
//	@Summary	Get the phase covering recent watches
//	@Tags		phases
//	@Produce	json
//	@Param		userID	path	int	true	"user id"
//	@Success	200	{object}	Response
//	@Failure	404	{object}	Response
//	@Router		/api/v1/users/{userID}/phases/current [get]
func (h *Handler) CurrentPhase(w http.ResponseWriter, r *http.Request) {
	const op = "api.CurrentPhase"
	userID, err := pathInt64(r, "userID")
	if err != nil {
		respondError(w, r, recerr.Input(op, "userID must be an integer"))
		return
	}

	phase, err := h.engine.CurrentPhase(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, phase)
}

// PredictNextPhase handles GET /api/v1/users/{userID}/phases/next.
//
//	@Summary	Predict the likely next viewing phase
//	@Tags		phases
//	@Produce	json
//	@Param		userID	path	int	true	"user id"
//	@Success	200	{object}	Response
//	@Router		/api/v1/users/{userID}/phases/next [get]
func (h *Handler) PredictNextPhase(w http.ResponseWriter, r *http.Request) {
	const op = "api.PredictNextPhase"
	userID, err := pathInt64(r, "userID")
	if err != nil {
		respondError(w, r, recerr.Input(op, "userID must be an integer"))
		return
	}

	prediction, err := h.engine.PredictNextPhase(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, prediction)
}
