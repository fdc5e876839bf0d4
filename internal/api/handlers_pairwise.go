// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/pairwise"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/validation"
)

// createSessionRequest starts a pairwise training session.
type createSessionRequest struct {
	UserID   int64   `json:"user_id" validate:"required,min=1"`
	Prompt   string  `json:"prompt" validate:"max=2000"`
	ListType string  `json:"list_type" validate:"list_type"`
	Pool     []int64 `json:"pool" validate:"max=200,dive,min=1"`
}

// submitJudgmentRequest records one A-versus-B decision.
type submitJudgmentRequest struct {
	CandidateA     int64   `json:"candidate_a" validate:"required,min=1"`
	CandidateB     int64   `json:"candidate_b" validate:"required,min=1"`
	Winner         string  `json:"winner" validate:"required,winner"`
	Confidence     float64 `json:"confidence" validate:"min=0,max=1"`
	ResponseTimeMS int     `json:"response_time_ms" validate:"min=0"`
	Explanation    string  `json:"explanation" validate:"max=2000"`
}

// CreateSession handles POST /api/v1/pairwise/sessions.
//
//	@Summary	Start a pairwise taste-training session
//	@Tags		pairwise
//	@Accept		json
//	@Produce	json
//	@Param		request	body	createSessionRequest	true	"session seed"
//	@Success	201	{object}	Response
//	@Router		/api/v1/pairwise/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.CreateSession"
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, r, recerr.Input(op, err.Error()))
		return
	}

	session, err := h.engine.CreateSession(r.Context(), req.UserID, req.Prompt, models.ListType(req.ListType), req.Pool)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, session)
}

// SessionStatus handles GET /api/v1/pairwise/sessions/{sessionID}.
//
//	@Summary	Get session progress
//	@Tags		pairwise
//	@Produce	json
//	@Param		sessionID	path	string	true	"session id"
//	@Success	200	{object}	Response
//	@Router		/api/v1/pairwise/sessions/{sessionID} [get]
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.SessionStatus"
	sessionID, err := sessionIDParam(r)
	if err != nil {
		respondError(w, r, recerr.Input(op, err.Error()))
		return
	}

	session, err := h.engine.SessionStatus(r.Context(), sessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, session)
}

// NextPair handles GET /api/v1/pairwise/sessions/{sessionID}/next.
//
//	@Summary	Serve the next comparison pair
//	@Tags		pairwise
//	@Produce	json
//	@Param		sessionID	path	string	true	"session id"
//	@Success	200	{object}	Response
//	@Router		/api/v1/pairwise/sessions/{sessionID}/next [get]
func (h *Handler) NextPair(w http.ResponseWriter, r *http.Request) {
	const op = "api.NextPair"
	sessionID, err := sessionIDParam(r)
	if err != nil {
		respondError(w, r, recerr.Input(op, err.Error()))
		return
	}

	pair, err := h.engine.NextPair(r.Context(), sessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pair)
}

// SubmitJudgment handles POST /api/v1/pairwise/sessions/{sessionID}/judgments.
//
//	@Summary	Record a pairwise judgment
//	@Tags		pairwise
//	@Accept		json
//	@Produce	json
//	@Param		sessionID	path	string					true	"session id"
//	@Param		request		body	submitJudgmentRequest	true	"judgment"
//	@Success	200	{object}	Response
//	@Router		/api/v1/pairwise/sessions/{sessionID}/judgments [post]
func (h *Handler) SubmitJudgment(w http.ResponseWriter, r *http.Request) {
	const op = "api.SubmitJudgment"
	sessionID, err := sessionIDParam(r)
	if err != nil {
		respondError(w, r, recerr.Input(op, err.Error()))
		return
	}
	var req submitJudgmentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, r, recerr.Input(op, err.Error()))
		return
	}

	session, err := h.engine.SubmitJudgment(r.Context(), pairwise.SubmitRequest{
		SessionID:      sessionID,
		CandidateA:     req.CandidateA,
		CandidateB:     req.CandidateB,
		Winner:         models.Winner(req.Winner),
		Confidence:     req.Confidence,
		ResponseTimeMS: req.ResponseTimeMS,
		Explanation:    req.Explanation,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, session)
}

// AbandonSession handles POST /api/v1/pairwise/sessions/{sessionID}/abandon.
//
//	@Summary	Abandon a session, keeping partial judgments
//	@Tags		pairwise
//	@Produce	json
//	@Param		sessionID	path	string	true	"session id"
//	@Success	200	{object}	Response
//	@Router		/api/v1/pairwise/sessions/{sessionID}/abandon [post]
func (h *Handler) AbandonSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.AbandonSession"
	sessionID, err := sessionIDParam(r)
	if err != nil {
		respondError(w, r, recerr.Input(op, err.Error()))
		return
	}

	session, err := h.engine.AbandonSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, session)
}

// UserPreference handles GET /api/v1/users/{userID}/preference.
//
//	@Summary	Get learned preference weights
//	@Tags		users
//	@Produce	json
//	@Param		userID	path	int	true	"user id"
//	@Success	200	{object}	Response
//	@Router		/api/v1/users/{userID}/preference [get]
func (h *Handler) UserPreference(w http.ResponseWriter, r *http.Request) {
	const op = "api.UserPreference"
	userID, err := pathInt64(r, "userID")
	if err != nil {
		respondError(w, r, recerr.Input(op, "userID must be an integer"))
		return
	}

	weights, err := h.engine.UserPreference(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, weights)
}

func sessionIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if id == "" {
		return "", errors.New("sessionID is required")
	}
	return id, nil
}
