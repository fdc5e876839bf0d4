// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/core"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/pairwise"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/validation"
)

// engine is the core surface the handlers drive.
type engine interface {
	GenerateChatList(ctx context.Context, req core.ListRequest) (*core.ListResult, error)
	HybridSearch(ctx context.Context, req core.SearchRequest) ([]models.SearchHit, error)
	SuggestForList(ctx context.Context, userID, listID int64, k int) ([]models.SearchHit, error)
	GetProfile(ctx context.Context, userID int64, forceRefresh bool) (*models.UserProfile, error)
	CreateSession(ctx context.Context, userID int64, prompt string, listType models.ListType, pool []int64) (*models.PairwiseSession, error)
	SessionStatus(ctx context.Context, sessionID string) (*models.PairwiseSession, error)
	NextPair(ctx context.Context, sessionID string) (*pairwise.Pair, error)
	SubmitJudgment(ctx context.Context, req pairwise.SubmitRequest) (*models.PairwiseSession, error)
	AbandonSession(ctx context.Context, sessionID string) (*models.PairwiseSession, error)
	UserPreference(ctx context.Context, userID int64) (*models.PreferenceWeights, error)
	DetectPhases(ctx context.Context, userID int64) ([]*models.ViewingPhase, error)
	CurrentPhase(ctx context.Context, userID int64) (*models.ViewingPhase, error)
	PredictNextPhase(ctx context.Context, userID int64) (*models.PhasePrediction, error)
}

var _ engine = (*core.Engine)(nil)

// HealthCheck probes one dependency by name.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler carries the endpoint implementations.
type Handler struct {
	engine engine
	checks []HealthCheck
	logger zerolog.Logger
}

// NewHandler builds the endpoint set.
func NewHandler(e engine, checks ...HealthCheck) *Handler {
	return &Handler{
		engine: e,
		checks: checks,
		logger: logging.With().Str("component", "api").Logger(),
	}
}

// chatListRequest is the generate-list request body.
type chatListRequest struct {
	UserID     int64    `json:"user_id" validate:"required,min=1"`
	Prompt     string   `json:"prompt" validate:"required,min=1,max=2000"`
	ListType   string   `json:"list_type" validate:"list_type"`
	Limit      int      `json:"limit" validate:"min=0,max=50"`
	MediaTypes []string `json:"media_types" validate:"dive,media_type"`
}

// GenerateChatList handles POST /api/v1/lists/chat.
//
//	@Summary	Generate a recommendation list from a prompt
//	@Tags		lists
//	@Accept		json
//	@Produce	json
//	@Param		request	body	chatListRequest	true	"generation request"
//	@Success	200	{object}	Response
//	@Failure	400	{object}	Response
//	@Router		/api/v1/lists/chat [post]
func (h *Handler) GenerateChatList(w http.ResponseWriter, r *http.Request) {
	const op = "api.GenerateChatList"
	var req chatListRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, r, recerr.Input(op, err.Error()))
		return
	}

	mediaTypes := make([]models.MediaType, 0, len(req.MediaTypes))
	for _, mt := range req.MediaTypes {
		if mt != "" {
			mediaTypes = append(mediaTypes, models.MediaType(mt))
		}
	}
	result, err := h.engine.GenerateChatList(r.Context(), core.ListRequest{
		UserID:     req.UserID,
		Prompt:     req.Prompt,
		ListType:   models.ListType(req.ListType),
		Limit:      req.Limit,
		MediaTypes: mediaTypes,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

// Search handles GET /api/v1/search.
//
//	@Summary	Hybrid dense-plus-lexical search
//	@Tags		search
//	@Produce	json
//	@Param		q			query	string	true	"query text"
//	@Param		user_id		query	int		false	"user for taste-fit boost"
//	@Param		media_type	query	string	false	"movie or show"
//	@Param		limit		query	int		false	"max results"
//	@Success	200	{object}	Response
//	@Router		/api/v1/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	const op = "api.Search"
	q := r.URL.Query()

	mediaType := models.MediaType(q.Get("media_type"))
	switch mediaType {
	case "", models.MediaTypeMovie, models.MediaTypeShow:
	default:
		respondError(w, r, recerr.Input(op, "media_type must be movie or show"))
		return
	}
	userID, err := optionalInt64(q.Get("user_id"))
	if err != nil {
		respondError(w, r, recerr.Input(op, "user_id must be an integer"))
		return
	}
	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		respondError(w, r, recerr.Input(op, "limit must be an integer"))
		return
	}

	hits, err := h.engine.HybridSearch(r.Context(), core.SearchRequest{
		UserID:    userID,
		Query:     q.Get("q"),
		MediaType: mediaType,
		K:         limit,
		SkipFit:   q.Get("skip_fit") == "1" || userID == 0,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, hits)
}

// Suggestions handles GET /api/v1/lists/{listID}/suggestions.
//
//	@Summary	Suggest additions for an existing provider list
//	@Tags		lists
//	@Produce	json
//	@Param		listID	path	int	true	"provider list id"
//	@Param		user_id	query	int	true	"requesting user"
//	@Param		limit	query	int	false	"max suggestions"
//	@Success	200	{object}	Response
//	@Router		/api/v1/lists/{listID}/suggestions [get]
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	const op = "api.Suggestions"
	listID, err := pathInt64(r, "listID")
	if err != nil {
		respondError(w, r, recerr.Input(op, "listID must be an integer"))
		return
	}
	userID, err := optionalInt64(r.URL.Query().Get("user_id"))
	if err != nil || userID == 0 {
		respondError(w, r, recerr.Input(op, "user_id is required"))
		return
	}
	limit, err := optionalInt(r.URL.Query().Get("limit"))
	if err != nil {
		respondError(w, r, recerr.Input(op, "limit must be an integer"))
		return
	}

	hits, err := h.engine.SuggestForList(r.Context(), userID, listID, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, hits)
}

// Profile handles GET /api/v1/users/{userID}/profile.
//
//	@Summary	Get a user's taste profile
//	@Tags		users
//	@Produce	json
//	@Param		userID	path	int		true	"user id"
//	@Param		refresh	query	string	false	"1 forces a rebuild"
//	@Success	200	{object}	Response
//	@Router		/api/v1/users/{userID}/profile [get]
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	const op = "api.Profile"
	userID, err := pathInt64(r, "userID")
	if err != nil {
		respondError(w, r, recerr.Input(op, "userID must be an integer"))
		return
	}

	profile, err := h.engine.GetProfile(r.Context(), userID, r.URL.Query().Get("refresh") == "1")
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, profile)
}

// decodeBody decodes a JSON request body, classifying failures as
// input errors.
func decodeBody(r *http.Request, out interface{}) error {
	const op = "api.decodeBody"
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return recerr.Input(op, "invalid JSON body: "+err.Error())
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func optionalInt64(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
