// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/judge"
	"github.com/tomtom215/curatus/internal/metrics"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/pairwise"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/retrieval"
	"github.com/tomtom215/curatus/internal/scoring"
)

const (
	defaultListLen = 30
	maxListLen     = 50

	// fallbackPoolSize bounds the popular-candidate pool used when
	// retrieval is unavailable.
	fallbackPoolSize = 200

	recentTypeWindow = 10
	historyGenreK    = 5
)

// ListRequest is one list-generation invocation.
type ListRequest struct {
	// UserID is the requesting viewer.
	UserID int64

	// Prompt is the free-text chat prompt or preset description.
	Prompt string

	// ListType selects the scoring weight row; empty means chat.
	ListType models.ListType

	// Limit caps the list size; 0 takes the intent target or default.
	Limit int

	// MediaTypes optionally restricts results. More than one value
	// scores each type separately and merges by final score.
	MediaTypes []models.MediaType
}

// ListResult is an ordered, explained list.
type ListResult struct {
	// Items is the final ordering with explanations.
	Items []models.ScoredItem `json:"items"`

	// Intent is the structured prompt interpretation.
	Intent *models.Intent `json:"intent,omitempty"`

	// GeneratedAt timestamps the run.
	GeneratedAt time.Time `json:"generated_at"`
}

// GenerateChatList runs the full pipeline: intent, hybrid retrieval,
// scoring, optional judge and pairwise rerank, MMR diversification.
// Stage failures degrade rather than abort; only an unusable request
// or a fully empty catalog errors.
func (e *Engine) GenerateChatList(ctx context.Context, req ListRequest) (*ListResult, error) {
	const op = "core.GenerateChatList"
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, recerr.Input(op, "prompt is required")
	}
	if req.ListType == "" {
		req.ListType = models.ListTypeChat
	}
	start := time.Now()

	persona := e.personaText(ctx, req.UserID)
	historySummary := e.historySummary(ctx, req.UserID)

	in := e.intent.Extract(ctx, req.Prompt, persona, historySummary)
	if len(req.MediaTypes) == 1 {
		in.MediaType = req.MediaTypes[0]
	}
	limit := e.resolveLimit(req.Limit, in)

	pool := e.retrievePool(ctx, req, in)
	if len(pool) == 0 {
		return nil, recerr.NotFound(op, "candidate pool")
	}

	items, embeddings := e.scorePool(ctx, req, in, pool)
	if len(items) == 0 {
		return &ListResult{Intent: in, GeneratedAt: start}, nil
	}

	profiles := e.itemProfiles(ctx, items)
	if e.judge != nil {
		scores := e.judge.Score(ctx, judge.Request{
			QuerySummary: querySummary(req.Prompt, in),
			Persona:      persona,
			History:      historySummary,
			TargetSize:   limit,
			Profiles:     profiles,
		}, items)
		items = orderByJudge(items, scores)
	}
	if e.ranker != nil {
		items = e.ranker.Rank(ctx, pairwise.RankRequest{
			Prompt:   req.Prompt,
			Persona:  persona,
			Profiles: profiles,
		}, items)
	}
	if e.mmr != nil {
		items = e.mmr.Rerank(items, itemVectors(items, embeddings), limit)
	} else if len(items) > limit {
		items = items[:limit]
	}

	metrics.ListsGenerated.Inc()
	e.logger.Info().
		Int64("user_id", req.UserID).
		Str("list_type", string(req.ListType)).
		Int("pool", len(pool)).
		Int("items", len(items)).
		Dur("elapsed", time.Since(start)).
		Msg("list generated")

	return &ListResult{Items: items, Intent: in, GeneratedAt: start}, nil
}

// resolveLimit picks the effective list size: explicit request, then
// intent target, then config default, capped.
func (e *Engine) resolveLimit(requested int, in *models.Intent) int {
	limit := requested
	if limit <= 0 {
		limit = in.TargetSize
	}
	if limit <= 0 {
		limit = e.cfg.Scoring.DefaultListLen
	}
	if limit <= 0 {
		limit = defaultListLen
	}
	if limit > maxListLen {
		limit = maxListLen
	}
	return limit
}

// retrievePool runs hybrid retrieval and falls back to popular
// candidates when retrieval is unavailable.
func (e *Engine) retrievePool(ctx context.Context, req ListRequest, in *models.Intent) []*models.Candidate {
	hits, err := e.retriever.Retrieve(ctx, retrieval.Request{
		UserID: req.UserID,
		Query:  req.Prompt,
		Intent: in,
	})
	if err != nil {
		e.logger.Warn().Err(err).Int64("user_id", req.UserID).
			Msg("retrieval failed, falling back to popular pool")
	}
	pool := make([]*models.Candidate, 0, len(hits))
	for _, h := range hits {
		if h.Candidate != nil {
			pool = append(pool, h.Candidate)
		}
	}
	if len(pool) > 0 {
		return pool
	}
	return e.popularPool(ctx, in.MediaType)
}

// popularPool is the degraded retrieval path.
func (e *Engine) popularPool(ctx context.Context, mediaType models.MediaType) []*models.Candidate {
	type popularSource interface {
		TopPopularCandidates(ctx context.Context, mediaType models.MediaType, limit int) ([]*models.Candidate, error)
	}
	src, ok := e.catalog.(popularSource)
	if !ok {
		return nil
	}
	pool, err := src.TopPopularCandidates(ctx, mediaType, fallbackPoolSize)
	if err != nil {
		e.logger.Warn().Err(err).Msg("popular fallback failed")
		return nil
	}
	return pool
}

// scorePool scores the candidate pool, splitting multi-valued media
// type requests into per-type runs merged by final score. It returns
// the ordered items and the base embeddings keyed by candidate id.
func (e *Engine) scorePool(ctx context.Context, req ListRequest, in *models.Intent, pool []*models.Candidate) ([]models.ScoredItem, map[int64]models.Vector) {
	texts := make([]string, len(pool))
	for i, c := range pool {
		texts[i] = embed.ComposeCandidateText(c)
	}
	vectors := e.encoder.EncodeBatch(texts)
	embeddings := make(map[int64]models.Vector, len(pool))
	for i, c := range pool {
		embeddings[c.ID] = vectors[i]
	}

	base := scoring.Request{
		UserID:     req.UserID,
		Prompt:     req.Prompt,
		ListType:   req.ListType,
		Filters:    in.Filters(),
		Candidates: pool,
		Texts:      texts,
		Embeddings: vectors,
		QueryVec:   e.encoder.Encode(req.Prompt),
		Tones:      in.Tones,
		Watched:    e.watchedStatuses(ctx, req.UserID, pool),
		Ratings:    e.userRatings(ctx, req.UserID),
	}
	base.RecentTypes = e.recentTypes(ctx, req.UserID)

	if len(req.MediaTypes) <= 1 {
		items, err := e.scorer.Score(base)
		if err != nil {
			e.logger.Warn().Err(err).Msg("scoring failed")
			return nil, embeddings
		}
		return items, embeddings
	}

	// Per-type scoring keeps pool normalization within each type; the
	// merged ordering compares final scores directly.
	var merged []models.ScoredItem
	for _, t := range req.MediaTypes {
		typed := base
		typed.Filters.MediaType = t
		items, err := e.scorer.Score(typed)
		if err != nil {
			e.logger.Warn().Err(err).Str("media_type", string(t)).Msg("per-type scoring failed")
			continue
		}
		merged = append(merged, items...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Candidate.ID < merged[j].Candidate.ID
	})
	return merged, embeddings
}

// orderByJudge reorders judged items by judge score (descending, id
// tiebreak) ahead of unjudged items, which keep engine order. With no
// accepted scores the order is untouched.
func orderByJudge(items []models.ScoredItem, scores map[int64]float64) []models.ScoredItem {
	if len(scores) == 0 {
		return items
	}
	judged := make([]models.ScoredItem, 0, len(scores))
	rest := make([]models.ScoredItem, 0, len(items)-len(scores))
	for _, it := range items {
		if _, ok := scores[it.Candidate.ID]; ok {
			judged = append(judged, it)
		} else {
			rest = append(rest, it)
		}
	}
	sort.SliceStable(judged, func(i, j int) bool {
		a, b := scores[judged[i].Candidate.ID], scores[judged[j].Candidate.ID]
		if a != b {
			return a > b
		}
		return judged[i].Candidate.ID < judged[j].Candidate.ID
	})
	return append(judged, rest...)
}

// itemVectors aligns base embeddings with the item slice for MMR.
func itemVectors(items []models.ScoredItem, embeddings map[int64]models.Vector) []models.Vector {
	vecs := make([]models.Vector, len(items))
	for i, it := range items {
		vecs[i] = embeddings[it.Candidate.ID]
	}
	return vecs
}

// itemProfiles loads LLM enrichment for prompt building, best-effort.
func (e *Engine) itemProfiles(ctx context.Context, items []models.ScoredItem) map[int64]*models.ItemLLMProfile {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.Candidate.ID
	}
	profiles, err := e.catalog.GetItemProfiles(ctx, ids)
	if err != nil {
		e.logger.Warn().Err(err).Msg("item profiles unavailable")
		return nil
	}
	return profiles
}

// watchedStatuses resolves which pool members the user has seen.
func (e *Engine) watchedStatuses(ctx context.Context, userID int64, pool []*models.Candidate) map[models.CandidateKey]models.WatchedStatus {
	if e.history == nil {
		return nil
	}
	keys := make([]models.CandidateKey, len(pool))
	for i, c := range pool {
		keys[i] = c.Key()
	}
	watched, err := e.history.WatchedStatusFor(ctx, userID, keys)
	if err != nil {
		e.logger.Warn().Err(err).Int64("user_id", userID).Msg("watched statuses unavailable")
		return nil
	}
	return watched
}

// userRatings loads the thumb signals, best-effort.
func (e *Engine) userRatings(ctx context.Context, userID int64) map[models.CandidateKey]models.UserRating {
	ratings, err := e.catalog.UserRatings(ctx, userID)
	if err != nil {
		e.logger.Warn().Err(err).Int64("user_id", userID).Msg("ratings unavailable")
		return nil
	}
	return ratings
}

// recentTypes returns the media types of the user's latest watches.
func (e *Engine) recentTypes(ctx context.Context, userID int64) []models.MediaType {
	if e.history == nil {
		return nil
	}
	events, err := e.history.RecentWatches(ctx, userID, "", recentTypeWindow)
	if err != nil {
		return nil
	}
	types := make([]models.MediaType, len(events))
	for i, ev := range events {
		types[i] = ev.MediaType
	}
	return types
}

// personaText renders the viewer description, empty when unavailable.
func (e *Engine) personaText(ctx context.Context, userID int64) string {
	if e.persona == nil {
		return ""
	}
	return e.persona.Text(ctx, userID)
}

// historySummary is a one-line viewing summary for LLM prompts.
func (e *Engine) historySummary(ctx context.Context, userID int64) string {
	if e.history == nil {
		return ""
	}
	stats, err := e.history.Stats(ctx, userID)
	if err != nil || stats == nil || stats.TotalEvents == 0 {
		return ""
	}
	genres, _ := e.history.TopGenres(ctx, userID, historyGenreK)
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Genre)
	}
	summary := fmt.Sprintf("%d watches (%d movies, %d shows)",
		stats.TotalEvents, stats.MovieCount, stats.ShowCount)
	if len(names) > 0 {
		summary += "; favorite genres: " + strings.Join(names, ", ")
	}
	return summary
}

// querySummary condenses the prompt and extracted intent for the judge.
func querySummary(prompt string, in *models.Intent) string {
	parts := []string{prompt}
	if len(in.Genres) > 0 {
		parts = append(parts, "genres: "+strings.Join(in.Genres, ", "))
	}
	if len(in.Moods) > 0 {
		parts = append(parts, "moods: "+strings.Join(in.Moods, ", "))
	}
	if in.MediaType != "" {
		parts = append(parts, "type: "+string(in.MediaType))
	}
	return strings.Join(parts, " | ")
}
