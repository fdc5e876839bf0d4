// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package models

import "time"

// Signals is the per-candidate signal breakdown computed by the scoring
// engine. Every field is finite; the blend weights applied to them depend
// on the list type.
type Signals struct {
	// TFIDFSim is the TF-IDF cosine between prompt and candidate text.
	TFIDFSim float64 `json:"tfidf_sim"`

	// SemanticSim is the embedding cosine between query and candidate.
	SemanticSim float64 `json:"semantic_sim"`

	// GenreOverlap is the Jaccard overlap with the filter genres.
	GenreOverlap float64 `json:"genre_overlap"`

	// RatingNorm is the candidate rating scaled to [0, 1].
	RatingNorm float64 `json:"rating_norm"`

	// PopularityNorm is the candidate popularity scaled to [0, 1]
	// within the scored set.
	PopularityNorm float64 `json:"popularity_norm"`

	// Novelty is 1 - PopularityNorm.
	Novelty float64 `json:"novelty"`

	// PhraseBonus is the fraction of quoted prompt phrases present in
	// the candidate text.
	PhraseBonus float64 `json:"phrase_bonus"`

	// ActorStudioBonus is the fraction of requested actors and studios
	// matched by the candidate.
	ActorStudioBonus float64 `json:"actor_studio_bonus"`

	// RecencyBonus rewards recent releases for dynamic lists.
	RecencyBonus float64 `json:"recency_bonus"`

	// WatchHistoryBonus penalizes already-watched items and rewards
	// media-type affinity.
	WatchHistoryBonus float64 `json:"watch_history_bonus"`

	// RatingsBoost is the user thumb signal (+0.3 up / -0.7 down).
	RatingsBoost float64 `json:"ratings_boost"`

	// ToneBonus rewards well-rated items for light/cozy prompts.
	ToneBonus float64 `json:"tone_bonus"`

	// MoodTimeBonus is the time-of-day mood adjustment for dynamic lists.
	MoodTimeBonus float64 `json:"mood_time_bonus"`
}

// ScoreDriver names one contribution to a final score, used to explain
// why an item ranked where it did.
type ScoreDriver struct {
	// Name is the signal name.
	Name string `json:"name"`

	// Value is the raw signal value.
	Value float64 `json:"value"`

	// Weight is the blend weight applied.
	Weight float64 `json:"weight"`

	// Contribution is Value * Weight.
	Contribution float64 `json:"contribution"`
}

// ExplanationMeta summarizes the score composition for one item.
type ExplanationMeta struct {
	// DominantSimilarity is "tfidf" or "semantic", whichever similarity
	// contributed more.
	DominantSimilarity string `json:"dominant_similarity"`

	// TopDrivers lists the highest-contribution signals, descending.
	TopDrivers []ScoreDriver `json:"top_drivers,omitempty"`
}

// ScoredItem is one ranked candidate flowing through the tail of the
// pipeline (judge, pairwise, diversifier, output).
type ScoredItem struct {
	// Candidate is the scored catalog item.
	Candidate *Candidate `json:"candidate"`

	// Score is the blended final score. It may be negative for dynamic
	// lists where the novelty weight is negative.
	Score float64 `json:"score"`

	// Signals is the full signal breakdown.
	Signals Signals `json:"signals"`

	// Meta summarizes the score composition.
	Meta ExplanationMeta `json:"explanation_meta"`

	// Explanation is the rendered human-readable reason string.
	Explanation string `json:"explanation,omitempty"`

	// JudgeScore is the optional LLM judge score in [0, 1]
	// (nil when the judge did not score this item).
	JudgeScore *float64 `json:"judge_score,omitempty"`

	// JudgeReasons are the judge's short reason strings (at most two).
	JudgeReasons []string `json:"judge_reasons,omitempty"`

	// FitScore is the profile fit in [0, 1] when computed.
	FitScore float64 `json:"fit_score,omitempty"`

	// IsWatched marks items found in the user's watch history.
	IsWatched bool `json:"is_watched,omitempty"`

	// WatchedAt is the most recent viewing when IsWatched is set.
	WatchedAt *time.Time `json:"watched_at,omitempty"`
}

// SearchHit is one retrieval result before scoring: the fused dense plus
// lexical score and the enriched candidate.
type SearchHit struct {
	// Key is the (tmdb_id, media_type) identity.
	Key CandidateKey `json:"key"`

	// DenseScore is the vector similarity in [0, 1] (0 when the dense
	// source did not return the item).
	DenseScore float64 `json:"dense_score"`

	// LexicalScore is the normalized lexical score in [0, 1] (0 when
	// the lexical source did not return the item).
	LexicalScore float64 `json:"lexical_score"`

	// SearchScore is the fused retrieval score.
	SearchScore float64 `json:"search_score"`

	// FitScore is the profile fit in [0, 1] when fit scoring ran.
	FitScore float64 `json:"fit_score,omitempty"`

	// FinalScore is the fused search plus fit blend used for ordering.
	FinalScore float64 `json:"final_score"`

	// Candidate is the enriched catalog record.
	Candidate *Candidate `json:"candidate,omitempty"`
}
