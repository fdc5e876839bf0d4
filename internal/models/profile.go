// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package models

import "time"

// ObscurityPreference labels a user's taste for obscure versus
// mainstream content, derived from the average popularity of watched
// items.
type ObscurityPreference string

const (
	// ObscurityObscure: average watched popularity < 20.
	ObscurityObscure ObscurityPreference = "obscure"
	// ObscurityBalanced: average watched popularity < 60.
	ObscurityBalanced ObscurityPreference = "balanced"
	// ObscurityMainstream: everything else.
	ObscurityMainstream ObscurityPreference = "mainstream"
)

// UserProfile is the cached taste profile built from watch history and
// explicit ratings. Profiles are rebuilt at most hourly per user unless
// explicitly refreshed.
type UserProfile struct {
	// UserID identifies the owner.
	UserID int64 `json:"user_id"`

	// GenreWeights maps genre name to a weight in [0, 1], normalized by
	// the most-watched genre.
	GenreWeights map[string]float64 `json:"genre_weights,omitempty"`

	// DecadeWeights maps decade label ("1990s") to a weight in [0, 1].
	DecadeWeights map[string]float64 `json:"decade_weights,omitempty"`

	// LanguageWeights maps ISO 639-1 code to a weight in [0, 1].
	LanguageWeights map[string]float64 `json:"language_weights,omitempty"`

	// AvgPopularity is the mean popularity of watched items.
	AvgPopularity float64 `json:"avg_popularity,omitempty"`

	// AvgRating is the mean rating the user has given (0 when unrated).
	AvgRating float64 `json:"avg_rating,omitempty"`

	// ObscurityPreference is derived from AvgPopularity.
	ObscurityPreference ObscurityPreference `json:"obscurity_preference,omitempty"`

	// TopGenres lists the five highest-weight genres, descending.
	TopGenres []string `json:"top_genres,omitempty"`

	// RecentTMDBIDs lists up to 20 most recently watched catalog ids,
	// newest first.
	RecentTMDBIDs []int64 `json:"recent_tmdb_ids,omitempty"`

	// RecentMediaTypes pairs RecentTMDBIDs with their media types.
	RecentMediaTypes []MediaType `json:"recent_media_types,omitempty"`

	// TotalWatched is the total watch event count backing the profile.
	TotalWatched int `json:"total_watched"`

	// VersionHash fingerprints the inputs the profile was built from.
	VersionHash string `json:"version_hash,omitempty"`

	// UpdatedAt is the build time.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRecentHistory reports whether the profile saw any recent events.
func (p *UserProfile) HasRecentHistory() bool {
	return len(p.RecentTMDBIDs) > 0
}

// GenreWeight returns the profile weight for a genre, or def when the
// genre was never watched.
func (p *UserProfile) GenreWeight(genre string, def float64) float64 {
	if w, ok := p.GenreWeights[genre]; ok {
		return w
	}
	return def
}

// PreferenceWeights is the interpretable preference state updated by
// pairwise training. Unlike UserProfile (derived from history) this is
// feedback-driven and expires after 30 days without updates.
type PreferenceWeights struct {
	// UserID identifies the owner.
	UserID int64 `json:"user_id"`

	// Genres maps genre name to an additive preference weight.
	Genres map[string]float64 `json:"genres,omitempty"`

	// Decades maps decade label to an additive preference weight.
	Decades map[string]float64 `json:"decades,omitempty"`

	// Languages maps language code to an additive preference weight.
	Languages map[string]float64 `json:"languages,omitempty"`

	// Obscurity shifts negative (mainstream) to positive (obscure).
	Obscurity float64 `json:"obscurity"`

	// Freshness shifts negative (classics) to positive (recent).
	Freshness float64 `json:"freshness"`

	// UpdatedAt is the last judgment that touched these weights.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPreferenceWeights returns an empty weight set for a user.
func NewPreferenceWeights(userID int64) *PreferenceWeights {
	return &PreferenceWeights{
		UserID:    userID,
		Genres:    make(map[string]float64),
		Decades:   make(map[string]float64),
		Languages: make(map[string]float64),
	}
}

// PersonaDelta is one micro-update to the user's persona text, generated
// when a pairwise session completes. The last ten deltas are retained.
type PersonaDelta struct {
	// SessionID is the completed session.
	SessionID string `json:"session_id"`

	// Summary is the 2-3 sentence LLM summary of revealed preferences.
	Summary string `json:"summary"`

	// CreatedAt is the completion time.
	CreatedAt time.Time `json:"created_at"`
}
