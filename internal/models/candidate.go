// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package models

import (
	"strings"
	"time"
)

// MediaType identifies the kind of catalog item.
type MediaType string

const (
	// MediaTypeMovie is a theatrical or streaming film.
	MediaTypeMovie MediaType = "movie"
	// MediaTypeShow is an episodic series.
	MediaTypeShow MediaType = "show"
)

// ParseMediaType normalizes free-form media type words to a MediaType.
// "tv" and "series" are synonyms for show; plural forms are accepted.
// The second return value is false when the word names no known type.
func ParseMediaType(s string) (MediaType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film", "films":
		return MediaTypeMovie, true
	case "show", "shows", "tv", "series", "tv show", "tv shows":
		return MediaTypeShow, true
	default:
		return "", false
	}
}

// Valid reports whether t is one of the defined media types.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeShow
}

// Candidate is a catalog item eligible for recommendation.
//
// Exactly one candidate exists per (TMDBID, MediaType) pair. Candidates
// are created and mutated only by catalog ingestion; every other component
// treats them as read-only. The Active flag controls retrieval visibility:
// inactive candidates are excluded from search results but retained so
// watch history and phases can still reference them.
type Candidate struct {
	// ID is the internal unique identifier.
	ID int64 `json:"candidate_id"`

	// TMDBID is the external catalog identifier, unique per media type.
	TMDBID int64 `json:"tmdb_id"`

	// TraktID is the watch-provider identifier when known (0 otherwise).
	TraktID int64 `json:"trakt_id,omitempty"`

	// MediaType is movie or show.
	MediaType MediaType `json:"media_type"`

	// Title is the display title.
	Title string `json:"title"`

	// OriginalTitle is the title in the original language.
	OriginalTitle string `json:"original_title,omitempty"`

	// Year is the release year (first air year for shows).
	Year int `json:"year,omitempty"`

	// Overview is the plot summary.
	Overview string `json:"overview,omitempty"`

	// Tagline is the marketing tagline.
	Tagline string `json:"tagline,omitempty"`

	// Genres is the set of genre names.
	Genres []string `json:"genres,omitempty"`

	// Keywords is the set of keyword tags.
	Keywords []string `json:"keywords,omitempty"`

	// Cast is the ordered actor list (billing order).
	Cast []string `json:"cast,omitempty"`

	// Directors is the list of directors.
	Directors []string `json:"directors,omitempty"`

	// Writers is the list of writers.
	Writers []string `json:"writers,omitempty"`

	// CreatedBy is the list of series creators (shows only).
	CreatedBy []string `json:"created_by,omitempty"`

	// ProductionCompanies is the list of studios.
	ProductionCompanies []string `json:"production_companies,omitempty"`

	// Networks is the list of broadcast networks (shows only).
	Networks []string `json:"networks,omitempty"`

	// ProductionCountries is the list of country names.
	ProductionCountries []string `json:"production_countries,omitempty"`

	// SpokenLanguages is the list of spoken language names.
	SpokenLanguages []string `json:"spoken_languages,omitempty"`

	// RuntimeMinutes is the runtime (average episode runtime for shows).
	RuntimeMinutes int `json:"runtime_minutes,omitempty"`

	// Rating is the community rating in [0, 10].
	Rating float64 `json:"rating,omitempty"`

	// Votes is the community vote count.
	Votes int `json:"votes,omitempty"`

	// Popularity is the catalog popularity score (unbounded, >= 0).
	Popularity float64 `json:"popularity,omitempty"`

	// OriginalLanguage is the ISO 639-1 code of the original language.
	OriginalLanguage string `json:"original_language,omitempty"`

	// ReleaseDate is the release date in YYYY-MM-DD form.
	ReleaseDate string `json:"release_date,omitempty"`

	// Status is the catalog status (Released, Ended, ...).
	Status string `json:"status,omitempty"`

	// Adult marks adult-only content.
	Adult bool `json:"adult,omitempty"`

	// Homepage is the official site URL.
	Homepage string `json:"homepage,omitempty"`

	// Revenue is the reported box-office revenue in USD (movies only).
	Revenue int64 `json:"revenue,omitempty"`

	// Budget is the reported production budget in USD (movies only).
	Budget int64 `json:"budget,omitempty"`

	// CollectionID is the franchise collection identifier (0 when none).
	CollectionID int64 `json:"collection_id,omitempty"`

	// CollectionName is the franchise collection display name.
	CollectionName string `json:"collection_name,omitempty"`

	// Certification is the content certification (PG-13, TV-MA, ...).
	Certification string `json:"certification,omitempty"`

	// PosterPath is the catalog poster path.
	PosterPath string `json:"poster_path,omitempty"`

	// SeasonCount is the number of seasons (shows only).
	SeasonCount int `json:"season_count,omitempty"`

	// EpisodeCount is the number of episodes (shows only).
	EpisodeCount int `json:"episode_count,omitempty"`

	// EpisodeRuntimes lists the distinct episode runtimes in minutes.
	EpisodeRuntimes []int `json:"episode_runtimes,omitempty"`

	// FirstAirDate is the first air date in YYYY-MM-DD form (shows only).
	FirstAirDate string `json:"first_air_date,omitempty"`

	// LastAirDate is the most recent air date (shows only).
	LastAirDate string `json:"last_air_date,omitempty"`

	// InProduction reports whether the show is still producing episodes.
	InProduction bool `json:"in_production,omitempty"`

	// ObscurityScore is the derived obscurity measure in [0, 1].
	ObscurityScore float64 `json:"obscurity_score,omitempty"`

	// MainstreamScore is the derived mainstream measure in [0, 1].
	MainstreamScore float64 `json:"mainstream_score,omitempty"`

	// FreshnessScore is the derived recency measure in [0, 1].
	FreshnessScore float64 `json:"freshness_score,omitempty"`

	// Active controls retrieval visibility.
	Active bool `json:"active"`

	// UpdatedAt is the last ingestion touch.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Key returns the external identity pair used for deduplication across
// retrieval sources.
func (c *Candidate) Key() CandidateKey {
	return CandidateKey{TMDBID: c.TMDBID, MediaType: c.MediaType}
}

// HasGenre reports whether the candidate carries the genre,
// case-insensitively.
func (c *Candidate) HasGenre(genre string) bool {
	for _, g := range c.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// IsShow reports whether the candidate is an episodic series.
func (c *Candidate) IsShow() bool {
	return c.MediaType == MediaTypeShow
}

// CandidateKey is the (tmdb_id, media_type) identity pair.
type CandidateKey struct {
	TMDBID    int64     `json:"tmdb_id"`
	MediaType MediaType `json:"media_type"`
}

// ItemLLMProfile holds LLM-generated enrichment for a candidate: tag sets
// consumed by the lexical index and a short synopsis reused by the judge
// and pairwise prompts when catalog fields are missing.
type ItemLLMProfile struct {
	// CandidateID is the enriched candidate.
	CandidateID int64 `json:"candidate_id"`

	// MoodTags describe the emotional texture (cozy, tense, melancholic).
	MoodTags []string `json:"mood_tags,omitempty"`

	// ToneTags describe the narrative tone (dark, lighthearted, satirical).
	ToneTags []string `json:"tone_tags,omitempty"`

	// Themes lists the dominant themes (redemption, found family, heist).
	Themes []string `json:"themes,omitempty"`

	// Synopsis is a 2-3 sentence LLM synopsis.
	Synopsis string `json:"synopsis,omitempty"`

	// UpdatedAt is the enrichment time.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
