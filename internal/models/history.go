// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package models

import "time"

// WatchEvent is one viewing event in the append-only history log.
// Events are unique on (UserID, TraktID, WatchedAt); duplicate inserts
// are silently ignored.
type WatchEvent struct {
	// ID is the internal event identifier.
	ID int64 `json:"id"`

	// UserID is the viewer.
	UserID int64 `json:"user_id"`

	// CandidateID links to the catalog item when resolvable (0 otherwise).
	CandidateID int64 `json:"candidate_id,omitempty"`

	// TMDBID is the catalog identifier of the watched item.
	TMDBID int64 `json:"tmdb_id"`

	// TraktID is the watch-provider identifier.
	TraktID int64 `json:"trakt_id"`

	// MediaType is movie or show.
	MediaType MediaType `json:"media_type"`

	// WatchedAt is when the viewing finished.
	WatchedAt time.Time `json:"watched_at"`

	// Rating is the user rating 1..10 (0 = unrated).
	Rating int `json:"rating,omitempty"`

	// Plays is the play count for this item at sync time.
	Plays int `json:"plays,omitempty"`

	// Title is the item title denormalized for display.
	Title string `json:"title,omitempty"`

	// Year is the release year.
	Year int `json:"year,omitempty"`

	// Genres is the genre set at sync time.
	Genres []string `json:"genres,omitempty"`

	// Keywords is the keyword set at sync time.
	Keywords []string `json:"keywords,omitempty"`

	// Overview is the plot summary.
	Overview string `json:"overview,omitempty"`

	// PosterPath is the poster path.
	PosterPath string `json:"poster_path,omitempty"`

	// RuntimeMinutes is the runtime.
	RuntimeMinutes int `json:"runtime_minutes,omitempty"`

	// Language is the original language code.
	Language string `json:"language,omitempty"`
}

// WatchedStatus is the per-item watch summary used to enrich candidates.
type WatchedStatus struct {
	// WatchedAt is the most recent viewing.
	WatchedAt time.Time `json:"watched_at"`

	// Plays is the total play count.
	Plays int `json:"plays"`
}

// WatchStats aggregates a user's viewing history.
type WatchStats struct {
	// TotalEvents is the total watch event count.
	TotalEvents int `json:"total_events"`

	// UniqueItems is the distinct item count.
	UniqueItems int `json:"unique_items"`

	// MovieCount is the distinct movie count.
	MovieCount int `json:"movie_count"`

	// ShowCount is the distinct show count.
	ShowCount int `json:"show_count"`

	// FirstWatchedAt is the earliest event time.
	FirstWatchedAt time.Time `json:"first_watched_at,omitempty"`

	// LastWatchedAt is the latest event time.
	LastWatchedAt time.Time `json:"last_watched_at,omitempty"`

	// AvgRating is the mean of the user's explicit ratings (0 = none).
	AvgRating float64 `json:"avg_rating,omitempty"`
}

// GenreCount pairs a genre with its watch frequency.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// UserRating is one explicit thumb or star rating from the watch provider.
type UserRating struct {
	// TMDBID identifies the rated item.
	TMDBID int64 `json:"tmdb_id"`

	// MediaType is movie or show.
	MediaType MediaType `json:"media_type"`

	// Rating is the 1..10 rating.
	Rating int `json:"rating"`

	// RatedAt is when the rating was given.
	RatedAt time.Time `json:"rated_at,omitempty"`
}

// ThumbSignal converts a 1..10 rating to the scoring boost convention:
// ratings >= 7 count as thumbs up (+0.3), ratings <= 4 as thumbs down
// (-0.7), and the middle band is neutral.
func (r UserRating) ThumbSignal() float64 {
	switch {
	case r.Rating >= 7:
		return 0.3
	case r.Rating >= 1 && r.Rating <= 4:
		return -0.7
	default:
		return 0
	}
}
