// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package watchprov

import (
	"time"

	"github.com/tomtom215/curatus/internal/models"
)

// IDs is the provider's identifier bundle on every item.
type IDs struct {
	Trakt int64  `json:"trakt"`
	TMDB  int64  `json:"tmdb"`
	IMDB  string `json:"imdb,omitempty"`
	Slug  string `json:"slug,omitempty"`
}

// ItemRef is the movie-or-show payload nested in provider responses.
type ItemRef struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

// WatchedItem is one entry of the watched summary.
type WatchedItem struct {
	Plays         int       `json:"plays"`
	LastWatchedAt time.Time `json:"last_watched_at"`
	Movie         *ItemRef  `json:"movie,omitempty"`
	Show          *ItemRef  `json:"show,omitempty"`
}

// HistoryItem is one entry of the paged viewing history.
type HistoryItem struct {
	ID        int64     `json:"id"`
	WatchedAt time.Time `json:"watched_at"`
	Action    string    `json:"action,omitempty"`
	Type      string    `json:"type"`
	Movie     *ItemRef  `json:"movie,omitempty"`
	Show      *ItemRef  `json:"show,omitempty"`
}

// RatingItem is one explicit rating.
type RatingItem struct {
	Rating  int       `json:"rating"`
	RatedAt time.Time `json:"rated_at"`
	Type    string    `json:"type"`
	Movie   *ItemRef  `json:"movie,omitempty"`
	Show    *ItemRef  `json:"show,omitempty"`
}

// ref returns whichever item payload is present and its media type.
func ref(movie, show *ItemRef) (*ItemRef, models.MediaType) {
	if movie != nil {
		return movie, models.MediaTypeMovie
	}
	if show != nil {
		return show, models.MediaTypeShow
	}
	return nil, ""
}

// Event converts a history entry to a watch event for the given user.
// Entries without an item payload yield nil.
func (h HistoryItem) Event(userID int64) *models.WatchEvent {
	r, mediaType := ref(h.Movie, h.Show)
	if r == nil {
		return nil
	}
	return &models.WatchEvent{
		UserID:    userID,
		TMDBID:    r.IDs.TMDB,
		TraktID:   r.IDs.Trakt,
		MediaType: mediaType,
		WatchedAt: h.WatchedAt.UTC(),
		Title:     r.Title,
		Year:      r.Year,
	}
}

// ToRating converts a rating entry to the storage shape. Entries
// without an item payload yield a zero value and false.
func (r RatingItem) ToRating() (models.UserRating, bool) {
	item, mediaType := ref(r.Movie, r.Show)
	if item == nil {
		return models.UserRating{}, false
	}
	return models.UserRating{
		TMDBID:    item.IDs.TMDB,
		MediaType: mediaType,
		Rating:    r.Rating,
		RatedAt:   r.RatedAt.UTC(),
	}, true
}

// List is a provider-side user list.
type List struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Privacy     string `json:"privacy,omitempty"`
	IDs         IDs    `json:"ids"`
	ItemCount   int    `json:"item_count,omitempty"`
}

// ListItem is one entry of a provider-side list.
type ListItem struct {
	Rank  int      `json:"rank,omitempty"`
	Type  string   `json:"type"`
	Movie *ItemRef `json:"movie,omitempty"`
	Show  *ItemRef `json:"show,omitempty"`
}

// Key returns the catalog key of the list entry, ok = false when the
// payload is missing.
func (li ListItem) Key() (models.CandidateKey, bool) {
	r, mediaType := ref(li.Movie, li.Show)
	if r == nil {
		return models.CandidateKey{}, false
	}
	return models.CandidateKey{TMDBID: r.IDs.TMDB, MediaType: mediaType}, true
}
