// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

func testWatchEvent(userID, traktID int64, watchedAt time.Time) *models.WatchEvent {
	return &models.WatchEvent{
		UserID:    userID,
		TMDBID:    traktID + 1000,
		TraktID:   traktID,
		MediaType: models.MediaTypeMovie,
		WatchedAt: watchedAt,
		Plays:     1,
		Title:     "Watched Movie",
		Year:      2021,
		Genres:    []string{"Drama"},
	}
}

func TestInsertWatchEventsDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)

	batch := []*models.WatchEvent{
		testWatchEvent(7, 101, base),
		testWatchEvent(7, 102, base.Add(time.Hour)),
		testWatchEvent(7, 103, base.Add(2*time.Hour)),
	}
	inserted, err := db.InsertWatchEvents(ctx, batch)
	if err != nil {
		t.Fatalf("InsertWatchEvents() error = %v", err)
	}
	if inserted != 3 {
		t.Errorf("first insert = %d rows, want 3", inserted)
	}

	// Exact replay is a no-op.
	inserted, err = db.InsertWatchEvents(ctx, batch)
	if err != nil {
		t.Fatalf("InsertWatchEvents() replay error = %v", err)
	}
	if inserted != 0 {
		t.Errorf("replay insert = %d rows, want 0", inserted)
	}

	// Overlapping page counts only the genuinely new event.
	overlap := []*models.WatchEvent{
		testWatchEvent(7, 103, base.Add(2*time.Hour)),
		testWatchEvent(7, 104, base.Add(3*time.Hour)),
	}
	inserted, err = db.InsertWatchEvents(ctx, overlap)
	if err != nil {
		t.Fatalf("InsertWatchEvents() overlap error = %v", err)
	}
	if inserted != 1 {
		t.Errorf("overlap insert = %d rows, want 1", inserted)
	}

	// Same item rewatched at a different instant is a new event.
	rewatch := []*models.WatchEvent{testWatchEvent(7, 101, base.Add(48 * time.Hour))}
	inserted, err = db.InsertWatchEvents(ctx, rewatch)
	if err != nil {
		t.Fatalf("InsertWatchEvents() rewatch error = %v", err)
	}
	if inserted != 1 {
		t.Errorf("rewatch insert = %d rows, want 1", inserted)
	}
}

func TestInsertWatchEventsValidation(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.InsertWatchEvents(context.Background(), []*models.WatchEvent{
		{UserID: 1, TraktID: 0, WatchedAt: time.Now()},
	})
	if !recerr.IsKind(err, recerr.KindInput) {
		t.Errorf("InsertWatchEvents() error = %v, want KindInput", err)
	}
}

func TestRecentWatchEventsOrderAndWindow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var events []*models.WatchEvent
	for i := int64(0); i < 5; i++ {
		events = append(events, testWatchEvent(9, 200+i, base.AddDate(0, 0, int(i)*7)))
	}
	if _, err := db.InsertWatchEvents(ctx, events); err != nil {
		t.Fatalf("InsertWatchEvents() error = %v", err)
	}
	// Another user's history must not leak in.
	if _, err := db.InsertWatchEvents(ctx, []*models.WatchEvent{testWatchEvent(10, 999, base.AddDate(0, 0, 10))}); err != nil {
		t.Fatalf("InsertWatchEvents() error = %v", err)
	}

	got, err := db.RecentWatchEvents(ctx, 9, base.AddDate(0, 0, 8))
	if err != nil {
		t.Fatalf("RecentWatchEvents() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentWatchEvents() returned %d events, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].WatchedAt.After(got[i-1].WatchedAt) {
			t.Errorf("events not newest-first at index %d", i)
		}
	}
	if got[0].Genres[0] != "Drama" {
		t.Errorf("Genres = %v, want [Drama]", got[0].Genres)
	}

	between, err := db.WatchEventsBetween(ctx, 9, base, base.AddDate(0, 0, 14))
	if err != nil {
		t.Fatalf("WatchEventsBetween() error = %v", err)
	}
	if len(between) != 2 {
		t.Fatalf("WatchEventsBetween() returned %d events, want 2", len(between))
	}
	if !between[0].WatchedAt.Before(between[1].WatchedAt) {
		t.Error("WatchEventsBetween() not oldest-first")
	}
}

func TestWatchedStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 21, 0, 0, 0, time.UTC)

	// Two viewings of trakt 301 (tmdb 1301), one of 302.
	events := []*models.WatchEvent{
		testWatchEvent(3, 301, base),
		testWatchEvent(3, 301, base.AddDate(0, 0, 30)),
		testWatchEvent(3, 302, base.AddDate(0, 0, 5)),
	}
	if _, err := db.InsertWatchEvents(ctx, events); err != nil {
		t.Fatalf("InsertWatchEvents() error = %v", err)
	}

	keys := []models.CandidateKey{
		{TMDBID: 1301, MediaType: models.MediaTypeMovie},
		{TMDBID: 1302, MediaType: models.MediaTypeMovie},
		{TMDBID: 5555, MediaType: models.MediaTypeMovie}, // never watched
	}
	got, err := db.WatchedStatus(ctx, 3, keys)
	if err != nil {
		t.Fatalf("WatchedStatus() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("WatchedStatus() returned %d keys, want 2", len(got))
	}

	s301 := got[keys[0]]
	if !s301.WatchedAt.Equal(base.AddDate(0, 0, 30)) {
		t.Errorf("WatchedAt = %v, want most recent viewing", s301.WatchedAt)
	}
	if s301.Plays != 2 {
		t.Errorf("Plays = %d, want 2", s301.Plays)
	}
	if _, ok := got[keys[2]]; ok {
		t.Error("unwatched key present in WatchedStatus result")
	}
}

func TestUserWatchStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 19, 0, 0, 0, time.UTC)

	show := testWatchEvent(5, 401, base)
	show.MediaType = models.MediaTypeShow
	show.Rating = 9

	rated := testWatchEvent(5, 402, base.AddDate(0, 0, 1))
	rated.Rating = 7

	events := []*models.WatchEvent{
		show,
		rated,
		testWatchEvent(5, 403, base.AddDate(0, 0, 2)), // unrated
	}
	if _, err := db.InsertWatchEvents(ctx, events); err != nil {
		t.Fatalf("InsertWatchEvents() error = %v", err)
	}

	stats, err := db.UserWatchStats(ctx, 5)
	if err != nil {
		t.Fatalf("UserWatchStats() error = %v", err)
	}
	if stats.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", stats.TotalEvents)
	}
	if stats.UniqueItems != 3 {
		t.Errorf("UniqueItems = %d, want 3", stats.UniqueItems)
	}
	if stats.MovieCount != 2 || stats.ShowCount != 1 {
		t.Errorf("MovieCount/ShowCount = %d/%d, want 2/1", stats.MovieCount, stats.ShowCount)
	}
	if !stats.FirstWatchedAt.Equal(base) {
		t.Errorf("FirstWatchedAt = %v, want %v", stats.FirstWatchedAt, base)
	}
	if !stats.LastWatchedAt.Equal(base.AddDate(0, 0, 2)) {
		t.Errorf("LastWatchedAt = %v, want %v", stats.LastWatchedAt, base.AddDate(0, 0, 2))
	}
	// Mean of 9 and 7; the unrated event is excluded.
	if stats.AvgRating != 8 {
		t.Errorf("AvgRating = %v, want 8", stats.AvgRating)
	}
}

func TestUserWatchStatsEmpty(t *testing.T) {
	db := setupTestDB(t)

	stats, err := db.UserWatchStats(context.Background(), 404)
	if err != nil {
		t.Fatalf("UserWatchStats() error = %v", err)
	}
	if stats.TotalEvents != 0 || stats.AvgRating != 0 {
		t.Errorf("empty stats = %+v, want zeros", stats)
	}
	if !stats.FirstWatchedAt.IsZero() || !stats.LastWatchedAt.IsZero() {
		t.Errorf("empty stats carry timestamps: %+v", stats)
	}
}

func TestLastWatchedAt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	got, err := db.LastWatchedAt(ctx, 11)
	if err != nil {
		t.Fatalf("LastWatchedAt() error = %v", err)
	}
	if !got.IsZero() {
		t.Errorf("LastWatchedAt() on empty history = %v, want zero", got)
	}

	latest := time.Date(2026, 6, 1, 22, 0, 0, 0, time.UTC)
	events := []*models.WatchEvent{
		testWatchEvent(11, 501, latest.AddDate(0, 0, -3)),
		testWatchEvent(11, 502, latest),
	}
	if _, err := db.InsertWatchEvents(ctx, events); err != nil {
		t.Fatalf("InsertWatchEvents() error = %v", err)
	}

	got, err = db.LastWatchedAt(ctx, 11)
	if err != nil {
		t.Fatalf("LastWatchedAt() error = %v", err)
	}
	if !got.Equal(latest) {
		t.Errorf("LastWatchedAt() = %v, want %v", got, latest)
	}
}

func TestLinkWatchEvents(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// History arrives before the catalog row.
	event := testWatchEvent(2, 601, time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC))
	if _, err := db.InsertWatchEvents(ctx, []*models.WatchEvent{event}); err != nil {
		t.Fatalf("InsertWatchEvents() error = %v", err)
	}

	id, err := db.UpsertCandidate(ctx, testCandidate(1601, models.MediaTypeMovie, "Late Arrival"), "")
	if err != nil {
		t.Fatalf("UpsertCandidate() error = %v", err)
	}

	linked, err := db.LinkWatchEvents(ctx)
	if err != nil {
		t.Fatalf("LinkWatchEvents() error = %v", err)
	}
	if linked != 1 {
		t.Errorf("LinkWatchEvents() = %d, want 1", linked)
	}

	got, err := db.RecentWatchEvents(ctx, 2, time.Time{})
	if err != nil {
		t.Fatalf("RecentWatchEvents() error = %v", err)
	}
	if len(got) != 1 || got[0].CandidateID != id {
		t.Errorf("event candidate_id = %d, want %d", got[0].CandidateID, id)
	}

	// Second pass has nothing left to link.
	linked, err = db.LinkWatchEvents(ctx)
	if err != nil {
		t.Fatalf("LinkWatchEvents() second pass error = %v", err)
	}
	if linked != 0 {
		t.Errorf("second LinkWatchEvents() = %d, want 0", linked)
	}
}

func TestUnlinkedEventKeys(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 2, 21, 0, 0, 0, time.UTC)

	events := []*models.WatchEvent{
		testWatchEvent(3, 701, base),
		testWatchEvent(3, 702, base.Add(time.Hour)),
		testWatchEvent(4, 701, base.Add(2*time.Hour)), // same item, other user
	}
	if _, err := db.InsertWatchEvents(ctx, events); err != nil {
		t.Fatalf("InsertWatchEvents() error = %v", err)
	}

	keys, err := db.UnlinkedEventKeys(ctx, 10)
	if err != nil {
		t.Fatalf("UnlinkedEventKeys() error = %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("UnlinkedEventKeys() = %d keys, want 2 distinct", len(keys))
	}

	// Ingesting one item and linking removes it from the backlog.
	if _, err := db.UpsertCandidate(ctx, testCandidate(1701, models.MediaTypeMovie, "Backfilled"), ""); err != nil {
		t.Fatalf("UpsertCandidate() error = %v", err)
	}
	if _, err := db.LinkWatchEvents(ctx); err != nil {
		t.Fatalf("LinkWatchEvents() error = %v", err)
	}

	keys, err = db.UnlinkedEventKeys(ctx, 10)
	if err != nil {
		t.Fatalf("UnlinkedEventKeys() second call error = %v", err)
	}
	if len(keys) != 1 || keys[0].TMDBID != 1702 {
		t.Errorf("remaining backlog = %+v, want only tmdb 1702", keys)
	}
}

func TestUserRatingsRoundtrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	ratedAt := time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC)

	ratings := []models.UserRating{
		{TMDBID: 603, MediaType: models.MediaTypeMovie, Rating: 9, RatedAt: ratedAt},
		{TMDBID: 95396, MediaType: models.MediaTypeShow, Rating: 8, RatedAt: ratedAt},
	}
	if err := db.UpsertUserRatings(ctx, 6, ratings); err != nil {
		t.Fatalf("UpsertUserRatings() error = %v", err)
	}

	// Re-rating replaces the stored value.
	if err := db.UpsertUserRatings(ctx, 6, []models.UserRating{
		{TMDBID: 603, MediaType: models.MediaTypeMovie, Rating: 4, RatedAt: ratedAt.AddDate(0, 0, 1)},
	}); err != nil {
		t.Fatalf("UpsertUserRatings() re-rate error = %v", err)
	}

	got, err := db.UserRatings(ctx, 6)
	if err != nil {
		t.Fatalf("UserRatings() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("UserRatings() returned %d ratings, want 2", len(got))
	}
	movie := got[models.CandidateKey{TMDBID: 603, MediaType: models.MediaTypeMovie}]
	if movie.Rating != 4 {
		t.Errorf("re-rated value = %d, want 4", movie.Rating)
	}
	if movie.ThumbSignal() != -0.7 {
		t.Errorf("ThumbSignal() = %v, want -0.7", movie.ThumbSignal())
	}

	// Another user sees nothing.
	other, err := db.UserRatings(ctx, 7)
	if err != nil {
		t.Fatalf("UserRatings() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("other user sees %d ratings, want 0", len(other))
	}
}

func TestUpsertUserRatingsValidation(t *testing.T) {
	db := setupTestDB(t)

	err := db.UpsertUserRatings(context.Background(), 1, []models.UserRating{
		{TMDBID: 1, MediaType: models.MediaTypeMovie, Rating: 11},
	})
	if !recerr.IsKind(err, recerr.KindInput) {
		t.Errorf("UpsertUserRatings() error = %v, want KindInput", err)
	}
}
