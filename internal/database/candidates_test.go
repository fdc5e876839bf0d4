// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package database

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

func TestUpsertCandidateKeepsStableID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := testCandidate(603, models.MediaTypeMovie, "The Matrix")
	id1, err := db.UpsertCandidate(ctx, c, "hash-v1")
	if err != nil {
		t.Fatalf("UpsertCandidate() error = %v", err)
	}
	if id1 == 0 {
		t.Fatal("UpsertCandidate() returned id 0")
	}

	// Refresh with changed metadata keeps the id.
	c2 := testCandidate(603, models.MediaTypeMovie, "The Matrix")
	c2.Overview = "A hacker discovers reality is a simulation."
	c2.Popularity = 88.5
	id2, err := db.UpsertCandidate(ctx, c2, "hash-v2")
	if err != nil {
		t.Fatalf("UpsertCandidate() refresh error = %v", err)
	}
	if id2 != id1 {
		t.Errorf("refresh changed id: got %d, want %d", id2, id1)
	}

	total, _, err := db.CountCandidates(ctx)
	if err != nil {
		t.Fatalf("CountCandidates() error = %v", err)
	}
	if total != 1 {
		t.Errorf("candidate count = %d, want 1", total)
	}

	got, err := db.GetCandidate(ctx, id1)
	if err != nil {
		t.Fatalf("GetCandidate() error = %v", err)
	}
	if got.Overview != c2.Overview {
		t.Errorf("Overview = %q, want %q", got.Overview, c2.Overview)
	}
	if got.Popularity != 88.5 {
		t.Errorf("Popularity = %v, want 88.5", got.Popularity)
	}
}

func TestUpsertCandidateSameTMDBIDDifferentMediaType(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	movieID, err := db.UpsertCandidate(ctx, testCandidate(42, models.MediaTypeMovie, "Fargo"), "h1")
	if err != nil {
		t.Fatalf("UpsertCandidate(movie) error = %v", err)
	}
	showID, err := db.UpsertCandidate(ctx, testCandidate(42, models.MediaTypeShow, "Fargo"), "h2")
	if err != nil {
		t.Fatalf("UpsertCandidate(show) error = %v", err)
	}
	if movieID == showID {
		t.Error("movie and show with the same tmdb_id share an internal id")
	}
}

func TestUpsertCandidateValidation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		candidate *models.Candidate
	}{
		{"missing tmdb_id", &models.Candidate{MediaType: models.MediaTypeMovie, Title: "X"}},
		{"missing title", &models.Candidate{TMDBID: 1, MediaType: models.MediaTypeMovie}},
		{"bad media type", &models.Candidate{TMDBID: 1, MediaType: "episode", Title: "X"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.UpsertCandidate(ctx, tt.candidate, "")
			if !recerr.IsKind(err, recerr.KindInput) {
				t.Errorf("UpsertCandidate() error = %v, want KindInput", err)
			}
		})
	}
}

func TestGetCandidateRoundtrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	want := &models.Candidate{
		TMDBID:              95396,
		TraktID:             158415,
		MediaType:           models.MediaTypeShow,
		Title:               "Severance",
		OriginalTitle:       "Severance",
		Year:                2022,
		Overview:            "Employees undergo a procedure separating work and personal memories.",
		Tagline:             "Split decisions.",
		Genres:              []string{"Drama", "Mystery", "Sci-Fi & Fantasy"},
		Keywords:            []string{"workplace", "memory", "corporation"},
		Cast:                []string{"Adam Scott", "Britt Lower", "Zach Cherry"},
		Directors:           []string{"Ben Stiller"},
		Writers:             []string{"Dan Erickson"},
		CreatedBy:           []string{"Dan Erickson"},
		ProductionCompanies: []string{"Red Hour Productions"},
		Networks:            []string{"Apple TV+"},
		ProductionCountries: []string{"United States of America"},
		SpokenLanguages:     []string{"English"},
		RuntimeMinutes:      45,
		Rating:              8.4,
		Votes:               1800,
		Popularity:          120.3,
		OriginalLanguage:    "en",
		Status:              "Returning Series",
		Homepage:            "https://tv.apple.com/show/severance",
		Certification:       "TV-MA",
		PosterPath:          "/lFf6LLrQjYldcZItzOkGmMMigP7.jpg",
		SeasonCount:         2,
		EpisodeCount:        19,
		EpisodeRuntimes:     []int{40, 50},
		FirstAirDate:        "2022-02-17",
		LastAirDate:         "2025-03-20",
		InProduction:        true,
		ObscurityScore:      0.15,
		MainstreamScore:     0.85,
		FreshnessScore:      0.9,
		Active:              true,
		UpdatedAt:           time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
	}

	id, err := db.UpsertCandidate(ctx, want, "sev-hash")
	if err != nil {
		t.Fatalf("UpsertCandidate() error = %v", err)
	}

	got, err := db.GetCandidate(ctx, id)
	if err != nil {
		t.Fatalf("GetCandidate() error = %v", err)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
	// Normalize fields that legitimately differ on the way back.
	got.UpdatedAt = want.UpdatedAt
	want.ID = id
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetCandidate() = %+v, want %+v", got, want)
	}

	byKey, err := db.GetCandidateByKey(ctx, 95396, models.MediaTypeShow)
	if err != nil {
		t.Fatalf("GetCandidateByKey() error = %v", err)
	}
	if byKey.ID != id {
		t.Errorf("GetCandidateByKey() id = %d, want %d", byKey.ID, id)
	}
}

func TestGetCandidateNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetCandidate(context.Background(), 99999)
	if !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("GetCandidate() error = %v, want KindNotFound", err)
	}

	_, err = db.GetCandidateByKey(context.Background(), 99999, models.MediaTypeMovie)
	if !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("GetCandidateByKey() error = %v, want KindNotFound", err)
	}
}

func TestGetCandidatesByIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var ids []int64
	for i := int64(1); i <= 5; i++ {
		id, err := db.UpsertCandidate(ctx, testCandidate(i, models.MediaTypeMovie, "Movie"), "")
		if err != nil {
			t.Fatalf("UpsertCandidate(%d) error = %v", i, err)
		}
		ids = append(ids, id)
	}

	got, err := db.GetCandidatesByIDs(ctx, []int64{ids[0], ids[2], 424242})
	if err != nil {
		t.Fatalf("GetCandidatesByIDs() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetCandidatesByIDs() returned %d rows, want 2", len(got))
	}
	for _, id := range []int64{ids[0], ids[2]} {
		if _, ok := got[id]; !ok {
			t.Errorf("GetCandidatesByIDs() missing id %d", id)
		}
	}

	empty, err := db.GetCandidatesByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("GetCandidatesByIDs(nil) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("GetCandidatesByIDs(nil) returned %d rows, want 0", len(empty))
	}
}

func TestListActiveCandidatesPagination(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := int64(1); i <= 7; i++ {
		c := testCandidate(i, models.MediaTypeMovie, "Movie")
		c.Active = i != 4 // one inactive row in the middle
		if _, err := db.UpsertCandidate(ctx, c, ""); err != nil {
			t.Fatalf("UpsertCandidate(%d) error = %v", i, err)
		}
	}

	var (
		seen    []int64
		afterID int64
	)
	for {
		page, err := db.ListActiveCandidates(ctx, afterID, 3)
		if err != nil {
			t.Fatalf("ListActiveCandidates() error = %v", err)
		}
		if len(page) == 0 {
			break
		}
		for _, c := range page {
			if !c.Active {
				t.Errorf("ListActiveCandidates() returned inactive candidate %d", c.ID)
			}
			if c.ID <= afterID {
				t.Errorf("page not in id order: %d after %d", c.ID, afterID)
			}
			seen = append(seen, c.ID)
			afterID = c.ID
		}
	}
	if len(seen) != 6 {
		t.Errorf("scanned %d active candidates, want 6", len(seen))
	}

	if _, err := db.ListActiveCandidates(ctx, 0, 0); !recerr.IsKind(err, recerr.KindInput) {
		t.Errorf("ListActiveCandidates(limit=0) error kind = %v, want KindInput", recerr.KindOf(err))
	}
}

func TestContentHashes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	id1, err := db.UpsertCandidate(ctx, testCandidate(1, models.MediaTypeMovie, "A"), "hash-a")
	if err != nil {
		t.Fatalf("UpsertCandidate() error = %v", err)
	}
	id2, err := db.UpsertCandidate(ctx, testCandidate(2, models.MediaTypeMovie, "B"), "hash-b")
	if err != nil {
		t.Fatalf("UpsertCandidate() error = %v", err)
	}

	inactive := testCandidate(3, models.MediaTypeMovie, "C")
	inactive.Active = false
	if _, err := db.UpsertCandidate(ctx, inactive, "hash-c"); err != nil {
		t.Fatalf("UpsertCandidate() error = %v", err)
	}

	got, err := db.ContentHashes(ctx)
	if err != nil {
		t.Fatalf("ContentHashes() error = %v", err)
	}
	want := map[int64]string{id1: "hash-a", id2: "hash-b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ContentHashes() = %v, want %v", got, want)
	}
}

func TestSetCandidateActive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.UpsertCandidate(ctx, testCandidate(1, models.MediaTypeMovie, "A"), "")
	if err != nil {
		t.Fatalf("UpsertCandidate() error = %v", err)
	}

	if err := db.SetCandidateActive(ctx, id, false); err != nil {
		t.Fatalf("SetCandidateActive() error = %v", err)
	}
	got, err := db.GetCandidate(ctx, id)
	if err != nil {
		t.Fatalf("GetCandidate() error = %v", err)
	}
	if got.Active {
		t.Error("candidate still active after SetCandidateActive(false)")
	}

	if err := db.SetCandidateActive(ctx, 424242, true); !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("SetCandidateActive(unknown) error = %v, want KindNotFound", err)
	}
}
