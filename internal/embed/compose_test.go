// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package embed

import (
	"strings"
	"testing"

	"github.com/tomtom215/curatus/internal/models"
)

func TestComposeCandidateTextMovie(t *testing.T) {
	c := &models.Candidate{
		MediaType:           models.MediaTypeMovie,
		Title:               "Heat",
		OriginalTitle:       "Heat",
		Overview:            "A crew of thieves and the detective hunting them.",
		Genres:              []string{"Crime", "Thriller"},
		Cast:                []string{"Al Pacino", "Robert De Niro"},
		Directors:           []string{"Michael Mann"},
		ProductionCompanies: []string{"Warner Bros."},
		Year:                1995,
		ReleaseDate:         "1995-12-15",
		RuntimeMinutes:      170,
		Status:              "Released",
		Rating:              8.3,
		Votes:               7000,
		OriginalLanguage:    "en",
	}
	got := ComposeCandidateText(c)

	order := []string{
		"Heat",
		"A crew of thieves",
		"movie",
		"Crime, Thriller",
		"Warner Bros.",
		"Al Pacino, Robert De Niro",
		"Michael Mann",
		"1995",
		"1995-12-15",
		"170 min",
		"Released",
		"rated 8.3",
		"7000 votes",
		"en",
	}
	pos := -1
	for _, part := range order {
		idx := strings.Index(got, part)
		if idx < 0 {
			t.Fatalf("composed text missing %q:\n%s", part, got)
		}
		if idx < pos {
			t.Fatalf("field %q out of order in:\n%s", part, got)
		}
		pos = idx
	}

	// Show-only renderings never appear for movies.
	for _, banned := range []string{"Currently in production", "Series completed", "season"} {
		if strings.Contains(got, banned) {
			t.Errorf("movie text contains %q:\n%s", banned, got)
		}
	}
}

func TestComposeCandidateTextShow(t *testing.T) {
	c := &models.Candidate{
		MediaType:       models.MediaTypeShow,
		Title:           "Severance",
		Networks:        []string{"Apple TV+"},
		SeasonCount:     2,
		EpisodeCount:    19,
		EpisodeRuntimes: []int{40, 50},
		FirstAirDate:    "2022-02-18",
		InProduction:    true,
	}
	got := ComposeCandidateText(c)

	for _, want := range []string{"Severance", "Apple TV+", "2 seasons", "19 episodes", "40, 50 min episodes", "2022-02-18", "Currently in production"} {
		if !strings.Contains(got, want) {
			t.Errorf("composed text missing %q:\n%s", want, got)
		}
	}

	c.InProduction = false
	if got := ComposeCandidateText(c); !strings.Contains(got, "Series completed") {
		t.Errorf("ended show missing completion marker:\n%s", got)
	}
}

func TestComposeCandidateTextSkipsEmpty(t *testing.T) {
	c := &models.Candidate{MediaType: models.MediaTypeMovie, Title: "Solo Field"}
	got := ComposeCandidateText(c)
	if got != "Solo Field. movie" {
		t.Errorf("got %q, want %q", got, "Solo Field. movie")
	}
	if strings.Contains(got, "..") {
		t.Errorf("empty fields leaked separators: %q", got)
	}
}

func TestPlural(t *testing.T) {
	if got := plural(1, "season"); got != "1 season" {
		t.Errorf("plural(1) = %q", got)
	}
	if got := plural(3, "vote"); got != "3 votes" {
		t.Errorf("plural(3) = %q", got)
	}
}
