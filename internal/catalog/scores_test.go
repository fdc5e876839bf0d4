// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"testing"

	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/models"
)

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestDeriveScoresUnknownTitle(t *testing.T) {
	c := &models.Candidate{MediaType: models.MediaTypeMovie, Title: "Nobody Saw This"}
	DeriveScores(c)

	if c.MainstreamScore != 0 {
		t.Errorf("MainstreamScore = %v, want 0 with no popularity or votes", c.MainstreamScore)
	}
	if c.ObscurityScore != 1 {
		t.Errorf("ObscurityScore = %v, want 1", c.ObscurityScore)
	}
	if c.FreshnessScore != 0 {
		t.Errorf("FreshnessScore = %v, want 0 with no year", c.FreshnessScore)
	}
}

func TestDeriveScoresMainstream(t *testing.T) {
	c := &models.Candidate{
		MediaType:  models.MediaTypeMovie,
		Title:      "Blockbuster",
		Year:       2025,
		Popularity: 450,
		Votes:      24999,
	}
	DeriveScores(c)

	// pop 450/500 = 0.9; votes log10(25000)/5; blend 0.6/0.4.
	wantVotes := math.Log10(25000) / 5
	want := 0.6*0.9 + 0.4*wantVotes
	if !closeTo(c.MainstreamScore, want) {
		t.Errorf("MainstreamScore = %v, want %v", c.MainstreamScore, want)
	}
	if !closeTo(c.ObscurityScore, 1-want) {
		t.Errorf("ObscurityScore = %v, want %v", c.ObscurityScore, 1-want)
	}
	if c.FreshnessScore != 1 {
		t.Errorf("FreshnessScore = %v, want 1 for %d", c.FreshnessScore, c.Year)
	}
}

func TestDeriveScoresComplement(t *testing.T) {
	c := &models.Candidate{MediaType: models.MediaTypeMovie, Title: "Mid", Popularity: 30, Votes: 800}
	DeriveScores(c)

	if sum := c.MainstreamScore + c.ObscurityScore; !closeTo(sum, 1) {
		t.Fatalf("mainstream + obscurity = %v, want 1", sum)
	}
	if c.MainstreamScore <= 0 || c.MainstreamScore >= 1 {
		t.Errorf("MainstreamScore = %v, want interior value", c.MainstreamScore)
	}
}

func TestFreshnessRamp(t *testing.T) {
	cases := []struct {
		year int
		want float64
	}{
		{1970, 0},
		{1950, 0},
		{2025, 1},
		{2030, 1},
		{1997, 27.0 / 55.0},
	}
	for _, tc := range cases {
		c := &models.Candidate{MediaType: models.MediaTypeMovie, Title: "Dated", Year: tc.year}
		DeriveScores(c)
		if !closeTo(c.FreshnessScore, tc.want) {
			t.Errorf("freshness(%d) = %v, want %v", tc.year, c.FreshnessScore, tc.want)
		}
	}
}

func TestFreshnessShowUsesLastAirDate(t *testing.T) {
	c := &models.Candidate{
		MediaType:   models.MediaTypeShow,
		Title:       "Long Runner",
		Year:        1999,
		LastAirDate: "2014-05-16",
	}
	DeriveScores(c)

	want := float64(2014-1970) / 55.0
	if !closeTo(c.FreshnessScore, want) {
		t.Fatalf("FreshnessScore = %v, want %v from last air year", c.FreshnessScore, want)
	}

	// Without a last air date the first air year drives the ramp.
	c.LastAirDate = ""
	DeriveScores(c)
	want = float64(1999-1970) / 55.0
	if !closeTo(c.FreshnessScore, want) {
		t.Fatalf("FreshnessScore = %v, want %v from year", c.FreshnessScore, want)
	}
}

func TestContentHash(t *testing.T) {
	c := &models.Candidate{
		TMDBID:    603,
		MediaType: models.MediaTypeMovie,
		Title:     "The Matrix",
		Year:      1999,
		Overview:  "A hacker learns the truth.",
		Genres:    []string{"Action"},
	}

	sum := sha256.Sum256([]byte(embed.ComposeCandidateText(c)))
	if got := ContentHash(c); got != hex.EncodeToString(sum[:]) {
		t.Fatalf("ContentHash = %q, want hash of composed text", got)
	}
	if ContentHash(c) != ContentHash(c) {
		t.Fatal("ContentHash not stable across calls")
	}

	before := ContentHash(c)
	c.Overview = "A hacker learns a different truth."
	if ContentHash(c) == before {
		t.Fatal("ContentHash unchanged after metadata edit")
	}
}
