// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package models

import "testing"

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   MediaType
		wantOK bool
	}{
		{name: "movie", input: "movie", want: MediaTypeMovie, wantOK: true},
		{name: "movies plural", input: "movies", want: MediaTypeMovie, wantOK: true},
		{name: "film", input: "film", want: MediaTypeMovie, wantOK: true},
		{name: "show", input: "show", want: MediaTypeShow, wantOK: true},
		{name: "tv synonym", input: "tv", want: MediaTypeShow, wantOK: true},
		{name: "series synonym", input: "series", want: MediaTypeShow, wantOK: true},
		{name: "uppercase", input: "MOVIES", want: MediaTypeMovie, wantOK: true},
		{name: "whitespace", input: "  shows ", want: MediaTypeShow, wantOK: true},
		{name: "unknown", input: "podcast", want: "", wantOK: false},
		{name: "empty", input: "", want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMediaType(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseMediaType(%q) = (%q, %v), want (%q, %v)",
					tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCandidateHasGenre(t *testing.T) {
	c := &Candidate{Genres: []string{"Science Fiction", "Drama"}}

	tests := []struct {
		name  string
		genre string
		want  bool
	}{
		{name: "exact", genre: "Drama", want: true},
		{name: "case insensitive", genre: "science fiction", want: true},
		{name: "absent", genre: "Comedy", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.HasGenre(tt.genre); got != tt.want {
				t.Errorf("HasGenre(%q) = %v, want %v", tt.genre, got, tt.want)
			}
		})
	}
}

func TestCandidateKey(t *testing.T) {
	c := &Candidate{TMDBID: 603, MediaType: MediaTypeMovie}
	key := c.Key()
	if key.TMDBID != 603 || key.MediaType != MediaTypeMovie {
		t.Errorf("Key() = %+v, want {603 movie}", key)
	}
}
