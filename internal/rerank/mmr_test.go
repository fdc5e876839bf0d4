// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package rerank

import (
	"testing"

	"github.com/tomtom215/curatus/internal/models"
)

func item(id int64, score float64, genres ...string) models.ScoredItem {
	return models.ScoredItem{
		Candidate: &models.Candidate{TMDBID: id, MediaType: models.MediaTypeMovie, Genres: genres},
		Score:     score,
	}
}

func TestNewMMRClampsLambda(t *testing.T) {
	tests := []struct {
		name   string
		lambda float64
		want   float64
	}{
		{"normal value", 0.7, 0.7},
		{"zero value", 0.0, 0.0},
		{"one value", 1.0, 1.0},
		{"negative clamped to zero", -0.5, 0.0},
		{"above one clamped to one", 1.5, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if m := NewMMR(tt.lambda); m.lambda != tt.want {
				t.Errorf("lambda = %v, want %v", m.lambda, tt.want)
			}
		})
	}
}

func TestRerankPureRelevance(t *testing.T) {
	items := []models.ScoredItem{
		item(1, 1.0, "Action"),
		item(2, 0.9, "Action"),
		item(3, 0.8, "Action"),
		item(4, 0.7, "Comedy"),
	}
	got := NewMMR(1.0).Rerank(items, nil, 3)
	if len(got) != 3 {
		t.Fatalf("got %d items, want 3", len(got))
	}
	for i, want := range []int64{1, 2, 3} {
		if got[i].Candidate.TMDBID != want {
			t.Errorf("item[%d] = %d, want %d", i, got[i].Candidate.TMDBID, want)
		}
	}
}

func TestRerankPromotesGenreDiversity(t *testing.T) {
	items := []models.ScoredItem{
		item(1, 1.0, "Action"),
		item(2, 0.95, "Action"),
		item(3, 0.9, "Action"),
		item(4, 0.5, "Comedy"),
		item(5, 0.4, "Drama"),
	}
	got := NewMMR(0.3).Rerank(items, nil, 3)

	genres := map[string]bool{}
	for _, it := range got {
		for _, g := range it.Candidate.Genres {
			genres[g] = true
		}
	}
	if len(genres) < 2 {
		t.Errorf("expected genre diversity in top 3, saw only %v", genres)
	}
	if got[0].Candidate.TMDBID != 1 {
		t.Errorf("first pick = %d, want the top-scored item", got[0].Candidate.TMDBID)
	}
}

func TestRerankByEmbeddingVectors(t *testing.T) {
	items := []models.ScoredItem{
		item(1, 1.0, "Action"),
		item(2, 0.95, "Action"),
		item(3, 0.6, "Action"),
	}
	vecs := []models.Vector{
		{1, 0},
		{1, 0},
		{0, 1},
	}
	got := NewMMR(0.5).Rerank(items, vecs, 3)

	// The near-duplicate second item pays a full similarity penalty, so
	// the orthogonal third item jumps ahead of it.
	want := []int64{1, 3, 2}
	for i, id := range want {
		if got[i].Candidate.TMDBID != id {
			t.Errorf("item[%d] = %d, want %d", i, got[i].Candidate.TMDBID, id)
		}
	}
}

func TestRerankMixedVectorFallback(t *testing.T) {
	items := []models.ScoredItem{
		item(1, 1.0, "Action"),
		item(2, 0.95, "Action"),
		item(3, 0.6, "Drama"),
	}
	// The second vector is missing, so pairs touching it use genres.
	vecs := []models.Vector{{1, 0}, nil, {0, 1}}
	got := NewMMR(0.5).Rerank(items, vecs, 3)

	want := []int64{1, 3, 2}
	for i, id := range want {
		if got[i].Candidate.TMDBID != id {
			t.Errorf("item[%d] = %d, want %d", i, got[i].Candidate.TMDBID, id)
		}
	}
}

func TestRerankBounds(t *testing.T) {
	items := []models.ScoredItem{
		item(1, 1.0, "Action"),
		item(2, 0.9, "Comedy"),
	}
	m := NewMMR(0.7)

	if got := m.Rerank(items, nil, 10); len(got) != 2 {
		t.Errorf("k > len: got %d items, want 2", len(got))
	}
	if got := m.Rerank(items, nil, 0); len(got) != 2 {
		t.Errorf("k = 0: got %d items, want input unchanged", len(got))
	}
	if got := m.Rerank(nil, nil, 5); len(got) != 0 {
		t.Errorf("empty input: got %d items, want 0", len(got))
	}
	if got := m.Rerank(items[:1], nil, 5); len(got) != 1 || got[0].Candidate.TMDBID != 1 {
		t.Errorf("single item: got %v", got)
	}
}

func TestGenreSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
	}{
		{"identical", []string{"Action", "Sci-Fi"}, []string{"Action", "Sci-Fi"}, 1.0},
		{"no overlap", []string{"Action"}, []string{"Comedy"}, 0.0},
		{"partial overlap", []string{"Action", "Sci-Fi"}, []string{"Action", "Drama"}, 1.0 / 3.0},
		{"both empty", nil, nil, 0.0},
		{"one empty", []string{"Action"}, nil, 0.0},
		{"case insensitive", []string{"ACTION"}, []string{"action"}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := genreSimilarity(tt.a, tt.b)
			if got < tt.want-1e-9 || got > tt.want+1e-9 {
				t.Errorf("genreSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
