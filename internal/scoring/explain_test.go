// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package scoring

import (
	"testing"

	"github.com/tomtom215/curatus/internal/models"
)

func TestBuildMetaTopDrivers(t *testing.T) {
	w := weightsFor(models.ListTypeChat)
	s := models.Signals{
		TFIDFSim:   0.5, // 0.125
		RatingNorm: 0.9, // 0.09
		Novelty:    0.2, // 0.01
	}
	meta := buildMeta(s, w)
	if meta.DominantSimilarity != "tfidf" {
		t.Errorf("dominant = %q, want tfidf", meta.DominantSimilarity)
	}
	want := []string{"tfidf_sim", "rating_norm", "novelty"}
	if len(meta.TopDrivers) != len(want) {
		t.Fatalf("got %d drivers, want %d", len(meta.TopDrivers), len(want))
	}
	for i, name := range want {
		if meta.TopDrivers[i].Name != name {
			t.Errorf("driver[%d] = %q, want %q", i, meta.TopDrivers[i].Name, name)
		}
	}
}

func TestBuildMetaDominantSemantic(t *testing.T) {
	w := weightsFor(models.ListTypeChat)
	meta := buildMeta(models.Signals{SemanticSim: 0.8, TFIDFSim: 0.1}, w)
	if meta.DominantSimilarity != "semantic" {
		t.Errorf("dominant = %q, want semantic", meta.DominantSimilarity)
	}
	// Ties stay with the lexical channel.
	meta = buildMeta(models.Signals{SemanticSim: 0.4, TFIDFSim: 0.4}, w)
	if meta.DominantSimilarity != "tfidf" {
		t.Errorf("tied dominant = %q, want tfidf", meta.DominantSimilarity)
	}
}

func TestBuildMetaSkipsZeroContributions(t *testing.T) {
	w := weightsFor(models.ListTypeChat)
	meta := buildMeta(models.Signals{TFIDFSim: 0.5}, w)
	if len(meta.TopDrivers) != 1 {
		t.Fatalf("got %d drivers, want 1", len(meta.TopDrivers))
	}
	if meta.TopDrivers[0].Name != "tfidf_sim" {
		t.Errorf("driver = %q, want tfidf_sim", meta.TopDrivers[0].Name)
	}
}

func TestBuildMetaNegativeMagnitudeRanks(t *testing.T) {
	w := weightsFor(models.ListTypeChat)
	// Watched penalty: 0.09 * -0.5 = -0.045 outweighs novelty 0.05 * 0.2.
	s := models.Signals{WatchHistoryBonus: -0.5, Novelty: 0.2}
	meta := buildMeta(s, w)
	if meta.TopDrivers[0].Name != "watch_history_bonus" {
		t.Errorf("driver[0] = %q, want watch_history_bonus", meta.TopDrivers[0].Name)
	}
	if meta.TopDrivers[0].Contribution >= 0 {
		t.Errorf("contribution = %v, want negative", meta.TopDrivers[0].Contribution)
	}
}

func TestRenderExplanationPositiveDriversOnly(t *testing.T) {
	item := &models.ScoredItem{
		Meta: models.ExplanationMeta{TopDrivers: []models.ScoreDriver{
			{Name: "tfidf_sim", Contribution: 0.125},
			{Name: "watch_history_bonus", Contribution: -0.045},
			{Name: "rating_norm", Contribution: 0.09},
		}},
	}
	got := RenderExplanation(item)
	want := "Closely matches your prompt wording; carries a strong community rating."
	if got != want {
		t.Errorf("explanation = %q, want %q", got, want)
	}
}

func TestRenderExplanationJudgeReasons(t *testing.T) {
	item := &models.ScoredItem{
		Meta: models.ExplanationMeta{TopDrivers: []models.ScoreDriver{
			{Name: "genre_overlap", Contribution: 0.08},
		}},
		JudgeReasons: []string{"strong match for the requested tone.", "  "},
	}
	got := RenderExplanation(item)
	want := "Hits the requested genres; strong match for the requested tone."
	if got != want {
		t.Errorf("explanation = %q, want %q", got, want)
	}
}

func TestRenderExplanationWatchedNote(t *testing.T) {
	item := &models.ScoredItem{IsWatched: true}
	got := RenderExplanation(item)
	want := "Already in your watch history."
	if got != want {
		t.Errorf("explanation = %q, want %q", got, want)
	}
}

func TestRenderExplanationEmpty(t *testing.T) {
	if got := RenderExplanation(&models.ScoredItem{}); got != "" {
		t.Errorf("explanation = %q, want empty", got)
	}
}
