// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package scoring

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/tomtom215/curatus/internal/models"
)

const maxTopDrivers = 3

// buildMeta summarizes one item's score composition: the winning
// similarity channel plus the highest-magnitude weighted contributions.
func buildMeta(s models.Signals, w blendWeights) models.ExplanationMeta {
	drivers := []models.ScoreDriver{
		{Name: "tfidf_sim", Value: s.TFIDFSim, Weight: w.TFIDF},
		{Name: "semantic_sim", Value: s.SemanticSim, Weight: w.Semantic},
		{Name: "genre_overlap", Value: s.GenreOverlap, Weight: w.Genre},
		{Name: "rating_norm", Value: s.RatingNorm, Weight: w.Rating},
		{Name: "novelty", Value: s.Novelty, Weight: w.Novelty},
		{Name: "phrase_bonus", Value: s.PhraseBonus, Weight: w.Phrase},
		{Name: "actor_studio_bonus", Value: s.ActorStudioBonus, Weight: w.ActorStudio},
		{Name: "recency_bonus", Value: s.RecencyBonus, Weight: w.Recency},
		{Name: "watch_history_bonus", Value: s.WatchHistoryBonus, Weight: w.WatchHistory},
		{Name: "tone_bonus", Value: s.ToneBonus, Weight: w.Tone},
		// The mood-time adjustment is added unweighted, so its driver
		// weight is one.
		{Name: "mood_time_bonus", Value: s.MoodTimeBonus, Weight: 1},
	}
	for i := range drivers {
		drivers[i].Contribution = drivers[i].Value * drivers[i].Weight
	}
	sort.SliceStable(drivers, func(i, j int) bool {
		return math.Abs(drivers[i].Contribution) > math.Abs(drivers[j].Contribution)
	})

	top := make([]models.ScoreDriver, 0, maxTopDrivers)
	for _, d := range drivers {
		if d.Contribution == 0 {
			continue
		}
		top = append(top, d)
		if len(top) == maxTopDrivers {
			break
		}
	}

	dominant := "tfidf"
	if w.Semantic*s.SemanticSim > w.TFIDF*s.TFIDFSim {
		dominant = "semantic"
	}
	return models.ExplanationMeta{DominantSimilarity: dominant, TopDrivers: top}
}

// driverPhrases maps signal names onto the reason fragments the
// renderer stitches together.
var driverPhrases = map[string]string{
	"tfidf_sim":           "closely matches your prompt wording",
	"semantic_sim":        "thematically close to what you asked for",
	"genre_overlap":       "hits the requested genres",
	"rating_norm":         "carries a strong community rating",
	"novelty":             "a lesser-known pick",
	"phrase_bonus":        "contains your quoted phrases",
	"actor_studio_bonus":  "features the people or studios you named",
	"recency_bonus":       "a recent release",
	"watch_history_bonus": "fits your recent viewing pattern",
	"tone_bonus":          "matches the tone you asked for",
	"mood_time_bonus":     "suits this time of day",
}

// RenderExplanation renders the item's reason string from its top
// drivers and any judge reasons. Only positive contributions read as
// reasons; a watched item gets an explicit note instead. Judge packages
// re-render after attaching their reasons.
func RenderExplanation(item *models.ScoredItem) string {
	var parts []string
	for _, d := range item.Meta.TopDrivers {
		if d.Contribution <= 0 {
			continue
		}
		if p, ok := driverPhrases[d.Name]; ok {
			parts = append(parts, p)
		}
	}
	for _, r := range item.JudgeReasons {
		if r = strings.TrimSpace(strings.TrimRight(r, ".")); r != "" {
			parts = append(parts, r)
		}
	}
	if item.IsWatched {
		parts = append(parts, "already in your watch history")
	}
	if len(parts) == 0 {
		return ""
	}

	out := []rune(strings.Join(parts, "; ") + ".")
	out[0] = unicode.ToUpper(out[0])
	return string(out)
}
