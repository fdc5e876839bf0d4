// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package scoring

import (
	"strings"

	"github.com/tomtom215/curatus/internal/models"
)

const (
	// Release-year ramp for the recency signal.
	recencyRampStart = 1970
	recencyRampEnd   = 2025
	preRampPenalty   = -0.3

	watchedPenalty    = -0.5
	typeAffinityBonus = 0.1
	// typeAffinityShare is the recent-watch share of one media type
	// required before unwatched items of that type earn the bonus.
	typeAffinityShare = 0.6

	toneBonusFactor = 0.5
	moodTimeFactor  = 0.5
)

// lightTones are the prompt tones that reward well-rated comfort picks.
var lightTones = map[string]bool{
	"light":     true,
	"cozy":      true,
	"wholesome": true,
	"warm":      true,
}

func ratingNorm(rating float64) float64 {
	return clamp01(rating / 10)
}

// genreJaccard is the case-insensitive Jaccard overlap between the
// filter genres and the candidate genres. No filter genres means 0: the
// signal only speaks when genres were requested.
func genreJaccard(filterGenres, candidateGenres []string) float64 {
	if len(filterGenres) == 0 || len(candidateGenres) == 0 {
		return 0
	}
	want := make(map[string]bool, len(filterGenres))
	for _, g := range filterGenres {
		want[strings.ToLower(g)] = true
	}
	have := make(map[string]bool, len(candidateGenres))
	for _, g := range candidateGenres {
		have[strings.ToLower(g)] = true
	}
	both := 0
	for g := range want {
		if have[g] {
			both++
		}
	}
	union := len(want) + len(have) - both
	return float64(both) / float64(union)
}

// phraseBonus is the fraction of quoted prompt phrases appearing in the
// candidate text, case-insensitively.
func phraseBonus(phrases []string, text string) float64 {
	if len(phrases) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	found := 0
	for _, p := range phrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			found++
		}
	}
	return float64(found) / float64(len(phrases))
}

// actorStudioBonus is the fraction of requested actors and studios the
// candidate matches.
func actorStudioBonus(f *models.Filters, c *models.Candidate) float64 {
	requested := len(f.Actors) + len(f.Studios)
	if requested == 0 {
		return 0
	}
	matched := 0
	for _, a := range f.Actors {
		if models.ContainsFold(c.Cast, a) {
			matched++
		}
	}
	for _, s := range f.Studios {
		if models.ContainsFold(c.ProductionCompanies, s) {
			matched++
		}
	}
	return float64(matched) / float64(requested)
}

// recencyApplies gates the recency signal: dynamic lists always, chat
// only when the prompt set no year constraint.
func recencyApplies(listType models.ListType, f *models.Filters) bool {
	if listType.Dynamic() {
		return true
	}
	return listType == models.ListTypeChat && len(f.Years) == 0 && f.YearRange == nil
}

// recencyBonus ramps linearly from 0 at 1970 to 1 at 2025; older titles
// take a flat penalty and an unknown year stays neutral.
func recencyBonus(year int) float64 {
	if year == 0 {
		return 0
	}
	if year < recencyRampStart {
		return preRampPenalty
	}
	return clamp01(float64(year-recencyRampStart) / float64(recencyRampEnd-recencyRampStart))
}

// watchHistoryBonus penalizes already-watched items; unwatched items
// earn a small bonus when the user's recent watches lean at least 60%
// toward the candidate's media type.
func watchHistoryBonus(watched bool, mediaType models.MediaType, recentTypes []models.MediaType) float64 {
	if watched {
		return watchedPenalty
	}
	if len(recentTypes) == 0 {
		return 0
	}
	same := 0
	for _, t := range recentTypes {
		if t == mediaType {
			same++
		}
	}
	if float64(same)/float64(len(recentTypes)) >= typeAffinityShare {
		return typeAffinityBonus
	}
	return 0
}

// toneBonus rewards community rating when the prompt asked for a light
// tone: for cozy requests, quality reads as comfort.
func toneBonus(tones []string, ratingNorm float64) float64 {
	for _, t := range tones {
		if lightTones[strings.ToLower(t)] {
			return toneBonusFactor * ratingNorm
		}
	}
	return 0
}

// genreAdjustment shifts one genre set by delta during a time slot.
type genreAdjustment struct {
	genres []string
	delta  float64
}

// moodTimeSlot maps a local-hour window to genre adjustments. The night
// slot wraps midnight.
type moodTimeSlot struct {
	from, to    int // [from, to) in local hours
	adjustments []genreAdjustment
}

func (s moodTimeSlot) contains(hour int) bool {
	if s.from <= s.to {
		return hour >= s.from && hour < s.to
	}
	return hour >= s.from || hour < s.to
}

var moodTimeSlots = []moodTimeSlot{
	{from: 5, to: 12, adjustments: []genreAdjustment{
		{genres: []string{"Family", "Animation", "Comedy"}, delta: 0.2},
		{genres: []string{"Horror"}, delta: -0.2},
	}},
	{from: 12, to: 17, adjustments: []genreAdjustment{
		{genres: []string{"Adventure", "Action", "Comedy"}, delta: 0.1},
	}},
	{from: 17, to: 22, adjustments: []genreAdjustment{
		{genres: []string{"Drama", "Crime", "Mystery", "Thriller"}, delta: 0.2},
	}},
	{from: 22, to: 5, adjustments: []genreAdjustment{
		{genres: []string{"Horror", "Thriller", "Science Fiction", "Mystery"}, delta: 0.3},
		{genres: []string{"Family", "Animation"}, delta: -0.2},
	}},
}

// moodTimeBonus sums half of each matched adjustment for the local hour.
// Only dynamic lists call this.
func moodTimeBonus(c *models.Candidate, hour int) float64 {
	var bonus float64
	for _, slot := range moodTimeSlots {
		if !slot.contains(hour) {
			continue
		}
		for _, adj := range slot.adjustments {
			if hasAnyGenre(c, adj.genres) {
				bonus += moodTimeFactor * adj.delta
			}
		}
	}
	return bonus
}

func hasAnyGenre(c *models.Candidate, genres []string) bool {
	for _, g := range genres {
		if c.HasGenre(g) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
