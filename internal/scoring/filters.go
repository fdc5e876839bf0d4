// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package scoring

import (
	"strings"

	"github.com/tomtom215/curatus/internal/models"
)

// matchesFilters reports whether the candidate satisfies every populated
// constraint. Unpopulated fields never reject.
func matchesFilters(c *models.Candidate, f *models.Filters) bool {
	if f == nil || f.Empty() {
		return true
	}
	if !f.MatchesMediaType(c.MediaType) {
		return false
	}
	if !matchesGenres(c, f.Genres, f.GenresMode) {
		return false
	}
	for _, g := range f.ExcludeGenres {
		if c.HasGenre(g) {
			return false
		}
	}
	if len(f.Actors) > 0 && !anyNeedleMatches(c.Cast, f.Actors) {
		return false
	}
	if len(f.Studios) > 0 && !anyNeedleMatches(c.ProductionCompanies, f.Studios) {
		return false
	}
	if len(f.Languages) > 0 && !languageListed(f.Languages, c.OriginalLanguage) {
		return false
	}
	if !matchesYears(c.Year, f) {
		return false
	}
	if f.Adult != nil && c.Adult != *f.Adult {
		return false
	}
	for _, nf := range f.Numeric {
		if !nf.Matches(numericValue(c, nf.Field)) {
			return false
		}
	}
	if len(f.Networks) > 0 && !anyNeedleMatches(c.Networks, f.Networks) {
		return false
	}
	if len(f.Creators) > 0 && !anyNeedleMatches(c.CreatedBy, f.Creators) {
		return false
	}
	if len(f.Directors) > 0 && !anyNeedleMatches(c.Directors, f.Directors) {
		return false
	}
	if len(f.Countries) > 0 && !anyNeedleMatches(c.ProductionCountries, f.Countries) {
		return false
	}
	if f.InProduction != nil && c.InProduction != *f.InProduction {
		return false
	}
	return true
}

func matchesGenres(c *models.Candidate, genres []string, mode models.GenresMode) bool {
	if len(genres) == 0 {
		return true
	}
	if mode == models.GenresModeAll {
		for _, g := range genres {
			if !c.HasGenre(g) {
				return false
			}
		}
		return true
	}
	for _, g := range genres {
		if c.HasGenre(g) {
			return true
		}
	}
	return false
}

// anyNeedleMatches reports whether at least one needle appears in the
// haystack as a case-insensitive substring.
func anyNeedleMatches(haystack, needles []string) bool {
	for _, n := range needles {
		if models.ContainsFold(haystack, n) {
			return true
		}
	}
	return false
}

func languageListed(languages []string, lang string) bool {
	for _, l := range languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// matchesYears passes when either the explicit year list or the range
// accepts the candidate. An unknown year fails any year constraint.
func matchesYears(year int, f *models.Filters) bool {
	if len(f.Years) == 0 && f.YearRange == nil {
		return true
	}
	if year == 0 {
		return false
	}
	for _, y := range f.Years {
		if y == year {
			return true
		}
	}
	return f.YearRange != nil && f.YearRange.Contains(year)
}

func numericValue(c *models.Candidate, field string) float64 {
	switch field {
	case models.NumericFieldRating:
		return c.Rating
	case models.NumericFieldVotes:
		return float64(c.Votes)
	case models.NumericFieldRevenue:
		return float64(c.Revenue)
	case models.NumericFieldBudget:
		return float64(c.Budget)
	case models.NumericFieldPopularity:
		return c.Popularity
	case models.NumericFieldSeasons:
		return float64(c.SeasonCount)
	case models.NumericFieldEpisodes:
		return float64(c.EpisodeCount)
	case models.NumericFieldRuntime:
		return float64(c.RuntimeMinutes)
	default:
		return 0
	}
}
