// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package catalog

import (
	"strconv"

	tmdb "github.com/cyruzin/golang-tmdb"

	"github.com/tomtom215/curatus/internal/models"
)

// movieCandidate maps a movie details response onto a Candidate.
// Appended sub-resources are optional in the response, so each is
// nil-guarded before use.
func movieCandidate(md *tmdb.MovieDetails, region string) *models.Candidate {
	c := &models.Candidate{
		TMDBID:           md.ID,
		MediaType:        models.MediaTypeMovie,
		Title:            md.Title,
		OriginalTitle:    md.OriginalTitle,
		Year:             yearOf(md.ReleaseDate),
		Overview:         md.Overview,
		Tagline:          md.Tagline,
		RuntimeMinutes:   md.Runtime,
		Rating:           float64(md.VoteAverage),
		Votes:            int(md.VoteCount),
		Popularity:       float64(md.Popularity),
		OriginalLanguage: md.OriginalLanguage,
		ReleaseDate:      md.ReleaseDate,
		Status:           md.Status,
		Adult:            md.Adult,
		Homepage:         md.Homepage,
		Revenue:          md.Revenue,
		Budget:           md.Budget,
		PosterPath:       md.PosterPath,
		Active:           true,
	}

	for _, g := range md.Genres {
		c.Genres = append(c.Genres, g.Name)
	}
	for _, pc := range md.ProductionCompanies {
		c.ProductionCompanies = append(c.ProductionCompanies, pc.Name)
	}
	for _, pc := range md.ProductionCountries {
		c.ProductionCountries = append(c.ProductionCountries, pc.Name)
	}
	for _, sl := range md.SpokenLanguages {
		c.SpokenLanguages = append(c.SpokenLanguages, sl.Name)
	}

	if md.BelongsToCollection.ID != 0 {
		c.CollectionID = md.BelongsToCollection.ID
		c.CollectionName = md.BelongsToCollection.Name
	}

	if md.MovieCreditsAppend != nil && md.Credits.MovieCredits != nil {
		for i, cast := range md.Credits.Cast {
			if i == maxCastStored {
				break
			}
			c.Cast = append(c.Cast, cast.Name)
		}
		for _, crew := range md.Credits.Crew {
			switch {
			case crew.Job == "Director":
				c.Directors = append(c.Directors, crew.Name)
			case crew.Department == "Writing":
				c.Writers = append(c.Writers, crew.Name)
			}
		}
		c.Directors = dedupe(c.Directors)
		c.Writers = dedupe(c.Writers)
	}

	if md.MovieKeywordsAppend != nil && md.Keywords.MovieKeywords != nil {
		for _, kw := range md.Keywords.Keywords {
			c.Keywords = append(c.Keywords, kw.Name)
		}
	}

	if md.MovieReleaseDatesAppend != nil && md.ReleaseDates.MovieReleaseDatesResults != nil {
		c.Certification = movieCertification(md, region)
	}

	return c
}

// tvCandidate maps a TV details response onto a Candidate.
func tvCandidate(td *tmdb.TVDetails, region string) *models.Candidate {
	c := &models.Candidate{
		TMDBID:           td.ID,
		MediaType:        models.MediaTypeShow,
		Title:            td.Name,
		OriginalTitle:    td.OriginalName,
		Year:             yearOf(td.FirstAirDate),
		Overview:         td.Overview,
		Tagline:          td.Tagline,
		Rating:           float64(td.VoteAverage),
		Votes:            int(td.VoteCount),
		Popularity:       float64(td.Popularity),
		OriginalLanguage: td.OriginalLanguage,
		Status:           td.Status,
		Adult:            td.Adult,
		Homepage:         td.Homepage,
		PosterPath:       td.PosterPath,
		SeasonCount:      td.NumberOfSeasons,
		EpisodeCount:     td.NumberOfEpisodes,
		FirstAirDate:     td.FirstAirDate,
		LastAirDate:      td.LastAirDate,
		InProduction:     td.InProduction,
		Active:           true,
	}

	if len(td.EpisodeRunTime) > 0 {
		c.EpisodeRuntimes = append(c.EpisodeRuntimes, td.EpisodeRunTime...)
		c.RuntimeMinutes = td.EpisodeRunTime[0]
	}

	for _, g := range td.Genres {
		c.Genres = append(c.Genres, g.Name)
	}
	for _, cb := range td.CreatedBy {
		c.CreatedBy = append(c.CreatedBy, cb.Name)
	}
	for _, n := range td.Networks {
		c.Networks = append(c.Networks, n.Name)
	}
	for _, pc := range td.ProductionCompanies {
		c.ProductionCompanies = append(c.ProductionCompanies, pc.Name)
	}
	for _, pc := range td.ProductionCountries {
		c.ProductionCountries = append(c.ProductionCountries, pc.Name)
	}
	for _, sl := range td.SpokenLanguages {
		c.SpokenLanguages = append(c.SpokenLanguages, sl.Name)
	}

	if td.TVCreditsAppend != nil && td.Credits.TVCredits != nil {
		for i, cast := range td.Credits.Cast {
			if i == maxCastStored {
				break
			}
			c.Cast = append(c.Cast, cast.Name)
		}
		for _, crew := range td.Credits.Crew {
			switch {
			case crew.Job == "Director":
				c.Directors = append(c.Directors, crew.Name)
			case crew.Department == "Writing":
				c.Writers = append(c.Writers, crew.Name)
			}
		}
		c.Directors = dedupe(c.Directors)
		c.Writers = dedupe(c.Writers)
	}

	if td.TVKeywordsAppend != nil && td.Keywords.TVKeywords != nil {
		for _, kw := range td.Keywords.Results {
			c.Keywords = append(c.Keywords, kw.Name)
		}
	}

	if td.TVContentRatingsAppend != nil && td.ContentRatings.TVContentRatingsResults != nil {
		c.Certification = tvCertification(td, region)
	}

	return c
}

// movieCertification prefers the viewer region, then falls back to the
// first certification published anywhere.
func movieCertification(md *tmdb.MovieDetails, region string) string {
	var fallback string
	for _, r := range md.ReleaseDates.Results {
		for _, rd := range r.ReleaseDates {
			if rd.Certification == "" {
				continue
			}
			if r.Iso3166_1 == region {
				return rd.Certification
			}
			if fallback == "" {
				fallback = rd.Certification
			}
		}
	}
	return fallback
}

// tvCertification prefers the viewer region, then falls back to the
// first rating published anywhere.
func tvCertification(td *tmdb.TVDetails, region string) string {
	var fallback string
	for _, r := range td.ContentRatings.Results {
		if r.Rating == "" {
			continue
		}
		if r.Iso3166_1 == region {
			return r.Rating
		}
		if fallback == "" {
			fallback = r.Rating
		}
	}
	return fallback
}

// yearOf extracts the year from a YYYY-MM-DD date, 0 when absent or
// malformed.
func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil || y < 0 {
		return 0
	}
	return y
}

// dedupe drops duplicate and empty names, preserving order.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
