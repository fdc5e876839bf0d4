// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package embed

import (
	"strconv"
	"strings"

	"github.com/tomtom215/curatus/internal/models"
)

// ComposeCandidateText renders a candidate's metadata into the single
// string its base embedding is computed from. Field order is frozen:
// reordering or re-rendering any field changes every stored vector and
// forces a full index rebuild. Empty fields are skipped; the remainder
// is joined by ". ".
func ComposeCandidateText(c *models.Candidate) string {
	parts := make([]string, 0, 32)
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	addList := func(vs []string) { add(strings.Join(vs, ", ")) }

	add(c.Title)
	add(c.OriginalTitle)
	add(c.Overview)
	add(c.Tagline)
	add(string(c.MediaType))
	addList(c.Genres)
	addList(c.Keywords)
	addList(c.ProductionCompanies)
	addList(c.ProductionCountries)
	addList(c.SpokenLanguages)
	addList(c.Cast)
	addList(c.Directors)
	addList(c.Writers)
	addList(c.CreatedBy)
	if c.Year > 0 {
		add(strconv.Itoa(c.Year))
	}
	add(c.ReleaseDate)
	if c.RuntimeMinutes > 0 {
		add(strconv.Itoa(c.RuntimeMinutes) + " min")
	}
	add(c.Status)
	addList(c.Networks)
	if c.SeasonCount > 0 {
		add(plural(c.SeasonCount, "season"))
	}
	if c.EpisodeCount > 0 {
		add(plural(c.EpisodeCount, "episode"))
	}
	if len(c.EpisodeRuntimes) > 0 {
		add(joinInts(c.EpisodeRuntimes) + " min episodes")
	}
	add(c.FirstAirDate)
	add(c.LastAirDate)
	if c.IsShow() {
		if c.InProduction {
			add("Currently in production")
		} else {
			add("Series completed")
		}
	}
	if c.Popularity > 0 {
		add("popularity " + strconv.FormatFloat(c.Popularity, 'f', 1, 64))
	}
	if c.Rating > 0 {
		add("rated " + strconv.FormatFloat(c.Rating, 'f', 1, 64))
	}
	if c.Votes > 0 {
		add(plural(c.Votes, "vote"))
	}
	if c.Revenue > 0 {
		add("revenue " + strconv.FormatInt(c.Revenue, 10))
	}
	if c.Budget > 0 {
		add("budget " + strconv.FormatInt(c.Budget, 10))
	}
	add(c.OriginalLanguage)
	add(c.Homepage)

	return strings.Join(parts, ". ")
}

// ComposeAspectTexts renders the labeled texts behind a candidate's
// multi-vector entries. The base aspect is always present and equals
// ComposeCandidateText; the narrower aspects appear only when their
// source fields hold data.
func ComposeAspectTexts(c *models.Candidate) map[models.VectorLabel]string {
	out := make(map[models.VectorLabel]string, len(models.VectorLabels))
	out[models.LabelBase] = ComposeCandidateText(c)

	if t := joinNonEmpty(". ", c.Title, c.OriginalTitle, c.Tagline); t != "" {
		out[models.LabelTitle] = t
	}
	if t := joinNonEmpty(", ", append(append([]string{}, c.Genres...), c.Keywords...)...); t != "" {
		out[models.LabelKeywords] = t
	}
	people := make([]string, 0, len(c.Cast)+len(c.Directors)+len(c.Writers)+len(c.CreatedBy))
	people = append(people, c.Cast...)
	people = append(people, c.Directors...)
	people = append(people, c.Writers...)
	people = append(people, c.CreatedBy...)
	if t := joinNonEmpty(", ", people...); t != "" {
		out[models.LabelPeople] = t
	}
	if t := joinNonEmpty(", ", append(append([]string{}, c.ProductionCompanies...), c.Networks...)...); t != "" {
		out[models.LabelBrands] = t
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func plural(n int, noun string) string {
	s := strconv.Itoa(n) + " " + noun
	if n != 1 {
		s += "s"
	}
	return s
}

func joinInts(ns []int) string {
	ss := make([]string, len(ns))
	for i, n := range ns {
		ss[i] = strconv.Itoa(n)
	}
	return strings.Join(ss, ", ")
}
