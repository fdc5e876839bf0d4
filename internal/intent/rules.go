// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package intent

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/textproc"
)

const (
	defaultTargetSize = 30
	maxTargetSize     = 100

	minVariants = 3
	maxVariants = 5
)

// mustOnlyRe gates required genres. Only explicit "must be" / "only"
// phrasing makes a genre a hard requirement.
var mustOnlyRe = regexp.MustCompile(`\bmust be\b|\bonly\b`)

// negativeSpanRe blanks negation spans before vocabulary matching so
// "without horror" cannot feed the genre or mood lists. Spans cap at
// three words, mirroring the cue extractor.
var negativeSpanRe = regexp.MustCompile(`\b(?:without|avoid|not|no)\s+(?:[a-z'’-]+\s+){0,2}[a-z'’-]+`)

var (
	targetSizeNounRe = regexp.MustCompile(`\b(\d{1,3})\s+(?:movies?|films?|shows?|series|titles?|picks?|recommendations?|results?|options?)\b`)
	targetSizeTopRe  = regexp.MustCompile(`\b(?:top|list of|give me|show me)\s+(\d{1,3})\b`)
)

// actor and director triggers mirror the person extraction upstream;
// the nearest trigger before a name decides its role.
var (
	actorTriggers    = []string{"starring", "featuring", "stars", "played by"}
	directorTriggers = []string{"directed by", "a film by", "created by", "written by"}
)

// fromRules builds the deterministic intent from the parsed prompt.
// It always succeeds; absent information leaves zero values.
func fromRules(prompt string, res textproc.Result) *models.Intent {
	lower := strings.ToLower(prompt)
	// Vocabulary matching runs on the prompt with negation spans
	// blanked; constraint extraction keeps the full text.
	affirmed := negativeSpanRe.ReplaceAllString(lower, " ")
	in := &models.Intent{}

	in.NegativeCues, in.ExcludeGenres = splitGenreCues(res.NegativeCues)

	in.Genres = matchGenres(affirmed)
	if mustOnlyRe.MatchString(lower) {
		in.RequiredGenres = append([]string(nil), in.Genres...)
	}
	in.Moods = matchVocab(affirmed, moodVocab)
	in.Tones = matchVocab(affirmed, toneVocab)

	in.Actors, in.Directors = splitPeople(lower, res.People)
	in.Studios = append([]string(nil), res.Organizations...)

	in.RuntimeMin, in.RuntimeMax = runtimeBounds(res.Constraints.Numeric)
	in.Era = matchEra(lower)
	in.PopularityPref = matchPopularity(affirmed)
	in.Complexity = matchComplexity(affirmed)
	in.Pacing = matchPacing(affirmed)
	in.TargetSize = matchTargetSize(lower)

	in.Seeds = append([]string(nil), res.Seeds...)
	in.MediaType = res.MediaType
	if in.MediaType == "" {
		in.MediaType = impliedMediaType(lower)
	}
	in.Languages = matchLanguages(lower)
	in.YearFrom = res.Constraints.YearFrom
	in.YearTo = res.Constraints.YearTo

	in.QueryVariants = ruleQueryVariants(res, in)
	return in
}

// splitPeople assigns each extracted person to actors or directors by
// the nearest trigger phrase preceding the name. Names without a
// visible trigger default to actors.
func splitPeople(lower string, people []string) (actors, directors []string) {
	for _, person := range people {
		idx := strings.Index(lower, strings.ToLower(person))
		if idx < 0 {
			actors = append(actors, person)
			continue
		}
		before := lower[:idx]
		if lastTrigger(before, directorTriggers) > lastTrigger(before, actorTriggers) {
			directors = append(directors, person)
		} else {
			actors = append(actors, person)
		}
	}
	return actors, directors
}

func lastTrigger(before string, triggers []string) int {
	last := -1
	for _, t := range triggers {
		if idx := strings.LastIndex(before, t); idx > last {
			last = idx
		}
	}
	return last
}

// runtimeBounds lifts runtime comparators into the intent's minute
// bounds. Strict comparators tighten by one minute.
func runtimeBounds(filters []models.NumericFilter) (minMinutes, maxMinutes int) {
	for _, f := range filters {
		if f.Field != models.NumericFieldRuntime {
			continue
		}
		v := int(math.Round(f.Value))
		switch f.Op {
		case models.OpGTE:
			minMinutes = v
		case models.OpGT:
			minMinutes = v + 1
		case models.OpLTE:
			maxMinutes = v
		case models.OpLT:
			maxMinutes = v - 1
		}
	}
	if minMinutes < 0 {
		minMinutes = 0
	}
	if maxMinutes < 0 {
		maxMinutes = 0
	}
	return minMinutes, maxMinutes
}

// matchTargetSize reads an explicit list-size request. Values outside
// 1..100 are ignored.
func matchTargetSize(lower string) int {
	for _, re := range []*regexp.Regexp{targetSizeNounRe, targetSizeTopRe} {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > maxTargetSize {
			continue
		}
		return n
	}
	return 0
}

// splitGenreCues folds genre-shaped negative cues into genre
// exclusions; everything else stays a free-form cue.
func splitGenreCues(cues []string) (remaining, excludeGenres []string) {
	seen := make(map[string]bool)
	for _, cue := range cues {
		genres := matchGenres(cue)
		if len(genres) == 0 {
			remaining = append(remaining, cue)
			continue
		}
		for _, g := range genres {
			if !seen[g] {
				seen[g] = true
				excludeGenres = append(excludeGenres, g)
			}
		}
	}
	return remaining, excludeGenres
}

// ruleQueryVariants composes 3-5 retrieval rephrasings from the parse.
// The normalized prompt always leads; semantic variants follow, and
// generic fallbacks top the list up to the minimum.
func ruleQueryVariants(res textproc.Result, in *models.Intent) []string {
	if res.Normalized == "" {
		return nil
	}

	noun := mediaNoun(in.MediaType)
	var variants []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			variants = append(variants, s)
		}
	}

	add(res.Normalized)
	if len(in.Genres) > 0 {
		add(strings.ToLower(strings.Join(in.Genres, " ")) + " " + noun)
	}
	if len(in.Moods) > 0 {
		mood := strings.Join(in.Moods, " ")
		if len(in.Genres) > 0 {
			mood += " " + strings.ToLower(in.Genres[0])
		}
		add(mood + " " + noun)
	}
	if len(in.Seeds) > 0 {
		add("similar to " + strings.ToLower(in.Seeds[0]))
	}
	if in.Era != "" && len(in.Genres) > 0 {
		add(strings.ToLower(in.Genres[0]) + " " + noun + " from the " + in.Era)
	}

	variants = dedupeFold(variants)
	for _, fallback := range []string{"best " + res.Normalized, "top rated " + res.Normalized} {
		if len(variants) >= minVariants {
			break
		}
		variants = append(variants, fallback)
	}
	variants = dedupeFold(variants)
	if len(variants) > maxVariants {
		variants = variants[:maxVariants]
	}
	return variants
}

func mediaNoun(t models.MediaType) string {
	switch t {
	case models.MediaTypeMovie:
		return "movies"
	case models.MediaTypeShow:
		return "shows"
	default:
		return "movies and shows"
	}
}

func dedupeFold(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
