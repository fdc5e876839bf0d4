// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package textproc

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tomtom215/curatus/internal/models"
)

var (
	decadeFullRe  = regexp.MustCompile(`\b(19\d0|20\d0)s\b`)
	decadeShortRe = regexp.MustCompile(`\b(\d0)s\b`)
	betweenRe     = regexp.MustCompile(`\bbetween\s+(\d{4})\s+and\s+(\d{4})\b`)
	fromToRe      = regexp.MustCompile(`\bfrom\s+(\d{4})\s+(?:to|until|through)\s+(\d{4})\b`)
	afterRe       = regexp.MustCompile(`\b(?:after|later than)\s+(\d{4})\b`)
	sinceRe       = regexp.MustCompile(`\b(?:since|from)\s+(\d{4})\b`)
	beforeRe      = regexp.MustCompile(`\b(?:before|earlier than)\s+(\d{4})\b`)
	untilRe       = regexp.MustCompile(`\b(?:until|up to)\s+(\d{4})\b`)
	exactYearRe   = regexp.MustCompile(`\b(?:in|released in)\s+(\d{4})\b`)

	comparatorRe = regexp.MustCompile(`\b(rating|votes?|runtime|popularity|revenue|budget|seasons?|episodes?)\s*(>=|<=|==?|>|<)\s*(\d+(?:\.\d+)?)`)
	verbalRe     = regexp.MustCompile(`\b(rating|votes?|popularity|revenue|budget|seasons?|episodes?)\s+(?:of\s+)?(at least|at most|over|above|under|below|more than|less than)\s+(\d+(?:\.\d+)?)`)
	invertedRe   = regexp.MustCompile(`\b(at least|at most|over|above|under|below|more than|less than|fewer than)\s+(\d+(?:\.\d+)?)\s+(votes?|seasons?|episodes?)`)
	ratedRe      = regexp.MustCompile(`\brated\s+(at least|at most|over|above|under|below)\s+(\d+(?:\.\d+)?)`)
	runtimeMaxRe = regexp.MustCompile(`\b(?:under|less than|shorter than|at most|max(?:imum)?(?:\s+of)?)\s+(\d+(?:\.\d+)?)\s*(minutes?|mins?|hours?|hrs?)\b`)
	runtimeMinRe = regexp.MustCompile(`\b(?:over|more than|longer than|at least|min(?:imum)?(?:\s+of)?)\s+(\d+(?:\.\d+)?)\s*(minutes?|mins?|hours?|hrs?)\b`)

	adultFlagRe = regexp.MustCompile(`\b(no adult|without adult|family[- ]friendly|kid[- ]friendly|safe for kids|no nsfw|not nsfw)\b`)
)

// extractConstraints pulls year windows, comparator constraints and
// boolean flags from the lowercased prompt.
func extractConstraints(lower string) Constraints {
	var c Constraints
	c.YearFrom, c.YearTo = extractYearWindow(lower)
	c.Numeric = extractNumericFilters(lower)
	c.ExcludeAdult = adultFlagRe.MatchString(lower)
	return c
}

// extractYearWindow resolves the most specific year phrasing present.
// Precedence: explicit span, decade, open bounds, single year.
func extractYearWindow(lower string) (from, to int) {
	if m := betweenRe.FindStringSubmatch(lower); m != nil {
		return atoiYear(m[1]), atoiYear(m[2])
	}
	if m := fromToRe.FindStringSubmatch(lower); m != nil {
		return atoiYear(m[1]), atoiYear(m[2])
	}
	if m := decadeFullRe.FindStringSubmatch(lower); m != nil {
		start := atoiYear(m[1])
		return start, start + 9
	}
	if m := decadeShortRe.FindStringSubmatch(lower); m != nil {
		return shortDecade(m[1])
	}

	// "after 2015" excludes the year itself; "since 2015" includes it.
	if m := afterRe.FindStringSubmatch(lower); m != nil {
		from = atoiYear(m[1]) + 1
	} else if m := sinceRe.FindStringSubmatch(lower); m != nil {
		from = atoiYear(m[1])
	}
	if m := beforeRe.FindStringSubmatch(lower); m != nil {
		to = atoiYear(m[1]) - 1
	} else if m := untilRe.FindStringSubmatch(lower); m != nil {
		to = atoiYear(m[1])
	}
	if from != 0 || to != 0 {
		return from, to
	}

	if m := exactYearRe.FindStringSubmatch(lower); m != nil {
		y := atoiYear(m[1])
		return y, y
	}
	return 0, 0
}

// shortDecade maps "90s" style decades: 00s-20s read as 2000s-2020s,
// 30s-90s as 1930s-1990s.
func shortDecade(d string) (from, to int) {
	n, err := strconv.Atoi(d)
	if err != nil {
		return 0, 0
	}
	if n <= 20 {
		from = 2000 + n
	} else {
		from = 1900 + n
	}
	return from, from + 9
}

func atoiYear(s string) int {
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return y
}

func extractNumericFilters(lower string) []models.NumericFilter {
	var filters []models.NumericFilter
	seen := make(map[string]bool)

	add := func(field, op string, value float64) {
		key := field + op + strconv.FormatFloat(value, 'f', -1, 64)
		if seen[key] {
			return
		}
		seen[key] = true
		filters = append(filters, models.NumericFilter{Field: field, Op: op, Value: value})
	}

	for _, m := range comparatorRe.FindAllStringSubmatch(lower, -1) {
		if v, err := strconv.ParseFloat(m[3], 64); err == nil {
			add(canonicalField(m[1]), canonicalOp(m[2]), v)
		}
	}
	for _, m := range verbalRe.FindAllStringSubmatch(lower, -1) {
		if v, err := strconv.ParseFloat(m[3], 64); err == nil {
			add(canonicalField(m[1]), verbalOp(m[2]), v)
		}
	}
	for _, m := range invertedRe.FindAllStringSubmatch(lower, -1) {
		if v, err := strconv.ParseFloat(m[2], 64); err == nil {
			add(canonicalField(m[3]), verbalOp(m[1]), v)
		}
	}
	for _, m := range ratedRe.FindAllStringSubmatch(lower, -1) {
		if v, err := strconv.ParseFloat(m[2], 64); err == nil {
			add(models.NumericFieldRating, verbalOp(m[1]), v)
		}
	}
	for _, m := range runtimeMaxRe.FindAllStringSubmatch(lower, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			add(models.NumericFieldRuntime, models.OpLTE, toMinutes(v, m[2]))
		}
	}
	for _, m := range runtimeMinRe.FindAllStringSubmatch(lower, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			add(models.NumericFieldRuntime, models.OpGTE, toMinutes(v, m[2]))
		}
	}
	return filters
}

func canonicalField(raw string) string {
	switch strings.TrimSuffix(raw, "s") {
	case "vote":
		return models.NumericFieldVotes
	case "season":
		return models.NumericFieldSeasons
	case "episode":
		return models.NumericFieldEpisodes
	default:
		return raw
	}
}

func canonicalOp(raw string) string {
	if raw == "=" {
		return models.OpEQ
	}
	return raw
}

func verbalOp(phrase string) string {
	switch phrase {
	case "at least":
		return models.OpGTE
	case "at most":
		return models.OpLTE
	case "over", "above", "more than":
		return models.OpGT
	default: // under, below, less than, fewer than
		return models.OpLT
	}
}

func toMinutes(v float64, unit string) float64 {
	if strings.HasPrefix(unit, "h") {
		return v * 60
	}
	return v
}
