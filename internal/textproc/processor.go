// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package textproc

import (
	"regexp"
	"strings"

	"github.com/tomtom215/curatus/internal/models"
)

// Result is the parsed view of a prompt. Absent information leaves the
// zero value; callers treat empty slices and zero ints as "not stated".
type Result struct {
	// Normalized is the canonical prompt: lowercase, whitespace
	// collapsed, punctuation stripped except ".,!?".
	Normalized string

	// Tokens are the whitespace-delimited words of Normalized with
	// trailing punctuation removed.
	Tokens []string

	// Lemmas fold plurals and a few irregulars onto Tokens; no deeper
	// morphology is attempted.
	Lemmas []string

	// People are explicitly named persons (cast, directors). Names are
	// never inferred from referenced titles.
	People []string

	// Organizations are recognized studios, networks and production
	// companies.
	Organizations []string

	// Phrases are quoted spans, taken verbatim without the quotes.
	Phrases []string

	// Constraints holds structured limits extracted from the prompt.
	Constraints Constraints

	// NegativeCues are short phrases after without/no/avoid/not.
	NegativeCues []string

	// Seeds are titles named after "like" / "similar to", original
	// casing preserved.
	Seeds []string

	// MediaType is set when the prompt names exactly one media type.
	MediaType models.MediaType
}

// Constraints are the structured limits a prompt can carry.
type Constraints struct {
	// YearFrom and YearTo bound the release year inclusively; zero
	// means open. "after 2015" yields YearFrom 2016, the year itself
	// excluded.
	YearFrom int
	YearTo   int

	// Numeric holds comparator constraints like "rating >= 7.5".
	Numeric []models.NumericFilter

	// ExcludeAdult is set by "no adult", "family friendly" and
	// similar phrasing.
	ExcludeAdult bool
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Keep sentence punctuation the encoder benefits from; drop the rest.
	punctuationRe = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?]`)
	trailingPunct = ".,!?"
)

// Parse analyzes prompt and returns a best-effort Result. It never
// returns an error: garbage in produces empty structures, not failure.
func Parse(prompt string) Result {
	raw := strings.TrimSpace(prompt)
	if raw == "" {
		return Result{}
	}

	var res Result
	res.Phrases = extractPhrases(raw)
	res.People = extractPeople(raw)
	res.Organizations = extractOrganizations(raw)
	res.Seeds = extractSeeds(raw)

	lower := strings.ToLower(raw)
	res.Constraints = extractConstraints(lower)
	res.NegativeCues, res.Constraints.ExcludeAdult = extractNegativeCues(lower, res.Constraints.ExcludeAdult)
	res.MediaType = detectMediaType(lower)

	res.Normalized = normalize(raw)
	res.Tokens = tokenize(res.Normalized)
	res.Lemmas = lemmatize(res.Tokens)
	return res
}

// TermTokens returns the lemmatized tokens of the normalized text: the
// shared bag-of-words tokenization for TF-IDF and tag matching.
func TermTokens(s string) []string {
	return lemmatize(tokenize(normalize(s)))
}

// normalize lowercases, strips punctuation except ".,!?" and collapses
// whitespace.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = punctuationRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func tokenize(normalized string) []string {
	if normalized == "" {
		return nil
	}
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, trailingPunct)
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// irregularLemmas covers the plural forms simple folding gets wrong.
var irregularLemmas = map[string]string{
	"series":   "series",
	"movies":   "movie",
	"children": "child",
	"men":      "man",
	"women":    "woman",
	"people":   "person",
}

// lemmatize folds plurals. Deeper stemming misfires on titles and
// moods ("everything", "charming"), so plural folding is the ceiling.
func lemmatize(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	lemmas := make([]string, len(tokens))
	for i, t := range tokens {
		lemmas[i] = lemma(t)
	}
	return lemmas
}

func lemma(token string) string {
	if l, ok := irregularLemmas[token]; ok {
		return l
	}
	switch {
	case strings.HasSuffix(token, "ies") && len(token) > 4:
		return token[:len(token)-3] + "y"
	case strings.HasSuffix(token, "sses"):
		return token[:len(token)-2]
	case strings.HasSuffix(token, "es") && len(token) > 4 &&
		(strings.HasSuffix(token, "ches") || strings.HasSuffix(token, "shes") || strings.HasSuffix(token, "xes")):
		return token[:len(token)-2]
	case strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") && !strings.HasSuffix(token, "us") && len(token) > 3:
		return token[:len(token)-1]
	}
	return token
}

var (
	doubleQuoteRe = regexp.MustCompile(`"([^"]+)"`)
	singleQuoteRe = regexp.MustCompile(`'([^']+)'`)
)

// extractPhrases returns quoted spans in order of appearance. Single
// quotes only count when they wrap more than one word, so contractions
// ("don't") never produce phrases.
func extractPhrases(raw string) []string {
	var phrases []string
	for _, m := range doubleQuoteRe.FindAllStringSubmatch(raw, -1) {
		if p := strings.TrimSpace(m[1]); p != "" {
			phrases = append(phrases, p)
		}
	}
	for _, m := range singleQuoteRe.FindAllStringSubmatch(raw, -1) {
		p := strings.TrimSpace(m[1])
		if p != "" && strings.ContainsRune(p, ' ') {
			phrases = append(phrases, p)
		}
	}
	return phrases
}

var mediaMovieRe = regexp.MustCompile(`\b(movies?|films?|cinema)\b`)
var mediaShowRe = regexp.MustCompile(`\b(shows?|series|tv|television|seasons?)\b`)

// detectMediaType returns a media type only when the prompt names
// exactly one; mixed or absent mentions leave it unset.
func detectMediaType(lower string) models.MediaType {
	movie := mediaMovieRe.MatchString(lower)
	show := mediaShowRe.MatchString(lower)
	switch {
	case movie && !show:
		return models.MediaTypeMovie
	case show && !movie:
		return models.MediaTypeShow
	default:
		return ""
	}
}
