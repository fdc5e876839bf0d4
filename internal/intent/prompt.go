// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package intent

import (
	"fmt"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/curatus/internal/llm"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Context snippets are bounded so prompt cost stays flat no matter how
// large a persona or history summary grows. The same limits feed the
// cache key, keeping key and prompt content in lockstep.
const (
	personaLimit = 500
	historyLimit = 500
)

// List caps applied to model output before merging.
const (
	maxListGenres = 8
	maxListWords  = 8
	maxListPeople = 6
	maxListCues   = 8
	maxListSeeds  = 3
)

const systemPrompt = `You are the intent parser of a media recommendation engine. Read the viewer prompt and reply with a single JSON object and nothing else: no prose, no markdown fences. Schema:
{
  "genres": ["canonical genre names stated or strongly implied"],
  "required_genres": ["subset of genres, ONLY when the viewer wrote MUST be or ONLY"],
  "exclude_genres": ["genres the viewer ruled out"],
  "moods": ["mood words such as cozy, tense, nostalgic"],
  "tones": ["tone words such as dark, light, wholesome"],
  "actors": ["people written in the prompt as cast, never inferred from titles"],
  "directors": ["people written in the prompt as directors or creators, never inferred"],
  "studios": ["studios or networks named in the prompt"],
  "runtime_min": 0,
  "runtime_max": 0,
  "era": "80s | classic | modern | empty when unstated",
  "popularity_pref": "mainstream | obscure | indie | blockbuster | mixed | empty",
  "complexity": "simple | moderate | complex | mindbending | empty",
  "pacing": "free-form pacing hint such as slow burn, empty when unstated",
  "target_size": 0,
  "negative_cues": ["short phrases the viewer excluded"],
  "query_variants": ["3 to 5 short search rephrasings of the prompt"],
  "seeds": ["titles named after like or similar to"],
  "media_type": "movie | show | empty",
  "languages": ["ISO 639-1 codes when the viewer named languages"],
  "year_from": 0,
  "year_to": 0
}
Use 0 for unstated numbers and "" for unstated strings. Runtime bounds are minutes.`

// userPrompt assembles the viewer context. Persona and history are
// truncated to their limits.
func userPrompt(prompt, persona, history string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Viewer prompt: %s\n", prompt)
	fmt.Fprintf(&b, "\nViewer persona: %s\n", orNone(truncate(persona, personaLimit)))
	fmt.Fprintf(&b, "\nRecent viewing: %s\n", orNone(truncate(history, historyLimit)))
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

// decodeIntent parses a model reply. The reply is tried verbatim
// first; on failure the JSON payload is re-extracted once, then the
// attempt is abandoned.
func decodeIntent(reply string) (*models.Intent, error) {
	const op = "intent.decodeIntent"

	var wire models.Intent
	if err := json.Unmarshal([]byte(reply), &wire); err == nil {
		sanitizeWire(&wire)
		return &wire, nil
	}

	payload, err := llm.ExtractJSON(reply)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, fmt.Errorf("decode intent payload: %w", err))
	}
	sanitizeWire(&wire)
	return &wire, nil
}

// sanitizeWire normalizes model output in place: lists trimmed,
// deduplicated and capped, enums validated, numbers clamped. Invalid
// enum values are dropped rather than failing the attempt.
func sanitizeWire(in *models.Intent) {
	in.Genres = cleanList(in.Genres, maxListGenres, canonicalGenre)
	in.RequiredGenres = cleanList(in.RequiredGenres, maxListGenres, canonicalGenre)
	in.ExcludeGenres = cleanList(in.ExcludeGenres, maxListGenres, canonicalGenre)
	in.Moods = cleanList(in.Moods, maxListWords, strings.ToLower)
	in.Tones = cleanList(in.Tones, maxListWords, strings.ToLower)
	in.Actors = cleanList(in.Actors, maxListPeople, nil)
	in.Directors = cleanList(in.Directors, maxListPeople, nil)
	in.Studios = cleanList(in.Studios, maxListPeople, nil)
	in.NegativeCues = cleanList(in.NegativeCues, maxListCues, strings.ToLower)
	in.QueryVariants = cleanList(in.QueryVariants, maxVariants, nil)
	in.Seeds = cleanList(in.Seeds, maxListSeeds, nil)
	in.Languages = cleanLanguages(in.Languages)

	if parsed, ok := models.ParseMediaType(string(in.MediaType)); ok {
		in.MediaType = parsed
	} else {
		in.MediaType = ""
	}
	in.PopularityPref = models.PopularityPref(strings.ToLower(strings.TrimSpace(string(in.PopularityPref))))
	if !validPopularity(in.PopularityPref) {
		in.PopularityPref = ""
	}
	in.Complexity = strings.ToLower(strings.TrimSpace(in.Complexity))
	if !validComplexity(in.Complexity) {
		in.Complexity = ""
	}
	in.Era = strings.ToLower(strings.TrimSpace(in.Era))
	in.Pacing = strings.ToLower(strings.TrimSpace(in.Pacing))

	in.RuntimeMin = clampInt(in.RuntimeMin, 0, 24*60)
	in.RuntimeMax = clampInt(in.RuntimeMax, 0, 24*60)
	in.TargetSize = clampInt(in.TargetSize, 0, maxTargetSize)
	in.YearFrom = clampYear(in.YearFrom)
	in.YearTo = clampYear(in.YearTo)
}

// cleanList trims, canonicalizes, deduplicates case-insensitively and
// caps a string list. A nil canon keeps entries as written.
func cleanList(values []string, capN int, canon func(string) string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if canon != nil {
			v = canon(v)
		}
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		if len(out) >= capN {
			break
		}
	}
	return out
}

// cleanLanguages keeps lowercase two-letter codes, mapping full
// language names the model emitted despite instructions.
func cleanLanguages(values []string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		code := strings.ToLower(strings.TrimSpace(v))
		if mapped, ok := languageCodes[code]; ok {
			code = mapped
		}
		if len(code) != 2 || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

func validPopularity(p models.PopularityPref) bool {
	switch p {
	case models.PopularityMainstream, models.PopularityObscure, models.PopularityIndie,
		models.PopularityBlockbuster, models.PopularityMixed:
		return true
	default:
		return false
	}
}

func validComplexity(c string) bool {
	switch c {
	case "simple", "moderate", "complex", "mindbending":
		return true
	default:
		return false
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampYear zeroes implausible release years instead of clamping;
// a fabricated bound is worse than no bound.
func clampYear(y int) int {
	if y < 1870 || y > 2100 {
		return 0
	}
	return y
}
