// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package textproc

import (
	"regexp"
	"strings"
	"unicode"
)

// capName matches one to four capitalized words, enough for any person
// name after a strong trigger ("directed by Kathryn Bigelow").
const capName = `\p{Lu}[\p{L}'’.-]*(?:\s+\p{Lu}[\p{L}'’.-]*){0,3}`

var (
	peopleRe = regexp.MustCompile(
		`(?i:\b(?:directed by|created by|written by|starring|featuring|stars|played by|a film by)\s+)` +
			`(` + capName + `(?:\s*(?:,|\band\b|&)\s*` + capName + `)*)`)
	nameSplitRe = regexp.MustCompile(`\s*(?:,|\band\b|&)\s*`)

	seedTriggerRe = regexp.MustCompile(`(?i)\b(similar to|like)\s+`)

	negativeCueRe = regexp.MustCompile(`\b(?:without|avoid|not|no)\s+([a-z][a-z' -]{1,60})`)
)

// knownOrganizations are the studios, networks and production companies
// recognized without a trigger word. Matching is case-insensitive on
// word boundaries; values keep canonical casing.
var knownOrganizations = []string{
	"A24", "Pixar", "Disney", "Marvel", "DC", "Warner Bros", "Universal",
	"Paramount", "Sony", "Lionsgate", "Blumhouse", "Studio Ghibli",
	"DreamWorks", "Illumination", "Focus Features", "Miramax", "MGM",
	"Netflix", "HBO", "Amazon", "Apple TV", "Hulu", "BBC", "AMC", "FX",
	"Showtime", "Peacock", "Criterion",
}

var orgPatterns = buildOrgPatterns()

func buildOrgPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(knownOrganizations))
	for _, org := range knownOrganizations {
		patterns[org] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(org) + `\b`)
	}
	return patterns
}

// extractPeople returns explicitly named persons. Only strong triggers
// count; a capitalized title never produces a person.
func extractPeople(raw string) []string {
	var people []string
	for _, m := range peopleRe.FindAllStringSubmatch(raw, -1) {
		for _, name := range nameSplitRe.Split(m[1], -1) {
			name = strings.TrimSpace(name)
			if name != "" {
				people = append(people, name)
			}
		}
	}
	return dedupeStrings(people)
}

func extractOrganizations(raw string) []string {
	var orgs []string
	for _, org := range knownOrganizations {
		if orgPatterns[org].MatchString(raw) {
			orgs = append(orgs, org)
		}
	}
	return orgs
}

// seedStopWords end a seed title scan.
var seedStopWords = map[string]bool{
	"but": true, "except": true, "without": true, "with": true,
	"from": true, "that": true, "which": true, "please": true,
	"instead": true, "unless": true, "minus": true, "released": true,
	"made": true, "set": true, "avoid": true, "not": true, "no": true,
}

const maxSeeds = 3
const maxSeedWords = 6

// extractSeeds returns titles named after "like" / "similar to",
// original casing preserved, cut at stop tokens. A bare "like" only
// yields a seed when the following word looks like a title (capital or
// digit start); "similar to" is a strong enough signal to accept
// lowercase titles too.
func extractSeeds(raw string) []string {
	var seeds []string
	for _, loc := range seedTriggerRe.FindAllStringSubmatchIndex(raw, -1) {
		trigger := strings.ToLower(raw[loc[2]:loc[3]])
		rest := raw[loc[1]:]
		seeds = append(seeds, scanSeeds(rest, trigger == "similar to")...)
		if len(seeds) >= maxSeeds {
			break
		}
	}
	if len(seeds) > maxSeeds {
		seeds = seeds[:maxSeeds]
	}
	return dedupeStrings(seeds)
}

func scanSeeds(rest string, allowLower bool) []string {
	words := strings.Fields(rest)
	var seeds []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			seeds = append(seeds, strings.Join(current, " "))
			current = nil
		}
	}

	for _, w := range words {
		trimmed := strings.Trim(w, `.,!?;:"'`)
		clauseEnd := strings.ContainsAny(w, ".,!?;:")
		if trimmed == "" {
			break
		}
		lower := strings.ToLower(trimmed)

		if lower == "and" || lower == "or" {
			// A capitalized continuation starts another seed;
			// anything else ends the scan.
			flush()
			if len(seeds) >= maxSeeds {
				return seeds
			}
			continue
		}
		if seedStopWords[lower] {
			break
		}
		if len(current) == 0 && !allowLower && !titleWord(trimmed) {
			break
		}
		current = append(current, trimmed)
		if clauseEnd || len(current) >= maxSeedWords {
			break
		}
	}
	flush()
	return seeds
}

func titleWord(w string) bool {
	r := []rune(w)[0]
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

// cueFillers are dropped from the front of a cue; cueStops end it.
var cueFillers = map[string]bool{
	"any": true, "too": true, "very": true, "really": true,
	"the": true, "a": true, "an": true, "anything": true,
}

var cueStops = map[string]bool{
	"and": true, "or": true, "but": true, "please": true,
	"that": true, "which": true, "than": true, "more": true,
	"less": true, "if": true, "is": true, "are": true,
}

// adultCues fold into the ExcludeAdult flag instead of the cue list.
var adultCues = map[string]bool{
	"adult": true, "adult content": true, "nsfw": true, "porn": true,
}

const maxCues = 8
const maxCueWords = 3

// extractNegativeCues returns short cue phrases after without/no/avoid/
// not. Adult-content cues set the boolean flag instead.
func extractNegativeCues(lower string, excludeAdult bool) ([]string, bool) {
	var cues []string
	for _, m := range negativeCueRe.FindAllStringSubmatch(lower, -1) {
		cue := trimCue(m[1])
		if cue == "" {
			continue
		}
		if adultCues[cue] {
			excludeAdult = true
			continue
		}
		cues = append(cues, cue)
		if len(cues) >= maxCues {
			break
		}
	}
	return dedupeStrings(cues), excludeAdult
}

func trimCue(capture string) string {
	words := strings.Fields(capture)
	var kept []string
	for _, w := range words {
		w = strings.Trim(w, `.,!?;:'"-`)
		if w == "" || cueStops[w] {
			break
		}
		if len(kept) == 0 && cueFillers[w] {
			continue
		}
		kept = append(kept, w)
		if len(kept) >= maxCueWords {
			break
		}
	}
	return strings.Join(kept, " ")
}

func dedupeStrings(in []string) []string {
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
