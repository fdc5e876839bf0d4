// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package models

import "strings"

// ListType selects the scoring weight profile for a generated list.
type ListType string

const (
	// ListTypeChat is a free-text prompted list.
	ListTypeChat ListType = "chat"
	// ListTypeMood is a dynamic mood preset list.
	ListTypeMood ListType = "mood"
	// ListTypeTheme is a dynamic theme preset list.
	ListTypeTheme ListType = "theme"
	// ListTypeFusion is a dynamic genre-fusion preset list.
	ListTypeFusion ListType = "fusion"
)

// Dynamic reports whether the list type is a dynamic preset (mood, theme
// or fusion) rather than a chat prompt. Dynamic lists prefer mainstream
// picks and recent releases.
func (t ListType) Dynamic() bool {
	return t == ListTypeMood || t == ListTypeTheme || t == ListTypeFusion
}

// PopularityPref is the extracted popularity preference.
type PopularityPref string

// Popularity preference values the intent extractor may emit.
const (
	PopularityMainstream  PopularityPref = "mainstream"
	PopularityObscure     PopularityPref = "obscure"
	PopularityIndie       PopularityPref = "indie"
	PopularityBlockbuster PopularityPref = "blockbuster"
	PopularityMixed       PopularityPref = "mixed"
)

// Intent is the structured interpretation of a user prompt produced by
// the intent extractor. All fields are optional unless documented.
type Intent struct {
	// Genres combines required and optional genre hints.
	Genres []string `json:"genres,omitempty"`

	// RequiredGenres holds genres the user demanded explicitly
	// ("MUST be" / "ONLY"); always a subset of Genres.
	RequiredGenres []string `json:"required_genres,omitempty"`

	// ExcludeGenres holds genres to filter out.
	ExcludeGenres []string `json:"exclude_genres,omitempty"`

	// Moods are free-form mood words (cozy, tense, nostalgic).
	Moods []string `json:"moods,omitempty"`

	// Tones are free-form tone words (dark, light, wholesome).
	Tones []string `json:"tones,omitempty"`

	// Actors are explicitly named cast members, never inferred.
	Actors []string `json:"actors,omitempty"`

	// Directors are explicitly named directors, never inferred.
	Directors []string `json:"directors,omitempty"`

	// Studios are explicitly named studios or networks.
	Studios []string `json:"studios,omitempty"`

	// RuntimeMin is the minimum runtime in minutes (0 = unset).
	RuntimeMin int `json:"runtime_min,omitempty"`

	// RuntimeMax is the maximum runtime in minutes (0 = unset).
	RuntimeMax int `json:"runtime_max,omitempty"`

	// Era is a coarse period hint ("80s", "classic", "modern").
	Era string `json:"era,omitempty"`

	// PopularityPref is the popularity preference when stated.
	PopularityPref PopularityPref `json:"popularity_pref,omitempty"`

	// Complexity is one of simple, moderate, complex, mindbending.
	Complexity string `json:"complexity,omitempty"`

	// Pacing is a free-form pacing hint (slow burn, fast).
	Pacing string `json:"pacing,omitempty"`

	// TargetSize is the requested list size (default 30).
	TargetSize int `json:"target_size,omitempty"`

	// NegativeCues are short phrases the user excluded
	// ("without clowns" -> "clowns").
	NegativeCues []string `json:"negative_cues,omitempty"`

	// QueryVariants are 3-5 rephrasings of the prompt for retrieval.
	QueryVariants []string `json:"query_variants,omitempty"`

	// Seeds are titles named after "like" / "similar to".
	Seeds []string `json:"seeds,omitempty"`

	// MediaType restricts results when the prompt names one.
	MediaType MediaType `json:"media_type,omitempty"`

	// Languages are ISO 639-1 codes when the prompt names languages.
	Languages []string `json:"languages,omitempty"`

	// YearFrom is the inclusive lower release-year bound (0 = unset).
	YearFrom int `json:"year_from,omitempty"`

	// YearTo is the inclusive upper release-year bound (0 = unset).
	YearTo int `json:"year_to,omitempty"`
}

// Filters returns the strict filter set implied by the intent. The
// scoring engine drops candidates that violate any populated field.
func (in *Intent) Filters() Filters {
	f := Filters{
		Genres:        append([]string(nil), in.Genres...),
		ExcludeGenres: append([]string(nil), in.ExcludeGenres...),
		Actors:        append([]string(nil), in.Actors...),
		Studios:       append([]string(nil), in.Studios...),
		Directors:     append([]string(nil), in.Directors...),
		Languages:     append([]string(nil), in.Languages...),
		MediaType:     in.MediaType,
	}
	if len(in.RequiredGenres) > 0 {
		f.Genres = append([]string(nil), in.RequiredGenres...)
		f.GenresMode = GenresModeAll
	} else {
		f.GenresMode = GenresModeAny
	}
	if in.YearFrom != 0 || in.YearTo != 0 {
		f.YearRange = &YearRange{From: in.YearFrom, To: in.YearTo}
	}
	if in.RuntimeMin > 0 {
		f.Numeric = append(f.Numeric, NumericFilter{Field: NumericFieldRuntime, Op: OpGTE, Value: float64(in.RuntimeMin)})
	}
	if in.RuntimeMax > 0 {
		f.Numeric = append(f.Numeric, NumericFilter{Field: NumericFieldRuntime, Op: OpLTE, Value: float64(in.RuntimeMax)})
	}
	return f
}

// GenresMode selects how the genre filter combines multiple genres.
type GenresMode string

const (
	// GenresModeAny keeps candidates sharing at least one filter genre.
	GenresModeAny GenresMode = "any"
	// GenresModeAll keeps candidates carrying every filter genre.
	GenresModeAll GenresMode = "all"
)

// Comparison operators for numeric filters.
const (
	OpGT  = ">"
	OpGTE = ">="
	OpLT  = "<"
	OpLTE = "<="
	OpEQ  = "=="
)

// Numeric filter field names.
const (
	NumericFieldRating     = "rating"
	NumericFieldVotes      = "votes"
	NumericFieldRevenue    = "revenue"
	NumericFieldBudget     = "budget"
	NumericFieldPopularity = "popularity"
	NumericFieldSeasons    = "seasons"
	NumericFieldEpisodes   = "episodes"
	NumericFieldRuntime    = "runtime"
)

// NumericFilter is a single comparator constraint such as "rating >= 7.5".
type NumericFilter struct {
	// Field is one of the NumericField constants.
	Field string `json:"field"`

	// Op is a comparison operator constant.
	Op string `json:"op"`

	// Value is the comparison threshold.
	Value float64 `json:"value"`
}

// Matches evaluates the comparator against a concrete value.
func (n NumericFilter) Matches(v float64) bool {
	switch n.Op {
	case OpGT:
		return v > n.Value
	case OpGTE:
		return v >= n.Value
	case OpLT:
		return v < n.Value
	case OpLTE:
		return v <= n.Value
	case OpEQ:
		return v == n.Value
	default:
		return true
	}
}

// YearRange is an inclusive release-year window. A zero bound is open.
type YearRange struct {
	From int `json:"from,omitempty"`
	To   int `json:"to,omitempty"`
}

// Contains reports whether the year falls inside the range.
func (r YearRange) Contains(year int) bool {
	if r.From != 0 && year < r.From {
		return false
	}
	if r.To != 0 && year > r.To {
		return false
	}
	return true
}

// Filters is the strict predicate set applied before scoring. Only
// populated fields are enforced; zero values mean "no constraint".
type Filters struct {
	// MediaType restricts to one media type when set.
	MediaType MediaType `json:"media_type,omitempty"`

	// Genres is matched per GenresMode.
	Genres []string `json:"genres,omitempty"`

	// GenresMode is any (default) or all.
	GenresMode GenresMode `json:"genres_mode,omitempty"`

	// ExcludeGenres drops candidates carrying any listed genre.
	ExcludeGenres []string `json:"exclude_genres,omitempty"`

	// Actors keeps candidates whose cast matches at least one entry
	// (case-insensitive substring).
	Actors []string `json:"actors,omitempty"`

	// Studios keeps candidates whose production companies match at
	// least one entry (case-insensitive substring).
	Studios []string `json:"studios,omitempty"`

	// Languages keeps candidates whose original language is listed.
	Languages []string `json:"languages,omitempty"`

	// Years keeps candidates released in one of the listed years.
	Years []int `json:"years,omitempty"`

	// YearRange keeps candidates inside the inclusive window.
	YearRange *YearRange `json:"year_range,omitempty"`

	// Adult requires the adult flag to equal the value when set.
	Adult *bool `json:"adult,omitempty"`

	// Numeric holds comparator constraints.
	Numeric []NumericFilter `json:"numeric,omitempty"`

	// Networks keeps shows airing on at least one listed network.
	Networks []string `json:"networks,omitempty"`

	// Creators keeps shows created by at least one listed person.
	Creators []string `json:"creators,omitempty"`

	// Directors keeps candidates directed by at least one listed person.
	Directors []string `json:"directors,omitempty"`

	// Countries keeps candidates produced in at least one listed country.
	Countries []string `json:"countries,omitempty"`

	// InProduction requires the in-production flag to equal the value.
	InProduction *bool `json:"in_production,omitempty"`
}

// Empty reports whether no constraint is populated.
func (f *Filters) Empty() bool {
	return f.MediaType == "" && len(f.Genres) == 0 && len(f.ExcludeGenres) == 0 &&
		len(f.Actors) == 0 && len(f.Studios) == 0 && len(f.Languages) == 0 &&
		len(f.Years) == 0 && f.YearRange == nil && f.Adult == nil &&
		len(f.Numeric) == 0 && len(f.Networks) == 0 && len(f.Creators) == 0 &&
		len(f.Directors) == 0 && len(f.Countries) == 0 && f.InProduction == nil
}

// MatchesMediaType reports whether the candidate type satisfies the
// filter, treating tv and series as synonyms of show.
func (f *Filters) MatchesMediaType(t MediaType) bool {
	if f.MediaType == "" {
		return true
	}
	want := f.MediaType
	if parsed, ok := ParseMediaType(string(want)); ok {
		want = parsed
	}
	return want == t
}

// ContainsFold reports whether any element of haystack contains needle,
// case-insensitively. Shared by the actor/studio substring predicates.
func ContainsFold(haystack []string, needle string) bool {
	n := strings.ToLower(needle)
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), n) {
			return true
		}
	}
	return false
}
