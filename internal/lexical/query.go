// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package lexical

import "unicode/utf8"

// m is shorthand for the nested JSON objects of the query DSL.
type m map[string]interface{}

// Fuzzy multi-match field weights: title 5, cast 4, created_by 3,
// production_companies/networks/genres 2, countries/spoken_languages 1.
var fuzzyFields = []string{
	"title^5",
	"cast^4",
	"created_by^3",
	"production_companies^2",
	"networks^2",
	"genres^2",
	"countries^1",
	"spoken_languages^1",
}

// Strict title mode narrows to titles plus people and organizations
// and turns fuzziness off. Used to resolve seed titles, where a fuzzy
// match on an overview is a false positive.
var strictFields = []string{
	"title^5",
	"original_title^4",
	"cast^3",
	"created_by^3",
	"production_companies^2",
	"networks^2",
}

// buildQuery assembles the bool-should request body.
func buildQuery(query string, k int, opts SearchOptions) m {
	should := []interface{}{
		m{"match_phrase": m{"title": m{"query": query, "boost": 10.0}}},
		m{"match_phrase": m{"original_title": m{"query": query, "boost": 8.0}}},
		m{"match_phrase_prefix": m{"title": m{"query": query, "boost": 5.0}}},
		m{"match_phrase_prefix": m{"original_title": m{"query": query, "boost": 4.0}}},
		m{"match_bool_prefix": m{"title": m{"query": query, "boost": 3.0}}},
	}

	fields := fuzzyFields
	fuzziness := 0
	if !opts.StrictTitle {
		if utf8.RuneCountInString(query) >= 5 {
			fuzziness = 1
		}
	} else {
		fields = strictFields
	}
	should = append(should, m{"multi_match": m{
		"query":         query,
		"type":          "best_fields",
		"fields":        fields,
		"fuzziness":     fuzziness,
		"prefix_length": 2,
	}})

	if !opts.StrictTitle {
		tagClauses := []struct {
			field string
			tags  []string
		}{
			{"mood_tags", opts.Moods},
			{"tone_tags", opts.Tones},
			{"themes", opts.Themes},
		}
		for _, tc := range tagClauses {
			if len(tc.tags) > 0 {
				should = append(should, m{"terms": m{tc.field: tc.tags, "boost": 2.0}})
			}
		}
	}

	filter := []interface{}{
		m{"term": m{"active": true}},
	}
	if opts.MediaType != "" {
		filter = append(filter, m{"term": m{"media_type": string(opts.MediaType)}})
	}

	return m{
		"size": k,
		"query": m{
			"bool": m{
				"should":               should,
				"minimum_should_match": 1,
				"filter":               filter,
			},
		},
		"_source": []string{"candidate_id"},
	}
}
