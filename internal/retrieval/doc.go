// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package retrieval fuses the dense and lexical indexes into one
// candidate stream.
//
// Retrieve composes a query vector from the prompt plus intent seeds
// ("like: <title>") and moods ("mood: <words>"), pushes it away from
// negative cues, then merges ~30 dense neighbors with ~12 lexical hits
// by candidate identity. Hits present in both sources blend 0.6 dense
// with 0.4 lexical; a missing source counts as a 0.3 neutral. Enriched
// hits drop inactive candidates, take a 0.7 search / 0.3 profile-fit
// blend unless the caller opts out, and are cached per user for 45
// seconds.
//
// Suggestions ranks neighbors of an existing list without any text
// query: per-item dense neighbors above a similarity floor aggregate by
// frequency and average similarity, genres underrepresented in the list
// earn a diversity boost, and the final order blends suggestion
// strength, profile fit, diversity and a top-genre bonus. Empty lists
// fall back to popular well-rated titles; empty neighbor sets fill
// round-robin across the list's genres.
package retrieval
