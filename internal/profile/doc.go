// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package profile builds per-user taste profiles from watch history and
// scores how well candidates fit them.
//
// The Service aggregates a user's watch events and explicit ratings
// into a models.UserProfile: genre, decade and language weights
// normalized by the most-watched entry, an obscurity preference derived
// from average watched popularity, the top five genres and the twenty
// most recent items. Events from the last ninety days count double.
// Profiles are cached in the key-value store for an hour; a forced
// refresh rebuilds immediately.
//
// The FitScorer turns a profile into a [0, 1] fit per candidate by
// blending a genre match, the best embedding similarity against the
// user's recent items and a popularity match against the obscurity
// preference. A multi-vector variant compares per-aspect candidate
// vectors against recency-and-rating-weighted user aspect vectors.
//
// Persona renders the short free-text viewer description the LLM
// prompts carry: a profile summary plus the rolling last ten pairwise
// session learnings.
package profile
