// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package scoring ranks filtered candidates for one list request.
//
// The engine works in four steps: strict filters drop candidates that
// violate any explicit constraint; a cheap popularity and rating
// composite reduces the pool to the top 200; eleven signals are computed
// per survivor (TF-IDF and embedding similarity, genre overlap, quoted
// phrases, people and studio matches, recency, watch history, explicit
// thumbs, tone and time-of-day mood fit); and a per-list-type weight
// table blends them into the final score. Every signal value is kept on
// the item, and the explanation generator renders the dominant drivers
// into a human-readable reason string.
//
// The engine is pure computation: history, ratings and embeddings are
// passed in by the caller rather than loaded here.
package scoring
