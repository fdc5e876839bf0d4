// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

/*
Package models defines the domain types shared across the recommendation
pipeline.

This package is the single source of truth for the entities every stage
operates on, including catalog candidates, extracted intent and filters,
scoring signals, user taste profiles, watch history events, pairwise
training sessions and viewing phases.

Key Components:

  - Candidate: a catalog item (movie or show) with full metadata and
    derived obscurity/mainstream/freshness scores
  - Intent / Filters: structured query intent produced by the extractor
    and the strict filter set applied by the scoring engine
  - Signals / ScoredItem: per-candidate signal breakdown and final score
  - UserProfile / PreferenceWeights: cached taste profile and the
    interpretable weights updated by pairwise training
  - WatchEvent: append-only viewing history with metadata
  - PairwiseSession / PairwiseJudgment: A/B feedback lifecycle
  - ViewingPhase: labeled, scored cluster of a user's history window
  - Vector: 384-dimension float32 embedding with the arithmetic the
    pipeline needs (dot, cosine, normalize) and the little-endian byte
    codec used for key-value storage

Thread Safety:

All models are plain data structures. They are safe for concurrent reads
and carry no internal synchronization; ownership rules (who may write
what) are enforced by the services that use them.

JSON Marshaling:

All models carry snake_case JSON tags matching the external API field
names. Vectors are never marshaled as JSON; they use the fixed binary
layout in vector.go.

See Also:

  - internal/catalog: candidate persistence and ingestion
  - internal/scoring: signal computation over these types
  - internal/profile: taste profile construction
*/
package models
