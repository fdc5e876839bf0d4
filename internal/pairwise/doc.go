// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package pairwise turns A/B comparisons into ranking signal.
//
// It has two halves. The Ranker runs an LLM tournament over the head of
// an already-scored list: weighted-sampled pairs go out in batches, each
// verdict awards a win (or half a win for a tie), and the head is
// reordered by win rate. The Trainer runs user-facing training sessions:
// it serves unjudged pairs from a snapshotted pool, records judgments,
// and folds each one immediately into the user's preference vector and
// interpretable taste weights. Both halves degrade rather than fail:
// lost ranker batches leave engine order standing, and a trainer whose
// enrichment lookups fail still records the judgment.
package pairwise
