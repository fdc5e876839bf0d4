// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package lexical is the OpenSearch-backed keyword retrieval path.
//
// Candidates are indexed with their text fields plus the mood, tone and
// theme tags produced by LLM profile enrichment. Queries combine exact
// title phrases, title prefixes and a fuzzy cross-field match in one
// bool-should request; scores are max-normalized to [0,1] per query so
// the retriever can fuse them with dense similarities.
//
// The index is optional infrastructure: every caller treats a dead
// back-end as "no lexical hits" rather than a failed request. Transport
// errors are retried exactly once with a longer timeout; the client's
// own retry loop is disabled so that policy lives here.
package lexical
