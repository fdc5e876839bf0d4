// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

/*
Package catalog keeps the candidate pool current.

The package owns three concerns. A Provider fetches movie and show
metadata from TMDB behind a rate limiter and circuit breaker and maps
it onto models.Candidate. The ingestion Service upserts fetched
candidates into the catalog database, computing the derived scores
(obscurity, mainstream, freshness) and the content hash the vector
index uses for staleness detection, then notifies the event bus so
embeddings and indexes can follow. The Enricher backfills LLM item
profiles (mood tags, tone tags, themes, a short synopsis) for
candidates that do not have one yet.

Candidates are mutated only here; every reader treats them as
read-only.
*/
package catalog
