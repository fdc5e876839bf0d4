// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package vecindex provides the two approximate nearest-neighbor
// indexes behind dense retrieval.
//
// Primary holds one base embedding per candidate and answers the bulk
// of dense queries. Multi holds several labeled aspect vectors per
// candidate (title, keywords, people, brands) and powers aspect-aware
// enrichment plus staleness detection via content hashes.
//
// Both are backed by the same in-memory HNSW graph over unit-length
// vectors. Search reports similarity as 1/(1+d) with d the Euclidean
// distance, which is monotonic in cosine for normalized inputs and
// keeps dense and lexical scores on comparable scales.
//
// Persistence is a single binary snapshot written to a temp file and
// renamed into place, guarded by an exclusive writer lock file. Readers
// never take the lock; they load whichever snapshot was last renamed.
package vecindex
