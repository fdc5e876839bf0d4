// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package database wraps the embedded DuckDB store that holds the
// candidate catalog, per-item LLM profiles, watch history, user
// ratings, pairwise sessions and judgments, and viewing phases.
//
// The schema is bootstrapped on open (CREATE TABLE IF NOT EXISTS plus
// sequences and indexes, see schema.go). List-valued fields are stored
// as JSON columns and cast to VARCHAR on read. Watch events carry a
// UNIQUE(user_id, trakt_id, watched_at) constraint and are inserted
// with ON CONFLICT DO NOTHING so history sync is idempotent.
//
// DuckDB runs in-process with a single writer. Hot statements go
// through a prepared-statement cache keyed by SQL text. Failures map
// onto recerr kinds: missing rows are KindNotFound, everything else
// coming back from the engine is KindInternal.
package database
