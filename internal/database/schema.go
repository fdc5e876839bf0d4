// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

/*
schema.go - Database Schema Management

Tables:
  - candidates: the retrievable catalog (one row per TMDB item and media
    type) including derived obscurity/mainstream/freshness scores and the
    content hash used for embedding staleness detection
  - item_llm_profiles: LLM-produced mood/tone/theme tags + synopsis
  - watch_events: synced watch history, deduplicated on
    (user_id, trakt_id, watched_at)
  - user_ratings: explicit 1..10 ratings keyed (user_id, tmdb_id, media_type)
  - pairwise_sessions / pairwise_judgments: tournament ranking state
  - viewing_phases: detected phase clusters with quality metrics

Schema Strategy:
All columns are defined in the initial CREATE TABLE statements; the whole
schema is idempotent (IF NOT EXISTS) and re-run on every open. Row ids for
candidates and watch events come from DuckDB sequences because IDENTITY
columns cannot be combined with PRIMARY KEY.

List-valued fields (genres, cast, pool, members, ...) are JSON columns
written with json.Marshal and read back through a ::VARCHAR cast.
*/
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext bounds schema bootstrap separately from query traffic.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createSchema executes all table, sequence and index statements.
func (db *DB) createSchema() error {
	const op = "database.createSchema"
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range schemaQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("%s: execute %q: %w", op, firstLine(query), err)
		}
	}
	return nil
}

// schemaQueries returns the full bootstrap DDL in execution order.
func schemaQueries() []string {
	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS candidates_id_seq START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS watch_events_id_seq START 1;`,

		// Candidate catalog. One row per (tmdb_id, media_type); refresh
		// is an upsert that keeps the internal id stable so the vector
		// index position maps stay valid across ingestion runs.
		`CREATE TABLE IF NOT EXISTS candidates (
			id BIGINT PRIMARY KEY DEFAULT nextval('candidates_id_seq'),
			tmdb_id BIGINT NOT NULL,
			trakt_id BIGINT NOT NULL DEFAULT 0,
			media_type TEXT NOT NULL CHECK (media_type IN ('movie', 'show')),
			title TEXT NOT NULL,
			original_title TEXT,
			year INTEGER,
			overview TEXT,
			tagline TEXT,

			-- List-valued metadata (JSON arrays of strings)
			genres JSON,
			keywords JSON,
			cast_members JSON,
			directors JSON,
			writers JSON,
			created_by JSON,
			production_companies JSON,
			networks JSON,
			production_countries JSON,
			spoken_languages JSON,

			runtime_minutes INTEGER,
			rating DOUBLE DEFAULT 0,
			votes INTEGER DEFAULT 0,
			popularity DOUBLE DEFAULT 0,
			original_language TEXT,
			release_date TEXT,
			status TEXT,
			adult BOOLEAN DEFAULT FALSE,
			homepage TEXT,
			revenue BIGINT DEFAULT 0,
			budget BIGINT DEFAULT 0,
			collection_id BIGINT DEFAULT 0,
			collection_name TEXT,
			certification TEXT,
			poster_path TEXT,

			-- Show-only fields
			season_count INTEGER DEFAULT 0,
			episode_count INTEGER DEFAULT 0,
			episode_runtimes JSON,
			first_air_date TEXT,
			last_air_date TEXT,
			in_production BOOLEAN DEFAULT FALSE,

			-- Derived at ingestion
			obscurity_score DOUBLE DEFAULT 0,
			mainstream_score DOUBLE DEFAULT 0,
			freshness_score DOUBLE DEFAULT 0,
			content_hash TEXT,

			active BOOLEAN DEFAULT TRUE,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE(tmdb_id, media_type)
		);`,

		// LLM enrichment: mood/tone/theme tags + short synopsis.
		`CREATE TABLE IF NOT EXISTS item_llm_profiles (
			candidate_id BIGINT PRIMARY KEY,
			mood_tags JSON,
			tone_tags JSON,
			themes JSON,
			synopsis TEXT,
			updated_at TIMESTAMP NOT NULL
		);`,

		// Watch history. The UNIQUE constraint plus ON CONFLICT DO
		// NOTHING makes sync idempotent across overlapping pulls.
		`CREATE TABLE IF NOT EXISTS watch_events (
			id BIGINT PRIMARY KEY DEFAULT nextval('watch_events_id_seq'),
			user_id BIGINT NOT NULL,
			candidate_id BIGINT NOT NULL DEFAULT 0,
			tmdb_id BIGINT NOT NULL,
			trakt_id BIGINT NOT NULL,
			media_type TEXT NOT NULL,
			watched_at TIMESTAMP NOT NULL,
			rating INTEGER DEFAULT 0,
			plays INTEGER DEFAULT 1,
			title TEXT,
			year INTEGER,
			genres JSON,
			keywords JSON,
			overview TEXT,
			poster_path TEXT,
			runtime_minutes INTEGER,
			language TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, trakt_id, watched_at)
		);`,

		`CREATE TABLE IF NOT EXISTS user_ratings (
			user_id BIGINT NOT NULL,
			tmdb_id BIGINT NOT NULL,
			media_type TEXT NOT NULL,
			rating INTEGER NOT NULL,
			rated_at TIMESTAMP,
			PRIMARY KEY (user_id, tmdb_id, media_type)
		);`,

		// Pairwise tournament state. Pool is the snapshotted candidate
		// id slice in engine-score order.
		`CREATE TABLE IF NOT EXISTS pairwise_sessions (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			prompt TEXT,
			list_type TEXT,
			pool JSON NOT NULL,
			total_pairs INTEGER NOT NULL,
			completed_pairs INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			started_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS pairwise_judgments (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			candidate_a BIGINT NOT NULL,
			candidate_b BIGINT NOT NULL,
			winner TEXT NOT NULL,
			confidence DOUBLE DEFAULT 0,
			response_time_ms INTEGER DEFAULT 0,
			explanation TEXT,
			created_at TIMESTAMP NOT NULL
		);`,

		// Detected viewing phases. Metrics are flattened columns so the
		// phase list endpoint needs no JSON decode for sorting.
		`CREATE TABLE IF NOT EXISTS viewing_phases (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			label TEXT NOT NULL,
			icon TEXT,
			start_at TIMESTAMP NOT NULL,
			end_at TIMESTAMP,
			members JSON NOT NULL,
			dominant_genres JSON,
			dominant_keywords JSON,
			franchise_id BIGINT DEFAULT 0,
			franchise_name TEXT,
			cohesion DOUBLE NOT NULL DEFAULT 0,
			watch_density DOUBLE NOT NULL DEFAULT 0,
			franchise_dominance DOUBLE NOT NULL DEFAULT 0,
			thematic_consistency DOUBLE NOT NULL DEFAULT 0,
			phase_score DOUBLE NOT NULL DEFAULT 0,
			phase_type TEXT NOT NULL,
			explanation TEXT,
			posters JSON,
			updated_at TIMESTAMP NOT NULL
		);`,
	}

	queries = append(queries,
		`CREATE INDEX IF NOT EXISTS idx_candidates_active ON candidates(active);`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_media_type ON candidates(media_type);`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_popularity ON candidates(popularity DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_collection ON candidates(collection_id);`,

		`CREATE INDEX IF NOT EXISTS idx_watch_events_user_watched ON watch_events(user_id, watched_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_watch_events_user_item ON watch_events(user_id, tmdb_id, media_type);`,

		`CREATE INDEX IF NOT EXISTS idx_pairwise_sessions_user ON pairwise_sessions(user_id, started_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_pairwise_sessions_status ON pairwise_sessions(status);`,
		`CREATE INDEX IF NOT EXISTS idx_pairwise_judgments_session ON pairwise_judgments(session_id, created_at);`,

		`CREATE INDEX IF NOT EXISTS idx_viewing_phases_user ON viewing_phases(user_id, start_at DESC);`,
	)

	return queries
}

// firstLine trims a DDL statement down to something loggable.
func firstLine(query string) string {
	for i := 0; i < len(query); i++ {
		if query[i] == '\n' {
			return query[:i]
		}
	}
	return query
}
