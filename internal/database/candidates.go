// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

/*
candidates.go - Candidate Catalog Operations

The catalog is the single source of truth for everything the retrieval
layer can return. Ingestion upserts on (tmdb_id, media_type) so the
internal id stays stable across refreshes; the vector index position
maps and watch-event links depend on that stability.

content_hash is the SHA-256 of the composed embedding text, written by
ingestion and compared by the index maintenance service to find items
whose embeddings are stale.
*/
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// candidateColumns is the canonical SELECT list; scanCandidate depends
// on this exact order.
const candidateColumns = `
	id, tmdb_id, trakt_id, media_type, title, original_title, year,
	overview, tagline,
	genres::VARCHAR, keywords::VARCHAR, cast_members::VARCHAR,
	directors::VARCHAR, writers::VARCHAR, created_by::VARCHAR,
	production_companies::VARCHAR, networks::VARCHAR,
	production_countries::VARCHAR, spoken_languages::VARCHAR,
	runtime_minutes, rating, votes, popularity, original_language,
	release_date, status, adult, homepage, revenue, budget,
	collection_id, collection_name, certification, poster_path,
	season_count, episode_count, episode_runtimes::VARCHAR,
	first_air_date, last_air_date, in_production,
	obscurity_score, mainstream_score, freshness_score,
	active, updated_at`

// UpsertCandidate inserts or refreshes one catalog row and returns the
// stable internal id. contentHash is the SHA-256 of the composed
// embedding text for this metadata snapshot.
func (db *DB) UpsertCandidate(ctx context.Context, c *models.Candidate, contentHash string) (int64, error) {
	const op = "database.UpsertCandidate"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if c.TMDBID == 0 || c.Title == "" {
		return 0, recerr.Input(op, "candidate needs tmdb_id and title")
	}
	if c.MediaType != models.MediaTypeMovie && c.MediaType != models.MediaTypeShow {
		return 0, recerr.Input(op, "media_type must be movie or show")
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}

	lists := make([]string, 0, 11)
	for _, v := range []interface{}{
		c.Genres, c.Keywords, c.Cast, c.Directors, c.Writers,
		c.CreatedBy, c.ProductionCompanies, c.Networks,
		c.ProductionCountries, c.SpokenLanguages, c.EpisodeRuntimes,
	} {
		s, err := marshalList(v)
		if err != nil {
			return 0, recerr.E(recerr.KindInternal, op, err)
		}
		lists = append(lists, s)
	}

	query := `INSERT INTO candidates (
		tmdb_id, trakt_id, media_type, title, original_title, year,
		overview, tagline,
		genres, keywords, cast_members, directors, writers, created_by,
		production_companies, networks, production_countries, spoken_languages,
		runtime_minutes, rating, votes, popularity, original_language,
		release_date, status, adult, homepage, revenue, budget,
		collection_id, collection_name, certification, poster_path,
		season_count, episode_count, episode_runtimes,
		first_air_date, last_air_date, in_production,
		obscurity_score, mainstream_score, freshness_score,
		content_hash, active, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (tmdb_id, media_type) DO UPDATE SET
		trakt_id = EXCLUDED.trakt_id,
		title = EXCLUDED.title,
		original_title = EXCLUDED.original_title,
		year = EXCLUDED.year,
		overview = EXCLUDED.overview,
		tagline = EXCLUDED.tagline,
		genres = EXCLUDED.genres,
		keywords = EXCLUDED.keywords,
		cast_members = EXCLUDED.cast_members,
		directors = EXCLUDED.directors,
		writers = EXCLUDED.writers,
		created_by = EXCLUDED.created_by,
		production_companies = EXCLUDED.production_companies,
		networks = EXCLUDED.networks,
		production_countries = EXCLUDED.production_countries,
		spoken_languages = EXCLUDED.spoken_languages,
		runtime_minutes = EXCLUDED.runtime_minutes,
		rating = EXCLUDED.rating,
		votes = EXCLUDED.votes,
		popularity = EXCLUDED.popularity,
		original_language = EXCLUDED.original_language,
		release_date = EXCLUDED.release_date,
		status = EXCLUDED.status,
		adult = EXCLUDED.adult,
		homepage = EXCLUDED.homepage,
		revenue = EXCLUDED.revenue,
		budget = EXCLUDED.budget,
		collection_id = EXCLUDED.collection_id,
		collection_name = EXCLUDED.collection_name,
		certification = EXCLUDED.certification,
		poster_path = EXCLUDED.poster_path,
		season_count = EXCLUDED.season_count,
		episode_count = EXCLUDED.episode_count,
		episode_runtimes = EXCLUDED.episode_runtimes,
		first_air_date = EXCLUDED.first_air_date,
		last_air_date = EXCLUDED.last_air_date,
		in_production = EXCLUDED.in_production,
		obscurity_score = EXCLUDED.obscurity_score,
		mainstream_score = EXCLUDED.mainstream_score,
		freshness_score = EXCLUDED.freshness_score,
		content_hash = EXCLUDED.content_hash,
		active = EXCLUDED.active,
		updated_at = EXCLUDED.updated_at
	RETURNING id`

	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return 0, recerr.E(recerr.KindInternal, op, err)
	}

	var id int64
	err = stmt.QueryRowContext(ctx,
		c.TMDBID, c.TraktID, string(c.MediaType), c.Title, c.OriginalTitle, c.Year,
		c.Overview, c.Tagline,
		lists[0], lists[1], lists[2], lists[3], lists[4], lists[5],
		lists[6], lists[7], lists[8], lists[9],
		c.RuntimeMinutes, c.Rating, c.Votes, c.Popularity, c.OriginalLanguage,
		c.ReleaseDate, c.Status, c.Adult, c.Homepage, c.Revenue, c.Budget,
		c.CollectionID, c.CollectionName, c.Certification, c.PosterPath,
		c.SeasonCount, c.EpisodeCount, lists[10],
		c.FirstAirDate, c.LastAirDate, c.InProduction,
		c.ObscurityScore, c.MainstreamScore, c.FreshnessScore,
		contentHash, c.Active, c.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, recerr.E(recerr.KindInternal, op, fmt.Errorf("upsert candidate tmdb=%d: %w", c.TMDBID, err))
	}

	c.ID = id
	return id, nil
}

// GetCandidate fetches one candidate by internal id.
func (db *DB) GetCandidate(ctx context.Context, id int64) (*models.Candidate, error) {
	const op = "database.GetCandidate"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = ?`
	c, err := scanCandidate(op, db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recerr.NotFound(op, "candidate")
	}
	return c, err
}

// GetCandidateByKey fetches one candidate by its catalog key.
func (db *DB) GetCandidateByKey(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*models.Candidate, error) {
	const op = "database.GetCandidateByKey"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE tmdb_id = ? AND media_type = ?`
	c, err := scanCandidate(op, db.conn.QueryRowContext(ctx, query, tmdbID, string(mediaType)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recerr.NotFound(op, "candidate")
	}
	return c, err
}

// GetCandidatesByIDs hydrates a batch of candidates. Unknown ids are
// silently absent from the result map.
func (db *DB) GetCandidatesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Candidate, error) {
	const op = "database.GetCandidatesByIDs"
	if len(ids) == 0 {
		return map[int64]*models.Candidate{}, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	out := make(map[int64]*models.Candidate, len(ids))
	// Chunked IN lists keep the statement size bounded for large pools.
	const chunk = 200
	for start := 0; start < len(ids); start += chunk {
		end := start + chunk
		if end > len(ids) {
			end = len(ids)
		}
		part := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(part)), ",")
		query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id IN (` + placeholders + `)`

		args := make([]interface{}, len(part))
		for i, id := range part {
			args[i] = id
		}

		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		for rows.Next() {
			c, err := scanCandidate(op, rows)
			if err != nil {
				closeQuietly(rows)
				return nil, err
			}
			out[c.ID] = c
		}
		if err := rows.Err(); err != nil {
			closeQuietly(rows)
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		closeQuietly(rows)
	}
	return out, nil
}

// ListActiveCandidates pages through active catalog rows in id order.
// Pass the last seen id (0 to start) and a positive limit; an empty
// slice means the scan is done. Used by index rebuilds and lexical
// reindexing.
func (db *DB) ListActiveCandidates(ctx context.Context, afterID int64, limit int) ([]*models.Candidate, error) {
	const op = "database.ListActiveCandidates"
	if limit <= 0 {
		return nil, recerr.Input(op, "limit must be positive")
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + candidateColumns + `
		FROM candidates
		WHERE active AND id > ?
		ORDER BY id
		LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	var out []*models.Candidate
	for rows.Next() {
		c, err := scanCandidate(op, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

// TopPopularCandidates returns active, well-rated candidates by
// popularity, descending. mediaType narrows the result when non-empty.
// Backs the suggestion fallback for users with empty lists.
func (db *DB) TopPopularCandidates(ctx context.Context, mediaType models.MediaType, limit int) ([]*models.Candidate, error) {
	const op = "database.TopPopularCandidates"
	if limit <= 0 {
		return nil, recerr.Input(op, "limit must be positive")
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + candidateColumns + `
		FROM candidates
		WHERE active AND rating >= 6.0 AND votes >= 50`
	args := []interface{}{}
	if mediaType != "" {
		query += ` AND media_type = ?`
		args = append(args, string(mediaType))
	}
	query += ` ORDER BY popularity DESC, rating DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	var out []*models.Candidate
	for rows.Next() {
		c, err := scanCandidate(op, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

// ContentHashes returns the embedding-text hash for every active
// candidate, keyed by internal id. The index maintenance service diffs
// this against the vector index to find missing or stale embeddings.
func (db *DB) ContentHashes(ctx context.Context) (map[int64]string, error) {
	const op = "database.ContentHashes"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT id, COALESCE(content_hash, '') FROM candidates WHERE active`)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	out := make(map[int64]string)
	for rows.Next() {
		var id int64
		var hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		out[id] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

// SetCandidateActive toggles retrieval visibility for one candidate.
func (db *DB) SetCandidateActive(ctx context.Context, id int64, active bool) error {
	const op = "database.SetCandidateActive"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE candidates SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return recerr.NotFound(op, "candidate")
	}
	return nil
}

// CountCandidates reports total and active catalog sizes.
func (db *DB) CountCandidates(ctx context.Context) (total, active int, err error) {
	const op = "database.CountCandidates"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN active THEN 1 ELSE 0 END), 0) FROM candidates`)
	if err := row.Scan(&total, &active); err != nil {
		return 0, 0, recerr.E(recerr.KindInternal, op, err)
	}
	return total, active, nil
}

// scanCandidate decodes one candidateColumns row.
func scanCandidate(op string, row rowScanner) (*models.Candidate, error) {
	var (
		c         models.Candidate
		mediaType string
		jsonCols  [11]sql.NullString
		// Nullable TEXT columns in SELECT order: original_title,
		// overview, tagline, original_language, release_date, status,
		// homepage, collection_name, certification, poster_path,
		// first_air_date, last_air_date.
		textCols [12]sql.NullString
	)

	err := row.Scan(
		&c.ID, &c.TMDBID, &c.TraktID, &mediaType, &c.Title,
		&textCols[0], &c.Year,
		&textCols[1], &textCols[2],
		&jsonCols[0], &jsonCols[1], &jsonCols[2], &jsonCols[3], &jsonCols[4],
		&jsonCols[5], &jsonCols[6], &jsonCols[7], &jsonCols[8], &jsonCols[9],
		&c.RuntimeMinutes, &c.Rating, &c.Votes, &c.Popularity,
		&textCols[3], &textCols[4],
		&textCols[5], &c.Adult, &textCols[6],
		&c.Revenue, &c.Budget, &c.CollectionID,
		&textCols[7], &textCols[8], &textCols[9],
		&c.SeasonCount, &c.EpisodeCount, &jsonCols[10],
		&textCols[10], &textCols[11], &c.InProduction,
		&c.ObscurityScore, &c.MainstreamScore, &c.FreshnessScore,
		&c.Active, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, recerr.E(recerr.KindInternal, op, fmt.Errorf("scan candidate: %w", err))
	}

	c.MediaType = models.MediaType(mediaType)
	c.OriginalTitle = textCols[0].String
	c.Overview = textCols[1].String
	c.Tagline = textCols[2].String
	c.OriginalLanguage = textCols[3].String
	c.ReleaseDate = textCols[4].String
	c.Status = textCols[5].String
	c.Homepage = textCols[6].String
	c.CollectionName = textCols[7].String
	c.Certification = textCols[8].String
	c.PosterPath = textCols[9].String
	c.FirstAirDate = textCols[10].String
	c.LastAirDate = textCols[11].String

	if c.Genres, err = unmarshalStrings(op, jsonCols[0]); err != nil {
		return nil, err
	}
	if c.Keywords, err = unmarshalStrings(op, jsonCols[1]); err != nil {
		return nil, err
	}
	if c.Cast, err = unmarshalStrings(op, jsonCols[2]); err != nil {
		return nil, err
	}
	if c.Directors, err = unmarshalStrings(op, jsonCols[3]); err != nil {
		return nil, err
	}
	if c.Writers, err = unmarshalStrings(op, jsonCols[4]); err != nil {
		return nil, err
	}
	if c.CreatedBy, err = unmarshalStrings(op, jsonCols[5]); err != nil {
		return nil, err
	}
	if c.ProductionCompanies, err = unmarshalStrings(op, jsonCols[6]); err != nil {
		return nil, err
	}
	if c.Networks, err = unmarshalStrings(op, jsonCols[7]); err != nil {
		return nil, err
	}
	if c.ProductionCountries, err = unmarshalStrings(op, jsonCols[8]); err != nil {
		return nil, err
	}
	if c.SpokenLanguages, err = unmarshalStrings(op, jsonCols[9]); err != nil {
		return nil, err
	}
	if c.EpisodeRuntimes, err = unmarshalInts(op, jsonCols[10]); err != nil {
		return nil, err
	}

	return &c, nil
}
