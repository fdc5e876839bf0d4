// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

/*
history.go - Watch History and Rating Operations

Watch events arrive in overlapping pages from the watch provider, so
inserts go through ON CONFLICT DO NOTHING against the
UNIQUE(user_id, trakt_id, watched_at) constraint; re-syncing the same
window is a no-op and InsertWatchEvents reports only genuinely new rows.

Ratings are a plain upsert keyed (user_id, tmdb_id, media_type): the
provider returns the full current rating set, not a delta.
*/
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// watchEventColumns is the canonical SELECT list for scanWatchEvent.
const watchEventColumns = `
	id, user_id, candidate_id, tmdb_id, trakt_id, media_type, watched_at,
	rating, plays, title, year, genres::VARCHAR, keywords::VARCHAR,
	overview, poster_path, runtime_minutes, language`

// InsertWatchEvents bulk-inserts synced history for one user and
// returns how many rows were actually new. Duplicate events (same
// user, trakt id and watched-at instant) are silently ignored.
func (db *DB) InsertWatchEvents(ctx context.Context, events []*models.WatchEvent) (int, error) {
	const op = "database.InsertWatchEvents"
	if len(events) == 0 {
		return 0, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `INSERT INTO watch_events (
		user_id, candidate_id, tmdb_id, trakt_id, media_type, watched_at,
		rating, plays, title, year, genres, keywords,
		overview, poster_path, runtime_minutes, language
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING`

	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return 0, recerr.E(recerr.KindInternal, op, err)
	}

	inserted := 0
	for _, e := range events {
		if e.UserID == 0 || e.TraktID == 0 || e.WatchedAt.IsZero() {
			return inserted, recerr.Input(op, "watch event needs user_id, trakt_id and watched_at")
		}

		genres, err := marshalList(e.Genres)
		if err != nil {
			return inserted, recerr.E(recerr.KindInternal, op, err)
		}
		keywords, err := marshalList(e.Keywords)
		if err != nil {
			return inserted, recerr.E(recerr.KindInternal, op, err)
		}

		res, err := stmt.ExecContext(ctx,
			e.UserID, e.CandidateID, e.TMDBID, e.TraktID, string(e.MediaType), e.WatchedAt,
			e.Rating, e.Plays, e.Title, e.Year, genres, keywords,
			e.Overview, e.PosterPath, e.RuntimeMinutes, e.Language,
		)
		if err != nil {
			return inserted, recerr.E(recerr.KindInternal, op, fmt.Errorf("insert watch event trakt=%d: %w", e.TraktID, err))
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// RecentWatchEvents returns a user's history at or after since, newest
// first. Profile building and phase detection both read through here.
func (db *DB) RecentWatchEvents(ctx context.Context, userID int64, since time.Time) ([]*models.WatchEvent, error) {
	const op = "database.RecentWatchEvents"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + watchEventColumns + `
		FROM watch_events
		WHERE user_id = ? AND watched_at >= ?
		ORDER BY watched_at DESC`

	return db.queryWatchEvents(ctx, op, query, userID, since)
}

// WatchEventsBetween returns a user's history in [from, to), oldest
// first, for windowed phase detection.
func (db *DB) WatchEventsBetween(ctx context.Context, userID int64, from, to time.Time) ([]*models.WatchEvent, error) {
	const op = "database.WatchEventsBetween"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + watchEventColumns + `
		FROM watch_events
		WHERE user_id = ? AND watched_at >= ? AND watched_at < ?
		ORDER BY watched_at`

	return db.queryWatchEvents(ctx, op, query, userID, from, to)
}

// LatestWatchEvents returns the user's newest events, newest first,
// optionally narrowed to one media type. limit <= 0 means no cap.
func (db *DB) LatestWatchEvents(ctx context.Context, userID int64, mediaType models.MediaType, limit int) ([]*models.WatchEvent, error) {
	const op = "database.LatestWatchEvents"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + watchEventColumns + ` FROM watch_events WHERE user_id = ?`
	args := []interface{}{userID}
	if mediaType != "" {
		query += ` AND media_type = ?`
		args = append(args, string(mediaType))
	}
	query += ` ORDER BY watched_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	return db.queryWatchEvents(ctx, op, query, args...)
}

// WatchedKeys returns the distinct catalog keys the user has watched,
// optionally narrowed to one media type.
func (db *DB) WatchedKeys(ctx context.Context, userID int64, mediaType models.MediaType) (map[models.CandidateKey]bool, error) {
	const op = "database.WatchedKeys"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT DISTINCT tmdb_id, media_type FROM watch_events WHERE user_id = ?`
	args := []interface{}{userID}
	if mediaType != "" {
		query += ` AND media_type = ?`
		args = append(args, string(mediaType))
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	out := make(map[models.CandidateKey]bool)
	for rows.Next() {
		var (
			tmdbID int64
			mt     string
		)
		if err := rows.Scan(&tmdbID, &mt); err != nil {
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		out[models.CandidateKey{TMDBID: tmdbID, MediaType: models.MediaType(mt)}] = true
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

// UnlinkedEventKeys returns the distinct catalog keys of watch events
// that have no candidate row yet. These feed catalog ingestion so the
// history loop eventually closes.
func (db *DB) UnlinkedEventKeys(ctx context.Context, limit int) ([]models.CandidateKey, error) {
	const op = "database.UnlinkedEventKeys"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT DISTINCT tmdb_id, media_type FROM watch_events
		WHERE candidate_id = 0 AND tmdb_id > 0
		ORDER BY tmdb_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	var out []models.CandidateKey
	for rows.Next() {
		var (
			tmdbID int64
			mt     string
		)
		if err := rows.Scan(&tmdbID, &mt); err != nil {
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		out = append(out, models.CandidateKey{TMDBID: tmdbID, MediaType: models.MediaType(mt)})
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

// WatchedStatusByType returns the user's complete watched map for one
// media type, keyed by tmdb id.
func (db *DB) WatchedStatusByType(ctx context.Context, userID int64, mediaType models.MediaType) (map[int64]models.WatchedStatus, error) {
	const op = "database.WatchedStatusByType"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT tmdb_id, MAX(watched_at),
		GREATEST(MAX(plays), CAST(COUNT(*) AS INTEGER))
		FROM watch_events
		WHERE user_id = ? AND media_type = ?
		GROUP BY tmdb_id`

	rows, err := db.conn.QueryContext(ctx, query, userID, string(mediaType))
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	out := make(map[int64]models.WatchedStatus)
	for rows.Next() {
		var (
			tmdbID int64
			status models.WatchedStatus
		)
		if err := rows.Scan(&tmdbID, &status.WatchedAt, &status.Plays); err != nil {
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		out[tmdbID] = status
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

// WatchedStatus reports the latest viewing and play count for each of
// the given catalog keys the user has actually watched. Unwatched keys
// are absent from the result.
func (db *DB) WatchedStatus(ctx context.Context, userID int64, keys []models.CandidateKey) (map[models.CandidateKey]models.WatchedStatus, error) {
	const op = "database.WatchedStatus"
	out := make(map[models.CandidateKey]models.WatchedStatus, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	const chunk = 100
	for start := 0; start < len(keys); start += chunk {
		end := start + chunk
		if end > len(keys) {
			end = len(keys)
		}
		part := keys[start:end]

		preds := make([]string, len(part))
		args := make([]interface{}, 0, len(part)*2+1)
		args = append(args, userID)
		for i, key := range part {
			preds[i] = "(tmdb_id = ? AND media_type = ?)"
			args = append(args, key.TMDBID, string(key.MediaType))
		}

		query := `SELECT tmdb_id, media_type, MAX(watched_at),
			GREATEST(MAX(plays), CAST(COUNT(*) AS INTEGER))
			FROM watch_events
			WHERE user_id = ? AND (` + strings.Join(preds, " OR ") + `)
			GROUP BY tmdb_id, media_type`

		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		for rows.Next() {
			var (
				tmdbID    int64
				mediaType string
				status    models.WatchedStatus
			)
			if err := rows.Scan(&tmdbID, &mediaType, &status.WatchedAt, &status.Plays); err != nil {
				closeQuietly(rows)
				return nil, recerr.E(recerr.KindInternal, op, err)
			}
			key := models.CandidateKey{TMDBID: tmdbID, MediaType: models.MediaType(mediaType)}
			out[key] = status
		}
		if err := rows.Err(); err != nil {
			closeQuietly(rows)
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		closeQuietly(rows)
	}
	return out, nil
}

// UserWatchStats aggregates a user's full history.
func (db *DB) UserWatchStats(ctx context.Context, userID int64) (*models.WatchStats, error) {
	const op = "database.UserWatchStats"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT
		COUNT(*),
		COUNT(DISTINCT (tmdb_id, media_type)),
		COUNT(DISTINCT CASE WHEN media_type = 'movie' THEN tmdb_id END),
		COUNT(DISTINCT CASE WHEN media_type = 'show' THEN tmdb_id END),
		MIN(watched_at), MAX(watched_at),
		COALESCE(AVG(CASE WHEN rating > 0 THEN CAST(rating AS DOUBLE) END), 0)
		FROM watch_events WHERE user_id = ?`

	var (
		stats models.WatchStats
		first sql.NullTime
		last  sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalEvents, &stats.UniqueItems,
		&stats.MovieCount, &stats.ShowCount,
		&first, &last, &stats.AvgRating,
	)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	if first.Valid {
		stats.FirstWatchedAt = first.Time
	}
	if last.Valid {
		stats.LastWatchedAt = last.Time
	}
	return &stats, nil
}

// LastWatchedAt returns the user's sync high-water mark (zero time when
// no history exists yet).
func (db *DB) LastWatchedAt(ctx context.Context, userID int64) (time.Time, error) {
	const op = "database.LastWatchedAt"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var last sql.NullTime
	err := db.conn.QueryRowContext(ctx,
		`SELECT MAX(watched_at) FROM watch_events WHERE user_id = ?`, userID).Scan(&last)
	if err != nil {
		return time.Time{}, recerr.E(recerr.KindInternal, op, err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}

// LinkWatchEvents backfills candidate_id on events whose catalog item
// arrived after the history did. Returns the number of rows linked.
func (db *DB) LinkWatchEvents(ctx context.Context) (int, error) {
	const op = "database.LinkWatchEvents"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `UPDATE watch_events SET candidate_id = c.id
		FROM candidates c
		WHERE watch_events.candidate_id = 0
		  AND watch_events.tmdb_id = c.tmdb_id
		  AND watch_events.media_type = c.media_type`

	res, err := db.conn.ExecContext(ctx, query)
	if err != nil {
		return 0, recerr.E(recerr.KindInternal, op, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// UpsertUserRatings replaces the user's explicit ratings with the
// provider's current set for the supplied items.
func (db *DB) UpsertUserRatings(ctx context.Context, userID int64, ratings []models.UserRating) error {
	const op = "database.UpsertUserRatings"
	if len(ratings) == 0 {
		return nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `INSERT INTO user_ratings (user_id, tmdb_id, media_type, rating, rated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, tmdb_id, media_type) DO UPDATE SET
			rating = EXCLUDED.rating,
			rated_at = EXCLUDED.rated_at`

	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	for _, r := range ratings {
		if r.Rating < 1 || r.Rating > 10 {
			return recerr.Input(op, "rating must be in 1..10")
		}
		ratedAt := r.RatedAt
		if ratedAt.IsZero() {
			ratedAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, userID, r.TMDBID, string(r.MediaType), r.Rating, ratedAt); err != nil {
			return recerr.E(recerr.KindInternal, op, fmt.Errorf("upsert rating tmdb=%d: %w", r.TMDBID, err))
		}
	}
	return nil
}

// UserRatings returns all of a user's explicit ratings keyed by catalog
// key.
func (db *DB) UserRatings(ctx context.Context, userID int64) (map[models.CandidateKey]models.UserRating, error) {
	const op = "database.UserRatings"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT tmdb_id, media_type, rating, rated_at FROM user_ratings WHERE user_id = ?`, userID)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	out := make(map[models.CandidateKey]models.UserRating)
	for rows.Next() {
		var (
			r         models.UserRating
			mediaType string
			ratedAt   sql.NullTime
		)
		if err := rows.Scan(&r.TMDBID, &mediaType, &r.Rating, &ratedAt); err != nil {
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		r.MediaType = models.MediaType(mediaType)
		if ratedAt.Valid {
			r.RatedAt = ratedAt.Time
		}
		out[models.CandidateKey{TMDBID: r.TMDBID, MediaType: r.MediaType}] = r
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

// queryWatchEvents runs a watchEventColumns query and scans all rows.
func (db *DB) queryWatchEvents(ctx context.Context, op, query string, args ...interface{}) ([]*models.WatchEvent, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	var out []*models.WatchEvent
	for rows.Next() {
		e, err := scanWatchEvent(op, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

func scanWatchEvent(op string, row rowScanner) (*models.WatchEvent, error) {
	var (
		e          models.WatchEvent
		mediaType  string
		genres     sql.NullString
		keywords   sql.NullString
		title      sql.NullString
		overview   sql.NullString
		posterPath sql.NullString
		language   sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.CandidateID, &e.TMDBID, &e.TraktID, &mediaType, &e.WatchedAt,
		&e.Rating, &e.Plays, &title, &e.Year, &genres, &keywords,
		&overview, &posterPath, &e.RuntimeMinutes, &language,
	)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, fmt.Errorf("scan watch event: %w", err))
	}
	e.MediaType = models.MediaType(mediaType)
	e.Title = title.String
	e.Overview = overview.String
	e.PosterPath = posterPath.String
	e.Language = language.String

	if e.Genres, err = unmarshalStrings(op, genres); err != nil {
		return nil, err
	}
	if e.Keywords, err = unmarshalStrings(op, keywords); err != nil {
		return nil, err
	}
	return &e, nil
}
