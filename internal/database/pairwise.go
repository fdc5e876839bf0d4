// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

const pairwiseSessionColumns = `
	id, user_id, prompt, list_type, pool::VARCHAR, total_pairs,
	completed_pairs, status, started_at, updated_at`

// CreatePairwiseSession persists a new tournament session. Assigns an
// id when the caller left it empty.
func (db *DB) CreatePairwiseSession(ctx context.Context, s *models.PairwiseSession) error {
	const op = "database.CreatePairwiseSession"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if s.UserID == 0 {
		return recerr.Input(op, "session needs a user_id")
	}
	if len(s.Pool) < 2 {
		return recerr.Input(op, "session pool needs at least two candidates")
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if s.StartedAt.IsZero() {
		s.StartedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	if s.Status == "" {
		s.Status = models.SessionActive
	}

	pool, err := marshalList(s.Pool)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}

	query := `INSERT INTO pairwise_sessions (
		id, user_id, prompt, list_type, pool, total_pairs,
		completed_pairs, status, started_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = db.conn.ExecContext(ctx, query,
		s.ID, s.UserID, s.Prompt, string(s.ListType), pool, s.TotalPairs,
		s.CompletedPairs, string(s.Status), s.StartedAt, s.UpdatedAt,
	)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	return nil
}

// GetPairwiseSession fetches one session by id.
func (db *DB) GetPairwiseSession(ctx context.Context, id string) (*models.PairwiseSession, error) {
	const op = "database.GetPairwiseSession"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + pairwiseSessionColumns + ` FROM pairwise_sessions WHERE id = ?`
	s, err := scanPairwiseSession(op, db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recerr.NotFound(op, "pairwise session")
	}
	return s, err
}

// UpdatePairwiseSession writes back progress and status after each
// judgment (or on completion/abandonment).
func (db *DB) UpdatePairwiseSession(ctx context.Context, s *models.PairwiseSession) error {
	const op = "database.UpdatePairwiseSession"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	s.UpdatedAt = time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE pairwise_sessions SET completed_pairs = ?, status = ?, updated_at = ? WHERE id = ?`,
		s.CompletedPairs, string(s.Status), s.UpdatedAt, s.ID)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return recerr.NotFound(op, "pairwise session")
	}
	return nil
}

// RecentPairwiseSessions returns a user's latest sessions, newest
// first. The persona summarizer reads the last handful through here.
func (db *DB) RecentPairwiseSessions(ctx context.Context, userID int64, limit int) ([]*models.PairwiseSession, error) {
	const op = "database.RecentPairwiseSessions"
	if limit <= 0 {
		return nil, recerr.Input(op, "limit must be positive")
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + pairwiseSessionColumns + `
		FROM pairwise_sessions
		WHERE user_id = ?
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	var out []*models.PairwiseSession
	for rows.Next() {
		s, err := scanPairwiseSession(op, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

// InsertPairwiseJudgment records one judgment. Assigns an id when the
// caller left it empty.
func (db *DB) InsertPairwiseJudgment(ctx context.Context, j *models.PairwiseJudgment) error {
	const op = "database.InsertPairwiseJudgment"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if j.SessionID == "" {
		return recerr.Input(op, "judgment needs a session_id")
	}
	if !j.Winner.Valid() {
		return recerr.Input(op, "winner must be a, b, skip, both or neither")
	}
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO pairwise_judgments (
		id, session_id, candidate_a, candidate_b, winner,
		confidence, response_time_ms, explanation, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	_, err = stmt.ExecContext(ctx,
		j.ID, j.SessionID, j.CandidateA, j.CandidateB, string(j.Winner),
		j.Confidence, j.ResponseTimeMS, j.Explanation, j.CreatedAt,
	)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	return nil
}

// SessionJudgments returns all judgments for a session in submission
// order.
func (db *DB) SessionJudgments(ctx context.Context, sessionID string) ([]*models.PairwiseJudgment, error) {
	const op = "database.SessionJudgments"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, session_id, candidate_a, candidate_b, winner,
		confidence, response_time_ms, explanation, created_at
		FROM pairwise_judgments
		WHERE session_id = ?
		ORDER BY created_at`

	return db.queryJudgments(ctx, op, query, sessionID)
}

// JudgmentsSince returns a user's judgments newer than since across all
// sessions, oldest first. Phase prediction mines these for directional
// taste signals.
func (db *DB) JudgmentsSince(ctx context.Context, userID int64, since time.Time) ([]*models.PairwiseJudgment, error) {
	const op = "database.JudgmentsSince"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT j.id, j.session_id, j.candidate_a, j.candidate_b, j.winner,
		j.confidence, j.response_time_ms, j.explanation, j.created_at
		FROM pairwise_judgments j
		JOIN pairwise_sessions s ON s.id = j.session_id
		WHERE s.user_id = ? AND j.created_at >= ?
		ORDER BY j.created_at`

	return db.queryJudgments(ctx, op, query, userID, since)
}

func (db *DB) queryJudgments(ctx context.Context, op, query string, args ...interface{}) ([]*models.PairwiseJudgment, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	var out []*models.PairwiseJudgment
	for rows.Next() {
		var (
			j           models.PairwiseJudgment
			winner      string
			explanation sql.NullString
		)
		err := rows.Scan(&j.ID, &j.SessionID, &j.CandidateA, &j.CandidateB, &winner,
			&j.Confidence, &j.ResponseTimeMS, &explanation, &j.CreatedAt)
		if err != nil {
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		j.Winner = models.Winner(winner)
		j.Explanation = explanation.String
		out = append(out, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

func scanPairwiseSession(op string, row rowScanner) (*models.PairwiseSession, error) {
	var (
		s        models.PairwiseSession
		prompt   sql.NullString
		listType sql.NullString
		pool     sql.NullString
		status   string
	)
	err := row.Scan(&s.ID, &s.UserID, &prompt, &listType, &pool,
		&s.TotalPairs, &s.CompletedPairs, &status, &s.StartedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	s.Prompt = prompt.String
	s.ListType = models.ListType(listType.String)
	s.Status = models.SessionStatus(status)
	if s.Pool, err = unmarshalInt64s(op, pool); err != nil {
		return nil, err
	}
	return &s, nil
}
