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

const viewingPhaseColumns = `
	id, user_id, label, icon, start_at, end_at, members::VARCHAR,
	dominant_genres::VARCHAR, dominant_keywords::VARCHAR,
	franchise_id, franchise_name,
	cohesion, watch_density, franchise_dominance, thematic_consistency,
	phase_score, phase_type, explanation, posters::VARCHAR, updated_at`

// UpsertViewingPhase inserts a newly detected phase or refreshes an
// existing one (detection re-uses the id when member overlap says it is
// the same phase). Assigns an id when the caller left it empty.
func (db *DB) UpsertViewingPhase(ctx context.Context, p *models.ViewingPhase) error {
	const op = "database.UpsertViewingPhase"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if p.UserID == 0 || p.Label == "" {
		return recerr.Input(op, "phase needs user_id and label")
	}
	if len(p.Members) == 0 {
		return recerr.Input(op, "phase needs members")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	members, err := marshalList(p.Members)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	genres, err := marshalList(p.DominantGenres)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	keywords, err := marshalList(p.DominantKeywords)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	posters, err := marshalList(p.Posters)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}

	var endAt interface{}
	if p.EndAt != nil {
		endAt = *p.EndAt
	}

	query := `INSERT INTO viewing_phases (
		id, user_id, label, icon, start_at, end_at, members,
		dominant_genres, dominant_keywords, franchise_id, franchise_name,
		cohesion, watch_density, franchise_dominance, thematic_consistency,
		phase_score, phase_type, explanation, posters, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		label = EXCLUDED.label,
		icon = EXCLUDED.icon,
		start_at = EXCLUDED.start_at,
		end_at = EXCLUDED.end_at,
		members = EXCLUDED.members,
		dominant_genres = EXCLUDED.dominant_genres,
		dominant_keywords = EXCLUDED.dominant_keywords,
		franchise_id = EXCLUDED.franchise_id,
		franchise_name = EXCLUDED.franchise_name,
		cohesion = EXCLUDED.cohesion,
		watch_density = EXCLUDED.watch_density,
		franchise_dominance = EXCLUDED.franchise_dominance,
		thematic_consistency = EXCLUDED.thematic_consistency,
		phase_score = EXCLUDED.phase_score,
		phase_type = EXCLUDED.phase_type,
		explanation = EXCLUDED.explanation,
		posters = EXCLUDED.posters,
		updated_at = EXCLUDED.updated_at`

	_, err = db.conn.ExecContext(ctx, query,
		p.ID, p.UserID, p.Label, p.Icon, p.StartAt, endAt, members,
		genres, keywords, p.FranchiseID, p.FranchiseName,
		p.Metrics.Cohesion, p.Metrics.WatchDensity, p.Metrics.FranchiseDominance,
		p.Metrics.ThematicConsistency, p.Metrics.PhaseScore,
		string(p.PhaseType), p.Explanation, posters, p.UpdatedAt,
	)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	return nil
}

// GetViewingPhase fetches one phase by id.
func (db *DB) GetViewingPhase(ctx context.Context, id string) (*models.ViewingPhase, error) {
	const op = "database.GetViewingPhase"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + viewingPhaseColumns + ` FROM viewing_phases WHERE id = ?`
	p, err := scanViewingPhase(op, db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recerr.NotFound(op, "viewing phase")
	}
	return p, err
}

// UserPhases returns all of a user's phases, most recent first.
func (db *DB) UserPhases(ctx context.Context, userID int64) ([]*models.ViewingPhase, error) {
	const op = "database.UserPhases"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + viewingPhaseColumns + `
		FROM viewing_phases
		WHERE user_id = ?
		ORDER BY start_at DESC`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	var out []*models.ViewingPhase
	for rows.Next() {
		p, err := scanViewingPhase(op, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

// DeleteViewingPhase removes one phase (detection demoted it below the
// keep threshold).
func (db *DB) DeleteViewingPhase(ctx context.Context, id string) error {
	const op = "database.DeleteViewingPhase"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM viewing_phases WHERE id = ?`, id)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return recerr.NotFound(op, "viewing phase")
	}
	return nil
}

func scanViewingPhase(op string, row rowScanner) (*models.ViewingPhase, error) {
	var (
		p             models.ViewingPhase
		icon          sql.NullString
		endAt         sql.NullTime
		members       sql.NullString
		genres        sql.NullString
		keywords      sql.NullString
		franchiseName sql.NullString
		phaseType     string
		explanation   sql.NullString
		posters       sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.Label, &icon, &p.StartAt, &endAt, &members,
		&genres, &keywords, &p.FranchiseID, &franchiseName,
		&p.Metrics.Cohesion, &p.Metrics.WatchDensity, &p.Metrics.FranchiseDominance,
		&p.Metrics.ThematicConsistency, &p.Metrics.PhaseScore,
		&phaseType, &explanation, &posters, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, recerr.E(recerr.KindInternal, op, err)
	}

	p.Icon = icon.String
	p.FranchiseName = franchiseName.String
	p.PhaseType = models.PhaseType(phaseType)
	p.Explanation = explanation.String
	if endAt.Valid {
		t := endAt.Time
		p.EndAt = &t
	}
	if p.Members, err = unmarshalInt64s(op, members); err != nil {
		return nil, err
	}
	if p.DominantGenres, err = unmarshalStrings(op, genres); err != nil {
		return nil, err
	}
	if p.DominantKeywords, err = unmarshalStrings(op, keywords); err != nil {
		return nil, err
	}
	if p.Posters, err = unmarshalStrings(op, posters); err != nil {
		return nil, err
	}
	return &p, nil
}
