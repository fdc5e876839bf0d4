// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// UpsertItemProfile stores LLM enrichment (mood/tone/theme tags plus a
// short synopsis) for one candidate.
func (db *DB) UpsertItemProfile(ctx context.Context, p *models.ItemLLMProfile) error {
	const op = "database.UpsertItemProfile"
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if p.CandidateID == 0 {
		return recerr.Input(op, "profile needs a candidate_id")
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	moods, err := marshalList(p.MoodTags)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	tones, err := marshalList(p.ToneTags)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	themes, err := marshalList(p.Themes)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}

	query := `INSERT INTO item_llm_profiles (candidate_id, mood_tags, tone_tags, themes, synopsis, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (candidate_id) DO UPDATE SET
			mood_tags = EXCLUDED.mood_tags,
			tone_tags = EXCLUDED.tone_tags,
			themes = EXCLUDED.themes,
			synopsis = EXCLUDED.synopsis,
			updated_at = EXCLUDED.updated_at`

	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	if _, err := stmt.ExecContext(ctx, p.CandidateID, moods, tones, themes, p.Synopsis, p.UpdatedAt); err != nil {
		return recerr.E(recerr.KindInternal, op, err)
	}
	return nil
}

// GetItemProfiles hydrates enrichment rows for a candidate batch.
// Candidates without a profile are absent from the result map.
func (db *DB) GetItemProfiles(ctx context.Context, candidateIDs []int64) (map[int64]*models.ItemLLMProfile, error) {
	const op = "database.GetItemProfiles"
	if len(candidateIDs) == 0 {
		return map[int64]*models.ItemLLMProfile{}, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	out := make(map[int64]*models.ItemLLMProfile, len(candidateIDs))
	const chunk = 200
	for start := 0; start < len(candidateIDs); start += chunk {
		end := start + chunk
		if end > len(candidateIDs) {
			end = len(candidateIDs)
		}
		part := candidateIDs[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(part)), ",")
		query := `SELECT candidate_id, mood_tags::VARCHAR, tone_tags::VARCHAR, themes::VARCHAR,
			synopsis, updated_at
			FROM item_llm_profiles WHERE candidate_id IN (` + placeholders + `)`

		args := make([]interface{}, len(part))
		for i, id := range part {
			args[i] = id
		}

		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		for rows.Next() {
			p, err := scanItemProfile(op, rows)
			if err != nil {
				closeQuietly(rows)
				return nil, err
			}
			out[p.CandidateID] = p
		}
		if err := rows.Err(); err != nil {
			closeQuietly(rows)
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		closeQuietly(rows)
	}
	return out, nil
}

// ListUnprofiledCandidateIDs returns active candidates that enrichment
// has not touched yet, most popular first so the visible part of the
// catalog gets tags before the long tail.
func (db *DB) ListUnprofiledCandidateIDs(ctx context.Context, limit int) ([]int64, error) {
	const op = "database.ListUnprofiledCandidateIDs"
	if limit <= 0 {
		return nil, recerr.Input(op, "limit must be positive")
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT c.id FROM candidates c
		LEFT JOIN item_llm_profiles p ON p.candidate_id = c.id
		WHERE c.active AND p.candidate_id IS NULL
		ORDER BY c.popularity DESC
		LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	defer closeQuietly(rows)

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, recerr.E(recerr.KindInternal, op, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	return out, nil
}

func scanItemProfile(op string, row rowScanner) (*models.ItemLLMProfile, error) {
	var (
		p        models.ItemLLMProfile
		moods    sql.NullString
		tones    sql.NullString
		themes   sql.NullString
		synopsis sql.NullString
	)
	if err := row.Scan(&p.CandidateID, &moods, &tones, &themes, &synopsis, &p.UpdatedAt); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	p.Synopsis = synopsis.String

	var err error
	if p.MoodTags, err = unmarshalStrings(op, moods); err != nil {
		return nil, err
	}
	if p.ToneTags, err = unmarshalStrings(op, tones); err != nil {
		return nil, err
	}
	if p.Themes, err = unmarshalStrings(op, themes); err != nil {
		return nil, err
	}
	return &p, nil
}
