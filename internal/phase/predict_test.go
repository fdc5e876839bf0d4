// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package phase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/vecindex"
)

type fakeAspectIndex struct {
	hits []vecindex.ItemHit
	err  error
}

func (f *fakeAspectIndex) Search(_ models.Vector, _ int) ([]vecindex.ItemHit, error) {
	return f.hits, f.err
}

func seedJudgments(db *fakeStore, userID int64, now time.Time) {
	for i := 0; i < 4; i++ {
		id := int64(200 + i)
		db.candidates[id] = &models.Candidate{
			ID:        id,
			TMDBID:    id,
			MediaType: models.MediaTypeShow,
			Title:     fmt.Sprintf("Slow Burn %d", i+1),
			Overview:  "bravo mystery serial",
			Genres:    []string{"Mystery", "Drama"},
			Keywords:  []string{"detective"},
		}
	}
	db.sessions = []*models.PairwiseSession{{
		ID:        "s1",
		UserID:    userID,
		Status:    models.SessionCompleted,
		UpdatedAt: now.AddDate(0, 0, -3),
	}}
	db.judgments["s1"] = []*models.PairwiseJudgment{
		{SessionID: "s1", CandidateA: 200, CandidateB: 201, Winner: models.WinnerA},
		{SessionID: "s1", CandidateA: 202, CandidateB: 200, Winner: models.WinnerB},
		{SessionID: "s1", CandidateA: 201, CandidateB: 203, Winner: models.WinnerB},
		{SessionID: "s1", CandidateA: 202, CandidateB: 203, Winner: models.WinnerA},
	}
}

func TestPredictNextFromJudgments(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	db := newFakeStore()
	seedJudgments(db, 1, now)
	d := testDetector(t, db, now)
	d.multi = &fakeAspectIndex{hits: []vecindex.ItemHit{
		{ID: 200, Label: models.LabelBase, Similarity: 0.9}, // a winner, excluded
		{ID: 300, Label: models.LabelBase, Similarity: 0.8},
		{ID: 301, Label: models.LabelKeywords, Similarity: 0.7},
		{ID: 300, Label: models.LabelTitle, Similarity: 0.6}, // duplicate id
	}}

	p, err := d.PredictNext(context.Background(), 1)
	if err != nil {
		t.Fatalf("PredictNext: %v", err)
	}
	if p.Source != "judgments" {
		t.Fatalf("source = %q, want judgments", p.Source)
	}
	if len(p.Genres) == 0 || p.Genres[0] != "Drama" && p.Genres[0] != "Mystery" {
		t.Errorf("genres = %v, want Mystery/Drama first", p.Genres)
	}
	if p.Label == "" {
		t.Error("label empty")
	}
	want := []int64{300, 301}
	if len(p.CandidateIDs) != len(want) {
		t.Fatalf("candidate_ids = %v, want %v", p.CandidateIDs, want)
	}
	for i, id := range want {
		if p.CandidateIDs[i] != id {
			t.Errorf("candidate_ids[%d] = %d, want %d", i, p.CandidateIDs[i], id)
		}
	}
	if p.Confidence <= 0 || p.Confidence >= 1 {
		t.Errorf("confidence = %v, want in (0, 1)", p.Confidence)
	}
}

func TestPredictNextStaleJudgmentsFallThrough(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	db := newFakeStore()
	seedJudgments(db, 1, now)
	// Push the session outside the lookback; without watches either,
	// prediction has nothing.
	db.sessions[0].UpdatedAt = now.AddDate(0, 0, -90)
	d := testDetector(t, db, now)

	_, err := d.PredictNext(context.Background(), 1)
	if !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestPredictNextFromClustering(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	db := newFakeStore()
	// No judgments; recent watches form one tight group.
	for i := 0; i < 4; i++ {
		id := int64(400 + i)
		db.candidates[id] = &models.Candidate{
			ID:        id,
			TMDBID:    id,
			MediaType: models.MediaTypeMovie,
			Title:     fmt.Sprintf("Heist %d", i+1),
			Overview:  "charlie crime caper",
			Genres:    []string{"Crime", "Thriller"},
			Keywords:  []string{"heist"},
		}
		db.events = append(db.events, &models.WatchEvent{
			UserID:      1,
			CandidateID: id,
			TMDBID:      id,
			MediaType:   models.MediaTypeMovie,
			WatchedAt:   now.AddDate(0, 0, -10+2*i),
		})
	}
	d := testDetector(t, db, now)

	p, err := d.PredictNext(context.Background(), 1)
	if err != nil {
		t.Fatalf("PredictNext: %v", err)
	}
	if p.Source != "clustering" {
		t.Fatalf("source = %q, want clustering", p.Source)
	}
	if len(p.CandidateIDs) != 4 {
		t.Errorf("candidate_ids = %v, want the 4 cluster members", p.CandidateIDs)
	}
	if p.Label != "Heist" {
		t.Errorf("label = %q, want Heist (top keyword)", p.Label)
	}
	if p.Confidence <= 0 {
		t.Errorf("confidence = %v, want > 0", p.Confidence)
	}
}

func TestConfidenceFromWins(t *testing.T) {
	small := confidenceFromWins(map[int64]int{1: 1})
	large := confidenceFromWins(map[int64]int{1: 10, 2: 10, 3: 10})
	if small >= large {
		t.Errorf("confidence small=%v large=%v, want increasing", small, large)
	}
	if large >= 1 {
		t.Errorf("confidence = %v, want < 1", large)
	}
}

func TestTopCounted(t *testing.T) {
	counts := map[string]int{"b": 3, "a": 3, "c": 1, "d": 5}
	got := topCounted(counts, 3)
	want := []string{"d", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("topCounted = %v, want %v", got, want)
		}
	}
}
