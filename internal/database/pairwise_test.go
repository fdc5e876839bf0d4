// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package database

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

func testSession(userID int64, pool []int64) *models.PairwiseSession {
	return &models.PairwiseSession{
		UserID:     userID,
		Prompt:     "cozy mysteries",
		ListType:   models.ListTypeChat,
		Pool:       pool,
		TotalPairs: 15,
		Status:     models.SessionActive,
		StartedAt:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateAndGetPairwiseSession(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := testSession(4, []int64{11, 22, 33, 44})
	if err := db.CreatePairwiseSession(ctx, s); err != nil {
		t.Fatalf("CreatePairwiseSession() error = %v", err)
	}
	if s.ID == "" {
		t.Fatal("CreatePairwiseSession() left ID empty")
	}

	got, err := db.GetPairwiseSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetPairwiseSession() error = %v", err)
	}
	if got.UserID != 4 || got.Prompt != "cozy mysteries" {
		t.Errorf("session = %+v, want user 4 / prompt preserved", got)
	}
	if !reflect.DeepEqual(got.Pool, []int64{11, 22, 33, 44}) {
		t.Errorf("Pool = %v, want [11 22 33 44]", got.Pool)
	}
	if got.Status != models.SessionActive {
		t.Errorf("Status = %q, want active", got.Status)
	}
	if got.TotalPairs != 15 || got.CompletedPairs != 0 {
		t.Errorf("pairs = %d/%d, want 0/15", got.CompletedPairs, got.TotalPairs)
	}
}

func TestCreatePairwiseSessionValidation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		session *models.PairwiseSession
	}{
		{"missing user", testSession(0, []int64{1, 2})},
		{"pool too small", testSession(1, []int64{1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.CreatePairwiseSession(ctx, tt.session); !recerr.IsKind(err, recerr.KindInput) {
				t.Errorf("CreatePairwiseSession() error = %v, want KindInput", err)
			}
		})
	}
}

func TestUpdatePairwiseSessionProgress(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := testSession(4, []int64{1, 2, 3})
	if err := db.CreatePairwiseSession(ctx, s); err != nil {
		t.Fatalf("CreatePairwiseSession() error = %v", err)
	}

	s.CompletedPairs = 15
	s.Status = models.SessionCompleted
	if err := db.UpdatePairwiseSession(ctx, s); err != nil {
		t.Fatalf("UpdatePairwiseSession() error = %v", err)
	}

	got, err := db.GetPairwiseSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetPairwiseSession() error = %v", err)
	}
	if got.CompletedPairs != 15 || got.Status != models.SessionCompleted {
		t.Errorf("session after update = %d/%q, want 15/completed", got.CompletedPairs, got.Status)
	}

	missing := testSession(4, []int64{1, 2})
	missing.ID = "no-such-session"
	if err := db.UpdatePairwiseSession(ctx, missing); !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("UpdatePairwiseSession(unknown) error = %v, want KindNotFound", err)
	}
}

func TestGetPairwiseSessionNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetPairwiseSession(context.Background(), "missing")
	if !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("GetPairwiseSession() error = %v, want KindNotFound", err)
	}
}

func TestRecentPairwiseSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		s := testSession(8, []int64{1, 2, 3})
		s.StartedAt = time.Date(2026, 5, 1+i, 10, 0, 0, 0, time.UTC)
		s.UpdatedAt = s.StartedAt
		if err := db.CreatePairwiseSession(ctx, s); err != nil {
			t.Fatalf("CreatePairwiseSession(%d) error = %v", i, err)
		}
	}
	// Another user's session stays invisible.
	if err := db.CreatePairwiseSession(ctx, testSession(9, []int64{1, 2})); err != nil {
		t.Fatalf("CreatePairwiseSession() error = %v", err)
	}

	got, err := db.RecentPairwiseSessions(ctx, 8, 3)
	if err != nil {
		t.Fatalf("RecentPairwiseSessions() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentPairwiseSessions() returned %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].StartedAt.After(got[i-1].StartedAt) {
			t.Errorf("sessions not newest-first at index %d", i)
		}
	}
	if got[0].StartedAt.Day() != 4 {
		t.Errorf("newest session day = %d, want 4", got[0].StartedAt.Day())
	}
}

func TestInsertAndListJudgments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := testSession(4, []int64{10, 20, 30})
	if err := db.CreatePairwiseSession(ctx, s); err != nil {
		t.Fatalf("CreatePairwiseSession() error = %v", err)
	}

	base := time.Date(2026, 5, 2, 11, 0, 0, 0, time.UTC)
	judgments := []*models.PairwiseJudgment{
		{SessionID: s.ID, CandidateA: 10, CandidateB: 20, Winner: models.WinnerA, ResponseTimeMS: 1400, CreatedAt: base},
		{SessionID: s.ID, CandidateA: 20, CandidateB: 30, Winner: models.WinnerSkip, CreatedAt: base.Add(time.Minute)},
		{SessionID: s.ID, CandidateA: 10, CandidateB: 30, Winner: models.WinnerBoth, Confidence: 0.8, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, j := range judgments {
		if err := db.InsertPairwiseJudgment(ctx, j); err != nil {
			t.Fatalf("InsertPairwiseJudgment() error = %v", err)
		}
		if j.ID == "" {
			t.Fatal("InsertPairwiseJudgment() left ID empty")
		}
	}

	got, err := db.SessionJudgments(ctx, s.ID)
	if err != nil {
		t.Fatalf("SessionJudgments() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("SessionJudgments() returned %d, want 3", len(got))
	}
	wantWinners := []models.Winner{models.WinnerA, models.WinnerSkip, models.WinnerBoth}
	for i, j := range got {
		if j.Winner != wantWinners[i] {
			t.Errorf("judgment %d winner = %q, want %q", i, j.Winner, wantWinners[i])
		}
	}
	if got[2].Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", got[2].Confidence)
	}
}

func TestInsertPairwiseJudgmentValidation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		judgment *models.PairwiseJudgment
	}{
		{"missing session", &models.PairwiseJudgment{Winner: models.WinnerA}},
		{"bad winner", &models.PairwiseJudgment{SessionID: "s", Winner: "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.InsertPairwiseJudgment(ctx, tt.judgment); !recerr.IsKind(err, recerr.KindInput) {
				t.Errorf("InsertPairwiseJudgment() error = %v, want KindInput", err)
			}
		})
	}
}

func TestJudgmentsSince(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mine := testSession(12, []int64{1, 2, 3})
	if err := db.CreatePairwiseSession(ctx, mine); err != nil {
		t.Fatalf("CreatePairwiseSession() error = %v", err)
	}
	theirs := testSession(13, []int64{1, 2, 3})
	if err := db.CreatePairwiseSession(ctx, theirs); err != nil {
		t.Fatalf("CreatePairwiseSession() error = %v", err)
	}

	inserts := []struct {
		sessionID string
		createdAt time.Time
	}{
		{mine.ID, base.AddDate(0, 0, -60)}, // too old
		{mine.ID, base.AddDate(0, 0, -10)},
		{mine.ID, base.AddDate(0, 0, -1)},
		{theirs.ID, base.AddDate(0, 0, -1)}, // other user
	}
	for i, in := range inserts {
		j := &models.PairwiseJudgment{
			SessionID:  in.sessionID,
			CandidateA: 1,
			CandidateB: 2,
			Winner:     models.WinnerB,
			CreatedAt:  in.createdAt,
		}
		if err := db.InsertPairwiseJudgment(ctx, j); err != nil {
			t.Fatalf("InsertPairwiseJudgment(%d) error = %v", i, err)
		}
	}

	got, err := db.JudgmentsSince(ctx, 12, base.AddDate(0, 0, -42))
	if err != nil {
		t.Fatalf("JudgmentsSince() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("JudgmentsSince() returned %d, want 2", len(got))
	}
	if !got[0].CreatedAt.Before(got[1].CreatedAt) {
		t.Error("JudgmentsSince() not oldest-first")
	}
}
