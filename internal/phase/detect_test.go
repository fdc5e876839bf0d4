// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package phase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// fakeStore is an in-memory store implementation for detector tests.
type fakeStore struct {
	events     []*models.WatchEvent
	candidates map[int64]*models.Candidate
	phases     map[string]*models.ViewingPhase
	sessions   []*models.PairwiseSession
	judgments  map[string][]*models.PairwiseJudgment

	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		candidates: make(map[int64]*models.Candidate),
		phases:     make(map[string]*models.ViewingPhase),
		judgments:  make(map[string][]*models.PairwiseJudgment),
	}
}

func (f *fakeStore) UserWatchStats(_ context.Context, _ int64) (*models.WatchStats, error) {
	stats := &models.WatchStats{TotalEvents: len(f.events)}
	for i, ev := range f.events {
		if i == 0 || ev.WatchedAt.Before(stats.FirstWatchedAt) {
			stats.FirstWatchedAt = ev.WatchedAt
		}
		if ev.WatchedAt.After(stats.LastWatchedAt) {
			stats.LastWatchedAt = ev.WatchedAt
		}
	}
	return stats, nil
}

func (f *fakeStore) WatchEventsBetween(_ context.Context, userID int64, from, to time.Time) ([]*models.WatchEvent, error) {
	var out []*models.WatchEvent
	for _, ev := range f.events {
		if ev.UserID == userID && !ev.WatchedAt.Before(from) && ev.WatchedAt.Before(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeStore) GetCandidatesByIDs(_ context.Context, ids []int64) (map[int64]*models.Candidate, error) {
	out := make(map[int64]*models.Candidate)
	for _, id := range ids {
		if c, ok := f.candidates[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeStore) UserPhases(_ context.Context, userID int64) ([]*models.ViewingPhase, error) {
	var out []*models.ViewingPhase
	for _, p := range f.phases {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertViewingPhase(_ context.Context, p *models.ViewingPhase) error {
	if p.ID == "" {
		p.ID = fmt.Sprintf("phase-%d", len(f.phases)+1)
	}
	cp := *p
	f.phases[p.ID] = &cp
	f.upserts++
	return nil
}

func (f *fakeStore) RecentPairwiseSessions(_ context.Context, userID int64, limit int) ([]*models.PairwiseSession, error) {
	var out []*models.PairwiseSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) SessionJudgments(_ context.Context, sessionID string) ([]*models.PairwiseJudgment, error) {
	return f.judgments[sessionID], nil
}

// axisEncoder maps marker words to fixed axes so cluster membership is
// fully controlled by candidate overviews.
type axisEncoder struct{ dim int }

func (e axisEncoder) Dim() int { return e.dim }

func (e axisEncoder) Encode(text string) models.Vector {
	v := make(models.Vector, e.dim)
	lower := strings.ToLower(text)
	markers := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"}
	for axis, marker := range markers {
		if strings.Contains(lower, marker) {
			v[axis] = 1
		}
	}
	return v.Normalize()
}

func (e axisEncoder) EncodeBatch(texts []string) []models.Vector {
	out := make([]models.Vector, len(texts))
	for i, t := range texts {
		out[i] = e.Encode(t)
	}
	return out
}

func testDetector(t *testing.T, db *fakeStore, now time.Time) *Detector {
	t.Helper()
	store, err := kv.New(kv.Options{Backend: kv.BackendBadger, BadgerPath: t.TempDir()})
	if err != nil {
		t.Fatalf("kv.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	d, err := New(Options{
		DB:      db,
		Store:   store,
		Encoder: axisEncoder{dim: 8},
		Config:  config.PhaseConfig{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.now = func() time.Time { return now }
	return d
}

// seedFranchise fills the store with a one-franchise window: six
// entries of the same collection watched over the last two weeks.
func seedFranchise(db *fakeStore, userID int64, now time.Time) {
	for i := 0; i < 6; i++ {
		id := int64(100 + i)
		db.candidates[id] = &models.Candidate{
			ID:             id,
			TMDBID:         id,
			MediaType:      models.MediaTypeMovie,
			Title:          fmt.Sprintf("Galaxy Saga %d", i+1),
			Year:           2010 + i,
			Overview:       "alpha space opera chapter",
			Genres:         []string{"Science Fiction", "Adventure"},
			Keywords:       []string{"space opera"},
			CollectionID:   9000,
			CollectionName: "Galaxy Saga",
			PosterPath:     fmt.Sprintf("/poster%d.jpg", i+1),
		}
		db.events = append(db.events, &models.WatchEvent{
			UserID:      userID,
			CandidateID: id,
			TMDBID:      id,
			MediaType:   models.MediaTypeMovie,
			WatchedAt:   now.AddDate(0, 0, -12+2*i),
		})
	}
}

func TestDetectAllFranchisePhase(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	db := newFakeStore()
	seedFranchise(db, 1, now)

	d := testDetector(t, db, now)
	phases, err := d.DetectAll(context.Background(), 1)
	if err != nil {
		t.Fatalf("DetectAll: %v", err)
	}
	if len(phases) != 1 {
		t.Fatalf("phases = %d, want 1", len(phases))
	}

	p := phases[0]
	if p.Label != "Galaxy Saga Phase" {
		t.Errorf("label = %q, want %q", p.Label, "Galaxy Saga Phase")
	}
	if p.Icon != franchiseIcon {
		t.Errorf("icon = %q, want %q", p.Icon, franchiseIcon)
	}
	if p.Metrics.FranchiseDominance != 1.0 {
		t.Errorf("franchise_dominance = %v, want 1.0", p.Metrics.FranchiseDominance)
	}
	if p.PhaseType != models.PhaseActive {
		t.Errorf("phase_type = %q, want active", p.PhaseType)
	}
	if len(p.Members) != 6 {
		t.Errorf("members = %d, want 6", len(p.Members))
	}
	if p.Metrics.PhaseScore < 0.35 {
		t.Errorf("phase_score = %v, below keep threshold", p.Metrics.PhaseScore)
	}
	if len(p.Posters) != maxPosters {
		t.Errorf("posters = %d, want %d", len(p.Posters), maxPosters)
	}
}

func TestDetectAllEmptyHistory(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	d := testDetector(t, newFakeStore(), now)

	phases, err := d.DetectAll(context.Background(), 1)
	if err != nil {
		t.Fatalf("DetectAll: %v", err)
	}
	if len(phases) != 0 {
		t.Errorf("phases = %d, want 0", len(phases))
	}
}

func TestDetectAllIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	db := newFakeStore()
	seedFranchise(db, 1, now)
	d := testDetector(t, db, now)

	first, err := d.DetectAll(context.Background(), 1)
	if err != nil {
		t.Fatalf("first DetectAll: %v", err)
	}
	second, err := d.DetectAll(context.Background(), 1)
	if err != nil {
		t.Fatalf("second DetectAll: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("phase count changed: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("phase %d id changed: %q -> %q", i, first[i].ID, second[i].ID)
		}
		if len(first[i].Members) != len(second[i].Members) {
			t.Errorf("phase %d members changed", i)
		}
		if !first[i].StartAt.Equal(second[i].StartAt) {
			t.Errorf("phase %d window changed", i)
		}
	}
}

func TestDetectAllLockedReturnsStored(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	db := newFakeStore()
	seedFranchise(db, 1, now)
	d := testDetector(t, db, now)

	ctx := context.Background()
	held, err := kv.AcquireLock(ctx, d.kvs, lockKey(1), time.Minute)
	if err != nil || held == nil {
		t.Fatalf("AcquireLock: lock=%v err=%v", held, err)
	}
	defer func() { _ = held.Release(ctx) }()

	phases, err := d.DetectAll(ctx, 1)
	if err != nil {
		t.Fatalf("DetectAll under lock: %v", err)
	}
	if len(phases) != 0 {
		t.Errorf("phases = %d, want 0 (nothing stored, detection skipped)", len(phases))
	}
	if db.upserts != 0 {
		t.Errorf("upserts = %d, want 0 while locked", db.upserts)
	}
}

func TestCloseStaleTurnsPhaseHistorical(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	db := newFakeStore()
	// An active phase whose members were last watched a month ago.
	db.phases["p1"] = &models.ViewingPhase{
		ID:        "p1",
		UserID:    1,
		Label:     "Old Phase",
		StartAt:   now.AddDate(0, 0, -45),
		Members:   []int64{100, 101},
		PhaseType: models.PhaseActive,
		Metrics:   models.PhaseMetrics{PhaseScore: 0.6},
	}
	d := testDetector(t, db, now)

	if err := d.closeStale(context.Background(), 1, now); err != nil {
		t.Fatalf("closeStale: %v", err)
	}
	p := db.phases["p1"]
	if p.PhaseType != models.PhaseHistorical {
		t.Errorf("phase_type = %q, want historical", p.PhaseType)
	}
	if p.EndAt == nil {
		t.Fatal("end_at still nil")
	}
	wantEnd := now.AddDate(0, 0, -14)
	if !p.EndAt.Equal(wantEnd) {
		t.Errorf("end_at = %v, want %v", p.EndAt, wantEnd)
	}
}

func TestCurrentPrefersHighestScore(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	db := newFakeStore()
	db.phases["a"] = &models.ViewingPhase{
		ID: "a", UserID: 1, Label: "A", PhaseType: models.PhaseActive,
		Metrics: models.PhaseMetrics{PhaseScore: 0.6},
	}
	db.phases["b"] = &models.ViewingPhase{
		ID: "b", UserID: 1, Label: "B", PhaseType: models.PhaseActive,
		Metrics: models.PhaseMetrics{PhaseScore: 0.8},
	}
	db.phases["c"] = &models.ViewingPhase{
		ID: "c", UserID: 1, Label: "C", PhaseType: models.PhaseHistorical,
		Metrics: models.PhaseMetrics{PhaseScore: 0.9},
	}
	d := testDetector(t, db, now)

	got, err := d.Current(context.Background(), 1)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got.ID != "b" {
		t.Errorf("current = %q, want b", got.ID)
	}
}

func TestCurrentNoneIsNotFound(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	d := testDetector(t, newFakeStore(), now)

	_, err := d.Current(context.Background(), 1)
	if !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestReconcileReusesOverlappingPhase(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	d := testDetector(t, newFakeStore(), now)

	end := now.AddDate(0, 0, -1)
	existing := []*models.ViewingPhase{{
		ID:      "keep-me",
		UserID:  1,
		StartAt: now.AddDate(0, 0, -14),
		EndAt:   &end,
		Members: []int64{1, 2, 3, 4, 5},
	}}
	fresh := &models.ViewingPhase{
		UserID:  1,
		StartAt: now.AddDate(0, 0, -13),
		Members: []int64{1, 2, 3, 9},
	}
	d.reconcile(existing, fresh)
	if fresh.ID != "keep-me" {
		t.Errorf("id = %q, want keep-me (3/4 overlap vs smaller set)", fresh.ID)
	}

	disjoint := &models.ViewingPhase{
		UserID:  1,
		StartAt: now.AddDate(0, 0, -13),
		Members: []int64{20, 21, 22},
	}
	d.reconcile(existing, disjoint)
	if disjoint.ID != "" {
		t.Errorf("disjoint phase got id %q, want new", disjoint.ID)
	}
}

func TestSingleItemClusterCohesion(t *testing.T) {
	// Invariant check at the metrics level: a singleton cluster has
	// cohesion 1.0 and franchise dominance 0 or 1.
	if got := meanPairwiseCosine([]models.Vector{vec(8, 0)}); got != 1.0 {
		t.Errorf("singleton cohesion = %v, want 1.0", got)
	}
	items := []windowItem{{candidate: &models.Candidate{ID: 1, CollectionID: 7}}}
	id, count := dominantCollection(items)
	if id != 7 || count != 1 {
		t.Errorf("dominantCollection = (%d, %d), want (7, 1)", id, count)
	}
	none := []windowItem{{candidate: &models.Candidate{ID: 1}}}
	if id, _ := dominantCollection(none); id != 0 {
		t.Errorf("dominantCollection without collections = %d, want 0", id)
	}
}
