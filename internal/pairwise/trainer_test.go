// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package pairwise

import (
	"context"
	"strconv"
	"testing"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/database"
	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/llm"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	store, err := kv.New(kv.Options{Backend: kv.BackendBadger, BadgerPath: t.TempDir()})
	if err != nil {
		t.Fatalf("kv.New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func seedMovie(t *testing.T, db *database.DB, tmdbID int64, title string, year, votes int, lang string, genres ...string) int64 {
	t.Helper()
	id, err := db.UpsertCandidate(context.Background(), &models.Candidate{
		TMDBID:           tmdbID,
		MediaType:        models.MediaTypeMovie,
		Title:            title,
		Year:             year,
		Votes:            votes,
		OriginalLanguage: lang,
		Genres:           genres,
		Overview:         "about " + title,
		Rating:           7.0,
		Popularity:       25,
		Active:           true,
	}, "hash-"+title)
	if err != nil {
		t.Fatalf("UpsertCandidate(%s) error = %v", title, err)
	}
	return id
}

// seedPool inserts n movies with distinct metadata and returns their
// catalog ids in insertion order.
func seedPool(t *testing.T, db *database.DB, n int) []int64 {
	t.Helper()
	out := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		id := seedMovie(t, db, int64(5000+i), "Pool Movie "+strconv.Itoa(i),
			1990+i, 100*i, "en", "Drama")
		out = append(out, id)
	}
	return out
}

func newTestTrainer(t *testing.T, opts TrainerOptions) *Trainer {
	t.Helper()
	if opts.Encoder == nil {
		opts.Encoder = embed.NewHashingEncoder(64)
	}
	tr, err := NewTrainer(opts)
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}
	return tr
}

type fakePersona struct {
	deltas []models.PersonaDelta
}

func (f *fakePersona) AppendDelta(_ context.Context, _ int64, d models.PersonaDelta) error {
	f.deltas = append(f.deltas, d)
	return nil
}

type fakeProfiles struct {
	seed        models.Vector
	invalidated []int64
}

func (f *fakeProfiles) HistoryVector(_ context.Context, _ int64) (models.Vector, error) {
	if f.seed == nil {
		return nil, nil
	}
	return f.seed.Clone(), nil
}

func (f *fakeProfiles) Invalidate(_ context.Context, userID int64) error {
	f.invalidated = append(f.invalidated, userID)
	return nil
}

func TestTotalPairsFor(t *testing.T) {
	tests := []struct {
		pool, want int
	}{
		{pool: 2, want: 10},
		{pool: 9, want: 10},
		{pool: 10, want: 15},
		{pool: 14, want: 15},
		{pool: 15, want: 20},
		{pool: 40, want: 20},
	}
	for _, tt := range tests {
		if got := totalPairsFor(tt.pool); got != tt.want {
			t.Errorf("totalPairsFor(%d) = %d, want %d", tt.pool, got, tt.want)
		}
	}
}

func TestRoundRobinPairs(t *testing.T) {
	pairs := roundRobinPairs([]int64{1, 2, 3, 4})
	if len(pairs) != 6 {
		t.Fatalf("roundRobinPairs(4 items) = %d pairs, want 6", len(pairs))
	}
	seen := make(map[models.UnorderedPair]bool)
	for _, p := range pairs {
		if seen[p] {
			t.Errorf("pair %+v scheduled twice", p)
		}
		seen[p] = true
	}
	// Round structure: consecutive pairs within a round share no item.
	if pairs[0].Low == pairs[1].Low || pairs[0].High == pairs[1].High ||
		pairs[0].Low == pairs[1].High || pairs[0].High == pairs[1].Low {
		t.Errorf("first round pairs %+v and %+v share an item", pairs[0], pairs[1])
	}

	odd := roundRobinPairs([]int64{7, 8, 9})
	if len(odd) != 3 {
		t.Fatalf("roundRobinPairs(3 items) = %d pairs, want 3", len(odd))
	}
	if len(roundRobinPairs([]int64{42})) != 0 {
		t.Error("roundRobinPairs(1 item) should schedule nothing")
	}
}

func TestCreateSession(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	tr := newTestTrainer(t, TrainerOptions{DB: db, Store: store})
	ctx := context.Background()

	pool := seedPool(t, db, 4)
	withDup := append([]int64{pool[0]}, pool...)

	s, err := tr.Create(ctx, 7, "slow burn thrillers", models.ListTypeChat, withDup)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(s.Pool) != 4 {
		t.Errorf("pool = %v, want deduplicated 4 entries", s.Pool)
	}
	if s.TotalPairs != 10 {
		t.Errorf("TotalPairs = %d, want 10", s.TotalPairs)
	}
	if s.Status != models.SessionActive {
		t.Errorf("Status = %q, want active", s.Status)
	}

	got, err := tr.Session(ctx, s.ID)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if got.Prompt != "slow burn thrillers" || got.UserID != 7 {
		t.Errorf("persisted session = %+v", got)
	}

	if _, err := tr.Create(ctx, 7, "", models.ListTypeChat, []int64{9, 9}); !recerr.IsKind(err, recerr.KindInput) {
		t.Errorf("Create(degenerate pool) error = %v, want input kind", err)
	}
}

func TestNextPairRoundRobin(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	tr := newTestTrainer(t, TrainerOptions{DB: db, Store: store})
	ctx := context.Background()

	pool := seedPool(t, db, 4)
	s, err := tr.Create(ctx, 7, "anything", models.ListTypeChat, pool)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, err := tr.NextPair(ctx, s.ID)
	if err != nil {
		t.Fatalf("NextPair() error = %v", err)
	}
	if first.A == nil || first.B == nil {
		t.Fatal("NextPair() returned no pair for a fresh session")
	}
	wantFirst := models.NewUnorderedPair(pool[0], pool[3])
	if got := models.NewUnorderedPair(first.A.ID, first.B.ID); got != wantFirst {
		t.Errorf("first pair = %+v, want %+v", got, wantFirst)
	}

	if _, err := tr.Submit(ctx, SubmitRequest{
		SessionID:  s.ID,
		CandidateA: first.A.ID,
		CandidateB: first.B.ID,
		Winner:     models.WinnerA,
	}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	second, err := tr.NextPair(ctx, s.ID)
	if err != nil {
		t.Fatalf("NextPair() error = %v", err)
	}
	wantSecond := models.NewUnorderedPair(pool[1], pool[2])
	if got := models.NewUnorderedPair(second.A.ID, second.B.ID); got != wantSecond {
		t.Errorf("second pair = %+v, want %+v", got, wantSecond)
	}
}

func TestNextPairPassesOverMissingCandidates(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	tr := newTestTrainer(t, TrainerOptions{DB: db, Store: store})
	ctx := context.Background()

	pool := seedPool(t, db, 2)
	ghost := int64(999999)
	s, err := tr.Create(ctx, 7, "anything", models.ListTypeChat, []int64{pool[0], pool[1], ghost})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	p, err := tr.NextPair(ctx, s.ID)
	if err != nil {
		t.Fatalf("NextPair() error = %v", err)
	}
	if p.A == nil || p.B == nil {
		t.Fatal("NextPair() found no servable pair")
	}
	want := models.NewUnorderedPair(pool[0], pool[1])
	if got := models.NewUnorderedPair(p.A.ID, p.B.ID); got != want {
		t.Errorf("pair = %+v, want the one fully-cataloged pair %+v", got, want)
	}
}

func TestSubmitValidation(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	tr := newTestTrainer(t, TrainerOptions{DB: db, Store: store})
	ctx := context.Background()

	pool := seedPool(t, db, 4)
	s, err := tr.Create(ctx, 7, "anything", models.ListTypeChat, pool)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{name: "invalid winner", req: SubmitRequest{SessionID: s.ID, CandidateA: pool[0], CandidateB: pool[1], Winner: "first"}},
		{name: "same candidate", req: SubmitRequest{SessionID: s.ID, CandidateA: pool[0], CandidateB: pool[0], Winner: models.WinnerA}},
		{name: "confidence out of range", req: SubmitRequest{SessionID: s.ID, CandidateA: pool[0], CandidateB: pool[1], Winner: models.WinnerA, Confidence: 1.5}},
		{name: "outside pool", req: SubmitRequest{SessionID: s.ID, CandidateA: pool[0], CandidateB: 424242, Winner: models.WinnerA}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tr.Submit(ctx, tt.req); !recerr.IsKind(err, recerr.KindInput) {
				t.Errorf("Submit() error = %v, want input kind", err)
			}
		})
	}

	if _, err := tr.Submit(ctx, SubmitRequest{SessionID: "no-such-session", CandidateA: 1, CandidateB: 2, Winner: models.WinnerA}); !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("Submit(unknown session) error = %v, want not found", err)
	}
}

func TestSubmitDecisiveAdvancesAndStoresVector(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	encoder := embed.NewHashingEncoder(64)
	tr := newTestTrainer(t, TrainerOptions{DB: db, Store: store, Encoder: encoder})
	ctx := context.Background()

	winnerID := seedMovie(t, db, 101, "Heat of the Night", 1995, 200, "en", "Crime", "Drama")
	loserID := seedMovie(t, db, 102, "Space Laughs", 2021, 9000, "en", "Comedy")
	pool := []int64{winnerID, loserID, seedMovie(t, db, 103, "Filler One", 2000, 50, "en", "Drama"), seedMovie(t, db, 104, "Filler Two", 2005, 60, "en", "Drama")}

	s, err := tr.Create(ctx, 9, "gritty crime", models.ListTypeChat, pool)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := tr.Submit(ctx, SubmitRequest{
		SessionID:  s.ID,
		CandidateA: winnerID,
		CandidateB: loserID,
		Winner:     models.WinnerA,
		Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got.CompletedPairs != 1 {
		t.Errorf("CompletedPairs = %d, want 1", got.CompletedPairs)
	}
	if got.Status != models.SessionActive {
		t.Errorf("Status = %q, want still active", got.Status)
	}

	u, err := tr.Vector(ctx, 9)
	if err != nil {
		t.Fatalf("Vector() error = %v", err)
	}
	if u == nil {
		t.Fatal("Vector() = nil after a decisive judgment")
	}
	if n := u.Norm(); n < 1-1e-4 || n > 1+1e-4 {
		t.Errorf("vector norm = %v, want unit length", n)
	}

	winner, _ := db.GetCandidate(ctx, winnerID)
	loser, _ := db.GetCandidate(ctx, loserID)
	va := encoder.Encode(embed.ComposeCandidateText(winner))
	vb := encoder.Encode(embed.ComposeCandidateText(loser))
	if u.Cosine(va) <= u.Cosine(vb) {
		t.Errorf("vector cosines: winner %v <= loser %v, want pulled toward winner",
			u.Cosine(va), u.Cosine(vb))
	}

	w, err := tr.Weights(ctx, 9)
	if err != nil {
		t.Fatalf("Weights() error = %v", err)
	}
	if got := w.Genres["Crime"]; !closeTo(got, 0.1) {
		t.Errorf("Genres[Crime] = %v, want 0.1", got)
	}
	if got := w.Genres["Comedy"]; !closeTo(got, -0.05) {
		t.Errorf("Genres[Comedy] = %v, want -0.05", got)
	}
	if got := w.Decades["1990s"]; !closeTo(got, 0.1) {
		t.Errorf("Decades[1990s] = %v, want 0.1", got)
	}
	if got := w.Languages["en"]; !closeTo(got, 0.1) {
		t.Errorf("Languages[en] = %v, want 0.1", got)
	}
	if !closeTo(w.Obscurity, 0.05) {
		t.Errorf("Obscurity = %v, want +0.05 for the less-voted winner", w.Obscurity)
	}
	if !closeTo(w.Freshness, -0.05) {
		t.Errorf("Freshness = %v, want -0.05 for the older winner", w.Freshness)
	}
}

func TestSubmitSkipRecordsWithoutAdvancing(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	tr := newTestTrainer(t, TrainerOptions{DB: db, Store: store})
	ctx := context.Background()

	pool := seedPool(t, db, 4)
	s, err := tr.Create(ctx, 9, "anything", models.ListTypeChat, pool)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := tr.Submit(ctx, SubmitRequest{
		SessionID:  s.ID,
		CandidateA: pool[0],
		CandidateB: pool[3],
		Winner:     models.WinnerSkip,
	})
	if err != nil {
		t.Fatalf("Submit(skip) error = %v", err)
	}
	if got.CompletedPairs != 0 {
		t.Errorf("CompletedPairs = %d, want 0 after a skip", got.CompletedPairs)
	}

	judgments, err := db.SessionJudgments(ctx, s.ID)
	if err != nil {
		t.Fatalf("SessionJudgments() error = %v", err)
	}
	if len(judgments) != 1 || judgments[0].Winner != models.WinnerSkip {
		t.Errorf("judgments = %+v, want the skip recorded", judgments)
	}

	if u, err := tr.Vector(ctx, 9); err != nil || u != nil {
		t.Errorf("Vector() = %v, %v, want nil vector and nil error after skip only", u, err)
	}

	// The skipped pair is not served again.
	next, err := tr.NextPair(ctx, s.ID)
	if err != nil {
		t.Fatalf("NextPair() error = %v", err)
	}
	skipped := models.NewUnorderedPair(pool[0], pool[3])
	if got := models.NewUnorderedPair(next.A.ID, next.B.ID); got == skipped {
		t.Errorf("NextPair() re-served the skipped pair %+v", got)
	}
}

func TestSubmitBothCountsAndStoresVector(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	tr := newTestTrainer(t, TrainerOptions{DB: db, Store: store})
	ctx := context.Background()

	pool := seedPool(t, db, 4)
	s, err := tr.Create(ctx, 9, "anything", models.ListTypeChat, pool)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := tr.Submit(ctx, SubmitRequest{
		SessionID:  s.ID,
		CandidateA: pool[0],
		CandidateB: pool[1],
		Winner:     models.WinnerBoth,
	})
	if err != nil {
		t.Fatalf("Submit(both) error = %v", err)
	}
	if got.CompletedPairs != 1 {
		t.Errorf("CompletedPairs = %d, want 1", got.CompletedPairs)
	}

	u, err := tr.Vector(ctx, 9)
	if err != nil {
		t.Fatalf("Vector() error = %v", err)
	}
	if u == nil {
		t.Fatal("Vector() = nil after a both judgment")
	}
	if n := u.Norm(); n < 1-1e-4 || n > 1+1e-4 {
		t.Errorf("vector norm = %v, want unit length", n)
	}

	// No decisive winner, so interpretable weights stay empty.
	w, err := tr.Weights(ctx, 9)
	if err != nil {
		t.Fatalf("Weights() error = %v", err)
	}
	if len(w.Genres) != 0 || w.Obscurity != 0 {
		t.Errorf("weights updated on both outcome: %+v", w)
	}
}

func TestPoolOfTwoCompletesOnSinglePair(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	persona := &fakePersona{}
	profiles := &fakeProfiles{}
	completer := &fakeCompleter{fn: func(llm.Request) (string, error) {
		return `{"summary":"Prefers grounded crime stories over broad comedies. Gravitates to mid-nineties films."}`, nil
	}}
	tr := newTestTrainer(t, TrainerOptions{
		DB: db, Store: store,
		Completer: completer, Persona: persona, Profiles: profiles,
	})
	ctx := context.Background()

	pool := seedPool(t, db, 2)
	s, err := tr.Create(ctx, 11, "anything", models.ListTypeChat, pool)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.TotalPairs != 10 {
		t.Fatalf("TotalPairs = %d, want 10 for a pool of two", s.TotalPairs)
	}

	got, err := tr.Submit(ctx, SubmitRequest{
		SessionID:  s.ID,
		CandidateA: pool[0],
		CandidateB: pool[1],
		Winner:     models.WinnerA,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got.Status != models.SessionCompleted {
		t.Errorf("Status = %q, want completed once the only pair is judged", got.Status)
	}
	if got.CompletedPairs != 1 {
		t.Errorf("CompletedPairs = %d, want 1", got.CompletedPairs)
	}
	if len(persona.deltas) != 1 || persona.deltas[0].SessionID != s.ID {
		t.Errorf("persona deltas = %+v, want one for session %s", persona.deltas, s.ID)
	}
	if len(profiles.invalidated) != 1 || profiles.invalidated[0] != 11 {
		t.Errorf("invalidated = %v, want [11]", profiles.invalidated)
	}

	next, err := tr.NextPair(ctx, s.ID)
	if err != nil {
		t.Fatalf("NextPair() error = %v", err)
	}
	if next.A != nil || next.B != nil {
		t.Error("NextPair() served a pair on a completed session")
	}
	if next.Session.Status != models.SessionCompleted {
		t.Errorf("NextPair session status = %q, want completed", next.Session.Status)
	}
}

func TestSessionCompletesAtTarget(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	persona := &fakePersona{}
	completer := &fakeCompleter{fn: func(llm.Request) (string, error) {
		return `{"summary":"Keeps picking ensemble dramas. Avoids anything played for laughs."}`, nil
	}}
	tr := newTestTrainer(t, TrainerOptions{
		DB: db, Store: store, Completer: completer, Persona: persona,
	})
	ctx := context.Background()

	pool := seedPool(t, db, 5) // 10 unique pairs, target 10
	s, err := tr.Create(ctx, 13, "anything", models.ListTypeChat, pool)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		p, err := tr.NextPair(ctx, s.ID)
		if err != nil {
			t.Fatalf("NextPair() #%d error = %v", i, err)
		}
		if p.A == nil || p.B == nil {
			t.Fatalf("NextPair() #%d ran out of pairs early", i)
		}
		if _, err := tr.Submit(ctx, SubmitRequest{
			SessionID:  s.ID,
			CandidateA: p.A.ID,
			CandidateB: p.B.ID,
			Winner:     models.WinnerA,
		}); err != nil {
			t.Fatalf("Submit() #%d error = %v", i, err)
		}
	}

	final, err := tr.Session(ctx, s.ID)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if final.Status != models.SessionCompleted {
		t.Errorf("Status = %q, want completed after %d judgments", final.Status, final.TotalPairs)
	}
	if final.CompletedPairs != 10 {
		t.Errorf("CompletedPairs = %d, want 10", final.CompletedPairs)
	}
	if len(persona.deltas) != 1 {
		t.Errorf("persona deltas = %d, want exactly 1", len(persona.deltas))
	}

	if _, err := tr.Submit(ctx, SubmitRequest{
		SessionID:  s.ID,
		CandidateA: pool[0],
		CandidateB: pool[1],
		Winner:     models.WinnerA,
	}); !recerr.IsKind(err, recerr.KindInput) {
		t.Errorf("Submit(completed session) error = %v, want input kind", err)
	}
}

func TestAbandonSession(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	tr := newTestTrainer(t, TrainerOptions{DB: db, Store: store})
	ctx := context.Background()

	pool := seedPool(t, db, 4)
	s, err := tr.Create(ctx, 7, "anything", models.ListTypeChat, pool)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := tr.Abandon(ctx, s.ID)
	if err != nil {
		t.Fatalf("Abandon() error = %v", err)
	}
	if got.Status != models.SessionAbandoned {
		t.Errorf("Status = %q, want abandoned", got.Status)
	}
	if _, err := tr.Abandon(ctx, s.ID); !recerr.IsKind(err, recerr.KindInput) {
		t.Errorf("Abandon(again) error = %v, want input kind", err)
	}
}

func TestVectorSeedsFromHistory(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	seed := models.Vector{1, 0, 0, 0}.Normalize()
	profiles := &fakeProfiles{seed: seed}
	tr := newTestTrainer(t, TrainerOptions{DB: db, Store: store, Profiles: profiles})
	ctx := context.Background()

	u, err := tr.Vector(ctx, 21)
	if err != nil {
		t.Fatalf("Vector() error = %v", err)
	}
	if u == nil || u.Cosine(seed) < 1-1e-6 {
		t.Errorf("Vector() = %v, want the history seed %v", u, seed)
	}

	// The seed is a fallback, not stored state.
	if _, err := store.Get(ctx, vectorKey(21)); !recerr.IsKind(err, recerr.KindNotFound) {
		t.Errorf("store.Get(vector key) error = %v, want not found", err)
	}
}

func TestNewTrainerValidation(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	enc := embed.NewHashingEncoder(64)

	if _, err := NewTrainer(TrainerOptions{Store: store, Encoder: enc}); !recerr.IsKind(err, recerr.KindInput) {
		t.Errorf("NewTrainer(no db) error = %v, want input kind", err)
	}
	if _, err := NewTrainer(TrainerOptions{DB: db, Encoder: enc}); !recerr.IsKind(err, recerr.KindInput) {
		t.Errorf("NewTrainer(no store) error = %v, want input kind", err)
	}
	if _, err := NewTrainer(TrainerOptions{DB: db, Store: store}); !recerr.IsKind(err, recerr.KindInput) {
		t.Errorf("NewTrainer(no encoder) error = %v, want input kind", err)
	}
}
