// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/judge"
	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/retrieval"
	"github.com/tomtom215/curatus/internal/scoring"
	"github.com/tomtom215/curatus/internal/watchprov"
)

// fakeIntent returns a fixed intent for every prompt.
type fakeIntent struct {
	intent *models.Intent
}

func (f *fakeIntent) Extract(_ context.Context, _, _, _ string) *models.Intent {
	if f.intent != nil {
		return f.intent
	}
	return &models.Intent{}
}

// fakeRetriever serves canned hits and records the last request.
type fakeRetriever struct {
	hits        []models.SearchHit
	err         error
	suggestions []models.SearchHit
	suggestErr  error
	lastReq     retrieval.Request
	seedCount   int
}

func (f *fakeRetriever) Retrieve(_ context.Context, req retrieval.Request) ([]models.SearchHit, error) {
	f.lastReq = req
	return f.hits, f.err
}

func (f *fakeRetriever) Suggestions(_ context.Context, _ int64, seeds []*models.Candidate, _ int) ([]models.SearchHit, error) {
	f.seedCount = len(seeds)
	return f.suggestions, f.suggestErr
}

// fakeCatalog is an in-memory catalogStore with an optional popular
// pool for the retrieval fallback path.
type fakeCatalog struct {
	candidates map[int64]*models.Candidate
	popular    []*models.Candidate
	profiles   map[int64]*models.ItemLLMProfile
	ratings    map[models.CandidateKey]models.UserRating
}

func newFakeCatalog(candidates ...*models.Candidate) *fakeCatalog {
	f := &fakeCatalog{candidates: make(map[int64]*models.Candidate)}
	for _, c := range candidates {
		f.candidates[c.ID] = c
	}
	return f
}

func (f *fakeCatalog) GetCandidateByKey(_ context.Context, tmdbID int64, mediaType models.MediaType) (*models.Candidate, error) {
	for _, c := range f.candidates {
		if c.TMDBID == tmdbID && c.MediaType == mediaType {
			return c, nil
		}
	}
	return nil, recerr.NotFound("fakeCatalog.GetCandidateByKey", "candidate")
}

func (f *fakeCatalog) GetCandidatesByIDs(_ context.Context, ids []int64) (map[int64]*models.Candidate, error) {
	out := make(map[int64]*models.Candidate)
	for _, id := range ids {
		if c, ok := f.candidates[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListActiveCandidates(_ context.Context, afterID int64, limit int) ([]*models.Candidate, error) {
	var out []*models.Candidate
	for _, c := range f.candidates {
		if c.ID > afterID && c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCatalog) TopPopularCandidates(_ context.Context, mediaType models.MediaType, limit int) ([]*models.Candidate, error) {
	var out []*models.Candidate
	for _, c := range f.popular {
		if mediaType == "" || c.MediaType == mediaType {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCatalog) GetItemProfiles(_ context.Context, _ []int64) (map[int64]*models.ItemLLMProfile, error) {
	return f.profiles, nil
}

func (f *fakeCatalog) UserRatings(_ context.Context, _ int64) (map[models.CandidateKey]models.UserRating, error) {
	return f.ratings, nil
}

// fakeLists is an in-memory provider list.
type fakeLists struct {
	items   []watchprov.ListItem
	err     error
	added   []models.CandidateKey
	removed []models.CandidateKey
}

func (f *fakeLists) GetListItems(_ context.Context, _ int64) ([]watchprov.ListItem, error) {
	return f.items, f.err
}

func (f *fakeLists) AddListItems(_ context.Context, _ int64, keys []models.CandidateKey) error {
	f.added = append(f.added, keys...)
	return nil
}

func (f *fakeLists) RemoveListItems(_ context.Context, _ int64, keys []models.CandidateKey) error {
	f.removed = append(f.removed, keys...)
	return nil
}

func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	store, err := kv.New(kv.Options{Backend: kv.BackendBadger, BadgerPath: t.TempDir()})
	if err != nil {
		t.Fatalf("kv.New: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("store.Close: %v", err)
		}
	})
	return store
}

// testCandidate builds an active movie candidate with enough metadata
// to survive scoring.
func testCandidate(id int64, title string, genres ...string) *models.Candidate {
	return &models.Candidate{
		ID:         id,
		TMDBID:     1000 + id,
		MediaType:  models.MediaTypeMovie,
		Title:      title,
		Overview:   fmt.Sprintf("A story about %s.", title),
		Genres:     genres,
		Rating:     7,
		Votes:      500,
		Popularity: float64(10 + id),
		Active:     true,
	}
}

func hitsFor(candidates ...*models.Candidate) []models.SearchHit {
	hits := make([]models.SearchHit, len(candidates))
	for i, c := range candidates {
		hits[i] = models.SearchHit{Key: c.Key(), FinalScore: 1, Candidate: c}
	}
	return hits
}

// newTestEngine fills required collaborators with working fakes.
func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Intent == nil {
		opts.Intent = &fakeIntent{}
	}
	if opts.Retriever == nil {
		opts.Retriever = &fakeRetriever{}
	}
	if opts.Scorer == nil {
		opts.Scorer = scoring.New(config.ScoringConfig{})
	}
	if opts.Catalog == nil {
		opts.Catalog = newFakeCatalog()
	}
	if opts.Encoder == nil {
		opts.Encoder = embed.NewHashingEncoder(0)
	}
	if opts.Store == nil {
		opts.Store = newTestStore(t)
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNewRequiresPipelineStages(t *testing.T) {
	_, err := New(Options{})
	if !recerr.IsKind(err, recerr.KindInput) {
		t.Fatalf("err = %v, want input error", err)
	}
}

func TestGenerateChatListRejectsEmptyPrompt(t *testing.T) {
	e := newTestEngine(t, Options{})
	_, err := e.GenerateChatList(context.Background(), ListRequest{UserID: 1, Prompt: "   "})
	if !recerr.IsKind(err, recerr.KindInput) {
		t.Fatalf("err = %v, want input error", err)
	}
}

func TestGenerateChatListOrdersByScore(t *testing.T) {
	pool := []*models.Candidate{
		testCandidate(1, "Quiet Winter", "Drama"),
		testCandidate(2, "Loud Summer", "Action"),
		testCandidate(3, "Mid Spring", "Drama", "Comedy"),
	}
	e := newTestEngine(t, Options{
		Retriever: &fakeRetriever{hits: hitsFor(pool...)},
		Catalog:   newFakeCatalog(pool...),
	})

	result, err := e.GenerateChatList(context.Background(), ListRequest{
		UserID: 1,
		Prompt: "a quiet drama for a winter evening",
		Limit:  2,
	})
	if err != nil {
		t.Fatalf("GenerateChatList: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(result.Items))
	}
	if result.Intent == nil {
		t.Error("intent missing from result")
	}
	for i := 1; i < len(result.Items); i++ {
		if result.Items[i-1].Score < result.Items[i].Score {
			t.Errorf("items not ordered by score: %v then %v",
				result.Items[i-1].Score, result.Items[i].Score)
		}
	}
}

func TestGenerateChatListFallsBackToPopular(t *testing.T) {
	popular := []*models.Candidate{
		testCandidate(7, "Everyone Watches This", "Action"),
		testCandidate(8, "So Does Everyone Else", "Comedy"),
	}
	cat := newFakeCatalog(popular...)
	cat.popular = popular
	e := newTestEngine(t, Options{
		Retriever: &fakeRetriever{err: errors.New("index offline")},
		Catalog:   cat,
	})

	result, err := e.GenerateChatList(context.Background(), ListRequest{UserID: 1, Prompt: "anything good"})
	if err != nil {
		t.Fatalf("GenerateChatList: %v", err)
	}
	if len(result.Items) == 0 {
		t.Fatal("expected items from popular fallback")
	}
}

func TestGenerateChatListEmptyPoolErrors(t *testing.T) {
	e := newTestEngine(t, Options{
		Retriever: &fakeRetriever{},
	})
	_, err := e.GenerateChatList(context.Background(), ListRequest{UserID: 1, Prompt: "anything"})
	if !recerr.IsKind(err, recerr.KindNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestGenerateChatListSingleMediaTypeNarrowsIntent(t *testing.T) {
	pool := []*models.Candidate{testCandidate(1, "Some Movie", "Drama")}
	fr := &fakeRetriever{hits: hitsFor(pool...)}
	e := newTestEngine(t, Options{
		Retriever: fr,
		Catalog:   newFakeCatalog(pool...),
	})

	_, err := e.GenerateChatList(context.Background(), ListRequest{
		UserID:     1,
		Prompt:     "something",
		MediaTypes: []models.MediaType{models.MediaTypeShow},
	})
	if err != nil {
		t.Fatalf("GenerateChatList: %v", err)
	}
	if fr.lastReq.Intent.MediaType != models.MediaTypeShow {
		t.Errorf("intent media type = %q, want show", fr.lastReq.Intent.MediaType)
	}
}

func TestOrderByJudge(t *testing.T) {
	items := []models.ScoredItem{
		{Candidate: &models.Candidate{ID: 1}, Score: 0.9},
		{Candidate: &models.Candidate{ID: 2}, Score: 0.8},
		{Candidate: &models.Candidate{ID: 3}, Score: 0.7},
	}

	t.Run("no scores keeps engine order", func(t *testing.T) {
		got := orderByJudge(items, nil)
		for i, want := range []int64{1, 2, 3} {
			if got[i].Candidate.ID != want {
				t.Fatalf("pos %d = %d, want %d", i, got[i].Candidate.ID, want)
			}
		}
	})

	t.Run("judged items lead by judge score", func(t *testing.T) {
		got := orderByJudge(items, map[int64]float64{3: 0.95, 2: 0.5})
		for i, want := range []int64{3, 2, 1} {
			if got[i].Candidate.ID != want {
				t.Fatalf("pos %d = %d, want %d", i, got[i].Candidate.ID, want)
			}
		}
	})

	t.Run("tied judge scores break by candidate id", func(t *testing.T) {
		got := orderByJudge(items, map[int64]float64{3: 0.5, 1: 0.5})
		for i, want := range []int64{1, 3, 2} {
			if got[i].Candidate.ID != want {
				t.Fatalf("pos %d = %d, want %d", i, got[i].Candidate.ID, want)
			}
		}
	})
}

// stubJudge returns a fixed score map without annotating anything.
type stubJudge struct {
	scores map[int64]float64
}

func (s *stubJudge) Score(_ context.Context, _ judge.Request, _ []models.ScoredItem) map[int64]float64 {
	return s.scores
}

func TestGenerateChatListJudgeDisabledEqualsEmptyScores(t *testing.T) {
	pool := []*models.Candidate{
		testCandidate(1, "First Film", "Drama"),
		testCandidate(2, "Second Film", "Action"),
		testCandidate(3, "Third Film", "Comedy"),
	}
	base := Options{
		Retriever: &fakeRetriever{hits: hitsFor(pool...)},
		Catalog:   newFakeCatalog(pool...),
	}
	ctx := context.Background()
	req := ListRequest{UserID: 1, Prompt: "a film for tonight"}

	without := newTestEngine(t, base)
	resultOff, err := without.GenerateChatList(ctx, req)
	if err != nil {
		t.Fatalf("GenerateChatList: %v", err)
	}

	withEmpty := base
	withEmpty.Judge = &stubJudge{scores: nil}
	with := newTestEngine(t, withEmpty)
	resultOn, err := with.GenerateChatList(ctx, req)
	if err != nil {
		t.Fatalf("GenerateChatList: %v", err)
	}

	if len(resultOff.Items) != len(resultOn.Items) {
		t.Fatalf("lengths differ: %d vs %d", len(resultOff.Items), len(resultOn.Items))
	}
	for i := range resultOff.Items {
		if resultOff.Items[i].Candidate.ID != resultOn.Items[i].Candidate.ID {
			t.Errorf("pos %d differs: %d vs %d", i,
				resultOff.Items[i].Candidate.ID, resultOn.Items[i].Candidate.ID)
		}
	}
}

func TestHybridSearchValidatesQuery(t *testing.T) {
	e := newTestEngine(t, Options{})
	_, err := e.HybridSearch(context.Background(), SearchRequest{UserID: 1})
	if !recerr.IsKind(err, recerr.KindInput) {
		t.Fatalf("err = %v, want input error", err)
	}
}

func TestHybridSearchClampsK(t *testing.T) {
	fr := &fakeRetriever{}
	e := newTestEngine(t, Options{Retriever: fr})

	if _, err := e.HybridSearch(context.Background(), SearchRequest{UserID: 1, Query: "space opera", K: 5000}); err != nil {
		t.Fatalf("HybridSearch: %v", err)
	}
	if fr.lastReq.K != maxSearchK {
		t.Errorf("k = %d, want %d", fr.lastReq.K, maxSearchK)
	}

	if _, err := e.HybridSearch(context.Background(), SearchRequest{UserID: 1, Query: "space opera"}); err != nil {
		t.Fatalf("HybridSearch: %v", err)
	}
	if fr.lastReq.K != defaultSearchK {
		t.Errorf("default k = %d, want %d", fr.lastReq.K, defaultSearchK)
	}
}

func TestSuggestForListSkipsUnresolvableItems(t *testing.T) {
	known := testCandidate(1, "Known Movie", "Drama")
	fr := &fakeRetriever{suggestions: hitsFor(testCandidate(9, "A Suggestion", "Drama"))}
	lists := &fakeLists{items: []watchprov.ListItem{
		{Type: "movie", Movie: &watchprov.ItemRef{IDs: watchprov.IDs{TMDB: known.TMDBID}}},
		{Type: "movie", Movie: &watchprov.ItemRef{IDs: watchprov.IDs{TMDB: 999999}}},
		{Type: "movie"}, // missing payload
	}}
	e := newTestEngine(t, Options{
		Retriever: fr,
		Catalog:   newFakeCatalog(known),
		Lists:     lists,
	})

	hits, err := e.SuggestForList(context.Background(), 1, 42, 10)
	if err != nil {
		t.Fatalf("SuggestForList: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("hits = %d, want 1", len(hits))
	}
	if fr.seedCount != 1 {
		t.Errorf("seeds = %d, want 1 (unresolvable items skipped)", fr.seedCount)
	}
}

func TestSuggestForListEmptyList(t *testing.T) {
	e := newTestEngine(t, Options{Lists: &fakeLists{}})
	_, err := e.SuggestForList(context.Background(), 1, 42, 10)
	if !recerr.IsKind(err, recerr.KindInput) {
		t.Fatalf("err = %v, want input error", err)
	}
}
