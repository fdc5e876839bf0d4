// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package intent

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/llm"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// fakeCompleter scripts one reply or error per call.
type fakeCompleter struct {
	replies []string
	errs    []error
	calls   int
	lastReq llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.lastReq = req
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", errors.New("no scripted reply")
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

func TestExtractMergesModelIntent(t *testing.T) {
	completer := &fakeCompleter{replies: []string{`{
		"genres": ["Mystery", "Crime"],
		"moods": ["cozy", "nostalgic"],
		"tones": ["light"],
		"era": "80s",
		"year_from": 1985,
		"popularity_pref": "mainstream",
		"complexity": "simple",
		"target_size": 12,
		"query_variants": ["cozy 80s mysteries", "gentle detective stories", "light whodunits"],
		"actors": ["Angela Lansbury"],
		"media_type": "show"
	}`}}
	e := New(completer, nil, 0)

	in := e.Extract(context.Background(), "cozy mysteries from the 80s", "", "")

	if completer.calls != 1 {
		t.Fatalf("completer calls = %d, want 1", completer.calls)
	}
	if !reflect.DeepEqual(in.Genres, []string{"Mystery", "Crime"}) {
		t.Errorf("Genres = %v, want rules union model", in.Genres)
	}
	if !reflect.DeepEqual(in.Moods, []string{"cozy", "nostalgic"}) {
		t.Errorf("Moods = %v, want [cozy nostalgic]", in.Moods)
	}
	// Deterministic year extraction beats the model's bound.
	if in.YearFrom != 1980 || in.YearTo != 1989 {
		t.Errorf("year window = [%d, %d], want rules window [1980, 1989]", in.YearFrom, in.YearTo)
	}
	if in.PopularityPref != models.PopularityMainstream {
		t.Errorf("PopularityPref = %q, want mainstream from model", in.PopularityPref)
	}
	if in.Complexity != "simple" {
		t.Errorf("Complexity = %q, want simple", in.Complexity)
	}
	if in.TargetSize != 12 {
		t.Errorf("TargetSize = %d, want model's 12", in.TargetSize)
	}
	wantVariants := []string{"cozy 80s mysteries", "gentle detective stories", "light whodunits"}
	if !reflect.DeepEqual(in.QueryVariants, wantVariants) {
		t.Errorf("QueryVariants = %v, want model's %v", in.QueryVariants, wantVariants)
	}
	// The prompt never names the actor, so the model's addition is
	// inferred and dropped.
	if len(in.Actors) != 0 {
		t.Errorf("Actors = %v, want none", in.Actors)
	}
	// The plural genre noun implies movies; the model's show loses.
	if in.MediaType != models.MediaTypeMovie {
		t.Errorf("MediaType = %q, want movie", in.MediaType)
	}

	if completer.lastReq.Temperature != llmTemperature {
		t.Errorf("request temperature = %v, want %v", completer.lastReq.Temperature, llmTemperature)
	}
	if !strings.Contains(completer.lastReq.User, "cozy mysteries from the 80s") {
		t.Errorf("user prompt missing viewer prompt: %q", completer.lastReq.User)
	}
}

func TestExtractKeepsExplicitlyNamedPeople(t *testing.T) {
	completer := &fakeCompleter{replies: []string{`{
		"actors": ["Saoirse Ronan", "Timothee Chalamet"],
		"directors": ["Greta Gerwig"]
	}`}}
	e := New(completer, nil, 0)

	in := e.Extract(context.Background(),
		"movies directed by Greta Gerwig starring Saoirse Ronan", "", "")

	if !reflect.DeepEqual(in.Actors, []string{"Saoirse Ronan"}) {
		t.Errorf("Actors = %v, want only the named actor", in.Actors)
	}
	if !reflect.DeepEqual(in.Directors, []string{"Greta Gerwig"}) {
		t.Errorf("Directors = %v, want [Greta Gerwig]", in.Directors)
	}
}

func TestExtractFallsBackOnModelError(t *testing.T) {
	completer := &fakeCompleter{errs: []error{
		recerr.Internal("llm.Client.Complete", errors.New("model unavailable")),
	}}
	e := New(completer, nil, 0)

	in := e.Extract(context.Background(), "gritty crime dramas", "", "")

	if completer.calls != 1 {
		t.Errorf("completer calls = %d, want 1 for a non-retryable failure", completer.calls)
	}
	if !reflect.DeepEqual(in.Genres, []string{"Crime", "Drama"}) {
		t.Errorf("Genres = %v, want rules result [Crime Drama]", in.Genres)
	}
	if in.TargetSize != 30 {
		t.Errorf("TargetSize = %d, want default 30", in.TargetSize)
	}
}

func TestExtractRetriesTransientFailureOnce(t *testing.T) {
	t.Run("second attempt succeeds", func(t *testing.T) {
		completer := &fakeCompleter{
			errs:    []error{recerr.Transient("llm.Client.Complete", errors.New("timeout")), nil},
			replies: []string{"", `{"complexity": "complex"}`},
		}
		e := New(completer, nil, 0)

		in := e.Extract(context.Background(), "layered movies", "", "")

		if completer.calls != 2 {
			t.Errorf("completer calls = %d, want 2", completer.calls)
		}
		if in.Complexity != "complex" {
			t.Errorf("Complexity = %q, want complex from the retried reply", in.Complexity)
		}
	})

	t.Run("no third attempt", func(t *testing.T) {
		completer := &fakeCompleter{errs: []error{
			recerr.Transient("llm.Client.Complete", errors.New("timeout")),
			recerr.Transient("llm.Client.Complete", errors.New("timeout")),
		}}
		e := New(completer, nil, 0)

		in := e.Extract(context.Background(), "gritty crime dramas", "", "")

		if completer.calls != 2 {
			t.Errorf("completer calls = %d, want exactly 2", completer.calls)
		}
		if !reflect.DeepEqual(in.Genres, []string{"Crime", "Drama"}) {
			t.Errorf("Genres = %v, want rules fallback", in.Genres)
		}
	})
}

func TestExtractRecoversFencedReply(t *testing.T) {
	completer := &fakeCompleter{replies: []string{
		"Sure, here is the intent:\n```json\n{\"pacing\": \"Slow Burn\", \"query_variants\": [\"a\", \"b\", \"c\"]}\n```",
	}}
	e := New(completer, nil, 0)

	in := e.Extract(context.Background(), "something to watch tonight", "", "")

	if in.Pacing != "slow burn" {
		t.Errorf("Pacing = %q, want slow burn recovered from fenced reply", in.Pacing)
	}
	if !reflect.DeepEqual(in.QueryVariants, []string{"a", "b", "c"}) {
		t.Errorf("QueryVariants = %v, want the model's", in.QueryVariants)
	}
}

func TestExtractIgnoresUnusableReply(t *testing.T) {
	completer := &fakeCompleter{replies: []string{"I cannot answer that."}}
	e := New(completer, nil, 0)

	in := e.Extract(context.Background(), "feel-good comedies", "", "")

	if completer.calls != 1 {
		t.Errorf("completer calls = %d, want 1", completer.calls)
	}
	if !reflect.DeepEqual(in.Genres, []string{"Comedy"}) {
		t.Errorf("Genres = %v, want rules result", in.Genres)
	}
}

func TestExtractSanitizesModelOutput(t *testing.T) {
	completer := &fakeCompleter{replies: []string{`{
		"popularity_pref": "super popular",
		"complexity": "galactic",
		"media_type": "tv",
		"target_size": 400,
		"year_from": 1492,
		"runtime_min": -5,
		"required_genres": ["Horror"],
		"query_variants": ["q1", "q2", "q3", "q4", "q5", "q6"],
		"languages": ["Spanish", "ko", "xx?"]
	}`}}
	e := New(completer, nil, 0)

	in := e.Extract(context.Background(), "something to watch", "", "")

	if in.PopularityPref != "" {
		t.Errorf("PopularityPref = %q, want invalid enum dropped", in.PopularityPref)
	}
	if in.Complexity != "" {
		t.Errorf("Complexity = %q, want invalid enum dropped", in.Complexity)
	}
	if in.MediaType != models.MediaTypeShow {
		t.Errorf("MediaType = %q, want tv folded onto show", in.MediaType)
	}
	if in.TargetSize != 100 {
		t.Errorf("TargetSize = %d, want clamped to 100", in.TargetSize)
	}
	if in.YearFrom != 0 {
		t.Errorf("YearFrom = %d, want implausible year dropped", in.YearFrom)
	}
	if in.RuntimeMin != 0 {
		t.Errorf("RuntimeMin = %d, want negative runtime dropped", in.RuntimeMin)
	}
	// No MUST/ONLY phrasing in the prompt, so required genres are out.
	if len(in.RequiredGenres) != 0 {
		t.Errorf("RequiredGenres = %v, want none without the phrasing", in.RequiredGenres)
	}
	if len(in.QueryVariants) != maxVariants {
		t.Errorf("QueryVariants = %v, want capped at %d", in.QueryVariants, maxVariants)
	}
	if !reflect.DeepEqual(in.Languages, []string{"es", "ko"}) {
		t.Errorf("Languages = %v, want [es ko]", in.Languages)
	}
}

func TestExtractCachesMergedResult(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	completer := &fakeCompleter{replies: []string{
		`{"moods": ["tense"], "query_variants": ["a", "b", "c"]}`,
		`{"moods": ["tense"], "query_variants": ["a", "b", "c"]}`,
	}}
	e := New(completer, store, 0)

	first := e.Extract(ctx, "tense thrillers", "likes slow cinema", "watched Heat")
	if completer.calls != 1 {
		t.Fatalf("completer calls = %d, want 1", completer.calls)
	}

	second := e.Extract(ctx, "tense thrillers", "likes slow cinema", "watched Heat")
	if completer.calls != 1 {
		t.Errorf("completer calls = %d after cache hit, want still 1", completer.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached intent = %+v, want %+v", second, first)
	}

	// A different persona is a different cache key.
	e.Extract(ctx, "tense thrillers", "likes action", "watched Heat")
	if completer.calls != 2 {
		t.Errorf("completer calls = %d after persona change, want 2", completer.calls)
	}
}

func TestExtractEmptyPromptSkipsModelAndCache(t *testing.T) {
	store := newTestStore(t)
	completer := &fakeCompleter{}
	e := New(completer, store, 0)

	in := e.Extract(context.Background(), "   ", "persona", "history")

	if completer.calls != 0 {
		t.Errorf("completer calls = %d, want 0 for empty prompt", completer.calls)
	}
	if !reflect.DeepEqual(in, &models.Intent{}) {
		t.Errorf("Extract(empty) = %+v, want empty intent", in)
	}
}

func TestCacheKeyTruncatesContext(t *testing.T) {
	long := strings.Repeat("x", personaLimit)
	// Differences beyond the truncation limit do not change the key.
	if cacheKey("p", long+"aaa", "h") != cacheKey("p", long+"bbb", "h") {
		t.Error("cache key should ignore persona beyond the truncation limit")
	}
	if cacheKey("p", "a", "h") == cacheKey("p", "b", "h") {
		t.Error("cache key should reflect persona within the limit")
	}
	if cacheKey("p1", "a", "h") == cacheKey("p2", "a", "h") {
		t.Error("cache key should reflect the prompt")
	}
}
