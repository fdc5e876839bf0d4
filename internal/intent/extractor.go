// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package intent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/llm"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/textproc"
)

const (
	// schemaVersion is part of the cache key; bump it whenever the
	// Intent wire schema or the merge rules change shape.
	schemaVersion = "1"

	cacheTTL       = 6 * time.Hour
	defaultTimeout = 60 * time.Second

	llmTemperature = 0.1
	llmMaxTokens   = 900
)

// Completer is the chat-completions surface the extractor needs.
// *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Extractor turns prompts into structured intents. A nil completer
// runs rules-only; a nil store disables caching. Both are valid
// degraded modes.
type Extractor struct {
	completer Completer
	store     kv.Store
	timeout   time.Duration
	logger    zerolog.Logger
}

// New builds an Extractor. timeout bounds each LLM attempt and
// defaults to 60 seconds.
func New(completer Completer, store kv.Store, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Extractor{
		completer: completer,
		store:     store,
		timeout:   timeout,
		logger:    logging.With().Str("component", "intent").Logger(),
	}
}

// Extract interprets prompt against the viewer's persona and history
// summary. The rules layer always runs; the LLM layer is merged over
// it when it succeeds. Extract never fails: an empty prompt yields an
// empty intent and any LLM trouble degrades to the rules result.
func (e *Extractor) Extract(ctx context.Context, prompt, persona, historySummary string) *models.Intent {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return &models.Intent{}
	}

	key := cacheKey(prompt, persona, historySummary)
	if cached := e.cached(ctx, key); cached != nil {
		return cached
	}

	res := textproc.Parse(prompt)
	merged := fromRules(prompt, res)

	if e.completer != nil {
		wire, err := e.complete(ctx, prompt, persona, historySummary)
		if err != nil {
			e.logger.Warn().Err(err).Msg("LLM intent extraction failed, using rules result")
		} else {
			merged = mergeIntents(prompt, merged, wire)
		}
	}
	finalize(merged)

	e.cache(ctx, key, merged)
	return merged
}

// complete runs one LLM attempt with a single jittered retry on
// transient failures, then decodes the reply.
func (e *Extractor) complete(ctx context.Context, prompt, persona, history string) (*models.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := llm.Request{
		System:      systemPrompt,
		User:        userPrompt(prompt, persona, history),
		Temperature: llmTemperature,
		MaxTokens:   llmMaxTokens,
	}

	reply, err := e.completer.Complete(ctx, req)
	if err != nil && recerr.Retryable(err) {
		select {
		case <-time.After(retryBackoff()):
		case <-ctx.Done():
			return nil, err
		}
		reply, err = e.completer.Complete(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return decodeIntent(reply)
}

// retryBackoff returns 500ms-1s of jittered delay.
func retryBackoff() time.Duration {
	return 500*time.Millisecond + time.Duration(rand.Int63n(int64(500*time.Millisecond))) //nolint:gosec // jitter, not crypto
}

// mergeIntents layers the model result over the rules result.
// Deterministic constraints (years, runtimes, media type, explicit
// list size) keep the rules value when both are set; prose-shaped
// fields prefer the model; list fields union with rules first.
func mergeIntents(prompt string, ruled, wire *models.Intent) *models.Intent {
	lower := strings.ToLower(prompt)
	out := &models.Intent{}

	out.Genres = unionFold(ruled.Genres, wire.Genres)
	out.ExcludeGenres = unionFold(ruled.ExcludeGenres, wire.ExcludeGenres)
	out.Moods = unionFold(ruled.Moods, wire.Moods)
	out.Tones = unionFold(ruled.Tones, wire.Tones)
	out.Studios = unionFold(ruled.Studios, wire.Studios)
	out.NegativeCues = unionFold(ruled.NegativeCues, wire.NegativeCues)
	out.Seeds = unionFold(ruled.Seeds, wire.Seeds)
	out.Languages = unionFold(ruled.Languages, wire.Languages)

	// People must be written in the prompt; model additions that are
	// not literally present are inferred and dropped.
	out.Actors = unionFold(ruled.Actors, namedInPrompt(lower, wire.Actors))
	out.Directors = unionFold(ruled.Directors, namedInPrompt(lower, wire.Directors))

	if mustOnlyRe.MatchString(lower) {
		out.RequiredGenres = unionFold(ruled.RequiredGenres, wire.RequiredGenres)
	}

	out.RuntimeMin = firstPositive(ruled.RuntimeMin, wire.RuntimeMin)
	out.RuntimeMax = firstPositive(ruled.RuntimeMax, wire.RuntimeMax)
	out.YearFrom = firstPositive(ruled.YearFrom, wire.YearFrom)
	out.YearTo = firstPositive(ruled.YearTo, wire.YearTo)
	out.TargetSize = firstPositive(ruled.TargetSize, wire.TargetSize)

	out.Era = firstNonEmpty(wire.Era, ruled.Era)
	out.Complexity = firstNonEmpty(wire.Complexity, ruled.Complexity)
	out.Pacing = firstNonEmpty(wire.Pacing, ruled.Pacing)
	out.PopularityPref = ruled.PopularityPref
	if wire.PopularityPref != "" {
		out.PopularityPref = wire.PopularityPref
	}

	out.MediaType = ruled.MediaType
	if out.MediaType == "" {
		out.MediaType = wire.MediaType
	}

	out.QueryVariants = ruled.QueryVariants
	if len(wire.QueryVariants) >= minVariants {
		out.QueryVariants = wire.QueryVariants
	}
	return out
}

// finalize applies defaults and cross-field invariants to the merged
// intent: target size defaults to 30, required genres stay a subset of
// genres, inverted bounds are repaired and variants are capped.
func finalize(in *models.Intent) {
	if in.TargetSize <= 0 {
		in.TargetSize = defaultTargetSize
	}
	if in.TargetSize > maxTargetSize {
		in.TargetSize = maxTargetSize
	}

	if len(in.ExcludeGenres) > 0 {
		in.Genres = subtractFold(in.Genres, in.ExcludeGenres)
		in.RequiredGenres = subtractFold(in.RequiredGenres, in.ExcludeGenres)
	}
	for _, g := range in.RequiredGenres {
		if !containsFold(in.Genres, g) {
			in.Genres = append(in.Genres, g)
		}
	}

	if in.RuntimeMin > 0 && in.RuntimeMax > 0 && in.RuntimeMin > in.RuntimeMax {
		in.RuntimeMin, in.RuntimeMax = in.RuntimeMax, in.RuntimeMin
	}
	if in.YearFrom > 0 && in.YearTo > 0 && in.YearFrom > in.YearTo {
		in.YearFrom, in.YearTo = in.YearTo, in.YearFrom
	}

	if len(in.QueryVariants) > maxVariants {
		in.QueryVariants = in.QueryVariants[:maxVariants]
	}
}

// namedInPrompt keeps names that literally appear in the lowercased
// prompt.
func namedInPrompt(lower string, names []string) []string {
	var out []string
	for _, name := range names {
		if strings.Contains(lower, strings.ToLower(strings.TrimSpace(name))) {
			out = append(out, strings.TrimSpace(name))
		}
	}
	return out
}

func unionFold(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	merged := make([]string, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	return dedupeFold(merged)
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

// subtractFold removes b's entries from a, case-insensitively.
func subtractFold(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return a
	}
	out := a[:0]
	for _, v := range a {
		if !containsFold(b, v) {
			out = append(out, v)
		}
	}
	return out
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// cacheKey hashes the prompt, the truncated context snippets and the
// schema version. NUL separators keep field boundaries unambiguous.
func cacheKey(prompt, persona, history string) string {
	h := sha256.New()
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write([]byte(truncate(persona, personaLimit)))
	h.Write([]byte{0})
	h.Write([]byte(truncate(history, historyLimit)))
	h.Write([]byte{0})
	h.Write([]byte(schemaVersion))
	return "intent:" + hex.EncodeToString(h.Sum(nil))
}

// cached returns the stored intent for key, or nil on miss or any
// decode trouble. A corrupt entry is deleted so the next call
// recomputes it.
func (e *Extractor) cached(ctx context.Context, key string) *models.Intent {
	if e.store == nil {
		return nil
	}
	raw, err := e.store.Get(ctx, key)
	if err != nil {
		if !recerr.IsKind(err, recerr.KindNotFound) {
			e.logger.Warn().Err(err).Msg("intent cache read failed")
		}
		return nil
	}
	var in models.Intent
	if err := json.Unmarshal(raw, &in); err != nil {
		e.logger.Warn().Err(err).Msg("dropping corrupt intent cache entry")
		if derr := e.store.Del(ctx, key); derr != nil {
			e.logger.Warn().Err(derr).Msg("intent cache delete failed")
		}
		return nil
	}
	return &in
}

// cache stores the merged intent; failures are logged, never surfaced.
func (e *Extractor) cache(ctx context.Context, key string, in *models.Intent) {
	if e.store == nil {
		return
	}
	raw, err := json.Marshal(in)
	if err != nil {
		e.logger.Warn().Err(err).Msg("intent cache encode failed")
		return
	}
	if err := e.store.SetEx(ctx, key, raw, cacheTTL); err != nil {
		e.logger.Warn().Err(err).Msg("intent cache write failed")
	}
}
