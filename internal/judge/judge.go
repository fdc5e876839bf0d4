// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package judge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/llm"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/scoring"
)

const (
	defaultBatchSize = 5
	// defaultTimeout bounds one batch completion. There is no retry:
	// an unjudged batch is cheaper than a stale list.
	defaultTimeout = 90 * time.Second
	maxConcurrent  = 3

	// reasonTTL bounds the reason cache. Scores are never cached;
	// reasons for the same query summary stay reusable by the
	// explanation generator.
	reasonTTL = time.Hour

	llmTemperature = 0.1
	llmMaxTokens   = 700
)

// Completer is the chat-completions surface the judge needs.
// *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Judge rescores shortlists in batches. A nil completer disables it; a
// nil store disables the reason cache.
type Judge struct {
	completer Completer
	store     kv.Store
	batchSize int
	timeout   time.Duration
	logger    zerolog.Logger
}

// New builds a Judge from config. Zero config values take the defaults.
func New(completer Completer, store kv.Store, cfg config.JudgeConfig) *Judge {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Judge{
		completer: completer,
		store:     store,
		batchSize: cfg.BatchSize,
		timeout:   defaultTimeout,
		logger:    logging.With().Str("component", "judge").Logger(),
	}
}

// Request carries one judging pass over a scored list.
type Request struct {
	// QuerySummary describes what the viewer asked for.
	QuerySummary string

	// Persona and History are optional viewer context snippets.
	Persona string
	History string

	// TargetSize calibrates the shortlist threshold hint.
	TargetSize int

	// Profiles optionally enriches item summaries, keyed by candidate id.
	Profiles map[int64]*models.ItemLLMProfile
}

// verdict is one accepted judge result.
type verdict struct {
	score   float64
	reasons []string
}

// Score judges items in fixed-size batches, annotating each judged item
// in place (JudgeScore, JudgeReasons, re-rendered Explanation) and
// returning the accepted scores by candidate id. Score never returns an
// error: failed batches, hallucinated ids and out-of-range scores are
// dropped and their items keep the engine ordering.
func (j *Judge) Score(ctx context.Context, req Request, items []models.ScoredItem) map[int64]float64 {
	if j.completer == nil || len(items) == 0 {
		return nil
	}

	batches := batchIndexes(len(items), j.batchSize)
	scores := make(map[int64]float64, len(items))
	reasons := make(map[int64][]string)
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(maxConcurrent)
	for _, batch := range batches {
		g.Go(func() error {
			verdicts := j.judgeBatch(ctx, req, items, batch)
			if len(verdicts) == 0 {
				return nil
			}
			mu.Lock()
			for id, v := range verdicts {
				scores[id] = v.score
				if len(v.reasons) > 0 {
					reasons[id] = v.reasons
				}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // batches never return errors, they degrade

	annotate(items, scores, reasons)
	j.cacheReasons(ctx, req.QuerySummary, reasons)

	j.logger.Debug().
		Int("items", len(items)).
		Int("batches", len(batches)).
		Int("judged", len(scores)).
		Msg("judging pass complete")
	return scores
}

// judgeBatch runs one prompt and returns the accepted verdicts. Any
// failure logs and returns nothing.
func (j *Judge) judgeBatch(ctx context.Context, req Request, items []models.ScoredItem, batch []int) map[int64]verdict {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	sent := make(map[int64]bool, len(batch))
	summaries := make([]itemSummary, 0, len(batch))
	for _, i := range batch {
		s := summarize(items[i].Candidate, req.Profiles)
		sent[s.ID] = true
		summaries = append(summaries, s)
	}

	user, err := userPrompt(req, summaries)
	if err != nil {
		j.logger.Warn().Err(err).Msg("judge prompt build failed, leaving batch unjudged")
		return nil
	}

	reply, err := j.completer.Complete(ctx, llm.Request{
		System:      systemPrompt,
		User:        user,
		Temperature: llmTemperature,
		MaxTokens:   llmMaxTokens,
	})
	if err != nil {
		j.logger.Warn().Err(err).Int("batch_size", len(batch)).
			Msg("judge batch failed, leaving items unjudged")
		return nil
	}

	wire, err := decodeVerdicts(reply)
	if err != nil {
		j.logger.Warn().Err(err).Msg("judge reply unusable, leaving batch unjudged")
		return nil
	}

	out := make(map[int64]verdict, len(wire.Scores))
	for _, s := range wire.Scores {
		if !sent[s.ID] {
			continue // hallucinated id
		}
		if s.Score < 0 || s.Score > 1 {
			continue
		}
		out[s.ID] = verdict{score: s.Score, reasons: cleanReasons(s.Reasons)}
	}
	return out
}

// annotate attaches verdicts to their items and re-renders the
// explanation for each judged item so the reasons surface.
func annotate(items []models.ScoredItem, scores map[int64]float64, reasons map[int64][]string) {
	for i := range items {
		id := itemID(items[i].Candidate)
		s, ok := scores[id]
		if !ok {
			continue
		}
		score := s
		items[i].JudgeScore = &score
		items[i].JudgeReasons = reasons[id]
		items[i].Explanation = scoring.RenderExplanation(&items[i])
	}
}

// itemID is the wire identity: the catalog id, or the TMDB id for
// candidates that never hit the catalog.
func itemID(c *models.Candidate) int64 {
	if c.ID > 0 {
		return c.ID
	}
	return c.TMDBID
}

// batchIndexes chunks [0, n) into consecutive index slices.
func batchIndexes(n, size int) [][]int {
	batches := make([][]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		batch := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, i)
		}
		batches = append(batches, batch)
	}
	return batches
}

// reasonsKey hashes the query summary. Reasons are reusable across
// identical queries even though scores never are.
func reasonsKey(querySummary string) string {
	sum := sha256.Sum256([]byte(querySummary))
	return "judge:reasons:" + hex.EncodeToString(sum[:])
}

// cacheReasons stores the reason strings for this query summary;
// failures are logged, never surfaced.
func (j *Judge) cacheReasons(ctx context.Context, querySummary string, reasons map[int64][]string) {
	if j.store == nil || len(reasons) == 0 {
		return
	}
	raw, err := json.Marshal(reasons)
	if err != nil {
		j.logger.Warn().Err(err).Msg("judge reason cache encode failed")
		return
	}
	if err := j.store.SetEx(ctx, reasonsKey(querySummary), raw, reasonTTL); err != nil {
		j.logger.Warn().Err(err).Msg("judge reason cache write failed")
	}
}

// CachedReasons returns the reason strings cached for a query summary,
// keyed by candidate id. Misses and decode trouble return nil.
func (j *Judge) CachedReasons(ctx context.Context, querySummary string) map[int64][]string {
	if j.store == nil {
		return nil
	}
	raw, err := j.store.Get(ctx, reasonsKey(querySummary))
	if err != nil {
		if !recerr.IsKind(err, recerr.KindNotFound) {
			j.logger.Warn().Err(err).Msg("judge reason cache read failed")
		}
		return nil
	}
	var reasons map[int64][]string
	if err := json.Unmarshal(raw, &reasons); err != nil {
		j.logger.Warn().Err(err).Msg("dropping corrupt judge reason cache entry")
		if derr := j.store.Del(ctx, reasonsKey(querySummary)); derr != nil {
			j.logger.Warn().Err(derr).Msg("judge reason cache delete failed")
		}
		return nil
	}
	return reasons
}
