// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package pairwise

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/llm"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
)

const (
	defaultMaxPairs  = 150
	defaultBatchSize = 12

	// maxTournament caps how many head items enter the tournament no
	// matter how generous the pair budget is.
	maxTournament = 60

	// pairsPerItem sets the sample target relative to K.
	pairsPerItem = 8

	// sampleWeightFloor keeps zero- and negative-scored items sampleable.
	sampleWeightFloor = 0.1

	// batchTimeout bounds one batch completion. No retry: a lost batch
	// just leaves its pairs unplayed.
	batchTimeout = 90 * time.Second

	maxConcurrent = 3

	rankTemperature = 0.1
	rankMaxTokens   = 400
)

// Completer is the chat-completions surface this package needs.
// *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Ranker reorders the head of a scored list by tournament win rate.
// A nil completer disables it. Safe for concurrent use.
type Ranker struct {
	completer Completer
	maxPairs  int
	batchSize int
	timeout   time.Duration
	logger    zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRanker builds a Ranker from config. Zero config values take the
// defaults.
func NewRanker(completer Completer, cfg config.PairwiseConfig) *Ranker {
	if cfg.MaxPairs <= 0 {
		cfg.MaxPairs = defaultMaxPairs
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Ranker{
		completer: completer,
		maxPairs:  cfg.MaxPairs,
		batchSize: cfg.BatchSize,
		timeout:   batchTimeout,
		logger:    logging.With().Str("component", "pairwise").Logger(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // sampling, not security
	}
}

// RankRequest carries the viewer context a tournament judges against.
type RankRequest struct {
	// Prompt is the originating list request.
	Prompt string

	// Persona is the optional viewer description.
	Persona string

	// Profiles optionally enriches item summaries, keyed by candidate id.
	Profiles map[int64]*models.ItemLLMProfile
}

// pair is one sampled comparison, as indexes into the tournament head.
type pair struct {
	a, b int
}

// outcome tallies one item's tournament record.
type outcome struct {
	wins   float64
	played float64
}

// Rank runs the tournament and returns the reordered list: the top K by
// engine score reordered by descending win rate, the remaining items in
// their engine order behind them. Rank never fails; items whose pairs
// were lost to timeouts or malformed replies keep their relative engine
// order.
func (r *Ranker) Rank(ctx context.Context, req RankRequest, items []models.ScoredItem) []models.ScoredItem {
	if r.completer == nil || len(items) < 2 {
		return items
	}

	k := tournamentSize(len(items), r.maxPairs)
	if k < 2 {
		return items
	}

	head := items[:k]
	pairs := r.samplePairs(head)
	if len(pairs) == 0 {
		return items
	}

	records := r.playPairs(ctx, req, head, pairs)

	out := make([]models.ScoredItem, len(items))
	copy(out, items)
	sort.SliceStable(out[:k], func(i, j int) bool {
		return winRate(records, itemID(out[i].Candidate)) > winRate(records, itemID(out[j].Candidate))
	})

	r.logger.Debug().
		Int("items", len(items)).
		Int("tournament", k).
		Int("pairs", len(pairs)).
		Msg("tournament complete")
	return out
}

// tournamentSize is min(60, n, largest k with k(k-1)/2 <= maxPairs).
func tournamentSize(n, maxPairs int) int {
	k := int((1 + math.Sqrt(1+8*float64(maxPairs))) / 2)
	for k > 0 && k*(k-1)/2 > maxPairs {
		k--
	}
	for (k+1)*k/2 <= maxPairs {
		k++
	}
	return min(maxTournament, min(n, k))
}

// samplePairs draws the comparisons for a tournament head: sampling
// with replacement weighted by engine score, deduplicated, until the
// target count of unique pairs is reached. When the target covers every
// unique pair the full enumeration is returned instead, shuffled so
// batches stay mixed.
func (r *Ranker) samplePairs(head []models.ScoredItem) []pair {
	k := len(head)
	unique := k * (k - 1) / 2
	target := min(r.maxPairs, k*pairsPerItem)

	r.mu.Lock()
	defer r.mu.Unlock()

	if target >= unique {
		out := make([]pair, 0, unique)
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				out = append(out, pair{a: i, b: j})
			}
		}
		r.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}

	weights := make([]float64, k)
	var total float64
	for i := range head {
		weights[i] = head[i].Score + sampleWeightFloor
		if weights[i] < sampleWeightFloor {
			weights[i] = sampleWeightFloor
		}
		total += weights[i]
	}

	seen := make(map[pair]bool, target)
	out := make([]pair, 0, target)
	for attempts := 0; len(out) < target && attempts < target*50; attempts++ {
		a := weightedPick(r.rng, weights, total)
		b := weightedPick(r.rng, weights, total)
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		p := pair{a: a, b: b}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// weightedPick draws one index with probability proportional to its
// weight.
func weightedPick(rng *rand.Rand, weights []float64, total float64) int {
	x := rng.Float64() * total
	for i, w := range weights {
		x -= w
		if x < 0 {
			return i
		}
	}
	return len(weights) - 1
}

// playPairs judges all sampled pairs in batches and returns the
// per-item records keyed by wire id. Failed batches contribute nothing.
func (r *Ranker) playPairs(ctx context.Context, req RankRequest, head []models.ScoredItem, pairs []pair) map[int64]*outcome {
	records := make(map[int64]*outcome, len(head))
	for i := range head {
		records[itemID(head[i].Candidate)] = &outcome{}
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(maxConcurrent)

	for start := 0; start < len(pairs); start += r.batchSize {
		batch := pairs[start:min(start+r.batchSize, len(pairs))]
		g.Go(func() error {
			verdicts := r.judgeBatch(ctx, req, head, batch)
			if len(verdicts) == 0 {
				return nil
			}
			mu.Lock()
			for i, w := range verdicts {
				recordVerdict(records, head, batch[i], w)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // batches never return errors, they degrade
	return records
}

// recordVerdict applies one judged pair: a win counts 1, a tie counts
// 0.5 for each side. Anything else leaves the pair unplayed.
func recordVerdict(records map[int64]*outcome, head []models.ScoredItem, p pair, w string) {
	ra := records[itemID(head[p.a].Candidate)]
	rb := records[itemID(head[p.b].Candidate)]
	switch w {
	case "a":
		ra.wins++
	case "b":
		rb.wins++
	case "tie":
		ra.wins += 0.5
		rb.wins += 0.5
	default:
		return
	}
	ra.played++
	rb.played++
}

// judgeBatch runs one prompt over a slice of pairs and returns the
// verdict per pair index, keyed into the batch. Any failure logs and
// returns nothing.
func (r *Ranker) judgeBatch(ctx context.Context, req RankRequest, head []models.ScoredItem, batch []pair) map[int]string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	user, err := rankPrompt(req, head, batch)
	if err != nil {
		r.logger.Warn().Err(err).Msg("tournament prompt build failed, dropping batch")
		return nil
	}

	reply, err := r.completer.Complete(ctx, llm.Request{
		System:      rankSystemPrompt,
		User:        user,
		Temperature: rankTemperature,
		MaxTokens:   rankMaxTokens,
	})
	if err != nil {
		r.logger.Warn().Err(err).Int("pairs", len(batch)).
			Msg("tournament batch failed, leaving pairs unplayed")
		return nil
	}

	wire, err := decodeRankings(reply)
	if err != nil {
		r.logger.Warn().Err(err).Msg("tournament reply unusable, leaving pairs unplayed")
		return nil
	}

	out := make(map[int]string, len(wire.Results))
	for _, res := range wire.Results {
		if res.Pair < 0 || res.Pair >= len(batch) {
			continue // hallucinated pair index
		}
		switch res.Winner {
		case "a", "b", "tie":
			out[res.Pair] = res.Winner
		}
	}
	return out
}

// winRate is wins/played, with unplayed items at zero. The stable sort
// keeps engine order among equals, so a fully lost tournament returns
// the input order.
func winRate(records map[int64]*outcome, id int64) float64 {
	rec := records[id]
	if rec == nil || rec.played == 0 {
		return 0
	}
	return rec.wins / rec.played
}

// itemID is the wire identity: the catalog id, or the TMDB id for
// candidates that never hit the catalog.
func itemID(c *models.Candidate) int64 {
	if c.ID > 0 {
		return c.ID
	}
	return c.TMDBID
}
