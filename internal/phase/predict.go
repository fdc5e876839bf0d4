// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package phase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

const (
	// predictSessionLimit caps how many recent pairwise sessions feed
	// the judgment-based prediction.
	predictSessionLimit = 5

	// predictSearchK is how many multi-vector neighbors the prediction
	// suggests.
	predictSearchK = 20

	// predictMinWinners is the floor below which judgment data is too
	// thin and prediction falls through to clustering.
	predictMinWinners = 3

	// clusterLookbackDays bounds the clustering fallback window.
	clusterLookbackDays = 30
)

// PredictNext guesses the user's next viewing phase. Recent pairwise
// judgments are tried first; without enough of them the last weeks of
// watches are clustered instead. The prediction is never persisted.
func (d *Detector) PredictNext(ctx context.Context, userID int64) (*models.PhasePrediction, error) {
	const op = "phase.PredictNext"
	now := d.now().UTC()
	since := now.AddDate(0, 0, -d.lookbackDays)

	if p := d.predictFromJudgments(ctx, userID, since, now); p != nil {
		return p, nil
	}
	p, err := d.predictFromClustering(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, recerr.NotFound(op, "predictable phase")
	}
	return p, nil
}

// predictFromJudgments aggregates recent session winners into a taste
// direction and searches the multi-vector index for matching items.
// Returns nil when the judgment trail is too thin.
func (d *Detector) predictFromJudgments(ctx context.Context, userID int64, since, now time.Time) *models.PhasePrediction {
	sessions, err := d.db.RecentPairwiseSessions(ctx, userID, predictSessionLimit)
	if err != nil {
		d.logger.Warn().Err(err).Int64("user_id", userID).Msg("session fetch failed")
		return nil
	}

	wins := make(map[int64]int)
	for _, s := range sessions {
		if s.UpdatedAt.Before(since) {
			continue
		}
		judgments, err := d.db.SessionJudgments(ctx, s.ID)
		if err != nil {
			d.logger.Warn().Err(err).Str("session_id", s.ID).Msg("judgment fetch failed")
			continue
		}
		for _, j := range judgments {
			switch j.Winner {
			case models.WinnerA:
				wins[j.CandidateA]++
			case models.WinnerB:
				wins[j.CandidateB]++
			}
		}
	}
	if len(wins) < predictMinWinners {
		return nil
	}

	ids := make([]int64, 0, len(wins))
	for id := range wins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if wins[ids[i]] != wins[ids[j]] {
			return wins[ids[i]] > wins[ids[j]]
		}
		return ids[i] < ids[j]
	})

	candidates, err := d.db.GetCandidatesByIDs(ctx, ids)
	if err != nil {
		d.logger.Warn().Err(err).Int64("user_id", userID).Msg("winner fetch failed")
		return nil
	}

	counts := make(map[string]int)
	kwCounts := make(map[string]int)
	var sum models.Vector
	resolved := 0
	for _, id := range ids {
		c := candidates[id]
		if c == nil {
			continue
		}
		resolved++
		for _, g := range c.Genres {
			counts[g] += wins[id]
		}
		for _, kw := range c.Keywords {
			kwCounts[kw] += wins[id]
		}
		vec := d.encoder.Encode(embed.ComposeCandidateText(c))
		if sum == nil {
			sum = make(models.Vector, len(vec))
		}
		for i := 0; i < len(vec) && i < len(sum); i++ {
			sum[i] += vec[i]
		}
	}
	if resolved < predictMinWinners || sum == nil {
		return nil
	}
	sum.Normalize()

	p := &models.PhasePrediction{
		Source:      "judgments",
		Genres:      topCounted(counts, 3),
		Keywords:    topCounted(kwCounts, 5),
		Confidence:  confidenceFromWins(wins),
		GeneratedAt: now,
	}
	p.Label = predictionLabel(p.Genres, p.Keywords)
	p.CandidateIDs = d.searchPrediction(sum, wins)
	return p
}

// searchPrediction finds multi-vector neighbors of the taste direction,
// skipping the winners themselves.
func (d *Detector) searchPrediction(query models.Vector, exclude map[int64]int) []int64 {
	if d.multi == nil {
		return nil
	}
	hits, err := d.multi.Search(query, predictSearchK)
	if err != nil {
		d.logger.Warn().Err(err).Msg("prediction search failed")
		return nil
	}
	var out []int64
	seen := make(map[int64]bool)
	for _, h := range hits {
		if _, won := exclude[h.ID]; won || seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		out = append(out, h.ID)
	}
	return out
}

// predictFromClustering clusters the trailing weeks of watches and
// promotes the best cluster to a prediction.
func (d *Detector) predictFromClustering(ctx context.Context, userID int64, now time.Time) (*models.PhasePrediction, error) {
	days := clusterLookbackDays
	if d.lookbackDays < days {
		days = d.lookbackDays
	}
	start := now.AddDate(0, 0, -days)

	events, err := d.db.WatchEventsBetween(ctx, userID, start, now)
	if err != nil {
		return nil, err
	}
	items := d.embeddable(ctx, events)
	if len(items) < d.minClusterSize {
		return nil, nil
	}

	vecs := make([]models.Vector, len(items))
	for i, it := range items {
		vecs[i] = it.vec
	}
	result, ok := densityCluster(vecs, d.minClusterSize, d.epsilon)
	if !ok {
		result = kmeansFallback(vecs, d.minClusterSize)
	}

	bestIdx := -1
	bestScore := 0.0
	for c := 0; c < result.clusters; c++ {
		idx := result.members(c)
		if len(idx) == 0 {
			continue
		}
		var cvecs []models.Vector
		for _, j := range idx {
			cvecs = append(cvecs, items[j].vec)
		}
		score := meanPairwiseCosine(cvecs) * float64(len(idx)) / float64(len(items))
		if score > bestScore {
			bestScore = score
			bestIdx = c
		}
	}
	if bestIdx < 0 {
		return nil, nil
	}

	idx := result.members(bestIdx)
	clusterItems := make([]windowItem, len(idx))
	memberIDs := make([]int64, len(idx))
	for i, j := range idx {
		clusterItems[i] = items[j]
		memberIDs[i] = items[j].candidate.ID
	}

	genres := capStrings(rankedFacets(clusterItems, func(c *models.Candidate) []string { return c.Genres }), 3)
	keywords := capStrings(rankedFacets(clusterItems, func(c *models.Candidate) []string { return c.Keywords }), 5)

	p := &models.PhasePrediction{
		Source:       "clustering",
		Genres:       genres,
		Keywords:     keywords,
		CandidateIDs: memberIDs,
		Confidence:   clamp01(bestScore),
		GeneratedAt:  now,
	}
	p.Label = predictionLabel(genres, keywords)
	return p, nil
}

func predictionLabel(genres, keywords []string) string {
	for _, kw := range keywords {
		if !genericKeywords[strings.ToLower(kw)] {
			return titleCase(kw)
		}
	}
	if len(genres) >= 2 {
		return genres[0] + " & " + genres[1]
	}
	if len(genres) == 1 {
		return genres[0]
	}
	return "Mixed"
}

func topCounted(counts map[string]int, k int) []string {
	out := make([]string, 0, len(counts))
	for v := range counts {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return capStrings(out, k)
}

// confidenceFromWins saturates toward 1 as the decisive judgment count
// grows.
func confidenceFromWins(wins map[int64]int) float64 {
	total := 0
	for _, n := range wins {
		total += n
	}
	return float64(total) / (float64(total) + 10)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
