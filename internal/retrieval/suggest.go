// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package retrieval

import (
	"context"
	"sort"

	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/profile"
)

// Suggestion blend weights.
const (
	defaultSuggestN = 20

	avgSimShare    = 0.6
	frequencyShare = 0.4

	suggestionShare    = 0.5
	suggestionFitShare = 0.3
	diversityShare     = 0.25
	topGenreBonus      = 0.05

	// maxDiversityBoost caps the reward for genres the list under-represents.
	maxDiversityBoost = 0.15

	// neutralFit stands in when no profile is available so the blend
	// stays comparable across users.
	neutralFit = 0.5
)

// aggregate tracks one neighbor across all list items.
type aggregate struct {
	frequency int
	simSum    float64
}

// Suggestions recommends additions to an existing list: dense neighbors
// of the list items, scored by how often and how strongly they recur,
// boosted toward genres the list lacks. k <= 0 returns the default 20.
func (r *Retriever) Suggestions(ctx context.Context, userID int64, listItems []*models.Candidate, k int) ([]models.SearchHit, error) {
	if k <= 0 {
		k = defaultSuggestN
	}
	if len(listItems) == 0 {
		return r.popularFallback(ctx, "", k)
	}

	members := make(map[int64]bool, len(listItems))
	memberKeys := make(map[models.CandidateKey]bool, len(listItems))
	for _, item := range listItems {
		members[item.ID] = true
		memberKeys[item.Key()] = true
	}

	agg := make(map[int64]*aggregate)
	for _, item := range listItems {
		vec := r.encoder.Encode(embed.ComposeCandidateText(item))
		if vec.Norm() == 0 {
			continue
		}
		hits, err := r.dense.Search(vec, r.cfg.SuggestK)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if members[h.ID] || h.Similarity < r.cfg.SuggestMinSim {
				continue
			}
			a, ok := agg[h.ID]
			if !ok {
				a = &aggregate{}
				agg[h.ID] = a
			}
			a.frequency++
			a.simSum += h.Similarity
		}
	}
	if len(agg) == 0 {
		return r.genreBalancedFill(ctx, listItems, memberKeys, k)
	}

	maxAvg, maxFreq := 0.0, 0
	for _, a := range agg {
		if avg := a.simSum / float64(a.frequency); avg > maxAvg {
			maxAvg = avg
		}
		if a.frequency > maxFreq {
			maxFreq = a.frequency
		}
	}

	ids := make([]int64, 0, len(agg))
	for id := range agg {
		ids = append(ids, id)
	}
	candidates, err := r.catalog.GetCandidatesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	listGenres, median := genreDistribution(listItems)
	fc := r.suggestionFitContext(ctx, userID)

	hits := make([]models.SearchHit, 0, len(agg))
	for id, a := range agg {
		c, ok := candidates[id]
		if !ok || !c.Active || memberKeys[c.Key()] {
			continue
		}
		avg := a.simSum / float64(a.frequency)
		suggestion := avgSimShare*(avg/maxAvg) + frequencyShare*(float64(a.frequency)/float64(maxFreq))
		diversity := diversityBoost(c.Genres, listGenres, median)

		fit := neutralFit
		if fc != nil {
			fit = r.scorer.Score(fc, c)
		}

		final := suggestionShare*suggestion + suggestionFitShare*fit + diversityShare*diversity
		if fc != nil && matchesTopGenre(fc.Profile.TopGenres, c.Genres) {
			final += topGenreBonus
		}

		hits = append(hits, models.SearchHit{
			Key:         c.Key(),
			DenseScore:  avg,
			SearchScore: suggestion,
			FitScore:    fit,
			FinalScore:  final,
			Candidate:   c,
		})
	}

	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	r.logger.Debug().
		Int64("user_id", userID).
		Int("list_items", len(listItems)).
		Int("neighbors", len(agg)).
		Int("returned", len(hits)).
		Msg("suggestions built")
	return hits, nil
}

// suggestionFitContext loads the fit state, degrading to nil so one
// profile failure never empties a suggestion response.
func (r *Retriever) suggestionFitContext(ctx context.Context, userID int64) *profile.FitContext {
	if r.profiles == nil || r.scorer == nil {
		return nil
	}
	fc, err := r.profiles.FitContext(ctx, userID, false)
	if err != nil {
		r.logger.Warn().Err(err).Int64("user_id", userID).Msg("fit context unavailable for suggestions")
		return nil
	}
	return fc
}

// genreDistribution counts genres across the list and returns the
// median count. Genres absent from the list count as zero, which is
// always at or below the median.
func genreDistribution(items []*models.Candidate) (map[string]int, float64) {
	counts := make(map[string]int)
	for _, item := range items {
		for _, g := range item.Genres {
			counts[g]++
		}
	}
	if len(counts) == 0 {
		return counts, 0
	}
	vals := make([]int, 0, len(counts))
	for _, v := range counts {
		vals = append(vals, v)
	}
	sort.Ints(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return counts, float64(vals[mid])
	}
	return counts, float64(vals[mid-1]+vals[mid]) / 2
}

// diversityBoost scales with the share of candidate genres the list
// under-represents, up to maxDiversityBoost.
func diversityBoost(genres []string, listGenres map[string]int, median float64) float64 {
	if len(genres) == 0 {
		return 0
	}
	rare := 0
	for _, g := range genres {
		if float64(listGenres[g]) <= median {
			rare++
		}
	}
	return maxDiversityBoost * float64(rare) / float64(len(genres))
}

func matchesTopGenre(top []string, genres []string) bool {
	for _, t := range top {
		for _, g := range genres {
			if t == g {
				return true
			}
		}
	}
	return false
}

// popularFallback serves popular well-rated titles when there is
// nothing to anchor suggestions on. Scores are max-normalized
// popularity.
func (r *Retriever) popularFallback(ctx context.Context, mediaType models.MediaType, k int) ([]models.SearchHit, error) {
	popular, err := r.catalog.TopPopularCandidates(ctx, mediaType, k)
	if err != nil {
		return nil, err
	}
	if len(popular) == 0 {
		return nil, nil
	}
	maxPop := popular[0].Popularity
	if maxPop <= 0 {
		maxPop = 1
	}
	hits := make([]models.SearchHit, 0, len(popular))
	for _, c := range popular {
		score := c.Popularity / maxPop
		hits = append(hits, models.SearchHit{
			Key:         c.Key(),
			SearchScore: score,
			FinalScore:  score,
			Candidate:   c,
		})
	}
	return hits, nil
}

// genreBalancedFill covers the no-neighbor case: popular titles picked
// round-robin across the list's genres so one genre cannot dominate the
// fill. Position scores keep the pick order.
func (r *Retriever) genreBalancedFill(ctx context.Context, listItems []*models.Candidate, memberKeys map[models.CandidateKey]bool, k int) ([]models.SearchHit, error) {
	listGenres, _ := genreDistribution(listItems)
	if len(listGenres) == 0 {
		return r.popularFallback(ctx, "", k)
	}

	genres := make([]string, 0, len(listGenres))
	for g := range listGenres {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		if listGenres[genres[i]] != listGenres[genres[j]] {
			return listGenres[genres[i]] > listGenres[genres[j]]
		}
		return genres[i] < genres[j]
	})

	pool, err := r.catalog.TopPopularCandidates(ctx, "", k*3)
	if err != nil {
		return nil, err
	}

	used := make(map[int64]bool, k)
	picked := make([]*models.Candidate, 0, k)
	pick := func(match func(*models.Candidate) bool) bool {
		for _, c := range pool {
			if used[c.ID] || memberKeys[c.Key()] || !match(c) {
				continue
			}
			used[c.ID] = true
			picked = append(picked, c)
			return true
		}
		return false
	}

	for len(picked) < k {
		advanced := false
		for _, g := range genres {
			if len(picked) == k {
				break
			}
			if pick(func(c *models.Candidate) bool { return c.HasGenre(g) }) {
				advanced = true
			}
		}
		if !advanced {
			break
		}
	}
	// Top up from the remaining pool when the genre buckets run dry.
	for len(picked) < k {
		if !pick(func(*models.Candidate) bool { return true }) {
			break
		}
	}

	hits := make([]models.SearchHit, 0, len(picked))
	for i, c := range picked {
		score := float64(len(picked)-i) / float64(len(picked))
		hits = append(hits, models.SearchHit{
			Key:         c.Key(),
			SearchScore: score,
			FinalScore:  score,
			Candidate:   c,
		})
	}
	return hits, nil
}
