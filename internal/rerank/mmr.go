// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package rerank diversifies scored lists. The only strategy is maximal
// marginal relevance: each pick balances relevance against similarity
// to the items already selected.
package rerank

import (
	"math"
	"strings"

	"github.com/tomtom215/curatus/internal/models"
)

// maxSelect bounds one reranking pass regardless of the caller's k.
const maxSelect = 500

// MMR implements Maximal Marginal Relevance reranking:
//
//	MMR = argmax[lambda * score(i) - (1-lambda) * max(sim(i, s)) for s in selected]
//
// lambda = 1 is pure relevance, lambda = 0 pure diversity.
//
// Reference:
// Carbonell, J., & Goldstein, J. (1998). "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries." SIGIR 1998.
type MMR struct {
	lambda float64
}

// NewMMR creates a reranker with lambda clamped to [0, 1].
func NewMMR(lambda float64) *MMR {
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}
	return &MMR{lambda: lambda}
}

// Rerank greedily selects up to k items. vecs, when present, must be
// parallel to items and supplies embedding similarity; pairs without
// vectors fall back to genre overlap. k <= 0 returns the input
// unchanged.
func (m *MMR) Rerank(items []models.ScoredItem, vecs []models.Vector, k int) []models.ScoredItem {
	if len(items) == 0 || k <= 0 {
		return items
	}
	if k > maxSelect {
		k = maxSelect
	}
	if k > len(items) {
		k = len(items)
	}
	if m.lambda >= 1 {
		return items[:k]
	}

	sims := similarityMatrix(items, vecs)

	selected := make([]models.ScoredItem, 0, k)
	picked := make(map[int]struct{}, k)
	for len(selected) < k {
		bestIdx := -1
		best := math.Inf(-1)
		for i := range items {
			if _, ok := picked[i]; ok {
				continue
			}
			maxSim := 0.0
			for j := range picked {
				if s := sims[i][j]; s > maxSim {
					maxSim = s
				}
			}
			score := m.lambda*items[i].Score - (1-m.lambda)*maxSim
			if score > best {
				best = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		selected = append(selected, items[bestIdx])
		picked[bestIdx] = struct{}{}
	}
	return selected
}

// similarityMatrix precomputes pairwise similarity once; the greedy
// loop reads it k*n times.
func similarityMatrix(items []models.ScoredItem, vecs []models.Vector) [][]float64 {
	n := len(items)
	sims := make([][]float64, n)
	for i := range sims {
		sims[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := pairSimilarity(items, vecs, i, j)
			sims[i][j] = s
			sims[j][i] = s
		}
	}
	return sims
}

// pairSimilarity prefers embedding cosine; pairs where either side has
// no vector fall back to genre overlap. Negative cosines read as fully
// dissimilar.
func pairSimilarity(items []models.ScoredItem, vecs []models.Vector, i, j int) float64 {
	if len(vecs) == len(items) && vecs[i] != nil && vecs[j] != nil {
		if cos := vecs[i].Cosine(vecs[j]); cos > 0 {
			return cos
		}
		return 0
	}
	if items[i].Candidate == nil || items[j].Candidate == nil {
		return 0
	}
	return genreSimilarity(items[i].Candidate.Genres, items[j].Candidate.Genres)
}

// genreSimilarity is the case-insensitive Jaccard overlap between genre
// lists. Two empty lists count as dissimilar, not identical.
func genreSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, g := range a {
		setA[strings.ToLower(g)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, g := range b {
		setB[strings.ToLower(g)] = struct{}{}
	}

	intersection := 0
	for g := range setA {
		if _, ok := setB[g]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
