// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package profile

import (
	"context"

	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Fit blend weights and score fallbacks.
const (
	weightGenre      = 0.4
	weightSimilarity = 0.4
	weightPopularity = 0.2

	// maxTransfer caps how much weight a degenerate input can move
	// between the genre and similarity components.
	maxTransfer = 0.2

	// unknownGenreScore is the weight assumed for a candidate genre the
	// user never watched; noGenresScore replaces the genre component
	// when the candidate has no genres at all.
	unknownGenreScore = 0.1
	noGenresScore     = 0.3

	// neutralSimilarity stands in when either side has no usable
	// embedding.
	neutralSimilarity = 0.5

	// popularityHalf is the popularity at which the monotone obscure
	// and mainstream curves cross 0.5.
	popularityHalf = 50.0
)

// Per-aspect blend weights for the multi-vector fit, renormalized over
// the aspects both sides actually have.
var aspectWeights = map[models.VectorLabel]float64{
	models.LabelBase:     0.20,
	models.LabelTitle:    0.25,
	models.LabelKeywords: 0.30,
	models.LabelPeople:   0.20,
	models.LabelBrands:   0.05,
}

// FitContext is the reusable per-user state for scoring a batch of
// candidates: the profile plus the embeddings of its recent items.
// Build one per request via Service.FitContext and treat it as
// read-only.
type FitContext struct {
	// Profile is the taste profile the scores are computed against.
	Profile *models.UserProfile

	// RecentVecs holds base embeddings of the profile's recent items,
	// newest first. May be empty when the user has no linked history or
	// the encoder is disabled.
	RecentVecs []models.Vector

	// AspectVecs holds the user's per-aspect preference vectors, the
	// recency-and-rating-weighted averages of recent items' aspect
	// embeddings. Absent aspects were never observed.
	AspectVecs map[models.VectorLabel]models.Vector
}

// FitContext assembles the fit state for a user: the (possibly cached)
// profile and the embeddings of its recent catalog items.
func (s *Service) FitContext(ctx context.Context, userID int64, forceRefresh bool) (*FitContext, error) {
	p, err := s.Get(ctx, userID, forceRefresh)
	if err != nil {
		return nil, err
	}
	fc := &FitContext{Profile: p}
	if s.encoder == nil || len(p.RecentTMDBIDs) == 0 {
		return fc, nil
	}

	recent := s.recentCandidates(ctx, p)
	if len(recent) == 0 {
		return fc, nil
	}

	// Ratings sharpen the aspect averages; scoring works without them.
	ratings, err := s.db.UserRatings(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("ratings unavailable for fit context")
		ratings = nil
	}

	fc.RecentVecs = make([]models.Vector, 0, len(recent))
	sums := make(map[models.VectorLabel]models.Vector, len(models.VectorLabels))
	totals := make(map[models.VectorLabel]float64, len(models.VectorLabels))

	for i, c := range recent {
		aspects := embed.ComposeAspectTexts(c)
		base := s.encoder.Encode(aspects[models.LabelBase])
		fc.RecentVecs = append(fc.RecentVecs, base)

		w := recencyWeight(i, len(recent)) * ratingWeight(ratings, c.Key())
		for label, text := range aspects {
			vec := base
			if label != models.LabelBase {
				vec = s.encoder.Encode(text)
			}
			if vec.Norm() == 0 {
				continue
			}
			sum, ok := sums[label]
			if !ok {
				sum = make(models.Vector, len(vec))
				sums[label] = sum
			}
			sum.Add(vec.Clone().Scale(w))
			totals[label] += w
		}
	}

	fc.AspectVecs = make(map[models.VectorLabel]models.Vector, len(sums))
	for label, sum := range sums {
		if totals[label] > 0 {
			fc.AspectVecs[label] = sum.Scale(1 / totals[label]).Normalize()
		}
	}
	return fc, nil
}

// HistoryVector derives the user's taste embedding from watch history:
// the recency-and-rating-weighted average of recent items' base
// embeddings, unit length. Nil when the user has no usable history or
// the encoder is disabled. Pairwise training seeds the preference
// vector from here before the first judgment lands.
func (s *Service) HistoryVector(ctx context.Context, userID int64) (models.Vector, error) {
	fc, err := s.FitContext(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	v, ok := fc.AspectVecs[models.LabelBase]
	if !ok || v.Norm() == 0 {
		return nil, nil
	}
	return v.Clone(), nil
}

// recentCandidates loads the catalog rows behind the profile's recent
// items, newest first. Items missing from the catalog are skipped.
func (s *Service) recentCandidates(ctx context.Context, p *models.UserProfile) []*models.Candidate {
	out := make([]*models.Candidate, 0, len(p.RecentTMDBIDs))
	for i, tmdbID := range p.RecentTMDBIDs {
		if i >= len(p.RecentMediaTypes) {
			break
		}
		c, err := s.db.GetCandidateByKey(ctx, tmdbID, p.RecentMediaTypes[i])
		if err != nil {
			if !recerr.IsKind(err, recerr.KindNotFound) {
				s.logger.Warn().Err(err).Int64("tmdb_id", tmdbID).Msg("recent candidate load failed")
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// recencyWeight decays linearly from 1.0 (newest) to 0.5 (oldest of the
// recent window).
func recencyWeight(index, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - 0.5*float64(index)/float64(total-1)
}

// ratingWeight maps an explicit 1..10 rating to a 0.6..1.5 multiplier;
// unrated items stay at 1.0.
func ratingWeight(ratings map[models.CandidateKey]models.UserRating, key models.CandidateKey) float64 {
	r, ok := ratings[key]
	if !ok || r.Rating <= 0 {
		return 1.0
	}
	return 0.5 + float64(r.Rating)/10.0
}

// FitBreakdown itemizes one fit computation for explanations and tests.
type FitBreakdown struct {
	GenreScore       float64 `json:"genre_score"`
	SimilarityScore  float64 `json:"similarity_score"`
	PopularityScore  float64 `json:"popularity_score"`
	GenreWeight      float64 `json:"genre_weight"`
	SimilarityWeight float64 `json:"similarity_weight"`
	PopularityWeight float64 `json:"popularity_weight"`
	Fit              float64 `json:"fit"`
}

// FitScorer scores candidates against a user's fit context. Stateless
// and safe for concurrent use.
type FitScorer struct {
	encoder embed.Encoder
}

// NewFitScorer wires the scorer. encoder may be nil; similarity then
// always takes its neutral default.
func NewFitScorer(encoder embed.Encoder) *FitScorer {
	return &FitScorer{encoder: encoder}
}

// Score returns the blended fit in [0, 1], encoding the candidate's
// base embedding on demand.
func (f *FitScorer) Score(fc *FitContext, c *models.Candidate) float64 {
	return f.ScoreVec(fc, c, nil)
}

// ScoreVec scores with a caller-supplied base embedding, avoiding a
// re-encode when the pipeline already has one. vec may be nil.
func (f *FitScorer) ScoreVec(fc *FitContext, c *models.Candidate, vec models.Vector) float64 {
	return f.Breakdown(fc, c, vec).Fit
}

// Breakdown computes the full fit decomposition.
//
// The default blend is genre 0.4, similarity 0.4, popularity 0.2. When
// the user has no usable recent embeddings the similarity component is
// flat, so up to maxTransfer of its weight moves to genres; when the
// candidate has no genres the reverse transfer applies.
func (f *FitScorer) Breakdown(fc *FitContext, c *models.Candidate, vec models.Vector) FitBreakdown {
	b := FitBreakdown{
		GenreWeight:      weightGenre,
		SimilarityWeight: weightSimilarity,
		PopularityWeight: weightPopularity,
	}

	b.GenreScore = genreScore(fc.Profile, c)
	b.SimilarityScore = f.similarityScore(fc, c, vec)
	b.PopularityScore = popularityScore(fc.Profile.ObscurityPreference, c.Popularity)

	if len(fc.RecentVecs) == 0 {
		b.SimilarityWeight -= maxTransfer
		b.GenreWeight += maxTransfer
	}
	if len(c.Genres) == 0 {
		b.GenreWeight -= maxTransfer
		b.SimilarityWeight += maxTransfer
	}

	b.Fit = clamp01(b.GenreWeight*b.GenreScore +
		b.SimilarityWeight*b.SimilarityScore +
		b.PopularityWeight*b.PopularityScore)
	return b
}

// genreScore is the mean profile weight of the candidate's genres.
func genreScore(p *models.UserProfile, c *models.Candidate) float64 {
	if len(c.Genres) == 0 {
		return noGenresScore
	}
	sum := 0.0
	for _, g := range c.Genres {
		sum += p.GenreWeight(g, unknownGenreScore)
	}
	return sum / float64(len(c.Genres))
}

// similarityScore is the best cosine against the user's recent items,
// remapped from [-1, 1] to [0, 1].
func (f *FitScorer) similarityScore(fc *FitContext, c *models.Candidate, vec models.Vector) float64 {
	if len(fc.RecentVecs) == 0 {
		return neutralSimilarity
	}
	if vec == nil {
		if f.encoder == nil {
			return neutralSimilarity
		}
		vec = f.encoder.Encode(embed.ComposeCandidateText(c))
	}
	if vec.Norm() == 0 {
		return neutralSimilarity
	}
	best := -1.0
	for _, rv := range fc.RecentVecs {
		if len(rv) == 0 {
			continue
		}
		if cos := vec.Cosine(rv); cos > best {
			best = cos
		}
	}
	if best == -1.0 {
		return neutralSimilarity
	}
	return (best + 1) / 2
}

// popularityScore matches raw popularity against the user's obscurity
// preference. The obscure and mainstream curves are pop/(pop+h) shaped:
// smooth, monotone and bounded without clamping.
func popularityScore(pref models.ObscurityPreference, popularity float64) float64 {
	if popularity < 0 {
		popularity = 0
	}
	switch pref {
	case models.ObscurityObscure:
		return popularityHalf / (popularity + popularityHalf)
	case models.ObscurityMainstream:
		return popularity / (popularity + popularityHalf)
	default:
		if popularity >= 30 && popularity <= 70 {
			return 0.7
		}
		return 0.5
	}
}

// MultiVectorFit compares the candidate's aspect embeddings against the
// user's aspect vectors, blending per-aspect cosines with the aspect
// weights renormalized over the overlap. ok is false when either side
// has no usable aspects.
func (f *FitScorer) MultiVectorFit(fc *FitContext, c *models.Candidate) (fit float64, ok bool) {
	if f.encoder == nil || len(fc.AspectVecs) == 0 {
		return 0, false
	}
	sum, total := 0.0, 0.0
	for label, text := range embed.ComposeAspectTexts(c) {
		user, present := fc.AspectVecs[label]
		if !present {
			continue
		}
		vec := f.encoder.Encode(text)
		if vec.Norm() == 0 {
			continue
		}
		w := aspectWeights[label]
		sum += w * ((vec.Cosine(user) + 1) / 2)
		total += w
	}
	if total == 0 {
		return 0, false
	}
	return clamp01(sum / total), true
}

// ScoreWithAspects blends the primary fit with the multi-vector fit.
// aspectBlend in [0, 1] is the multi-vector share; when the variant is
// unavailable the primary fit stands alone.
func (f *FitScorer) ScoreWithAspects(fc *FitContext, c *models.Candidate, aspectBlend float64) float64 {
	primary := f.Score(fc, c)
	multi, ok := f.MultiVectorFit(fc, c)
	if !ok {
		return primary
	}
	aspectBlend = clamp01(aspectBlend)
	return clamp01((1-aspectBlend)*primary + aspectBlend*multi)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
