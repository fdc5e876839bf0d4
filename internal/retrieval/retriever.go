// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/lexical"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/profile"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/vecindex"
)

// Merge weights and defaults.
const (
	denseWeight   = 0.6
	lexicalWeight = 0.4

	// neutralSourceScore stands in for a source that did not return the
	// hit, keeping single-source hits comparable with fused ones.
	neutralSourceScore = 0.3

	searchShare = 0.7
	fitShare    = 0.3

	defaultDenseK        = 30
	defaultLexicalK      = 12
	defaultCacheTTL      = 45 * time.Second
	defaultSuggestK      = 25
	defaultSuggestMinSim = 0.45

	cachePrefix = "retrieval:"
)

// denseIndex is the vector-index slice the retriever uses.
// *vecindex.Primary satisfies it.
type denseIndex interface {
	Search(query models.Vector, k int) ([]vecindex.Hit, error)
}

// lexIndex is the lexical-index slice the retriever uses.
// *lexical.Index satisfies it.
type lexIndex interface {
	Search(ctx context.Context, query string, k int, opts lexical.SearchOptions) ([]lexical.Hit, error)
}

// catalogStore resolves candidate rows. *database.DB satisfies it.
type catalogStore interface {
	GetCandidatesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Candidate, error)
	TopPopularCandidates(ctx context.Context, mediaType models.MediaType, limit int) ([]*models.Candidate, error)
}

// fitProvider builds per-user fit state. *profile.Service satisfies it.
type fitProvider interface {
	FitContext(ctx context.Context, userID int64, forceRefresh bool) (*profile.FitContext, error)
}

// Options wires a Retriever.
type Options struct {
	Encoder embed.Encoder
	Dense   denseIndex
	Lexical lexIndex // nil runs dense-only
	Catalog catalogStore
	Fit     fitProvider        // nil disables fit blending
	Scorer  *profile.FitScorer // required when Fit is set
	Store   kv.Store           // nil disables the result cache
	Config  config.RetrievalConfig
}

// Request is one retrieval invocation.
type Request struct {
	// UserID scopes the cache and the fit context.
	UserID int64

	// Query is the free-text search string.
	Query string

	// Intent optionally shapes the query vector (seeds, moods, negative
	// cues) and narrows media type.
	Intent *models.Intent

	// K caps the result count. Zero means the dense fetch size.
	K int

	// SkipFit leaves the final score purely retrieval-based.
	SkipFit bool
}

// Retriever merges dense and lexical search into enriched, fit-blended
// hits. Safe for concurrent use.
type Retriever struct {
	encoder  embed.Encoder
	dense    denseIndex
	lex      lexIndex
	catalog  catalogStore
	profiles fitProvider
	scorer   *profile.FitScorer
	store    kv.Store
	cfg      config.RetrievalConfig
	logger   zerolog.Logger
}

// New wires the retriever and applies config defaults.
func New(opts Options) *Retriever {
	cfg := opts.Config
	if cfg.DenseK <= 0 {
		cfg.DenseK = defaultDenseK
	}
	if cfg.LexicalK <= 0 {
		cfg.LexicalK = defaultLexicalK
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.SuggestK <= 0 {
		cfg.SuggestK = defaultSuggestK
	}
	if cfg.SuggestMinSim <= 0 {
		cfg.SuggestMinSim = defaultSuggestMinSim
	}
	return &Retriever{
		encoder:  opts.Encoder,
		dense:    opts.Dense,
		lex:      opts.Lexical,
		catalog:  opts.Catalog,
		profiles: opts.Fit,
		scorer:   opts.Scorer,
		store:    opts.Store,
		cfg:      cfg,
		logger:   logging.With().Str("component", "retrieval").Logger(),
	}
}

// Retrieve runs the hybrid search and returns up to req.K enriched hits
// ordered by final score, descending.
func (r *Retriever) Retrieve(ctx context.Context, req Request) ([]models.SearchHit, error) {
	const op = "retrieval.Retrieve"
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, recerr.Input(op, "empty query")
	}
	if req.K <= 0 {
		req.K = r.cfg.DenseK
	}

	key := r.searchCacheKey(req)
	if hits := r.cachedHits(ctx, key); hits != nil {
		return hits, nil
	}

	queryVec := composeQueryVector(r.encoder, req.Query, req.Intent)
	if queryVec == nil {
		return nil, recerr.Input(op, "query text produced no embedding")
	}

	// Both sources run concurrently. A dense failure aborts the search;
	// the lexical side degrades inside lexicalHits.
	var (
		denseHits []vecindex.Hit
		lexHits   []lexical.Hit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		denseHits, err = r.dense.Search(queryVec, r.cfg.DenseK)
		return err
	})
	g.Go(func() error {
		lexHits = r.lexicalHits(gctx, req)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeHits(denseHits, lexHits)
	if len(merged) == 0 {
		return nil, nil
	}

	hits, err := r.enrich(ctx, merged, mediaTypeOf(req.Intent))
	if err != nil {
		return nil, err
	}

	r.blendFit(ctx, req, hits)
	sortHits(hits)
	if len(hits) > req.K {
		hits = hits[:req.K]
	}

	r.cacheHits(ctx, key, hits)
	r.logger.Debug().
		Int64("user_id", req.UserID).
		Int("dense", len(denseHits)).
		Int("lexical", len(lexHits)).
		Int("returned", len(hits)).
		Msg("hybrid retrieval done")
	return hits, nil
}

// lexicalHits queries the lexical index, degrading to empty on failure:
// the dense side alone still produces a usable result.
func (r *Retriever) lexicalHits(ctx context.Context, req Request) []lexical.Hit {
	if r.lex == nil {
		return nil
	}
	opts := lexical.SearchOptions{MediaType: mediaTypeOf(req.Intent)}
	if req.Intent != nil {
		opts.Moods = req.Intent.Moods
		opts.Tones = req.Intent.Tones
	}
	hits, err := r.lex.Search(ctx, req.Query, r.cfg.LexicalK, opts)
	if err != nil {
		r.logger.Warn().Err(err).Msg("lexical search failed, continuing dense-only")
		return nil
	}
	return hits
}

// mergeHits fuses the two sources by candidate id. Sources are fused
// 0.6 dense / 0.4 lexical, with the neutral constant standing in for a
// source that missed the candidate.
func mergeHits(dense []vecindex.Hit, lex []lexical.Hit) map[int64]*models.SearchHit {
	merged := make(map[int64]*models.SearchHit, len(dense)+len(lex))
	for _, h := range dense {
		merged[h.ID] = &models.SearchHit{DenseScore: h.Similarity}
	}
	for _, h := range lex {
		if sh, ok := merged[h.ID]; ok {
			sh.LexicalScore = h.Score
		} else {
			merged[h.ID] = &models.SearchHit{LexicalScore: h.Score}
		}
	}
	for _, sh := range merged {
		d, l := sh.DenseScore, sh.LexicalScore
		if d == 0 {
			d = neutralSourceScore
		}
		if l == 0 {
			l = neutralSourceScore
		}
		sh.SearchScore = denseWeight*d + lexicalWeight*l
		sh.FinalScore = sh.SearchScore
	}
	return merged
}

// enrich attaches candidate rows, dropping inactive candidates, rows
// missing from the catalog and media-type mismatches.
func (r *Retriever) enrich(ctx context.Context, merged map[int64]*models.SearchHit, mediaType models.MediaType) ([]models.SearchHit, error) {
	ids := make([]int64, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	candidates, err := r.catalog.GetCandidatesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	hits := make([]models.SearchHit, 0, len(merged))
	for id, sh := range merged {
		c, ok := candidates[id]
		if !ok || !c.Active {
			continue
		}
		if mediaType != "" && c.MediaType != mediaType {
			continue
		}
		sh.Key = c.Key()
		sh.Candidate = c
		hits = append(hits, *sh)
	}
	return hits, nil
}

// blendFit folds profile fit into the final score. Fit trouble logs and
// leaves the pure search order standing.
func (r *Retriever) blendFit(ctx context.Context, req Request, hits []models.SearchHit) {
	if req.SkipFit || r.profiles == nil || r.scorer == nil || len(hits) == 0 {
		return
	}
	fc, err := r.profiles.FitContext(ctx, req.UserID, false)
	if err != nil {
		r.logger.Warn().Err(err).Int64("user_id", req.UserID).Msg("fit context unavailable, skipping fit blend")
		return
	}
	for i := range hits {
		fit := r.scorer.Score(fc, hits[i].Candidate)
		hits[i].FitScore = fit
		hits[i].FinalScore = searchShare*hits[i].SearchScore + fitShare*fit
	}
}

// sortHits orders by final score descending with deterministic ties.
func sortHits(hits []models.SearchHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FinalScore != hits[j].FinalScore {
			return hits[i].FinalScore > hits[j].FinalScore
		}
		if hits[i].SearchScore != hits[j].SearchScore {
			return hits[i].SearchScore > hits[j].SearchScore
		}
		return hits[i].Key.TMDBID < hits[j].Key.TMDBID
	})
}

func mediaTypeOf(in *models.Intent) models.MediaType {
	if in == nil {
		return ""
	}
	return in.MediaType
}

// searchCacheKey hashes the normalized query and every intent facet
// that shapes the query vector, scoped per user.
func (r *Retriever) searchCacheKey(req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\x00%s\x00%d\x00%t\x00", req.UserID, strings.ToLower(req.Query), req.K, req.SkipFit)
	if req.Intent != nil {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s",
			req.Intent.MediaType,
			strings.Join(req.Intent.Seeds, ","),
			strings.Join(req.Intent.Moods, ","),
			strings.Join(req.Intent.Tones, ","),
			strings.Join(req.Intent.NegativeCues, ","))
	}
	return cachePrefix + hex.EncodeToString(h.Sum(nil))
}

// cachedHits returns cached results or nil. Corrupt entries drop.
func (r *Retriever) cachedHits(ctx context.Context, key string) []models.SearchHit {
	if r.store == nil {
		return nil
	}
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if !recerr.IsKind(err, recerr.KindNotFound) {
			r.logger.Warn().Err(err).Msg("retrieval cache read failed")
		}
		return nil
	}
	var hits []models.SearchHit
	if err := json.Unmarshal(raw, &hits); err != nil {
		r.logger.Warn().Err(err).Msg("dropping corrupt retrieval cache entry")
		if delErr := r.store.Del(ctx, key); delErr != nil {
			r.logger.Warn().Err(delErr).Msg("retrieval cache delete failed")
		}
		return nil
	}
	return hits
}

// cacheHits stores results; failures only log. Empty results are not
// cached so a filling index becomes visible immediately.
func (r *Retriever) cacheHits(ctx context.Context, key string, hits []models.SearchHit) {
	if r.store == nil || len(hits) == 0 {
		return
	}
	raw, err := json.Marshal(hits)
	if err != nil {
		r.logger.Warn().Err(err).Msg("retrieval cache encode failed")
		return
	}
	if err := r.store.SetEx(ctx, key, raw, r.cfg.CacheTTL); err != nil {
		r.logger.Warn().Err(err).Msg("retrieval cache write failed")
	}
}
