// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/judge"
	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/lexical"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/pairwise"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/retrieval"
	"github.com/tomtom215/curatus/internal/scoring"
	"github.com/tomtom215/curatus/internal/vecindex"
	"github.com/tomtom215/curatus/internal/watchprov"
)

// intentExtractor produces structured intent from a prompt. Extract
// never fails; it degrades to rule-based extraction.
type intentExtractor interface {
	Extract(ctx context.Context, prompt, persona, historySummary string) *models.Intent
}

// searcher is the hybrid retrieval slice the facade drives.
type searcher interface {
	Retrieve(ctx context.Context, req retrieval.Request) ([]models.SearchHit, error)
	Suggestions(ctx context.Context, userID int64, listItems []*models.Candidate, k int) ([]models.SearchHit, error)
}

// judgeScorer annotates items in place and returns accepted scores.
type judgeScorer interface {
	Score(ctx context.Context, req judge.Request, items []models.ScoredItem) map[int64]float64
}

// pairRanker reorders the tournament head by LLM pair judgments.
type pairRanker interface {
	Rank(ctx context.Context, req pairwise.RankRequest, items []models.ScoredItem) []models.ScoredItem
}

// diversifier applies maximal marginal relevance.
type diversifier interface {
	Rerank(items []models.ScoredItem, vecs []models.Vector, k int) []models.ScoredItem
}

// profileService is the profile slice surfaced by the facade.
type profileService interface {
	Get(ctx context.Context, userID int64, forceRefresh bool) (*models.UserProfile, error)
	Invalidate(ctx context.Context, userID int64) error
}

// personaSource renders the short viewer description for prompts.
type personaSource interface {
	Text(ctx context.Context, userID int64) string
}

// historyService is the watch-history slice the pipeline reads.
type historyService interface {
	Stats(ctx context.Context, userID int64) (*models.WatchStats, error)
	TopGenres(ctx context.Context, userID int64, k int) ([]models.GenreCount, error)
	RecentWatches(ctx context.Context, userID int64, mediaType models.MediaType, limit int) ([]*models.WatchEvent, error)
	WatchedStatusFor(ctx context.Context, userID int64, keys []models.CandidateKey) (map[models.CandidateKey]models.WatchedStatus, error)
}

// sessionTrainer is the pairwise training surface.
type sessionTrainer interface {
	Create(ctx context.Context, userID int64, prompt string, listType models.ListType, pool []int64) (*models.PairwiseSession, error)
	Session(ctx context.Context, id string) (*models.PairwiseSession, error)
	NextPair(ctx context.Context, sessionID string) (*pairwise.Pair, error)
	Submit(ctx context.Context, req pairwise.SubmitRequest) (*models.PairwiseSession, error)
	Abandon(ctx context.Context, sessionID string) (*models.PairwiseSession, error)
	Weights(ctx context.Context, userID int64) (*models.PreferenceWeights, error)
}

// phaseService is the viewing-phase surface.
type phaseService interface {
	DetectAll(ctx context.Context, userID int64) ([]*models.ViewingPhase, error)
	Current(ctx context.Context, userID int64) (*models.ViewingPhase, error)
	PredictNext(ctx context.Context, userID int64) (*models.PhasePrediction, error)
}

// catalogStore is the candidate metadata slice.
type catalogStore interface {
	GetCandidateByKey(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*models.Candidate, error)
	GetCandidatesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Candidate, error)
	ListActiveCandidates(ctx context.Context, afterID int64, limit int) ([]*models.Candidate, error)
	GetItemProfiles(ctx context.Context, candidateIDs []int64) (map[int64]*models.ItemLLMProfile, error)
	UserRatings(ctx context.Context, userID int64) (map[models.CandidateKey]models.UserRating, error)
}

// listProvider is the provider-side list surface. The client is bound
// to the deployment's provider account; user ids are household
// profiles under it.
type listProvider interface {
	GetListItems(ctx context.Context, listID int64) ([]watchprov.ListItem, error)
	AddListItems(ctx context.Context, listID int64, keys []models.CandidateKey) error
	RemoveListItems(ctx context.Context, listID int64, keys []models.CandidateKey) error
}

// primaryIndex is the rebuild surface of the base-vector index.
type primaryIndex interface {
	Build(vectors []models.Vector, ids []int64) error
	Save() error
	Len() int
}

// multiIndex is the rebuild surface of the aspect-vector index.
type multiIndex interface {
	AddItems(ids []int64, vectors []models.Vector, labels []models.VectorLabel, hashes []string) error
	MissingOrStale(current map[int64]string) []int64
	Save() error
	Len() int
}

// lexIndex is the rebuild surface of the lexical index.
type lexIndex interface {
	EnsureIndex(ctx context.Context) error
	IndexCandidates(ctx context.Context, docs []lexical.Doc) error
}

// historySyncer runs one watch-history sync pass.
type historySyncer interface {
	Run(ctx context.Context) error
}

// Options carries the facade's collaborators. Intent, Retriever,
// Scorer, Catalog, Encoder and Store are required; the rest disable
// their feature when nil.
type Options struct {
	Intent    intentExtractor
	Retriever searcher
	Scorer    *scoring.Engine
	Judge     judgeScorer
	Ranker    pairRanker
	MMR       diversifier
	Profiles  profileService
	Persona   personaSource
	History   historyService
	Trainer   sessionTrainer
	Phases    phaseService
	Catalog   catalogStore
	Lists     listProvider
	Encoder   embed.Encoder
	Store     kv.Store
	Primary   primaryIndex
	Multi     multiIndex
	Lexical   lexIndex
	Syncer    historySyncer
	Config    config.Config
}

// Engine is the composed recommendation engine.
type Engine struct {
	intent    intentExtractor
	retriever searcher
	scorer    *scoring.Engine
	judge     judgeScorer
	ranker    pairRanker
	mmr       diversifier
	profiles  profileService
	persona   personaSource
	history   historyService
	trainer   sessionTrainer
	phases    phaseService
	catalog   catalogStore
	lists     listProvider
	encoder   embed.Encoder
	store     kv.Store
	primary   primaryIndex
	multi     multiIndex
	lexical   lexIndex
	syncer    historySyncer
	cfg       config.Config
	logger    zerolog.Logger
}

// New composes the engine facade.
func New(opts Options) (*Engine, error) {
	const op = "core.New"
	if opts.Intent == nil || opts.Retriever == nil || opts.Scorer == nil {
		return nil, recerr.Input(op, "intent, retriever and scorer are required")
	}
	if opts.Catalog == nil || opts.Encoder == nil || opts.Store == nil {
		return nil, recerr.Input(op, "catalog, encoder and store are required")
	}
	return &Engine{
		intent:    opts.Intent,
		retriever: opts.Retriever,
		scorer:    opts.Scorer,
		judge:     opts.Judge,
		ranker:    opts.Ranker,
		mmr:       opts.MMR,
		profiles:  opts.Profiles,
		persona:   opts.Persona,
		history:   opts.History,
		trainer:   opts.Trainer,
		phases:    opts.Phases,
		catalog:   opts.Catalog,
		lists:     opts.Lists,
		encoder:   opts.Encoder,
		store:     opts.Store,
		primary:   opts.Primary,
		multi:     opts.Multi,
		lexical:   opts.Lexical,
		syncer:    opts.Syncer,
		cfg:       opts.Config,
		logger:    logging.With().Str("component", "core").Logger(),
	}, nil
}

// assert the concrete index types satisfy the rebuild surfaces.
var (
	_ primaryIndex = (*vecindex.Primary)(nil)
	_ multiIndex   = (*vecindex.Multi)(nil)
	_ lexIndex     = (*lexical.Index)(nil)
)
