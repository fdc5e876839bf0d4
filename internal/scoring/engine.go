// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package scoring

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/textproc"
)

const (
	defaultTopKReduce    = 200
	defaultTFIDFFeatures = 5000

	quickPopularityWeight = 0.3
	quickRatingWeight     = 0.1
)

// blendWeights is one list type's signal weight row. Rows sum to about
// one; the negative novelty weight on dynamic lists steers them toward
// mainstream titles.
type blendWeights struct {
	TFIDF        float64
	Semantic     float64
	Genre        float64
	Rating       float64
	Novelty      float64
	Phrase       float64
	ActorStudio  float64
	Recency      float64
	WatchHistory float64
	Tone         float64
}

var listWeights = map[models.ListType]blendWeights{
	models.ListTypeChat: {
		TFIDF: 0.25, Semantic: 0.25, Genre: 0.08, Rating: 0.10, Novelty: 0.05,
		Phrase: 0.05, ActorStudio: 0.08, Recency: 0.05, WatchHistory: 0.09, Tone: 0.00,
	},
	models.ListTypeMood: {
		TFIDF: 0.15, Semantic: 0.20, Genre: 0.10, Rating: 0.10, Novelty: -0.15,
		Phrase: 0.08, ActorStudio: 0.08, Recency: 0.15, WatchHistory: 0.09, Tone: 0.01,
	},
	models.ListTypeTheme: {
		TFIDF: 0.15, Semantic: 0.20, Genre: 0.10, Rating: 0.10, Novelty: -0.15,
		Phrase: 0.08, ActorStudio: 0.08, Recency: 0.15, WatchHistory: 0.09, Tone: 0.01,
	},
	models.ListTypeFusion: {
		TFIDF: 0.10, Semantic: 0.25, Genre: 0.10, Rating: 0.10, Novelty: -0.15,
		Phrase: 0.05, ActorStudio: 0.08, Recency: 0.15, WatchHistory: 0.12, Tone: 0.01,
	},
}

// weightsFor returns the blend row, defaulting unknown types to chat.
func weightsFor(t models.ListType) blendWeights {
	if w, ok := listWeights[t]; ok {
		return w
	}
	return listWeights[models.ListTypeChat]
}

// Request carries one scoring invocation. Texts and Embeddings, when
// set, must be parallel to Candidates; absent texts are composed from
// the candidate and absent embeddings silence the semantic signal.
type Request struct {
	// UserID is carried for logging only; history and ratings arrive
	// resolved in the fields below.
	UserID int64

	// Prompt is the user's free-text prompt (or preset description).
	Prompt string

	// ListType selects the blend weight row.
	ListType models.ListType

	// Filters is the strict constraint set.
	Filters models.Filters

	// Candidates is the retrieval pool.
	Candidates []*models.Candidate

	// Texts optionally overrides the composed candidate texts.
	Texts []string

	// Embeddings optionally supplies candidate base embeddings.
	Embeddings []models.Vector

	// QueryVec optionally supplies the query embedding.
	QueryVec models.Vector

	// Tones are the prompt tone words from intent extraction.
	Tones []string

	// Watched marks candidates present in the user's watch history.
	Watched map[models.CandidateKey]models.WatchedStatus

	// RecentTypes are the media types of the user's recent watches,
	// feeding the media-type affinity bonus.
	RecentTypes []models.MediaType

	// Ratings holds the user's explicit thumb ratings.
	Ratings map[models.CandidateKey]models.UserRating

	// Now anchors the time-of-day mood adjustment; zero means now.
	Now time.Time

	// Location is the user's timezone; nil means UTC.
	Location *time.Location
}

// entry is one candidate flowing through the scoring steps.
type entry struct {
	c       *models.Candidate
	text    string
	vec     models.Vector
	popNorm float64
	ratNorm float64
	quick   float64
	watched bool
	sig     models.Signals
	final   float64
}

// Engine scores candidate pools. Stateless and safe for concurrent use.
type Engine struct {
	cfg    config.ScoringConfig
	logger zerolog.Logger
}

// New wires the engine and applies config defaults.
func New(cfg config.ScoringConfig) *Engine {
	if cfg.TopKReduce <= 0 {
		cfg.TopKReduce = defaultTopKReduce
	}
	if cfg.TFIDFFeatures <= 0 {
		cfg.TFIDFFeatures = defaultTFIDFFeatures
	}
	return &Engine{
		cfg:    cfg,
		logger: logging.With().Str("component", "scoring").Logger(),
	}
}

// Score filters, reduces, signals and blends the pool, returning items
// ordered by final score descending. An empty pool (or one the filters
// empty out) yields an empty result, not an error.
func (e *Engine) Score(req Request) ([]models.ScoredItem, error) {
	const op = "scoring.Score"
	if len(req.Texts) > 0 && len(req.Texts) != len(req.Candidates) {
		return nil, recerr.Input(op, "texts not parallel to candidates")
	}
	if len(req.Embeddings) > 0 && len(req.Embeddings) != len(req.Candidates) {
		return nil, recerr.Input(op, "embeddings not parallel to candidates")
	}

	entries := e.filter(req)
	if len(entries) == 0 {
		e.logger.Debug().
			Int64("user_id", req.UserID).
			Int("pool", len(req.Candidates)).
			Msg("no candidates survive strict filters")
		return nil, nil
	}

	normalizePool(entries)
	entries = e.quickReduce(entries)
	e.computeSignals(req, entries)

	w := weightsFor(req.ListType)
	items := make([]models.ScoredItem, 0, len(entries))
	for _, en := range entries {
		en.final = blend(w, en.sig)
		item := models.ScoredItem{
			Candidate: en.c,
			Score:     en.final,
			Signals:   en.sig,
			Meta:      buildMeta(en.sig, w),
			IsWatched: en.watched,
		}
		item.Explanation = RenderExplanation(&item)
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Candidate.TMDBID < items[j].Candidate.TMDBID
	})

	e.logger.Debug().
		Int64("user_id", req.UserID).
		Str("list_type", string(req.ListType)).
		Int("pool", len(req.Candidates)).
		Int("scored", len(items)).
		Msg("pool scored")
	return items, nil
}

// filter applies the strict constraints, carrying texts and embeddings
// along with their candidates.
func (e *Engine) filter(req Request) []*entry {
	entries := make([]*entry, 0, len(req.Candidates))
	for i, c := range req.Candidates {
		if c == nil || !matchesFilters(c, &req.Filters) {
			continue
		}
		en := &entry{c: c, ratNorm: ratingNorm(c.Rating)}
		if len(req.Texts) > 0 && req.Texts[i] != "" {
			en.text = req.Texts[i]
		} else {
			en.text = embed.ComposeCandidateText(c)
		}
		if len(req.Embeddings) > 0 {
			en.vec = req.Embeddings[i]
		}
		entries = append(entries, en)
	}
	return entries
}

// normalizePool computes popularity normalization over the filtered set.
// The value sticks through reduction so novelty keeps one meaning for
// the whole request.
func normalizePool(entries []*entry) {
	var maxPop float64
	for _, en := range entries {
		if en.c.Popularity > maxPop {
			maxPop = en.c.Popularity
		}
	}
	if maxPop <= 0 {
		maxPop = 1
	}
	for _, en := range entries {
		en.popNorm = clamp01(en.c.Popularity / maxPop)
	}
}

// quickReduce keeps the TopKReduce best by the cheap popularity and
// rating composite before any text work happens.
func (e *Engine) quickReduce(entries []*entry) []*entry {
	for _, en := range entries {
		en.quick = quickPopularityWeight*en.popNorm + quickRatingWeight*en.ratNorm
	}
	if len(entries) <= e.cfg.TopKReduce {
		return entries
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].quick != entries[j].quick {
			return entries[i].quick > entries[j].quick
		}
		return entries[i].c.TMDBID < entries[j].c.TMDBID
	})
	return entries[:e.cfg.TopKReduce]
}

// computeSignals fills the per-entry signal breakdown.
func (e *Engine) computeSignals(req Request, entries []*entry) {
	parsed := textproc.Parse(req.Prompt)

	docs := make([][]string, 0, len(entries)+1)
	promptTokens := parsed.Lemmas
	docs = append(docs, promptTokens)
	tokenBags := make([][]string, len(entries))
	for i, en := range entries {
		tokenBags[i] = textproc.TermTokens(en.text)
		docs = append(docs, tokenBags[i])
	}
	vec := fitVectorizer(docs, e.cfg.TFIDFFeatures)
	promptRow := vec.transform(promptTokens)

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	hour := now.In(loc).Hour()

	useRecency := recencyApplies(req.ListType, &req.Filters)
	for i, en := range entries {
		key := en.c.Key()
		_, en.watched = req.Watched[key]

		en.sig = models.Signals{
			TFIDFSim:         promptRow.cosine(vec.transform(tokenBags[i])),
			GenreOverlap:     genreJaccard(req.Filters.Genres, en.c.Genres),
			RatingNorm:       en.ratNorm,
			PopularityNorm:   en.popNorm,
			Novelty:          1 - en.popNorm,
			PhraseBonus:      phraseBonus(parsed.Phrases, en.text),
			ActorStudioBonus: actorStudioBonus(&req.Filters, en.c),
			WatchHistoryBonus: watchHistoryBonus(
				en.watched, en.c.MediaType, req.RecentTypes),
			ToneBonus: toneBonus(req.Tones, en.ratNorm),
		}
		if req.QueryVec != nil && en.vec != nil {
			en.sig.SemanticSim = req.QueryVec.Cosine(en.vec)
		}
		if useRecency {
			en.sig.RecencyBonus = recencyBonus(en.c.Year)
		}
		if r, ok := req.Ratings[key]; ok {
			en.sig.RatingsBoost = r.ThumbSignal()
		}
		if req.ListType.Dynamic() {
			en.sig.MoodTimeBonus = moodTimeBonus(en.c, hour)
		}
	}
}

// blend folds the signals through the weight row, adds the mood-time
// adjustment and applies the thumb multiplier.
func blend(w blendWeights, s models.Signals) float64 {
	sum := w.TFIDF*s.TFIDFSim +
		w.Semantic*s.SemanticSim +
		w.Genre*s.GenreOverlap +
		w.Rating*s.RatingNorm +
		w.Novelty*s.Novelty +
		w.Phrase*s.PhraseBonus +
		w.ActorStudio*s.ActorStudioBonus +
		w.Recency*s.RecencyBonus +
		w.WatchHistory*s.WatchHistoryBonus +
		w.Tone*s.ToneBonus +
		s.MoodTimeBonus
	return sum * (1 + s.RatingsBoost)
}
