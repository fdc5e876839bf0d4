// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package pairwise

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/llm"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Trainer tuning defaults and session shape.
const (
	defaultAlpha      = 0.08
	defaultBoost      = 0.1
	defaultVectorTTL  = 90 * 24 * time.Hour
	defaultWeightsTTL = 30 * 24 * time.Hour

	// deltaTopPreferred is how many session winners feed the persona
	// summarizer.
	deltaTopPreferred = 5

	deltaTimeout     = 30 * time.Second
	deltaTemperature = 0.4
	deltaMaxTokens   = 200
)

// SessionStore is the slice of the catalog database the trainer uses.
// *database.DB satisfies it.
type SessionStore interface {
	CreatePairwiseSession(ctx context.Context, s *models.PairwiseSession) error
	GetPairwiseSession(ctx context.Context, id string) (*models.PairwiseSession, error)
	UpdatePairwiseSession(ctx context.Context, s *models.PairwiseSession) error
	InsertPairwiseJudgment(ctx context.Context, j *models.PairwiseJudgment) error
	SessionJudgments(ctx context.Context, sessionID string) ([]*models.PairwiseJudgment, error)
	GetCandidatesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Candidate, error)
}

// ProfileSource is the slice of the profile service the trainer uses:
// seeding the preference vector from watch history before the first
// judgment, and invalidating the cached profile after new judgments.
// *profile.Service satisfies it.
type ProfileSource interface {
	HistoryVector(ctx context.Context, userID int64) (models.Vector, error)
	Invalidate(ctx context.Context, userID int64) error
}

// PersonaSink receives the persona delta generated when a session
// completes. *profile.Persona satisfies it.
type PersonaSink interface {
	AppendDelta(ctx context.Context, userID int64, d models.PersonaDelta) error
}

// TrainerOptions wires the trainer. DB, Store and Encoder are required;
// the rest degrade gracefully when nil.
type TrainerOptions struct {
	// DB persists sessions and judgments.
	DB SessionStore

	// Store persists preference vectors and interpretable weights.
	Store kv.Store

	// Encoder computes candidate embeddings on demand.
	Encoder embed.Encoder

	// Completer generates persona deltas on completion. Nil skips them.
	Completer Completer

	// Persona receives completed-session deltas. Nil skips them.
	Persona PersonaSink

	// Profiles seeds first-time vectors and invalidates stale profiles.
	// Nil skips both.
	Profiles ProfileSource

	// Config supplies the learning rate, weight step and expiries.
	Config config.PairwiseConfig
}

// Trainer runs pairwise training sessions: it serves unjudged pairs
// from a snapshotted pool and folds every judgment immediately into the
// user's preference vector and interpretable weights. Safe for
// concurrent use across sessions; judgments within one session are
// serialized by the session-row update.
type Trainer struct {
	db         SessionStore
	store      kv.Store
	encoder    embed.Encoder
	completer  Completer
	persona    PersonaSink
	profiles   ProfileSource
	alpha      float64
	boost      float64
	vectorTTL  time.Duration
	weightsTTL time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// NewTrainer wires a Trainer. Zero config values take the defaults.
func NewTrainer(opts TrainerOptions) (*Trainer, error) {
	const op = "pairwise.NewTrainer"
	if opts.DB == nil {
		return nil, recerr.Input(op, "trainer needs a session store")
	}
	if opts.Store == nil {
		return nil, recerr.Input(op, "trainer needs a key-value store")
	}
	if opts.Encoder == nil {
		return nil, recerr.Input(op, "trainer needs an encoder")
	}

	cfg := opts.Config
	if cfg.Alpha <= 0 {
		cfg.Alpha = defaultAlpha
	}
	if cfg.Boost <= 0 {
		cfg.Boost = defaultBoost
	}
	if cfg.VectorTTL <= 0 {
		cfg.VectorTTL = defaultVectorTTL
	}
	if cfg.WeightsTTL <= 0 {
		cfg.WeightsTTL = defaultWeightsTTL
	}

	return &Trainer{
		db:         opts.DB,
		store:      opts.Store,
		encoder:    opts.Encoder,
		completer:  opts.Completer,
		persona:    opts.Persona,
		profiles:   opts.Profiles,
		alpha:      cfg.Alpha,
		boost:      cfg.Boost,
		vectorTTL:  cfg.VectorTTL,
		weightsTTL: cfg.WeightsTTL,
		now:        time.Now,
		logger:     logging.With().Str("component", "pairwise").Logger(),
	}, nil
}

// Create opens a session over a snapshotted candidate pool. The pool is
// deduplicated preserving order; it must keep at least two entries. The
// judgment target scales with the pool: 20 from 15 items up, 15 from 10
// up, otherwise max(10, pool size).
func (t *Trainer) Create(ctx context.Context, userID int64, prompt string, listType models.ListType, pool []int64) (*models.PairwiseSession, error) {
	const op = "pairwise.Create"

	pool = dedupe(pool)
	if len(pool) < 2 {
		return nil, recerr.Input(op, "session pool needs at least two distinct candidates")
	}

	s := &models.PairwiseSession{
		UserID:     userID,
		Prompt:     prompt,
		ListType:   listType,
		Pool:       pool,
		TotalPairs: totalPairsFor(len(pool)),
		Status:     models.SessionActive,
	}
	if err := t.db.CreatePairwiseSession(ctx, s); err != nil {
		return nil, err
	}
	t.logger.Info().
		Str("session_id", s.ID).
		Int64("user_id", userID).
		Int("pool", len(pool)).
		Int("total_pairs", s.TotalPairs).
		Msg("training session created")
	return s, nil
}

// Session returns the current session state.
func (t *Trainer) Session(ctx context.Context, id string) (*models.PairwiseSession, error) {
	return t.db.GetPairwiseSession(ctx, id)
}

// Pair is the next comparison to show. A and B are nil when the session
// has nothing left to judge; Session always reflects the latest state.
type Pair struct {
	Session *models.PairwiseSession
	A, B    *models.Candidate
}

// NextPair serves the next unjudged pool pair, round-robin so one item
// is never shown back to back. Pairs whose candidates have left the
// catalog are passed over. When the judgment target is met, or every
// unordered pair has been judged or become unservable, the session is
// marked completed.
func (t *Trainer) NextPair(ctx context.Context, sessionID string) (*Pair, error) {
	s, err := t.db.GetPairwiseSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != models.SessionActive {
		return &Pair{Session: s}, nil
	}
	if s.Complete() {
		return &Pair{Session: s}, t.complete(ctx, s)
	}

	judged, err := t.judgedPairs(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	candidates, err := t.db.GetCandidatesByIDs(ctx, s.Pool)
	if err != nil {
		return nil, err
	}

	for _, p := range roundRobinPairs(s.Pool) {
		if judged[p] {
			continue
		}
		a, b := candidates[p.Low], candidates[p.High]
		if a == nil || b == nil {
			continue
		}
		return &Pair{Session: s, A: a, B: b}, nil
	}

	// Exhausted before the count target: tiny pools and skip-heavy
	// sessions end here.
	return &Pair{Session: s}, t.complete(ctx, s)
}

// SubmitRequest is one judgment to record.
type SubmitRequest struct {
	SessionID      string
	CandidateA     int64
	CandidateB     int64
	Winner         models.Winner
	Confidence     float64
	ResponseTimeMS int
	Explanation    string
}

// Submit records a judgment and immediately folds it into the user's
// preference state. Non-skip outcomes advance the session; reaching the
// judgment target (or exhausting a tiny pool) completes it and emits a
// persona delta. Preference updates are best-effort: a failed catalog
// lookup is logged and the judgment still stands.
func (t *Trainer) Submit(ctx context.Context, req SubmitRequest) (*models.PairwiseSession, error) {
	const op = "pairwise.Submit"

	if !req.Winner.Valid() {
		return nil, recerr.Input(op, "winner must be a, b, skip, both or neither")
	}
	if req.CandidateA == req.CandidateB {
		return nil, recerr.Input(op, "judgment needs two distinct candidates")
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return nil, recerr.Input(op, "confidence must be in [0, 1]")
	}

	s, err := t.db.GetPairwiseSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != models.SessionActive {
		return nil, recerr.Input(op, "session is not active")
	}
	if !inPool(s.Pool, req.CandidateA) || !inPool(s.Pool, req.CandidateB) {
		return nil, recerr.Input(op, "candidates are not in the session pool")
	}

	j := &models.PairwiseJudgment{
		SessionID:      s.ID,
		CandidateA:     req.CandidateA,
		CandidateB:     req.CandidateB,
		Winner:         req.Winner,
		Confidence:     req.Confidence,
		ResponseTimeMS: req.ResponseTimeMS,
		Explanation:    req.Explanation,
	}
	if err := t.db.InsertPairwiseJudgment(ctx, j); err != nil {
		return nil, err
	}

	if req.Winner.Counts() {
		s.CompletedPairs = min(s.CompletedPairs+1, s.TotalPairs)
		t.learn(ctx, s.UserID, req)
	}

	done := s.Complete()
	if !done && maxUniquePairs(len(s.Pool)) <= s.TotalPairs {
		// Only pools too small to ever hit the count target need the
		// exhaustion check; larger pools end through NextPair.
		judged, err := t.judgedPairs(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		done = len(judged) >= maxUniquePairs(len(s.Pool))
	}

	if done {
		if err := t.complete(ctx, s); err != nil {
			return nil, err
		}
	} else if err := t.db.UpdatePairwiseSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// complete marks a session finished, invalidates the cached profile and
// emits the persona delta. Idempotent on already-completed sessions.
func (t *Trainer) complete(ctx context.Context, s *models.PairwiseSession) error {
	if s.Status == models.SessionCompleted {
		return nil
	}
	s.Status = models.SessionCompleted
	if err := t.db.UpdatePairwiseSession(ctx, s); err != nil {
		return err
	}
	t.logger.Info().
		Str("session_id", s.ID).
		Int64("user_id", s.UserID).
		Int("completed_pairs", s.CompletedPairs).
		Msg("training session completed")

	if t.profiles != nil {
		if err := t.profiles.Invalidate(ctx, s.UserID); err != nil {
			t.logger.Warn().Err(err).Int64("user_id", s.UserID).Msg("profile invalidation failed")
		}
	}
	t.emitPersonaDelta(ctx, s)
	return nil
}

// Abandon closes a session without completing it. Judgments already
// recorded keep their preference updates.
func (t *Trainer) Abandon(ctx context.Context, sessionID string) (*models.PairwiseSession, error) {
	const op = "pairwise.Abandon"
	s, err := t.db.GetPairwiseSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != models.SessionActive {
		return nil, recerr.Input(op, "session is not active")
	}
	s.Status = models.SessionAbandoned
	if err := t.db.UpdatePairwiseSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// emitPersonaDelta summarizes the session's revealed preferences and
// appends it to the rolling persona list. Best-effort throughout: a
// skip-only session or an LLM failure just logs.
func (t *Trainer) emitPersonaDelta(ctx context.Context, s *models.PairwiseSession) {
	if t.completer == nil || t.persona == nil {
		return
	}

	preferred, err := t.topPreferred(ctx, s)
	if err != nil {
		t.logger.Warn().Err(err).Str("session_id", s.ID).Msg("persona delta skipped, winners unavailable")
		return
	}
	if len(preferred) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, deltaTimeout)
	defer cancel()

	reply, err := t.completer.Complete(ctx, llm.Request{
		System:      deltaSystemPrompt,
		User:        deltaPrompt(s.Prompt, preferred),
		Temperature: deltaTemperature,
		MaxTokens:   deltaMaxTokens,
	})
	if err != nil {
		t.logger.Warn().Err(err).Str("session_id", s.ID).Msg("persona delta generation failed")
		return
	}
	summary, err := decodeDelta(reply)
	if err != nil || summary == "" {
		t.logger.Warn().Err(err).Str("session_id", s.ID).Msg("persona delta reply unusable")
		return
	}

	d := models.PersonaDelta{
		SessionID: s.ID,
		Summary:   summary,
		CreatedAt: t.now().UTC(),
	}
	if err := t.persona.AppendDelta(ctx, s.UserID, d); err != nil {
		t.logger.Warn().Err(err).Str("session_id", s.ID).Msg("persona delta append failed")
	}
}

// topPreferred returns the session's most-preferred candidates: wins
// count 1, shared "both" outcomes count 0.5 each, ties broken by pool
// order.
func (t *Trainer) topPreferred(ctx context.Context, s *models.PairwiseSession) ([]*models.Candidate, error) {
	judgments, err := t.db.SessionJudgments(ctx, s.ID)
	if err != nil {
		return nil, err
	}

	wins := make(map[int64]float64)
	for _, j := range judgments {
		switch j.Winner {
		case models.WinnerA:
			wins[j.CandidateA]++
		case models.WinnerB:
			wins[j.CandidateB]++
		case models.WinnerBoth:
			wins[j.CandidateA] += 0.5
			wins[j.CandidateB] += 0.5
		}
	}
	if len(wins) == 0 {
		return nil, nil
	}

	poolRank := make(map[int64]int, len(s.Pool))
	for i, id := range s.Pool {
		poolRank[id] = i
	}
	ids := make([]int64, 0, len(wins))
	for id := range wins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if wins[ids[i]] != wins[ids[j]] {
			return wins[ids[i]] > wins[ids[j]]
		}
		return poolRank[ids[i]] < poolRank[ids[j]]
	})
	if len(ids) > deltaTopPreferred {
		ids = ids[:deltaTopPreferred]
	}

	candidates, err := t.db.GetCandidatesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Candidate, 0, len(ids))
	for _, id := range ids {
		if c := candidates[id]; c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// judgedPairs collects the unordered pairs any judgment has touched,
// skips included.
func (t *Trainer) judgedPairs(ctx context.Context, sessionID string) (map[models.UnorderedPair]bool, error) {
	judgments, err := t.db.SessionJudgments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make(map[models.UnorderedPair]bool, len(judgments))
	for _, j := range judgments {
		out[models.NewUnorderedPair(j.CandidateA, j.CandidateB)] = true
	}
	return out, nil
}

// totalPairsFor is the judgment target by pool size.
func totalPairsFor(poolSize int) int {
	switch {
	case poolSize >= 15:
		return 20
	case poolSize >= 10:
		return 15
	default:
		return max(10, poolSize)
	}
}

// roundRobinPairs schedules every unordered pool pair with the circle
// method, so consecutive comparisons rotate through the pool instead of
// pinning one item. Odd pools get a bye.
func roundRobinPairs(pool []int64) []models.UnorderedPair {
	const bye = int64(-1)

	n := len(pool)
	if n < 2 {
		return nil
	}
	arr := make([]int64, n, n+1)
	copy(arr, pool)
	if n%2 == 1 {
		arr = append(arr, bye)
		n++
	}

	out := make([]models.UnorderedPair, 0, n*(n-1)/2)
	for round := 0; round < n-1; round++ {
		for i := 0; i < n/2; i++ {
			a, b := arr[i], arr[n-1-i]
			if a != bye && b != bye {
				out = append(out, models.NewUnorderedPair(a, b))
			}
		}
		last := arr[n-1]
		copy(arr[2:], arr[1:n-1])
		arr[1] = last
	}
	return out
}

func maxUniquePairs(poolSize int) int {
	return poolSize * (poolSize - 1) / 2
}

func inPool(pool []int64, id int64) bool {
	for _, p := range pool {
		if p == id {
			return true
		}
	}
	return false
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
