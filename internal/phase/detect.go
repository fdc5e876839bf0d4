// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package phase

import (
	"context"
	"fmt"
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
	"github.com/tomtom215/curatus/internal/vecindex"
)

const (
	defaultWindowDays      = 14
	defaultMinClusterSize  = 2
	defaultEpsilon         = 0.1
	defaultScoreThreshold  = 0.35
	defaultActiveThreshold = 0.55
	defaultOverlapUpdate   = 0.6
	defaultLockTTL         = 10 * time.Minute
	defaultLookbackDays    = 42

	// franchiseFloor is the dominance a collection needs before the
	// phase is labeled after it.
	franchiseFloor = 0.4

	// maxCollectionLookups bounds catalog calls per cluster when a
	// dominant collection is missing its display name.
	maxCollectionLookups = 5

	// maxPosters caps the representative posters stored per phase.
	maxPosters = 3

	franchiseIcon = "\U0001F3AC" // 🎬
)

// Completer is the chat-completions surface the labeler needs.
// *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// store is the slice of the catalog database detection uses.
// *database.DB satisfies it.
type store interface {
	UserWatchStats(ctx context.Context, userID int64) (*models.WatchStats, error)
	WatchEventsBetween(ctx context.Context, userID int64, from, to time.Time) ([]*models.WatchEvent, error)
	GetCandidatesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Candidate, error)
	UserPhases(ctx context.Context, userID int64) ([]*models.ViewingPhase, error)
	UpsertViewingPhase(ctx context.Context, p *models.ViewingPhase) error
	RecentPairwiseSessions(ctx context.Context, userID int64, limit int) ([]*models.PairwiseSession, error)
	SessionJudgments(ctx context.Context, sessionID string) ([]*models.PairwiseJudgment, error)
}

// collectionResolver fills in a missing franchise display name.
// catalog.Provider satisfies it.
type collectionResolver interface {
	CollectionName(ctx context.Context, collectionID int64) (string, error)
}

// personaSource renders the user's text persona for the labeler.
// *profile.Persona satisfies it.
type personaSource interface {
	Text(ctx context.Context, userID int64) string
}

// aspectIndex is the multi-vector search the prediction path uses.
// *vecindex.Multi satisfies it.
type aspectIndex interface {
	Search(query models.Vector, k int) ([]vecindex.ItemHit, error)
}

// Options wires a Detector. DB, Store and Encoder are required; the
// rest degrade gracefully when nil (rule-based labels, no franchise
// name lookups, no judgment-based prediction).
type Options struct {
	// DB reads history and persists phases.
	DB store

	// Store holds the per-user detection lease.
	Store kv.Store

	// Encoder computes candidate base embeddings.
	Encoder embed.Encoder

	// Provider resolves franchise collection names. Nil skips lookups.
	Provider collectionResolver

	// Completer labels non-franchise phases. Nil forces rule-based
	// labels.
	Completer Completer

	// Persona supplies viewer context to the labeler. Nil omits it.
	Persona personaSource

	// Multi serves the judgment-based prediction path. Nil skips it.
	Multi aspectIndex

	// Config supplies windows, thresholds and the lock lease.
	Config config.PhaseConfig
}

// Detector computes viewing phases from watch history. One detection
// per user runs at a time, enforced by a key-value lease.
type Detector struct {
	db        store
	kvs       kv.Store
	encoder   embed.Encoder
	provider  collectionResolver
	completer Completer
	persona   personaSource
	multi     aspectIndex

	windowDays      int
	minClusterSize  int
	epsilon         float64
	scoreThreshold  float64
	activeThreshold float64
	overlapUpdate   float64
	lockTTL         time.Duration
	lookbackDays    int

	now    func() time.Time
	logger zerolog.Logger
}

// New wires a Detector. Zero config values take the defaults.
func New(opts Options) (*Detector, error) {
	const op = "phase.New"
	if opts.DB == nil {
		return nil, recerr.Input(op, "detector needs a database")
	}
	if opts.Store == nil {
		return nil, recerr.Input(op, "detector needs a key-value store")
	}
	if opts.Encoder == nil {
		return nil, recerr.Input(op, "detector needs an encoder")
	}

	cfg := opts.Config
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = defaultWindowDays
	}
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = defaultMinClusterSize
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = defaultEpsilon
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = defaultScoreThreshold
	}
	if cfg.ActiveThreshold <= 0 {
		cfg.ActiveThreshold = defaultActiveThreshold
	}
	if cfg.OverlapUpdate <= 0 {
		cfg.OverlapUpdate = defaultOverlapUpdate
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = defaultLookbackDays
	}

	return &Detector{
		db:              opts.DB,
		kvs:             opts.Store,
		encoder:         opts.Encoder,
		provider:        opts.Provider,
		completer:       opts.Completer,
		persona:         opts.Persona,
		multi:           opts.Multi,
		windowDays:      cfg.WindowDays,
		minClusterSize:  cfg.MinClusterSize,
		epsilon:         cfg.Epsilon,
		scoreThreshold:  cfg.ScoreThreshold,
		activeThreshold: cfg.ActiveThreshold,
		overlapUpdate:   cfg.OverlapUpdate,
		lockTTL:         cfg.LockTTL,
		lookbackDays:    cfg.LookbackDays,
		now:             time.Now,
		logger:          logging.With().Str("component", "phase").Logger(),
	}, nil
}

func lockKey(userID int64) string {
	return fmt.Sprintf("phase_detect_lock:%d", userID)
}

// DetectAll recomputes the user's viewing phases from the full history
// and returns the persisted set, newest first. A second call while one
// is in flight returns the stored phases untouched.
func (d *Detector) DetectAll(ctx context.Context, userID int64) ([]*models.ViewingPhase, error) {
	const op = "phase.DetectAll"

	lock, err := kv.AcquireLock(ctx, d.kvs, lockKey(userID), d.lockTTL)
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, err)
	}
	if lock == nil {
		d.logger.Debug().Int64("user_id", userID).Msg("detection already running")
		return d.db.UserPhases(ctx, userID)
	}
	defer func() {
		if relErr := lock.Release(ctx); relErr != nil {
			d.logger.Warn().Err(relErr).Str("key", lock.Key()).Msg("lock release failed")
		}
	}()

	now := d.now().UTC()
	stats, err := d.db.UserWatchStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stats.TotalEvents == 0 {
		return nil, nil
	}

	existing, err := d.db.UserPhases(ctx, userID)
	if err != nil {
		return nil, err
	}

	detected := d.detectWindows(ctx, userID, stats.FirstWatchedAt, now)

	for _, p := range detected {
		d.reconcile(existing, p)
		if err := d.db.UpsertViewingPhase(ctx, p); err != nil {
			d.logger.Warn().Err(err).Int64("user_id", userID).Str("label", p.Label).Msg("phase upsert failed")
		}
	}

	if err := d.closeStale(ctx, userID, now); err != nil {
		d.logger.Warn().Err(err).Int64("user_id", userID).Msg("close-stale pass failed")
	}

	phases, err := d.db.UserPhases(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(phases, func(i, j int) bool {
		if !phases[i].StartAt.Equal(phases[j].StartAt) {
			return phases[i].StartAt.After(phases[j].StartAt)
		}
		return phases[i].ID < phases[j].ID
	})
	return phases, nil
}

// Current returns the user's active phase, preferring the highest
// score when several are open.
func (d *Detector) Current(ctx context.Context, userID int64) (*models.ViewingPhase, error) {
	const op = "phase.Current"
	phases, err := d.db.UserPhases(ctx, userID)
	if err != nil {
		return nil, err
	}
	var best *models.ViewingPhase
	for _, p := range phases {
		if p.PhaseType != models.PhaseActive {
			continue
		}
		if best == nil || p.Metrics.PhaseScore > best.Metrics.PhaseScore {
			best = p
		}
	}
	if best == nil {
		return nil, recerr.NotFound(op, "active phase")
	}
	return best, nil
}

// detectWindows walks non-overlapping windows across the history span
// and collects every phase that clears the score threshold.
func (d *Detector) detectWindows(ctx context.Context, userID int64, earliest, now time.Time) []*models.ViewingPhase {
	window := time.Duration(d.windowDays) * 24 * time.Hour
	var out []*models.ViewingPhase
	for start := earliest; start.Before(now); start = start.Add(window) {
		end := start.Add(window)
		if end.After(now) {
			end = now
		}
		phases, err := d.detectWindow(ctx, userID, start, end, now)
		if err != nil {
			d.logger.Warn().Err(err).Int64("user_id", userID).
				Time("window_start", start).Msg("window detection failed")
			continue
		}
		out = append(out, phases...)
	}
	return out
}

// windowItem is one embeddable watch event within a window.
type windowItem struct {
	event     *models.WatchEvent
	candidate *models.Candidate
	vec       models.Vector
}

func (d *Detector) detectWindow(ctx context.Context, userID int64, start, end, now time.Time) ([]*models.ViewingPhase, error) {
	events, err := d.db.WatchEventsBetween(ctx, userID, start, end)
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

	windowDays := end.Sub(start).Hours() / 24
	if windowDays <= 0 {
		windowDays = 1
	}

	var phases []*models.ViewingPhase
	for c := 0; c < result.clusters; c++ {
		idx := result.members(c)
		if len(idx) == 0 {
			continue
		}
		p := d.buildPhase(ctx, userID, items, idx, start, end, now, windowDays)
		if p != nil {
			phases = append(phases, p)
		}
	}
	return phases, nil
}

// embeddable pairs window events with their catalog rows and base
// embeddings, dropping events whose candidate is unknown. One entry
// per distinct candidate; the latest watch wins.
func (d *Detector) embeddable(ctx context.Context, events []*models.WatchEvent) []windowItem {
	var ids []int64
	seen := make(map[int64]bool)
	for _, ev := range events {
		if ev.CandidateID != 0 && !seen[ev.CandidateID] {
			seen[ev.CandidateID] = true
			ids = append(ids, ev.CandidateID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	candidates, err := d.db.GetCandidatesByIDs(ctx, ids)
	if err != nil {
		d.logger.Warn().Err(err).Msg("candidate fetch failed")
		return nil
	}

	var items []windowItem
	used := make(map[int64]bool)
	for _, ev := range events {
		c := candidates[ev.CandidateID]
		if c == nil || used[ev.CandidateID] {
			continue
		}
		text := embed.ComposeCandidateText(c)
		if text == "" {
			continue
		}
		used[ev.CandidateID] = true
		items = append(items, windowItem{event: ev, candidate: c, vec: d.encoder.Encode(text)})
	}
	return items
}

// buildPhase scores one cluster and returns the phase, or nil when the
// score misses the threshold.
func (d *Detector) buildPhase(ctx context.Context, userID int64, items []windowItem, idx []int, start, end, now time.Time, windowDays float64) *models.ViewingPhase {
	vecs := make([]models.Vector, len(idx))
	members := make([]int64, len(idx))
	clusterItems := make([]windowItem, len(idx))
	for i, j := range idx {
		vecs[i] = items[j].vec
		members[i] = items[j].candidate.ID
		clusterItems[i] = items[j]
	}

	collectionID, collectionCount := dominantCollection(clusterItems)
	franchiseDominance := 0.0
	if collectionID != 0 {
		franchiseDominance = float64(collectionCount) / float64(len(clusterItems))
	}

	genres := rankedFacets(clusterItems, func(c *models.Candidate) []string { return c.Genres })
	keywords := rankedFacets(clusterItems, func(c *models.Candidate) []string { return c.Keywords })

	thematic := 0.0
	if len(genres) > 0 {
		top := genres[0]
		n := 0
		for _, it := range clusterItems {
			if hasString(it.candidate.Genres, top) {
				n++
			}
		}
		thematic = float64(n) / float64(len(clusterItems))
	}

	density := float64(len(clusterItems)) / windowDays
	if density > 1 {
		density = 1
	}

	m := models.PhaseMetrics{
		Cohesion:            meanPairwiseCosine(vecs),
		WatchDensity:        density,
		FranchiseDominance:  franchiseDominance,
		ThematicConsistency: thematic,
	}
	m.PhaseScore = m.Score()
	if m.PhaseScore < d.scoreThreshold {
		return nil
	}

	recent := end.After(now.Add(-time.Duration(d.windowDays) * 24 * time.Hour))
	phaseType := models.PhaseHistorical
	var endAt *time.Time
	switch {
	case m.PhaseScore >= d.activeThreshold && recent:
		phaseType = models.PhaseActive
	case recent:
		phaseType = models.PhaseMinor
		e := end
		endAt = &e
	default:
		e := end
		endAt = &e
	}

	p := &models.ViewingPhase{
		UserID:           userID,
		StartAt:          start,
		EndAt:            endAt,
		Members:          members,
		DominantGenres:   capStrings(genres, 5),
		DominantKeywords: capStrings(keywords, 8),
		Metrics:          m,
		PhaseType:        phaseType,
		Posters:          posters(clusterItems),
		UpdatedAt:        now,
	}

	if franchiseDominance >= franchiseFloor {
		p.FranchiseID = collectionID
		p.FranchiseName = d.collectionName(ctx, clusterItems, collectionID)
	}
	d.label(ctx, userID, p, clusterItems)
	return p
}

// reconcile re-uses an existing phase's id when the new detection
// overlaps it in time and shares enough members.
func (d *Detector) reconcile(existing []*models.ViewingPhase, p *models.ViewingPhase) {
	for _, old := range existing {
		if !windowsOverlap(old, p) {
			continue
		}
		if p.MemberOverlap(old) >= d.overlapUpdate {
			p.ID = old.ID
			return
		}
	}
}

// closeStale closes active phases whose members have not been watched
// inside the trailing window: end_at moves to now minus the window and
// the phase becomes historical.
func (d *Detector) closeStale(ctx context.Context, userID int64, now time.Time) error {
	phases, err := d.db.UserPhases(ctx, userID)
	if err != nil {
		return err
	}
	window := time.Duration(d.windowDays) * 24 * time.Hour
	cutoff := now.Add(-window)

	recent, err := d.db.WatchEventsBetween(ctx, userID, cutoff, now)
	if err != nil {
		return err
	}
	watched := make(map[int64]bool, len(recent))
	for _, ev := range recent {
		if ev.CandidateID != 0 {
			watched[ev.CandidateID] = true
		}
	}

	for _, p := range phases {
		if p.PhaseType != models.PhaseActive {
			continue
		}
		alive := false
		for _, id := range p.Members {
			if watched[id] {
				alive = true
				break
			}
		}
		if alive {
			continue
		}
		end := cutoff
		p.EndAt = &end
		p.PhaseType = models.PhaseHistorical
		p.UpdatedAt = now
		if err := d.db.UpsertViewingPhase(ctx, p); err != nil {
			d.logger.Warn().Err(err).Str("phase_id", p.ID).Msg("stale phase close failed")
		}
	}
	return nil
}

// collectionName resolves the dominant collection's display name,
// preferring what the catalog rows already carry and falling back to at
// most maxCollectionLookups provider calls.
func (d *Detector) collectionName(ctx context.Context, items []windowItem, collectionID int64) string {
	for _, it := range items {
		if it.candidate.CollectionID == collectionID && it.candidate.CollectionName != "" {
			return it.candidate.CollectionName
		}
	}
	if d.provider == nil {
		return ""
	}
	lookups := 0
	for _, it := range items {
		if it.candidate.CollectionID != collectionID {
			continue
		}
		if lookups >= maxCollectionLookups {
			break
		}
		lookups++
		name, err := d.provider.CollectionName(ctx, collectionID)
		if err == nil && name != "" {
			return name
		}
	}
	return ""
}

func dominantCollection(items []windowItem) (int64, int) {
	counts := make(map[int64]int)
	for _, it := range items {
		if it.candidate.CollectionID != 0 {
			counts[it.candidate.CollectionID]++
		}
	}
	var bestID int64
	best := 0
	for id, n := range counts {
		if n > best || (n == best && id < bestID) {
			bestID, best = id, n
		}
	}
	return bestID, best
}

// rankedFacets counts a string facet across cluster members and
// returns the values by descending count, alphabetical on ties.
func rankedFacets(items []windowItem, pick func(*models.Candidate) []string) []string {
	counts := make(map[string]int)
	for _, it := range items {
		for _, v := range pick(it.candidate) {
			if v != "" {
				counts[v]++
			}
		}
	}
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
	return out
}

func posters(items []windowItem) []string {
	var out []string
	for _, it := range items {
		if it.candidate.PosterPath == "" {
			continue
		}
		out = append(out, it.candidate.PosterPath)
		if len(out) == maxPosters {
			break
		}
	}
	return out
}

func windowsOverlap(a, b *models.ViewingPhase) bool {
	aEnd := timeOrMax(a.EndAt)
	bEnd := timeOrMax(b.EndAt)
	return a.StartAt.Before(bEnd) && b.StartAt.Before(aEnd)
}

func timeOrMax(t *time.Time) time.Time {
	if t == nil {
		return time.Unix(1<<62-1, 0)
	}
	return *t
}

func hasString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func capStrings(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
