// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package profile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Profile shape limits and cache defaults.
const (
	maxTopGenres   = 5
	maxRecentItems = 20

	defaultCacheTTL     = time.Hour
	defaultRecentDays   = 90
	defaultRecentWeight = 2.0

	cacheKeyPrefix = "profile:"
)

// historyStore is the slice of the catalog database the builder reads.
// *database.DB satisfies it.
type historyStore interface {
	RecentWatchEvents(ctx context.Context, userID int64, since time.Time) ([]*models.WatchEvent, error)
	UserRatings(ctx context.Context, userID int64) (map[models.CandidateKey]models.UserRating, error)
	GetCandidatesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Candidate, error)
	GetCandidateByKey(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*models.Candidate, error)
}

// Service builds, caches and serves per-user taste profiles. Safe for
// concurrent use.
type Service struct {
	db      historyStore
	store   kv.Store
	encoder embed.Encoder
	cfg     config.ProfileConfig
	builds  singleflight.Group
	now     func() time.Time
	logger  zerolog.Logger
}

// NewService wires the profile builder. store may be nil to disable
// caching; encoder may be nil to disable embedding-based fit context
// construction.
func NewService(db historyStore, store kv.Store, encoder embed.Encoder, cfg config.ProfileConfig) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.RecentDays <= 0 {
		cfg.RecentDays = defaultRecentDays
	}
	if cfg.RecentWeight <= 0 {
		cfg.RecentWeight = defaultRecentWeight
	}
	return &Service{
		db:      db,
		store:   store,
		encoder: encoder,
		cfg:     cfg,
		now:     time.Now,
		logger:  logging.With().Str("component", "profile").Logger(),
	}
}

// Get returns the user's profile, serving the cached copy when present
// unless forceRefresh is set.
func (s *Service) Get(ctx context.Context, userID int64, forceRefresh bool) (*models.UserProfile, error) {
	if !forceRefresh {
		if p := s.cached(ctx, userID); p != nil {
			return p, nil
		}
	}
	return s.Build(ctx, userID)
}

// Invalidate drops the cached profile so the next Get rebuilds it.
func (s *Service) Invalidate(ctx context.Context, userID int64) error {
	if s.store == nil {
		return nil
	}
	return s.store.Del(ctx, cacheKey(userID))
}

// Build recomputes the profile from watch history and explicit ratings,
// bypassing and then repopulating the cache. Concurrent builds for the
// same user coalesce into one.
func (s *Service) Build(ctx context.Context, userID int64) (*models.UserProfile, error) {
	v, err, _ := s.builds.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		return s.build(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.UserProfile), nil
}

func (s *Service) build(ctx context.Context, userID int64) (*models.UserProfile, error) {
	const op = "profile.Build"

	// Full history, newest first. Recency weighting differentiates the
	// last cfg.RecentDays; everything older still counts once.
	events, err := s.db.RecentWatchEvents(ctx, userID, time.Time{})
	if err != nil {
		return nil, recerr.E(recerr.KindOf(err), op, fmt.Errorf("load watch events: %w", err))
	}
	ratings, err := s.db.UserRatings(ctx, userID)
	if err != nil {
		return nil, recerr.E(recerr.KindOf(err), op, fmt.Errorf("load ratings: %w", err))
	}

	candidates, err := s.enrich(ctx, events)
	if err != nil {
		return nil, err
	}

	p := s.aggregate(userID, events, ratings, candidates)
	s.cache(ctx, p)
	s.logger.Debug().
		Int64("user_id", userID).
		Int("events", len(events)).
		Int("ratings", len(ratings)).
		Str("obscurity", string(p.ObscurityPreference)).
		Msg("profile built")
	return p, nil
}

// enrich resolves the catalog rows behind linked events. Events whose
// CandidateID is zero were never matched to the catalog and keep only
// their denormalized fields.
func (s *Service) enrich(ctx context.Context, events []*models.WatchEvent) (map[int64]*models.Candidate, error) {
	const op = "profile.enrich"
	ids := make([]int64, 0, len(events))
	seen := make(map[int64]bool, len(events))
	for _, ev := range events {
		if ev.CandidateID != 0 && !seen[ev.CandidateID] {
			seen[ev.CandidateID] = true
			ids = append(ids, ev.CandidateID)
		}
	}
	if len(ids) == 0 {
		return map[int64]*models.Candidate{}, nil
	}
	candidates, err := s.db.GetCandidatesByIDs(ctx, ids)
	if err != nil {
		return nil, recerr.E(recerr.KindOf(err), op, fmt.Errorf("load candidates: %w", err))
	}
	return candidates, nil
}

// aggregate folds events into the profile. Genre, decade and language
// counts accumulate per event so rewatches count again; popularity
// averages over distinct items so one obsession does not recenter the
// obscurity preference.
func (s *Service) aggregate(userID int64, events []*models.WatchEvent, ratings map[models.CandidateKey]models.UserRating, candidates map[int64]*models.Candidate) *models.UserProfile {
	now := s.now()
	recentCutoff := now.AddDate(0, 0, -s.cfg.RecentDays)

	genreCounts := make(map[string]float64)
	decadeCounts := make(map[string]float64)
	langCounts := make(map[string]float64)

	var popSum float64
	popItems := 0
	seenItems := make(map[models.CandidateKey]bool, len(events))

	recentIDs := make([]int64, 0, maxRecentItems)
	recentTypes := make([]models.MediaType, 0, maxRecentItems)

	var newest time.Time
	for _, ev := range events {
		if ev.WatchedAt.After(newest) {
			newest = ev.WatchedAt
		}

		genres, lang, year, popularity := eventFacets(ev, candidates[ev.CandidateID])

		w := 1.0
		if !ev.WatchedAt.Before(recentCutoff) {
			w = s.cfg.RecentWeight
		}
		for _, g := range genres {
			genreCounts[g] += w
		}
		if d := decadeLabel(year); d != "" {
			decadeCounts[d] += w
		}
		if lang != "" {
			langCounts[lang] += w
		}

		key := models.CandidateKey{TMDBID: ev.TMDBID, MediaType: ev.MediaType}
		if !seenItems[key] {
			seenItems[key] = true
			if popularity > 0 {
				popSum += popularity
				popItems++
			}
			if len(recentIDs) < maxRecentItems {
				recentIDs = append(recentIDs, ev.TMDBID)
				recentTypes = append(recentTypes, ev.MediaType)
			}
		}
	}

	p := &models.UserProfile{
		UserID:           userID,
		GenreWeights:     normalizeByMax(genreCounts),
		DecadeWeights:    normalizeByMax(decadeCounts),
		LanguageWeights:  normalizeByMax(langCounts),
		TopGenres:        topKeys(genreCounts, maxTopGenres),
		RecentTMDBIDs:    recentIDs,
		RecentMediaTypes: recentTypes,
		TotalWatched:     len(events),
		UpdatedAt:        now,
	}

	if popItems > 0 {
		p.AvgPopularity = popSum / float64(popItems)
	}
	switch {
	case popItems == 0:
		p.ObscurityPreference = models.ObscurityBalanced
	case p.AvgPopularity < 20:
		p.ObscurityPreference = models.ObscurityObscure
	case p.AvgPopularity < 60:
		p.ObscurityPreference = models.ObscurityBalanced
	default:
		p.ObscurityPreference = models.ObscurityMainstream
	}

	p.AvgRating = avgRating(events, ratings)
	p.VersionHash = versionHash(userID, len(events), len(ratings), newest)
	return p
}

// eventFacets returns the genre, language, year and popularity facets of
// one event, preferring the event's own denormalized fields and falling
// back to the catalog row. Popularity only exists on the catalog row.
func eventFacets(ev *models.WatchEvent, c *models.Candidate) (genres []string, lang string, year int, popularity float64) {
	genres = ev.Genres
	lang = ev.Language
	year = ev.Year
	if c != nil {
		if len(genres) == 0 {
			genres = c.Genres
		}
		if lang == "" {
			lang = c.OriginalLanguage
		}
		if year == 0 {
			year = c.Year
		}
		popularity = c.Popularity
	}
	return genres, lang, year, popularity
}

// avgRating is the mean of explicit ratings when any exist, else the
// mean of ratings carried on events.
func avgRating(events []*models.WatchEvent, ratings map[models.CandidateKey]models.UserRating) float64 {
	sum, n := 0.0, 0
	for _, r := range ratings {
		if r.Rating > 0 {
			sum += float64(r.Rating)
			n++
		}
	}
	if n == 0 {
		for _, ev := range events {
			if ev.Rating > 0 {
				sum += float64(ev.Rating)
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// decadeLabel maps a release year to its weight key ("1990s"). Years
// before film history or unset yield "".
func decadeLabel(year int) string {
	if year < 1870 {
		return ""
	}
	return strconv.Itoa(year/10*10) + "s"
}

// normalizeByMax scales counts to [0, 1] by the largest entry.
func normalizeByMax(counts map[string]float64) map[string]float64 {
	if len(counts) == 0 {
		return nil
	}
	max := 0.0
	for _, v := range counts {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return nil
	}
	out := make(map[string]float64, len(counts))
	for k, v := range counts {
		out[k] = v / max
	}
	return out
}

// topKeys returns the k highest-count keys, descending, ties broken
// alphabetically so rebuilds are stable.
func topKeys(counts map[string]float64, k int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	return keys
}

// versionHash fingerprints the inputs a profile was built from so
// downstream caches can detect staleness without deep comparison.
func versionHash(userID int64, events, ratings int, newest time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d\x00%d\x00%d\x00%d", userID, events, ratings, newest.Unix())))
	return hex.EncodeToString(sum[:8])
}

func cacheKey(userID int64) string {
	return cacheKeyPrefix + strconv.FormatInt(userID, 10)
}

// cached returns the stored profile or nil. Corrupt entries are dropped
// and rebuilt.
func (s *Service) cached(ctx context.Context, userID int64) *models.UserProfile {
	if s.store == nil {
		return nil
	}
	key := cacheKey(userID)
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if !recerr.IsKind(err, recerr.KindNotFound) {
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("profile cache read failed")
		}
		return nil
	}
	var p models.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("dropping corrupt profile cache entry")
		if delErr := s.store.Del(ctx, key); delErr != nil {
			s.logger.Warn().Err(delErr).Int64("user_id", userID).Msg("profile cache delete failed")
		}
		return nil
	}
	return &p
}

// cache stores the profile; failures only log.
func (s *Service) cache(ctx context.Context, p *models.UserProfile) {
	if s.store == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", p.UserID).Msg("profile cache encode failed")
		return
	}
	if err := s.store.SetEx(ctx, cacheKey(p.UserID), raw, s.cfg.CacheTTL); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", p.UserID).Msg("profile cache write failed")
	}
}
