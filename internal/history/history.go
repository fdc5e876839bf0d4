// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

/*
Package history serves the append-only watch log to the rest of the
pipeline: watched-id sets and status maps for scoring, aggregate stats
and top genres for profiles, and recent events for phase detection.

Writes go through Record, which ignores duplicate events on the
(user, trakt_id, watched_at) constraint. A full provider sync first
attempts the batch in one pass; when the batch aborts on a bad row it
falls back to per-row inserts so one malformed event cannot sink the
rest of the sync.
*/
package history

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

const (
	defaultRecentLimit = 20
	defaultTopGenres   = 10
)

// store is the slice of the catalog database the service reads and
// writes. *database.DB satisfies it.
type store interface {
	InsertWatchEvents(ctx context.Context, events []*models.WatchEvent) (int, error)
	LinkWatchEvents(ctx context.Context) (int, error)
	LastWatchedAt(ctx context.Context, userID int64) (time.Time, error)
	WatchedKeys(ctx context.Context, userID int64, mediaType models.MediaType) (map[models.CandidateKey]bool, error)
	WatchedStatusByType(ctx context.Context, userID int64, mediaType models.MediaType) (map[int64]models.WatchedStatus, error)
	WatchedStatus(ctx context.Context, userID int64, keys []models.CandidateKey) (map[models.CandidateKey]models.WatchedStatus, error)
	UserWatchStats(ctx context.Context, userID int64) (*models.WatchStats, error)
	LatestWatchEvents(ctx context.Context, userID int64, mediaType models.MediaType, limit int) ([]*models.WatchEvent, error)
	RecentWatchEvents(ctx context.Context, userID int64, since time.Time) ([]*models.WatchEvent, error)
}

// Service exposes the watch-history operations. Safe for concurrent use.
type Service struct {
	db     store
	logger zerolog.Logger
}

// NewService wires the history service over the catalog database.
func NewService(db store) *Service {
	return &Service{
		db:     db,
		logger: logging.With().Str("component", "history").Logger(),
	}
}

// Record appends synced events, ignoring duplicates, and returns how
// many rows were genuinely new. When the batch insert aborts the
// remaining events are retried one at a time and bad rows are skipped;
// Record fails outright only when nothing could be written.
func (s *Service) Record(ctx context.Context, events []*models.WatchEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	inserted, err := s.db.InsertWatchEvents(ctx, events)
	if err == nil {
		return inserted, nil
	}
	s.logger.Warn().Err(err).Int("events", len(events)).
		Msg("batch insert aborted, retrying per row")

	skipped := 0
	for _, e := range events {
		n, rowErr := s.db.InsertWatchEvents(ctx, []*models.WatchEvent{e})
		if rowErr != nil {
			skipped++
			s.logger.Warn().Err(rowErr).Int64("trakt_id", e.TraktID).
				Msg("dropping unrecordable watch event")
			continue
		}
		inserted += n
	}
	if skipped == len(events) {
		return 0, err
	}
	if skipped > 0 {
		s.logger.Info().Int("inserted", inserted).Int("skipped", skipped).
			Msg("recorded watch events with per-row fallback")
	}
	return inserted, nil
}

// Link backfills candidate ids on events whose catalog item arrived
// after the history did. Returns the number of rows linked.
func (s *Service) Link(ctx context.Context) (int, error) {
	return s.db.LinkWatchEvents(ctx)
}

// LastSyncedAt returns the user's newest recorded event time, the
// high-water mark for incremental provider syncs. Zero when the user
// has no history.
func (s *Service) LastSyncedAt(ctx context.Context, userID int64) (time.Time, error) {
	return s.db.LastWatchedAt(ctx, userID)
}

// WatchedIDs returns the set of catalog keys the user has watched.
// mediaType narrows the set when non-empty.
func (s *Service) WatchedIDs(ctx context.Context, userID int64, mediaType models.MediaType) (map[models.CandidateKey]bool, error) {
	return s.db.WatchedKeys(ctx, userID, mediaType)
}

// WatchedStatusMap returns the user's complete watched map for one
// media type, keyed by tmdb id.
func (s *Service) WatchedStatusMap(ctx context.Context, userID int64, mediaType models.MediaType) (map[int64]models.WatchedStatus, error) {
	const op = "history.WatchedStatusMap"
	if mediaType == "" {
		return nil, recerr.Input(op, "media type is required")
	}
	return s.db.WatchedStatusByType(ctx, userID, mediaType)
}

// WatchedStatusFor reports watch status for the given catalog keys.
// Unwatched keys are absent from the result.
func (s *Service) WatchedStatusFor(ctx context.Context, userID int64, keys []models.CandidateKey) (map[models.CandidateKey]models.WatchedStatus, error) {
	return s.db.WatchedStatus(ctx, userID, keys)
}

// Stats aggregates the user's full history.
func (s *Service) Stats(ctx context.Context, userID int64) (*models.WatchStats, error) {
	return s.db.UserWatchStats(ctx, userID)
}

// TopGenres returns the user's k most-watched genres, most frequent
// first with ties broken alphabetically. k <= 0 uses a default of 10.
func (s *Service) TopGenres(ctx context.Context, userID int64, k int) ([]models.GenreCount, error) {
	if k <= 0 {
		k = defaultTopGenres
	}

	events, err := s.db.RecentWatchEvents(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, e := range events {
		for _, g := range e.Genres {
			if g != "" {
				counts[g]++
			}
		}
	}

	out := make([]models.GenreCount, 0, len(counts))
	for g, n := range counts {
		out = append(out, models.GenreCount{Genre: g, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Genre < out[j].Genre
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// RecentWatches returns the user's newest events, optionally narrowed
// to one media type. limit <= 0 uses a default of 20.
func (s *Service) RecentWatches(ctx context.Context, userID int64, mediaType models.MediaType, limit int) ([]*models.WatchEvent, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.db.LatestWatchEvents(ctx, userID, mediaType, limit)
}

// EnrichWatchedStatus marks each scored item the user has already seen,
// filling IsWatched and the most recent viewing time in place.
func (s *Service) EnrichWatchedStatus(ctx context.Context, userID int64, items []models.ScoredItem) error {
	keys := make([]models.CandidateKey, 0, len(items))
	for _, it := range items {
		if it.Candidate != nil {
			keys = append(keys, it.Candidate.Key())
		}
	}
	if len(keys) == 0 {
		return nil
	}

	watched, err := s.db.WatchedStatus(ctx, userID, keys)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].Candidate == nil {
			continue
		}
		status, ok := watched[items[i].Candidate.Key()]
		if !ok {
			continue
		}
		items[i].IsWatched = true
		at := status.WatchedAt
		items[i].WatchedAt = &at
	}
	return nil
}
