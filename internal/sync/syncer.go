// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/metrics"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/watchprov"
)

const (
	// suppressTTL is how long a user with a failing token is skipped.
	suppressTTL = 24 * time.Hour

	// maxPages bounds one incremental pull per user and media type.
	// A fresh user with more history completes over multiple runs.
	maxPages = 50

	defaultPageSize = 100
)

// provider is the watch-provider slice the syncer pulls from.
type provider interface {
	GetHistory(ctx context.Context, mediaType models.MediaType, page, size int) ([]watchprov.HistoryItem, error)
	GetRatings(ctx context.Context, mediaType models.MediaType) ([]watchprov.RatingItem, error)
}

// historyStore is the local watch-history surface.
type historyStore interface {
	Record(ctx context.Context, events []*models.WatchEvent) (int, error)
	Link(ctx context.Context) (int, error)
	LastSyncedAt(ctx context.Context, userID int64) (time.Time, error)
}

// ratingStore persists explicit provider ratings.
type ratingStore interface {
	UpsertUserRatings(ctx context.Context, userID int64, ratings []models.UserRating) error
}

type syncUser struct {
	id     int64
	client provider
}

// Options wires the syncer. Client, History, Ratings and Store are
// required.
type Options struct {
	Client  *watchprov.Client
	History historyStore
	Ratings ratingStore
	Store   kv.Store
	Config  config.SyncConfig
}

// Syncer pulls provider history into local storage for every
// configured user.
type Syncer struct {
	users   []syncUser
	history historyStore
	ratings ratingStore
	store   kv.Store
	cfg     config.SyncConfig
	logger  zerolog.Logger
}

// New builds a syncer. Without configured users it syncs user 1 with
// the provider's account token.
func New(opts Options) (*Syncer, error) {
	const op = "sync.New"
	if opts.Client == nil || opts.History == nil || opts.Ratings == nil || opts.Store == nil {
		return nil, recerr.Input(op, "client, history, ratings and store are required")
	}
	if opts.Config.PageSize <= 0 {
		opts.Config.PageSize = defaultPageSize
	}

	users := make([]syncUser, 0, len(opts.Config.Users))
	for _, u := range opts.Config.Users {
		client := provider(opts.Client)
		if u.AccessToken != "" {
			client = opts.Client.WithToken(u.AccessToken)
		}
		users = append(users, syncUser{id: u.UserID, client: client})
	}
	if len(users) == 0 {
		users = append(users, syncUser{id: 1, client: opts.Client})
	}

	return &Syncer{
		users:   users,
		history: opts.History,
		ratings: opts.Ratings,
		store:   opts.Store,
		cfg:     opts.Config,
		logger:  logging.With().Str("component", "sync").Logger(),
	}, nil
}

// Run performs one sync pass over all users. A user's auth failure
// suppresses that user and the pass continues; other per-user failures
// are recorded and the first one is returned after every user has been
// attempted.
func (s *Syncer) Run(ctx context.Context) error {
	start := time.Now()
	var (
		total      int
		suppressed int
		firstErr   error
	)

	for _, u := range s.users {
		if s.isSuppressed(ctx, u.id) {
			suppressed++
			continue
		}
		n, err := s.syncOne(ctx, u)
		total += n
		if err == nil {
			continue
		}
		if recerr.IsKind(err, recerr.KindAuth) {
			s.suppress(ctx, u.id)
			suppressed++
			s.logger.Warn().Int64("user_id", u.id).
				Msg("provider token rejected, suppressing user")
			continue
		}
		s.logger.Error().Err(err).Int64("user_id", u.id).Msg("user sync failed")
		if firstErr == nil {
			firstErr = err
		}
	}

	if linked, err := s.history.Link(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("linking watch events failed")
	} else if linked > 0 {
		s.logger.Debug().Int("linked", linked).Msg("watch events linked to catalog")
	}

	metrics.SyncSuppressedUsers.Set(float64(suppressed))
	metrics.RecordSyncRun(time.Since(start), total, firstErr)
	s.logger.Info().
		Int("users", len(s.users)).
		Int("suppressed", suppressed).
		Int("events", total).
		Dur("elapsed", time.Since(start)).
		Msg("sync pass finished")
	return firstErr
}

// syncOne pulls one user's new history and current ratings.
func (s *Syncer) syncOne(ctx context.Context, u syncUser) (int, error) {
	since, err := s.history.LastSyncedAt(ctx, u.id)
	if err != nil {
		return 0, err
	}

	var total int
	for _, mt := range []models.MediaType{models.MediaTypeMovie, models.MediaTypeShow} {
		n, err := s.pullHistory(ctx, u, mt, since)
		total += n
		if err != nil {
			return total, err
		}
	}
	if err := s.pullRatings(ctx, u); err != nil {
		return total, err
	}
	return total, nil
}

// pullHistory pages newest-first until it reaches the high-water mark.
func (s *Syncer) pullHistory(ctx context.Context, u syncUser, mediaType models.MediaType, since time.Time) (int, error) {
	var total int
	for page := 1; page <= maxPages; page++ {
		items, err := s.fetchPage(ctx, u, mediaType, page)
		if err != nil {
			return total, err
		}
		if len(items) == 0 {
			return total, nil
		}

		events := make([]*models.WatchEvent, 0, len(items))
		caughtUp := false
		for _, it := range items {
			if !it.WatchedAt.After(since) {
				caughtUp = true
				break
			}
			if ev := it.Event(u.id); ev != nil {
				events = append(events, ev)
			}
		}
		n, err := s.history.Record(ctx, events)
		total += n
		if err != nil {
			return total, err
		}
		if caughtUp || len(items) < s.cfg.PageSize {
			return total, nil
		}
	}
	s.logger.Warn().Int64("user_id", u.id).Str("media_type", string(mediaType)).
		Int("pages", maxPages).Msg("page budget exhausted, resuming next run")
	return total, nil
}

// fetchPage retries transient provider failures.
func (s *Syncer) fetchPage(ctx context.Context, u syncUser, mediaType models.MediaType, page int) ([]watchprov.HistoryItem, error) {
	attempts := s.cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		items, err := u.client.GetHistory(ctx, mediaType, page, s.cfg.PageSize)
		if err == nil {
			return items, nil
		}
		lastErr = err
		if !recerr.IsKind(err, recerr.KindTransientExternal) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.RetryDelay):
		}
	}
	return nil, lastErr
}

// pullRatings replaces the user's stored provider ratings.
func (s *Syncer) pullRatings(ctx context.Context, u syncUser) error {
	var all []models.UserRating
	for _, mt := range []models.MediaType{models.MediaTypeMovie, models.MediaTypeShow} {
		items, err := u.client.GetRatings(ctx, mt)
		if err != nil {
			return err
		}
		for _, it := range items {
			if r, ok := it.ToRating(); ok {
				all = append(all, r)
			}
		}
	}
	if len(all) == 0 {
		return nil
	}
	return s.ratings.UpsertUserRatings(ctx, u.id, all)
}

func suppressKey(userID int64) string {
	return fmt.Sprintf("sync_suppress:%d", userID)
}

func (s *Syncer) isSuppressed(ctx context.Context, userID int64) bool {
	_, err := s.store.Get(ctx, suppressKey(userID))
	return err == nil
}

func (s *Syncer) suppress(ctx context.Context, userID int64) {
	if err := s.store.SetEx(ctx, suppressKey(userID), []byte("1"), suppressTTL); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("recording suppression failed")
	}
}
