// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package catalog

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// store is the slice of the catalog database ingestion writes.
// *database.DB satisfies it.
type store interface {
	UpsertCandidate(ctx context.Context, c *models.Candidate, contentHash string) (int64, error)
	GetCandidateByKey(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*models.Candidate, error)
	SetCandidateActive(ctx context.Context, id int64, active bool) error
}

// notifier receives the ids of freshly written candidates so the
// embedding and index pipelines can follow. *events.Bus satisfies it.
type notifier interface {
	CandidatesUpserted(ctx context.Context, candidateIDs []int64) error
}

// Service ingests provider metadata into the candidate pool.
type Service struct {
	db       store
	provider Provider
	notify   notifier
	logger   zerolog.Logger
}

// NewService builds an ingestion service. notify may be nil when no
// event bus is wired; notifications are then skipped.
func NewService(db store, provider Provider, notify notifier) *Service {
	return &Service{
		db:       db,
		provider: provider,
		notify:   notify,
		logger:   logging.With().Str("component", "catalog").Logger(),
	}
}

// Ingest fetches one item from the provider, derives scores and the
// content hash, and upserts it. The returned candidate carries its
// assigned id.
func (s *Service) Ingest(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*models.Candidate, error) {
	c, err := s.ingestOne(ctx, models.CandidateKey{TMDBID: tmdbID, MediaType: mediaType})
	if err != nil {
		return nil, err
	}

	s.notifyUpserted(ctx, []int64{c.ID})

	s.logger.Debug().
		Int64("candidate_id", c.ID).
		Int64("tmdb_id", tmdbID).
		Str("media_type", string(mediaType)).
		Msg("candidate ingested")
	return c, nil
}

// IngestBatch ingests every referenced item, tolerating per-item
// failures. It returns the number of items written; the error is
// non-nil only when no item could be ingested.
func (s *Service) IngestBatch(ctx context.Context, refs []models.CandidateKey) (int, error) {
	const op = "catalog.IngestBatch"

	if len(refs) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(refs))
	var lastErr error
	for _, ref := range refs {
		if ctx.Err() != nil {
			return len(ids), recerr.Transient(op, ctx.Err())
		}

		c, err := s.ingestOne(ctx, ref)
		if err != nil {
			lastErr = err
			s.logger.Warn().Err(err).
				Int64("tmdb_id", ref.TMDBID).
				Str("media_type", string(ref.MediaType)).
				Msg("batch item skipped")
			continue
		}
		ids = append(ids, c.ID)
	}

	if len(ids) == 0 {
		return 0, lastErr
	}

	s.notifyUpserted(ctx, ids)

	s.logger.Info().
		Int("requested", len(refs)).
		Int("ingested", len(ids)).
		Msg("catalog batch ingested")
	return len(ids), nil
}

// ingestOne fetches, scores and upserts a single item. Callers own
// the upsert notification so batches can notify once.
func (s *Service) ingestOne(ctx context.Context, ref models.CandidateKey) (*models.Candidate, error) {
	const op = "catalog.Ingest"

	if !ref.MediaType.Valid() {
		return nil, recerr.Input(op, "media type must be movie or show")
	}

	var (
		c   *models.Candidate
		err error
	)
	switch ref.MediaType {
	case models.MediaTypeMovie:
		c, err = s.provider.FetchMovie(ctx, ref.TMDBID)
	default:
		c, err = s.provider.FetchShow(ctx, ref.TMDBID)
	}
	if err != nil {
		return nil, err
	}

	DeriveScores(c)

	id, err := s.db.UpsertCandidate(ctx, c, ContentHash(c))
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

// Deactivate hides a candidate from retrieval while keeping its row so
// history and phases can still reference it.
func (s *Service) Deactivate(ctx context.Context, tmdbID int64, mediaType models.MediaType) error {
	const op = "catalog.Deactivate"

	if !mediaType.Valid() {
		return recerr.Input(op, "media type must be movie or show")
	}

	c, err := s.db.GetCandidateByKey(ctx, tmdbID, mediaType)
	if err != nil {
		return err
	}
	if err := s.db.SetCandidateActive(ctx, c.ID, false); err != nil {
		return err
	}

	s.logger.Info().
		Int64("candidate_id", c.ID).
		Int64("tmdb_id", tmdbID).
		Str("media_type", string(mediaType)).
		Msg("candidate deactivated")
	return nil
}

// notifyUpserted is best effort: ingestion already persisted the rows,
// so a bus failure only delays downstream refresh.
func (s *Service) notifyUpserted(ctx context.Context, ids []int64) {
	if s.notify == nil || len(ids) == 0 {
		return
	}
	if err := s.notify.CandidatesUpserted(ctx, ids); err != nil {
		s.logger.Warn().Err(err).Int("count", len(ids)).Msg("upsert notification failed")
	}
}
