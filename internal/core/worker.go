// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/curatus/internal/catalog"
	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/events"
	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/lexical"
	"github.com/tomtom215/curatus/internal/metrics"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

const (
	// aiListLockTTL guards a provider list against concurrent
	// regeneration.
	aiListLockTTL = time.Hour

	// phaseDetectLockTTL guards per-user phase recomputation.
	phaseDetectLockTTL = 10 * time.Minute

	// rebuildPageSize pages the catalog scan during index rebuilds.
	rebuildPageSize = 500
)

// JobWorker adapts the engine to the background job contract. Locks
// around list generation and phase detection make redelivered jobs
// cheap no-ops.
type JobWorker struct {
	engine *Engine
}

// NewJobWorker wraps the engine for job dispatch.
func NewJobWorker(e *Engine) *JobWorker {
	return &JobWorker{engine: e}
}

var _ events.Worker = (*JobWorker)(nil)

// GenerateChatList runs the list pipeline and, when listID is set,
// replaces the provider list's items with the result.
func (w *JobWorker) GenerateChatList(ctx context.Context, userID, listID int64, prompt string, limit int) error {
	const op = "core.JobWorker.GenerateChatList"
	e := w.engine

	if listID != 0 {
		lock, err := kv.AcquireLock(ctx, e.store, fmt.Sprintf("ai_list_lock:%d", listID), aiListLockTTL)
		if err != nil {
			return recerr.Internal(op, err)
		}
		if lock == nil {
			e.logger.Info().Int64("list_id", listID).Msg("list generation already in flight, skipping")
			return nil
		}
		defer func() { _ = lock.Release(ctx) }()
	}

	result, err := e.GenerateChatList(ctx, ListRequest{
		UserID: userID,
		Prompt: prompt,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	if listID == 0 || e.lists == nil {
		return nil
	}
	return w.replaceListItems(ctx, listID, result.Items)
}

// replaceListItems swaps a provider list's contents for the generated
// items.
func (w *JobWorker) replaceListItems(ctx context.Context, listID int64, items []models.ScoredItem) error {
	const op = "core.JobWorker.replaceListItems"
	e := w.engine

	existing, err := e.lists.GetListItems(ctx, listID)
	if err != nil {
		return recerr.E(recerr.KindOf(err), op, "fetch existing items", err)
	}
	oldKeys := make([]models.CandidateKey, 0, len(existing))
	for _, it := range existing {
		if key, ok := it.Key(); ok {
			oldKeys = append(oldKeys, key)
		}
	}
	if len(oldKeys) > 0 {
		if err := e.lists.RemoveListItems(ctx, listID, oldKeys); err != nil {
			return recerr.E(recerr.KindOf(err), op, "remove existing items", err)
		}
	}

	newKeys := make([]models.CandidateKey, 0, len(items))
	for _, it := range items {
		newKeys = append(newKeys, it.Candidate.Key())
	}
	if len(newKeys) == 0 {
		return nil
	}
	if err := e.lists.AddListItems(ctx, listID, newKeys); err != nil {
		return recerr.E(recerr.KindOf(err), op, "add generated items", err)
	}
	e.logger.Info().Int64("list_id", listID).Int("items", len(newKeys)).Msg("provider list replaced")
	return nil
}

// DetectPhases recomputes a user's viewing phases under a per-user
// lock.
func (w *JobWorker) DetectPhases(ctx context.Context, userID int64) error {
	const op = "core.JobWorker.DetectPhases"
	e := w.engine

	lock, err := kv.AcquireLock(ctx, e.store, fmt.Sprintf("phase_detect_lock:%d", userID), phaseDetectLockTTL)
	if err != nil {
		return recerr.Internal(op, err)
	}
	if lock == nil {
		e.logger.Info().Int64("user_id", userID).Msg("phase detection already in flight, skipping")
		return nil
	}
	defer func() { _ = lock.Release(ctx) }()

	_, err = e.DetectPhases(ctx, userID)
	return err
}

// RebuildIndexes scans the active catalog and rebuilds the primary
// index wholesale, refreshes changed aspect vectors in the multi index
// and reindexes the lexical back-end. A dead lexical back-end degrades
// to vector-only indexing.
func (w *JobWorker) RebuildIndexes(ctx context.Context) error {
	const op = "core.JobWorker.RebuildIndexes"
	e := w.engine

	candidates, err := w.scanActiveCandidates(ctx)
	if err != nil {
		return recerr.Internal(op, err)
	}
	if len(candidates) == 0 {
		e.logger.Warn().Msg("no active candidates, skipping index rebuild")
		return nil
	}

	if e.primary != nil {
		if err := w.rebuildPrimary(ctx, candidates); err != nil {
			return err
		}
	}
	if e.multi != nil {
		if err := w.refreshMulti(ctx, candidates); err != nil {
			return err
		}
	}
	if e.lexical != nil {
		if err := w.reindexLexical(ctx, candidates); err != nil {
			e.logger.Warn().Err(err).Msg("lexical reindex failed, vector indexes remain current")
		}
	}
	return nil
}

// scanActiveCandidates pages through the full active catalog.
func (w *JobWorker) scanActiveCandidates(ctx context.Context) ([]*models.Candidate, error) {
	var (
		all     []*models.Candidate
		afterID int64
	)
	for {
		page, err := w.engine.catalog.ListActiveCandidates(ctx, afterID, rebuildPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		afterID = page[len(page)-1].ID
		if len(page) < rebuildPageSize {
			return all, nil
		}
	}
}

// rebuildPrimary replaces the base-vector index from the full catalog.
func (w *JobWorker) rebuildPrimary(ctx context.Context, candidates []*models.Candidate) error {
	const op = "core.JobWorker.rebuildPrimary"
	e := w.engine

	texts := make([]string, len(candidates))
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		texts[i] = embed.ComposeCandidateText(c)
		ids[i] = c.ID
	}
	if err := e.primary.Build(e.encoder.EncodeBatch(texts), ids); err != nil {
		return recerr.Internal(op, err)
	}
	if err := e.primary.Save(); err != nil {
		return recerr.Internal(op, err)
	}
	metrics.SetIndexSize("primary", e.primary.Len())
	e.logger.Info().Int("candidates", len(candidates)).Msg("primary index rebuilt")
	return nil
}

// refreshMulti re-encodes aspect vectors for candidates whose content
// hash changed since the last rebuild.
func (w *JobWorker) refreshMulti(ctx context.Context, candidates []*models.Candidate) error {
	const op = "core.JobWorker.refreshMulti"
	e := w.engine

	byID := make(map[int64]*models.Candidate, len(candidates))
	hashes := make(map[int64]string, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
		hashes[c.ID] = catalog.ContentHash(c)
	}

	stale := e.multi.MissingOrStale(hashes)
	if len(stale) == 0 {
		metrics.SetIndexSize("multi", e.multi.Len())
		return nil
	}

	var (
		ids    []int64
		texts  []string
		labels []models.VectorLabel
		vhash  []string
	)
	for _, id := range stale {
		c := byID[id]
		aspects := embed.ComposeAspectTexts(c)
		for _, label := range models.VectorLabels {
			text, ok := aspects[label]
			if !ok || text == "" {
				continue
			}
			ids = append(ids, id)
			texts = append(texts, text)
			labels = append(labels, label)
			vhash = append(vhash, hashes[id])
		}
	}
	if err := e.multi.AddItems(ids, e.encoder.EncodeBatch(texts), labels, vhash); err != nil {
		return recerr.Internal(op, err)
	}
	if err := e.multi.Save(); err != nil {
		return recerr.Internal(op, err)
	}
	metrics.SetIndexSize("multi", e.multi.Len())
	e.logger.Info().Int("stale", len(stale)).Msg("multi index refreshed")
	return nil
}

// reindexLexical pushes all active candidates to the lexical back-end.
func (w *JobWorker) reindexLexical(ctx context.Context, candidates []*models.Candidate) error {
	e := w.engine
	if err := e.lexical.EnsureIndex(ctx); err != nil {
		return err
	}

	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	profiles, err := e.catalog.GetItemProfiles(ctx, ids)
	if err != nil {
		e.logger.Warn().Err(err).Msg("item profiles unavailable for lexical docs")
		profiles = nil
	}

	docs := make([]lexical.Doc, len(candidates))
	for i, c := range candidates {
		docs[i] = lexical.NewDoc(c, profiles[c.ID])
	}
	if err := e.lexical.IndexCandidates(ctx, docs); err != nil {
		return err
	}
	e.logger.Info().Int("docs", len(docs)).Msg("lexical index refreshed")
	return nil
}

// RefreshProfile rebuilds a user's taste profile from scratch.
func (w *JobWorker) RefreshProfile(ctx context.Context, userID int64) error {
	const op = "core.JobWorker.RefreshProfile"
	e := w.engine
	if e.profiles == nil {
		return recerr.E(recerr.KindInternal, op, "profile service not configured")
	}
	if err := e.profiles.Invalidate(ctx, userID); err != nil {
		return err
	}
	_, err := e.profiles.Get(ctx, userID, true)
	return err
}

// SyncHistory runs one watch-history sync pass. A deployment without a
// configured provider is a no-op.
func (w *JobWorker) SyncHistory(ctx context.Context) error {
	if w.engine.syncer == nil {
		w.engine.logger.Debug().Msg("no history syncer configured")
		return nil
	}
	return w.engine.syncer.Run(ctx)
}
