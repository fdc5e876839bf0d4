// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package core

import (
	"context"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

const defaultSuggestK = 20

// SuggestForList recommends additions to an existing provider list by
// finding candidates close to the list's centroid. Unresolvable list
// members (items missing from the local catalog) are skipped.
func (e *Engine) SuggestForList(ctx context.Context, userID, listID int64, k int) ([]models.SearchHit, error) {
	const op = "core.SuggestForList"
	if e.lists == nil {
		return nil, recerr.E(recerr.KindInternal, op, "list provider not configured")
	}
	if k <= 0 {
		k = defaultSuggestK
	}

	items, err := e.lists.GetListItems(ctx, listID)
	if err != nil {
		return nil, recerr.E(recerr.KindOf(err), op, "fetch list items", err)
	}
	if len(items) == 0 {
		return nil, recerr.Input(op, "list is empty")
	}

	seeds := make([]*models.Candidate, 0, len(items))
	for _, it := range items {
		key, ok := it.Key()
		if !ok {
			continue
		}
		c, err := e.catalog.GetCandidateByKey(ctx, key.TMDBID, key.MediaType)
		if err != nil {
			if recerr.IsKind(err, recerr.KindNotFound) {
				continue
			}
			return nil, recerr.Internal(op, err)
		}
		seeds = append(seeds, c)
	}
	if len(seeds) == 0 {
		return nil, recerr.NotFound(op, "resolvable list items")
	}

	hits, err := e.retriever.Suggestions(ctx, userID, seeds, k)
	if err != nil {
		return nil, recerr.Internal(op, err)
	}
	e.logger.Debug().
		Int64("list_id", listID).
		Int("seeds", len(seeds)).
		Int("hits", len(hits)).
		Msg("list suggestions computed")
	return hits, nil
}
