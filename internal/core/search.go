// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package core

import (
	"context"
	"strings"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/retrieval"
)

const (
	defaultSearchK = 20
	maxSearchK     = 100
)

// SearchRequest is one ad-hoc hybrid search.
type SearchRequest struct {
	UserID    int64
	Query     string
	MediaType models.MediaType
	K         int

	// SkipFit disables the taste-fit boost so results reflect the
	// query alone.
	SkipFit bool
}

// HybridSearch runs dense-plus-lexical retrieval without the scoring
// pipeline. Results carry the fused retrieval scores.
func (e *Engine) HybridSearch(ctx context.Context, req SearchRequest) ([]models.SearchHit, error) {
	const op = "core.HybridSearch"
	if strings.TrimSpace(req.Query) == "" {
		return nil, recerr.Input(op, "query is required")
	}
	k := req.K
	if k <= 0 {
		k = defaultSearchK
	}
	if k > maxSearchK {
		k = maxSearchK
	}

	hits, err := e.retriever.Retrieve(ctx, retrieval.Request{
		UserID:  req.UserID,
		Query:   req.Query,
		Intent:  &models.Intent{MediaType: req.MediaType},
		K:       k,
		SkipFit: req.SkipFit,
	})
	if err != nil {
		return nil, recerr.E(recerr.KindInternal, op, "hybrid search failed", err)
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
