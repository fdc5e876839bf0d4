// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package pairwise

import (
	"context"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Preference state keys, per user.
const (
	vectorKeyPrefix  = "pref_vector:"
	weightsKeyPrefix = "pref_weights:"
)

// Both-and-neither step shares relative to alpha.
const (
	bothStep    = 0.6
	neitherStep = 0.4
)

// learn folds one counted judgment into the user's preference vector
// and, for decisive outcomes, the interpretable weights. Best-effort:
// failures log and the judgment record stands.
func (t *Trainer) learn(ctx context.Context, userID int64, req SubmitRequest) {
	candidates, err := t.db.GetCandidatesByIDs(ctx, []int64{req.CandidateA, req.CandidateB})
	if err != nil {
		t.logger.Warn().Err(err).Int64("user_id", userID).Msg("preference update skipped, candidates unavailable")
		return
	}
	a, b := candidates[req.CandidateA], candidates[req.CandidateB]
	if a == nil || b == nil {
		t.logger.Warn().Int64("user_id", userID).
			Int64("candidate_a", req.CandidateA).Int64("candidate_b", req.CandidateB).
			Msg("preference update skipped, candidates left the catalog")
		return
	}

	va := t.encoder.Encode(embed.ComposeCandidateText(a))
	vb := t.encoder.Encode(embed.ComposeCandidateText(b))
	if err := t.updateVector(ctx, userID, req.Winner, va, vb); err != nil {
		t.logger.Warn().Err(err).Int64("user_id", userID).Msg("preference vector update failed")
	}

	switch req.Winner {
	case models.WinnerA:
		if err := t.updateWeights(ctx, userID, a, b); err != nil {
			t.logger.Warn().Err(err).Int64("user_id", userID).Msg("preference weights update failed")
		}
	case models.WinnerB:
		if err := t.updateWeights(ctx, userID, b, a); err != nil {
			t.logger.Warn().Err(err).Int64("user_id", userID).Msg("preference weights update failed")
		}
	}
}

// updateVector loads the current vector, applies the judgment step and
// persists the renormalized result. Degenerate steps (identical
// embeddings against a zero vector) leave the stored state untouched.
func (t *Trainer) updateVector(ctx context.Context, userID int64, w models.Winner, va, vb models.Vector) error {
	if va.Norm() == 0 || vb.Norm() == 0 {
		return nil
	}
	u, err := t.loadVector(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		u = make(models.Vector, len(va))
	}
	next := stepVector(u, w, va, vb, t.alpha)
	if next == nil {
		return nil
	}
	return t.store.SetEx(ctx, vectorKey(userID), models.MarshalVector(next), t.vectorTTL)
}

// stepVector applies one judgment to a preference vector and returns
// the unit-length result, or nil when the step degenerates to zero.
//
// Decisive outcomes pull u along the winner-minus-loser direction by
// alpha. "Both" moves u toward the pair midpoint by 0.6 alpha;
// "neither" pushes it away by 0.4 alpha.
func stepVector(u models.Vector, w models.Winner, va, vb models.Vector, alpha float64) models.Vector {
	next := u.Clone()
	switch w {
	case models.WinnerA:
		next.Add(va.Clone().Sub(vb).Scale(alpha))
	case models.WinnerB:
		next.Add(vb.Clone().Sub(va).Scale(alpha))
	case models.WinnerBoth:
		mid := va.Clone().Add(vb).Scale(0.5)
		next.Add(mid.Sub(next).Scale(bothStep * alpha))
	case models.WinnerNeither:
		mid := va.Clone().Add(vb).Scale(0.5)
		next.Add(mid.Sub(next).Scale(-neitherStep * alpha))
	default:
		return nil
	}
	if next.Norm() == 0 {
		return nil
	}
	return next.Normalize()
}

// Vector returns the user's current preference vector: the trained
// state when present, otherwise one derived from watch history. Nil
// with no error means the user has no taste signal yet.
func (t *Trainer) Vector(ctx context.Context, userID int64) (models.Vector, error) {
	return t.loadVector(ctx, userID)
}

// loadVector reads the stored vector, dropping corrupt entries, and
// falls back to the history-derived seed.
func (t *Trainer) loadVector(ctx context.Context, userID int64) (models.Vector, error) {
	key := vectorKey(userID)
	raw, err := t.store.Get(ctx, key)
	switch {
	case err == nil:
		v, uerr := models.UnmarshalVector(raw)
		if uerr == nil {
			return v, nil
		}
		t.logger.Warn().Err(uerr).Int64("user_id", userID).Msg("dropping corrupt preference vector")
		if derr := t.store.Del(ctx, key); derr != nil {
			t.logger.Warn().Err(derr).Msg("preference vector delete failed")
		}
	case !recerr.IsKind(err, recerr.KindNotFound):
		return nil, err
	}

	if t.profiles == nil {
		return nil, nil
	}
	seed, err := t.profiles.HistoryVector(ctx, userID)
	if err != nil {
		t.logger.Warn().Err(err).Int64("user_id", userID).Msg("history vector seed unavailable")
		return nil, nil
	}
	return seed, nil
}

// Weights returns the user's interpretable preference weights, or an
// empty set when none are stored. Corrupt entries are dropped.
func (t *Trainer) Weights(ctx context.Context, userID int64) (*models.PreferenceWeights, error) {
	key := weightsKey(userID)
	raw, err := t.store.Get(ctx, key)
	if err != nil {
		if recerr.IsKind(err, recerr.KindNotFound) {
			return models.NewPreferenceWeights(userID), nil
		}
		return nil, err
	}
	var w models.PreferenceWeights
	if err := json.Unmarshal(raw, &w); err != nil {
		t.logger.Warn().Err(err).Int64("user_id", userID).Msg("dropping corrupt preference weights")
		if derr := t.store.Del(ctx, key); derr != nil {
			t.logger.Warn().Err(derr).Msg("preference weights delete failed")
		}
		return models.NewPreferenceWeights(userID), nil
	}
	ensureWeightMaps(&w)
	return &w, nil
}

// updateWeights applies the decisive-outcome boosts and persists.
func (t *Trainer) updateWeights(ctx context.Context, userID int64, winner, loser *models.Candidate) error {
	w, err := t.Weights(ctx, userID)
	if err != nil {
		return err
	}
	boostWeights(w, winner, loser, t.boost)
	w.UpdatedAt = t.now().UTC()

	raw, err := json.Marshal(w)
	if err != nil {
		return recerr.Internal("pairwise.updateWeights", err)
	}
	return t.store.SetEx(ctx, weightsKey(userID), raw, t.weightsTTL)
}

// boostWeights shifts the interpretable weights for one decisive
// judgment: full boost toward what won, half boost against what lost,
// and half-boost nudges on the obscurity and freshness axes from the
// vote and year comparisons.
func boostWeights(w *models.PreferenceWeights, winner, loser *models.Candidate, boost float64) {
	ensureWeightMaps(w)

	for _, g := range winner.Genres {
		w.Genres[g] += boost
	}
	for _, g := range loser.Genres {
		w.Genres[g] -= 0.5 * boost
	}
	if d := decadeLabel(winner.Year); d != "" {
		w.Decades[d] += boost
	}
	if winner.OriginalLanguage != "" {
		w.Languages[winner.OriginalLanguage] += boost
	}

	switch {
	case winner.Votes < loser.Votes:
		w.Obscurity += 0.5 * boost
	case winner.Votes > loser.Votes:
		w.Obscurity -= 0.5 * boost
	}
	if winner.Year > 0 && loser.Year > 0 {
		switch {
		case winner.Year > loser.Year:
			w.Freshness += 0.5 * boost
		case winner.Year < loser.Year:
			w.Freshness -= 0.5 * boost
		}
	}
}

func ensureWeightMaps(w *models.PreferenceWeights) {
	if w.Genres == nil {
		w.Genres = make(map[string]float64)
	}
	if w.Decades == nil {
		w.Decades = make(map[string]float64)
	}
	if w.Languages == nil {
		w.Languages = make(map[string]float64)
	}
}

// decadeLabel maps a release year to its weight key ("1990s"), matching
// the profile builder's labels.
func decadeLabel(year int) string {
	if year < 1870 {
		return ""
	}
	return strconv.Itoa(year/10*10) + "s"
}

func vectorKey(userID int64) string {
	return vectorKeyPrefix + strconv.FormatInt(userID, 10)
}

func weightsKey(userID int64) string {
	return weightsKeyPrefix + strconv.FormatInt(userID, 10)
}
