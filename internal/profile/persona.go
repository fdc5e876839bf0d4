// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package profile

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Persona list shape.
const (
	personaDeltaPrefix = "persona_deltas:"
	maxPersonaDeltas   = 10
)

// Persona renders the short viewer description carried by LLM prompts:
// a profile summary plus the rolling learnings from completed pairwise
// sessions. Rendering is best-effort; missing parts are simply omitted.
type Persona struct {
	profiles *Service
	store    kv.Store
	logger   zerolog.Logger
}

// NewPersona wires the persona renderer. store may be nil; deltas are
// then neither kept nor rendered.
func NewPersona(profiles *Service, store kv.Store) *Persona {
	return &Persona{
		profiles: profiles,
		store:    store,
		logger:   logging.With().Str("component", "profile").Logger(),
	}
}

// Text returns the persona for a user. A viewer without history gets a
// neutral line so prompts never interpolate an empty string.
func (p *Persona) Text(ctx context.Context, userID int64) string {
	var b strings.Builder

	prof, err := p.profiles.Get(ctx, userID, false)
	if err != nil {
		p.logger.Warn().Err(err).Int64("user_id", userID).Msg("profile unavailable for persona")
		prof = nil
	}
	b.WriteString(summarize(prof))

	deltas, err := p.Deltas(ctx, userID)
	if err != nil {
		p.logger.Warn().Err(err).Int64("user_id", userID).Msg("persona deltas unavailable")
		deltas = nil
	}
	if len(deltas) > 0 {
		b.WriteString("\nRecent session learnings:")
		for _, d := range deltas {
			b.WriteString("\n- ")
			b.WriteString(strings.TrimSpace(d.Summary))
		}
	}
	return b.String()
}

// AppendDelta pushes a completed session's learning onto the rolling
// list, keeping the newest maxPersonaDeltas.
func (p *Persona) AppendDelta(ctx context.Context, userID int64, d models.PersonaDelta) error {
	const op = "profile.AppendDelta"
	if p.store == nil {
		return nil
	}
	if strings.TrimSpace(d.Summary) == "" {
		return recerr.Input(op, "empty persona delta summary")
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return recerr.Internal(op, err)
	}
	key := personaDeltaKey(userID)
	if err := p.store.LPush(ctx, key, raw); err != nil {
		return recerr.E(recerr.KindOf(err), op, fmt.Errorf("push delta: %w", err))
	}
	if err := p.store.LTrim(ctx, key, 0, maxPersonaDeltas-1); err != nil {
		return recerr.E(recerr.KindOf(err), op, fmt.Errorf("trim deltas: %w", err))
	}
	return nil
}

// Deltas returns the stored learnings, newest first. Corrupt entries
// are skipped.
func (p *Persona) Deltas(ctx context.Context, userID int64) ([]models.PersonaDelta, error) {
	const op = "profile.Deltas"
	if p.store == nil {
		return nil, nil
	}
	rows, err := p.store.LRange(ctx, personaDeltaKey(userID), 0, maxPersonaDeltas-1)
	if err != nil {
		if recerr.IsKind(err, recerr.KindNotFound) {
			return nil, nil
		}
		return nil, recerr.E(recerr.KindOf(err), op, fmt.Errorf("read deltas: %w", err))
	}
	out := make([]models.PersonaDelta, 0, len(rows))
	for _, raw := range rows {
		var d models.PersonaDelta
		if err := json.Unmarshal(raw, &d); err != nil {
			p.logger.Warn().Err(err).Int64("user_id", userID).Msg("skipping corrupt persona delta")
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func personaDeltaKey(userID int64) string {
	return personaDeltaPrefix + strconv.FormatInt(userID, 10)
}

// summarize renders one compact paragraph from a profile.
func summarize(p *models.UserProfile) string {
	if p == nil || p.TotalWatched == 0 {
		return "New viewer with no recorded watch history yet."
	}

	var b strings.Builder
	b.WriteString("Viewer with ")
	b.WriteString(strconv.Itoa(p.TotalWatched))
	b.WriteString(" watch events")
	if p.AvgRating > 0 {
		fmt.Fprintf(&b, ", average rating %.1f/10", p.AvgRating)
	}
	b.WriteString(".")

	if len(p.TopGenres) > 0 {
		b.WriteString(" Favorite genres: ")
		b.WriteString(strings.Join(p.TopGenres, ", "))
		b.WriteString(".")
	}
	if p.ObscurityPreference != "" {
		switch p.ObscurityPreference {
		case models.ObscurityObscure:
			b.WriteString(" Leans toward obscure picks.")
		case models.ObscurityMainstream:
			b.WriteString(" Leans toward mainstream titles.")
		default:
			b.WriteString(" Mixes mainstream and lesser-known titles.")
		}
	}
	if eras := topWeighted(p.DecadeWeights, 2); len(eras) > 0 {
		b.WriteString(" Watches a lot from the ")
		b.WriteString(strings.Join(eras, " and "))
		b.WriteString(".")
	}
	if langs := topWeighted(p.LanguageWeights, 2); len(langs) > 0 {
		b.WriteString(" Primary languages: ")
		b.WriteString(strings.Join(langs, ", "))
		b.WriteString(".")
	}
	return b.String()
}

// topWeighted returns up to k keys by weight descending, alphabetical
// on ties.
func topWeighted(weights map[string]float64, k int) []string {
	keys := make([]string, 0, len(weights))
	for key := range weights {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if weights[keys[i]] != weights[keys[j]] {
			return weights[keys[i]] > weights[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	return keys
}
