// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/llm"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Enrichment tuning. Batches keep prompt cost flat; tag and synopsis
// caps bound what downstream prompts will re-embed.
const (
	enrichBatchSize    = 8
	defaultEnrichLimit = 64

	maxProfileTags      = 6
	synopsisLimit       = 400
	enrichOverviewLimit = 300
	enrichGenres        = 6
	enrichKeywords      = 8
)

const enrichSystemPrompt = `You are the metadata curator of a media recommendation engine. For each item, read the catalog fields and produce:
- mood_tags: up to 6 short lowercase tags for the emotional texture (cozy, tense, melancholic)
- tone_tags: up to 6 short lowercase tags for the narrative tone (dark, lighthearted, satirical)
- themes: up to 6 short lowercase phrases for the dominant themes (redemption, found family, heist)
- synopsis: a fresh 2-3 sentence synopsis in neutral voice
Reply with a single JSON object and nothing else: no prose, no markdown fences. Schema:
{"profiles":[{"item":0,"mood_tags":[],"tone_tags":[],"themes":[],"synopsis":""}]}
Use the item numbers from the input. Every item gets exactly one entry.`

// Completer is the chat-completions surface enrichment needs.
// *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// profileStore is the slice of the catalog database enrichment uses.
// *database.DB satisfies it.
type profileStore interface {
	ListUnprofiledCandidateIDs(ctx context.Context, limit int) ([]int64, error)
	GetCandidatesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Candidate, error)
	UpsertItemProfile(ctx context.Context, p *models.ItemLLMProfile) error
}

// Enricher backfills LLM item profiles for candidates that have none.
type Enricher struct {
	db        profileStore
	completer Completer
	logger    zerolog.Logger
}

// NewEnricher builds an Enricher.
func NewEnricher(db profileStore, completer Completer) *Enricher {
	return &Enricher{
		db:        db,
		completer: completer,
		logger:    logging.With().Str("component", "catalog").Logger(),
	}
}

// EnrichPending profiles up to limit unprofiled candidates in fixed
// batches, tolerating per-batch failures. It returns the number of
// profiles written; the error is non-nil only when every batch failed.
func (e *Enricher) EnrichPending(ctx context.Context, limit int) (int, error) {
	const op = "catalog.EnrichPending"

	if limit <= 0 {
		limit = defaultEnrichLimit
	}
	ids, err := e.db.ListUnprofiledCandidateIDs(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	byID, err := e.db.GetCandidatesByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	// Map lookups drop ids whose rows vanished between the two reads.
	pending := make([]*models.Candidate, 0, len(ids))
	for _, id := range ids {
		if c := byID[id]; c != nil {
			pending = append(pending, c)
		}
	}

	var written int
	var lastErr error
	for start := 0; start < len(pending); start += enrichBatchSize {
		if ctx.Err() != nil {
			return written, recerr.Transient(op, ctx.Err())
		}

		end := start + enrichBatchSize
		if end > len(pending) {
			end = len(pending)
		}

		n, err := e.enrichBatch(ctx, pending[start:end])
		written += n
		if err != nil {
			lastErr = err
			e.logger.Warn().Err(err).Int("batch_size", end-start).Msg("enrichment batch failed")
		}
	}

	if written == 0 && lastErr != nil {
		return 0, lastErr
	}

	e.logger.Info().
		Int("pending", len(pending)).
		Int("written", written).
		Msg("item profiles enriched")
	return written, nil
}

// enrichItem is the compact schema one candidate occupies in a prompt.
type enrichItem struct {
	Item      int      `json:"item"`
	Title     string   `json:"title"`
	Year      int      `json:"year,omitempty"`
	MediaType string   `json:"media_type"`
	Genres    []string `json:"genres,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Overview  string   `json:"overview,omitempty"`
	Tagline   string   `json:"tagline,omitempty"`
}

// wireProfiles mirrors the reply schema.
type wireProfiles struct {
	Profiles []struct {
		Item     int      `json:"item"`
		MoodTags []string `json:"mood_tags"`
		ToneTags []string `json:"tone_tags"`
		Themes   []string `json:"themes"`
		Synopsis string   `json:"synopsis"`
	} `json:"profiles"`
}

// enrichBatch profiles one batch. Entries with hallucinated or
// duplicate item numbers are dropped; the rest are persisted.
func (e *Enricher) enrichBatch(ctx context.Context, batch []*models.Candidate) (int, error) {
	prompt, err := enrichPrompt(batch)
	if err != nil {
		return 0, err
	}

	reply, err := e.completer.Complete(ctx, llm.Request{
		System: enrichSystemPrompt,
		User:   prompt,
	})
	if err != nil {
		return 0, err
	}

	wire, err := decodeProfiles(reply)
	if err != nil {
		return 0, err
	}

	var written int
	seen := make(map[int]bool, len(batch))
	for _, p := range wire.Profiles {
		if p.Item < 0 || p.Item >= len(batch) || seen[p.Item] {
			continue
		}
		seen[p.Item] = true

		profile := &models.ItemLLMProfile{
			CandidateID: batch[p.Item].ID,
			MoodTags:    cleanTags(p.MoodTags),
			ToneTags:    cleanTags(p.ToneTags),
			Themes:      cleanTags(p.Themes),
			Synopsis:    clipText(strings.TrimSpace(p.Synopsis), synopsisLimit),
		}
		if err := e.db.UpsertItemProfile(ctx, profile); err != nil {
			e.logger.Warn().Err(err).Int64("candidate_id", profile.CandidateID).Msg("profile upsert failed")
			continue
		}
		written++
	}
	return written, nil
}

// enrichPrompt assembles the numbered item payload.
func enrichPrompt(batch []*models.Candidate) (string, error) {
	const op = "catalog.enrichPrompt"

	items := make([]enrichItem, len(batch))
	for i, c := range batch {
		items[i] = enrichItem{
			Item:      i,
			Title:     c.Title,
			Year:      c.Year,
			MediaType: string(c.MediaType),
			Genres:    capTags(c.Genres, enrichGenres),
			Keywords:  capTags(c.Keywords, enrichKeywords),
			Overview:  clipText(c.Overview, enrichOverviewLimit),
			Tagline:   clipText(c.Tagline, enrichOverviewLimit),
		}
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return "", recerr.Internal(op, err)
	}
	return fmt.Sprintf("Items:\n%s\n", payload), nil
}

// decodeProfiles parses a model reply. The reply is tried verbatim
// first; on failure the JSON payload is re-extracted once, then the
// batch is abandoned.
func decodeProfiles(reply string) (*wireProfiles, error) {
	const op = "catalog.decodeProfiles"

	var wire wireProfiles
	if err := json.Unmarshal([]byte(reply), &wire); err == nil {
		return &wire, nil
	}

	payload, err := llm.ExtractJSON(reply)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, fmt.Errorf("decode enrichment reply: %w", err))
	}
	return &wire, nil
}

// cleanTags lowercases, trims, dedupes, sorts and caps a tag list.
func cleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	if len(out) > maxProfileTags {
		out = out[:maxProfileTags]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func capTags(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

// clipText cuts s to at most n bytes without splitting a rune.
func clipText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
