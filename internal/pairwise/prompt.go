// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package pairwise

import (
	"fmt"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/curatus/internal/llm"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Prompt content caps keep batch cost flat regardless of catalog shape.
const (
	personaLimit = 500
	plotLimit    = 160
	taglineLimit = 120

	maxGenres   = 6
	maxKeywords = 8
	maxCast     = 4
)

const rankSystemPrompt = `You compare pairs of media items for a recommendation engine. For each pair, decide which item the viewer would rather watch given their request, or call it a tie when neither is a clearly better fit.
Reply with a single JSON object and nothing else: no prose, no markdown fences. Schema:
{"results":[{"pair":0,"winner":"a"}]}
winner is exactly one of "a", "b" or "tie". Include every pair exactly once.`

// pairSummary is the compact schema one candidate occupies in a
// tournament prompt. Obscurity runs 0 (mainstream) to 1 (obscure).
type pairSummary struct {
	Title         string   `json:"title"`
	Year          int      `json:"year,omitempty"`
	MediaType     string   `json:"media_type"`
	Genres        []string `json:"genres,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Plot          string   `json:"plot,omitempty"`
	Tagline       string   `json:"tagline,omitempty"`
	Cast          []string `json:"cast,omitempty"`
	Studio        string   `json:"studio,omitempty"`
	Network       string   `json:"network,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	Votes         int      `json:"votes,omitempty"`
	Popularity    float64  `json:"popularity,omitempty"`
	Language      string   `json:"language,omitempty"`
	Runtime       int      `json:"runtime_minutes,omitempty"`
	Certification string   `json:"certification,omitempty"`
	Status        string   `json:"status,omitempty"`
	SeasonCount   int      `json:"season_count,omitempty"`
	EpisodeCount  int      `json:"episode_count,omitempty"`
	Obscurity     float64  `json:"obscurity_score,omitempty"`
}

// summarizePair compacts a candidate for a tournament prompt, folding
// in LLM enrichment when the catalog fields are missing.
func summarizePair(c *models.Candidate, profiles map[int64]*models.ItemLLMProfile) pairSummary {
	s := pairSummary{
		Title:         c.Title,
		Year:          c.Year,
		MediaType:     string(c.MediaType),
		Genres:        capList(c.Genres, maxGenres),
		Keywords:      capList(c.Keywords, maxKeywords),
		Plot:          clip(c.Overview, plotLimit),
		Tagline:       clip(c.Tagline, taglineLimit),
		Cast:          capList(c.Cast, maxCast),
		Studio:        first(c.ProductionCompanies),
		Network:       first(c.Networks),
		Rating:        c.Rating,
		Votes:         c.Votes,
		Popularity:    c.Popularity,
		Language:      c.OriginalLanguage,
		Runtime:       c.RuntimeMinutes,
		Certification: c.Certification,
		Status:        c.Status,
		SeasonCount:   c.SeasonCount,
		EpisodeCount:  c.EpisodeCount,
		Obscurity:     c.ObscurityScore,
	}
	if p := profiles[c.ID]; p != nil {
		if s.Plot == "" {
			s.Plot = clip(p.Synopsis, plotLimit)
		}
		if len(s.Keywords) == 0 {
			s.Keywords = capList(p.Themes, maxKeywords)
		}
	}
	return s
}

// wirePair is one comparison in a tournament prompt.
type wirePair struct {
	Pair int         `json:"pair"`
	A    pairSummary `json:"a"`
	B    pairSummary `json:"b"`
}

// rankPrompt assembles the viewer context and the pair payload for one
// batch.
func rankPrompt(req RankRequest, head []models.ScoredItem, batch []pair) (string, error) {
	const op = "pairwise.rankPrompt"

	pairs := make([]wirePair, 0, len(batch))
	for i, p := range batch {
		pairs = append(pairs, wirePair{
			Pair: i,
			A:    summarizePair(head[p.a].Candidate, req.Profiles),
			B:    summarizePair(head[p.b].Candidate, req.Profiles),
		})
	}
	payload, err := json.Marshal(pairs)
	if err != nil {
		return "", recerr.Internal(op, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Viewer request: %s\n", orNone(req.Prompt))
	fmt.Fprintf(&b, "\nViewer persona: %s\n", orNone(clip(req.Persona, personaLimit)))
	fmt.Fprintf(&b, "\nPairs:\n%s\n", payload)
	return b.String(), nil
}

// wireRankings mirrors the tournament reply schema.
type wireRankings struct {
	Results []struct {
		Pair   int    `json:"pair"`
		Winner string `json:"winner"`
	} `json:"results"`
}

// decodeRankings parses a model reply. The reply is tried verbatim
// first; on failure the JSON payload is re-extracted once, then the
// batch is abandoned.
func decodeRankings(reply string) (*wireRankings, error) {
	const op = "pairwise.decodeRankings"

	var wire wireRankings
	if err := json.Unmarshal([]byte(reply), &wire); err == nil {
		return &wire, nil
	}

	payload, err := llm.ExtractJSON(reply)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, fmt.Errorf("decode tournament reply: %w", err))
	}
	return &wire, nil
}

const deltaSystemPrompt = `You summarize what a viewer's A/B choices reveal about their taste. Write 2-3 sentences in the third person, concrete and specific to the titles given. Do not mention the comparison process.
Reply with a single JSON object and nothing else: no prose, no markdown fences. Schema:
{"summary":"the 2-3 sentence summary"}`

// deltaPrompt lists the session's most-preferred titles for the persona
// summarizer.
func deltaPrompt(prompt string, preferred []*models.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "List request the session came from: %s\n", orNone(prompt))
	b.WriteString("\nTitles the viewer consistently preferred:\n")
	for _, c := range preferred {
		fmt.Fprintf(&b, "- %s", c.Title)
		if c.Year > 0 {
			fmt.Fprintf(&b, " (%d)", c.Year)
		}
		if len(c.Genres) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(capList(c.Genres, maxGenres), ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// wireDelta mirrors the persona delta reply schema.
type wireDelta struct {
	Summary string `json:"summary"`
}

// decodeDelta parses a persona delta reply, re-extracting the JSON
// payload once on failure.
func decodeDelta(reply string) (string, error) {
	const op = "pairwise.decodeDelta"

	var wire wireDelta
	if err := json.Unmarshal([]byte(reply), &wire); err == nil {
		return strings.TrimSpace(wire.Summary), nil
	}

	payload, err := llm.ExtractJSON(reply)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return "", recerr.E(recerr.KindInternal, op, fmt.Errorf("decode persona delta reply: %w", err))
	}
	return strings.TrimSpace(wire.Summary), nil
}

func capList(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// clip cuts s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
