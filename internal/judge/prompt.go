// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package judge

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
	personaLimit  = 500
	historyLimit  = 500
	overviewLimit = 180

	maxGenres   = 6
	maxKeywords = 8
	maxCast     = 3
	maxDirector = 2
	maxTags     = 4
	maxReasons  = 2
)

const systemPrompt = `You are the shortlist judge of a media recommendation engine. Score how well each item serves the viewer request, weighing:
- on_topic_fit 0.45: the item is what the request asked for
- mood_season_fit 0.25: mood, tone and seasonal feel match
- genre_language_runtime 0.10: genre, language and runtime expectations fit
- quality_signal 0.10: community rating and vote depth
- constraints 0.05: every hard constraint respected
- user_profile_fit 0.05: fits the viewer persona and recent viewing
Reply with a single JSON object and nothing else: no prose, no markdown fences. Schema:
{"scores":[{"id":0,"score":0.0,"reasons":["at most two short reasons"]}]}
Every score is in [0,1]. A score of 0.70 or higher means the item belongs on the shortlist.`

// itemSummary is the compact schema one candidate occupies in a prompt.
type itemSummary struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Year       int      `json:"year,omitempty"`
	MediaType  string   `json:"media_type"`
	Genres     []string `json:"genres,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Overview   string   `json:"overview,omitempty"`
	People     []string `json:"people,omitempty"`
	Studio     string   `json:"studio,omitempty"`
	Network    string   `json:"network,omitempty"`
	Rating     float64  `json:"rating,omitempty"`
	Votes      int      `json:"votes,omitempty"`
	Popularity float64  `json:"popularity,omitempty"`
	Language   string   `json:"language,omitempty"`
	Runtime    int      `json:"runtime_minutes,omitempty"`
	MoodTags   []string `json:"mood_tags,omitempty"`
	ToneTags   []string `json:"tone_tags,omitempty"`
}

// summarize compacts a candidate for the prompt, folding in LLM
// enrichment when the catalog fields are missing.
func summarize(c *models.Candidate, profiles map[int64]*models.ItemLLMProfile) itemSummary {
	s := itemSummary{
		ID:         itemID(c),
		Title:      c.Title,
		Year:       c.Year,
		MediaType:  string(c.MediaType),
		Genres:     capList(c.Genres, maxGenres),
		Keywords:   capList(c.Keywords, maxKeywords),
		Overview:   clip(c.Overview, overviewLimit),
		People:     people(c),
		Studio:     first(c.ProductionCompanies),
		Network:    first(c.Networks),
		Rating:     c.Rating,
		Votes:      c.Votes,
		Popularity: c.Popularity,
		Language:   c.OriginalLanguage,
		Runtime:    c.RuntimeMinutes,
	}
	if p := profiles[c.ID]; p != nil {
		if s.Overview == "" {
			s.Overview = clip(p.Synopsis, overviewLimit)
		}
		s.MoodTags = capList(p.MoodTags, maxTags)
		s.ToneTags = capList(p.ToneTags, maxTags)
	}
	return s
}

// userPrompt assembles the viewer context and the item payload.
func userPrompt(req Request, items []itemSummary) (string, error) {
	const op = "judge.userPrompt"

	payload, err := json.Marshal(items)
	if err != nil {
		return "", recerr.Internal(op, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Viewer request: %s\n", orNone(req.QuerySummary))
	fmt.Fprintf(&b, "\nViewer persona: %s\n", orNone(clip(req.Persona, personaLimit)))
	fmt.Fprintf(&b, "\nRecent viewing: %s\n", orNone(clip(req.History, historyLimit)))
	if req.TargetSize > 0 {
		fmt.Fprintf(&b, "\nAbout %d items should reach the 0.70 shortlist threshold.\n", req.TargetSize)
	}
	fmt.Fprintf(&b, "\nItems:\n%s\n", payload)
	return b.String(), nil
}

// wireVerdicts mirrors the reply schema.
type wireVerdicts struct {
	Scores []struct {
		ID      int64    `json:"id"`
		Score   float64  `json:"score"`
		Reasons []string `json:"reasons"`
	} `json:"scores"`
}

// decodeVerdicts parses a model reply. The reply is tried verbatim
// first; on failure the JSON payload is re-extracted once, then the
// batch is abandoned.
func decodeVerdicts(reply string) (*wireVerdicts, error) {
	const op = "judge.decodeVerdicts"

	var wire wireVerdicts
	if err := json.Unmarshal([]byte(reply), &wire); err == nil {
		return &wire, nil
	}

	payload, err := llm.ExtractJSON(reply)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, recerr.E(recerr.KindInternal, op, fmt.Errorf("decode judge reply: %w", err))
	}
	return &wire, nil
}

// cleanReasons trims, drops empties and caps the reason list.
func cleanReasons(reasons []string) []string {
	var out []string
	for _, r := range reasons {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
		if len(out) == maxReasons {
			break
		}
	}
	return out
}

// people merges top billing and directors for the prompt.
func people(c *models.Candidate) []string {
	out := make([]string, 0, maxCast+maxDirector)
	out = append(out, capList(c.Cast, maxCast)...)
	out = append(out, capList(c.Directors, maxDirector)...)
	if len(out) == 0 {
		return nil
	}
	return out
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
