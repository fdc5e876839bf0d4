// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package phase

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/curatus/internal/llm"
	"github.com/tomtom215/curatus/internal/models"
)

const (
	labelTimeout     = 30 * time.Second
	labelTemperature = 0.3
	labelMaxTokens   = 200

	// maxLabelItems is how many representative items the labeler sees.
	maxLabelItems = 3

	defaultIcon = "\U0001F4FA" // 📺
)

// genericKeywords never make a label on their own; they describe form,
// not theme.
var genericKeywords = map[string]bool{
	"based on novel or book": true,
	"based on novel":         true,
	"based on comic":         true,
	"based on true story":    true,
	"duringcreditsstinger":   true,
	"aftercreditsstinger":    true,
	"sequel":                 true,
	"remake":                 true,
	"woman director":         true,
	"independent film":       true,
}

// label fills Label, Icon and Explanation in place. Franchise phases
// take the collection name; the rest go to the LLM with a rule-based
// fallback.
func (d *Detector) label(ctx context.Context, userID int64, p *models.ViewingPhase, items []windowItem) {
	if p.FranchiseID != 0 && p.FranchiseName != "" {
		p.Label = p.FranchiseName + " Phase"
		p.Icon = franchiseIcon
		if p.Explanation == "" {
			p.Explanation = fmt.Sprintf("A run of %d %s entries watched close together.",
				len(p.Members), p.FranchiseName)
		}
		return
	}

	if d.completer != nil {
		if ok := d.llmLabel(ctx, userID, p, items); ok {
			return
		}
	}
	d.ruleLabel(p, items)
}

// wireLabel is the JSON shape the labeler demands from the model.
type wireLabel struct {
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
	Icon        string `json:"icon"`
}

func (d *Detector) llmLabel(ctx context.Context, userID int64, p *models.ViewingPhase, items []windowItem) bool {
	prompt := labelPrompt(p, items, d.personaText(ctx, userID))

	ctx, cancel := context.WithTimeout(ctx, labelTimeout)
	defer cancel()

	reply, err := d.completer.Complete(ctx, llm.Request{
		System:      "You name viewing phases. Respond with a single JSON object and nothing else.",
		User:        prompt,
		Temperature: labelTemperature,
		MaxTokens:   labelMaxTokens,
	})
	if err != nil {
		d.logger.Warn().Err(err).Int64("user_id", userID).Msg("phase label completion failed")
		return false
	}

	var w wireLabel
	if err := json.Unmarshal([]byte(reply), &w); err != nil {
		extracted, exErr := llm.ExtractJSON(reply)
		if exErr != nil || json.Unmarshal([]byte(extracted), &w) != nil {
			d.logger.Warn().Int64("user_id", userID).Msg("phase label reply unparseable")
			return false
		}
	}

	w.Label = strings.TrimSpace(w.Label)
	if w.Label == "" {
		return false
	}
	if words := len(strings.Fields(w.Label)); words < 1 || words > 8 {
		return false
	}
	p.Label = w.Label
	if exp := strings.TrimSpace(w.Explanation); exp != "" {
		p.Explanation = exp
	}
	if icon := strings.TrimSpace(w.Icon); icon != "" {
		p.Icon = icon
	} else {
		p.Icon = defaultIcon
	}
	return true
}

func labelPrompt(p *models.ViewingPhase, items []windowItem, persona string) string {
	var b strings.Builder
	b.WriteString("Name this viewing phase from the items below.\n")
	b.WriteString("Return JSON: {\"label\": \"3-6 words\", \"explanation\": \"1-2 sentences\", \"icon\": \"one emoji\"}\n\n")

	if persona != "" {
		b.WriteString("Viewer: ")
		b.WriteString(persona)
		b.WriteString("\n\n")
	}
	if len(p.DominantGenres) > 0 {
		b.WriteString("Dominant genres: ")
		b.WriteString(strings.Join(p.DominantGenres, ", "))
		b.WriteString("\n")
	}
	if len(p.DominantKeywords) > 0 {
		b.WriteString("Dominant keywords: ")
		b.WriteString(strings.Join(p.DominantKeywords, ", "))
		b.WriteString("\n")
	}

	b.WriteString("\nRepresentative items:\n")
	for i, it := range items {
		if i == maxLabelItems {
			break
		}
		c := it.candidate
		fmt.Fprintf(&b, "- %s (%d, %s)", c.Title, c.Year, c.MediaType)
		if len(c.Genres) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(capStrings(c.Genres, 3), ", "))
		}
		if c.Overview != "" {
			fmt.Fprintf(&b, ": %s", clip(c.Overview, 140))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ruleLabel derives a label without the LLM: the top non-generic
// keyword when one exists, otherwise the top one or two genres, plus a
// media-type suffix.
func (d *Detector) ruleLabel(p *models.ViewingPhase, items []windowItem) {
	suffix := mediaSuffix(items)

	for _, kw := range p.DominantKeywords {
		if genericKeywords[strings.ToLower(kw)] {
			continue
		}
		p.Label = titleCase(kw) + " " + suffix
		p.Icon = defaultIcon
		d.ruleExplanation(p)
		return
	}

	switch {
	case len(p.DominantGenres) >= 2:
		p.Label = p.DominantGenres[0] + " & " + p.DominantGenres[1] + " " + suffix
	case len(p.DominantGenres) == 1:
		p.Label = p.DominantGenres[0] + " " + suffix
	default:
		p.Label = "Mixed " + suffix
	}
	p.Icon = defaultIcon
	d.ruleExplanation(p)
}

func (d *Detector) ruleExplanation(p *models.ViewingPhase) {
	if p.Explanation != "" {
		return
	}
	p.Explanation = fmt.Sprintf("%d items watched in a short span with %.0f%% thematic consistency.",
		len(p.Members), p.Metrics.ThematicConsistency*100)
}

// mediaSuffix picks the display noun from the cluster's media mix:
// Movies/Shows for a uniform cluster, Films when movies dominate a mix,
// Series otherwise.
func mediaSuffix(items []windowItem) string {
	movies, shows := 0, 0
	for _, it := range items {
		if it.candidate.MediaType == models.MediaTypeMovie {
			movies++
		} else {
			shows++
		}
	}
	switch {
	case shows == 0:
		return "Movies"
	case movies == 0:
		return "Shows"
	case movies >= shows:
		return "Films"
	default:
		return "Series"
	}
}

func (d *Detector) personaText(ctx context.Context, userID int64) string {
	if d.persona == nil {
		return ""
	}
	return d.persona.Text(ctx, userID)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
