// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package retrieval

import (
	"strings"

	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/models"
)

// negativeCueStrength scales how far the query vector is pushed away
// from each negative cue's direction.
const negativeCueStrength = 0.25

// composeQueryVector builds the dense query embedding: the prompt plus
// one vector per seed and mood, averaged and renormalized, then nudged
// away from each negative cue by subtracting its projection.
func composeQueryVector(enc embed.Encoder, query string, in *models.Intent) models.Vector {
	texts := []string{query}
	if in != nil {
		for _, seed := range in.Seeds {
			if seed = strings.TrimSpace(seed); seed != "" {
				texts = append(texts, "like: "+seed)
			}
		}
		for _, mood := range in.Moods {
			if mood = strings.TrimSpace(mood); mood != "" {
				texts = append(texts, "mood: "+mood)
			}
		}
	}

	vecs := enc.EncodeBatch(texts)
	q := models.MeanVector(vecs)
	if q == nil {
		return nil
	}
	q.Normalize()

	if in != nil {
		for _, cue := range in.NegativeCues {
			if cue = strings.TrimSpace(cue); cue == "" {
				continue
			}
			cv := enc.Encode(cue)
			if cv.Norm() == 0 {
				continue
			}
			q.Sub(cv.Clone().Scale(negativeCueStrength * cv.Dot(q)))
		}
		q.Normalize()
	}
	if q.Norm() == 0 {
		return nil
	}
	return q
}
