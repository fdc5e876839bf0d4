// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package models

import "time"

// PhaseType classifies a viewing phase by score and recency.
type PhaseType string

const (
	// PhaseActive scores >= 0.55 and overlaps the last 14 days.
	PhaseActive PhaseType = "active"
	// PhaseMinor scores below the active threshold but is recent.
	PhaseMinor PhaseType = "minor"
	// PhaseHistorical lies fully in the past.
	PhaseHistorical PhaseType = "historical"
)

// PhaseMetrics are the cluster quality measures backing a phase.
// All values lie in [0, 1] except Cohesion, which is a mean cosine and
// may in principle reach down to -1.
type PhaseMetrics struct {
	// Cohesion is the mean pairwise cosine within the cluster
	// (1.0 for singletons).
	Cohesion float64 `json:"cohesion"`

	// WatchDensity is cluster size divided by the window length in days.
	WatchDensity float64 `json:"watch_density"`

	// FranchiseDominance is the fraction sharing the most common
	// collection id.
	FranchiseDominance float64 `json:"franchise_dominance"`

	// ThematicConsistency is the fraction sharing the top genre.
	ThematicConsistency float64 `json:"thematic_consistency"`

	// PhaseScore is the weighted blend:
	// 0.35*cohesion + 0.25*density + 0.20*franchise + 0.20*thematic.
	PhaseScore float64 `json:"phase_score"`
}

// Score computes the blended phase score from the component metrics.
func (m PhaseMetrics) Score() float64 {
	return 0.35*m.Cohesion + 0.25*m.WatchDensity +
		0.20*m.FranchiseDominance + 0.20*m.ThematicConsistency
}

// ViewingPhase is a labeled time window during which a user's watch
// history clusters semantically. Phases are derived data: they may be
// recomputed at any time under the per-user detection lock.
type ViewingPhase struct {
	// ID is the phase identifier.
	ID string `json:"id"`

	// UserID is the owner.
	UserID int64 `json:"user_id"`

	// Label is the short display label ("Marvel Phase", "Cozy Crime Shows").
	Label string `json:"label"`

	// Icon is a single emoji for display.
	Icon string `json:"icon,omitempty"`

	// StartAt is the window start.
	StartAt time.Time `json:"start_at"`

	// EndAt is the window end; nil while the phase is active.
	EndAt *time.Time `json:"end_at,omitempty"`

	// Members are the candidate ids in the phase.
	Members []int64 `json:"members"`

	// DominantGenres are the most frequent member genres, descending.
	DominantGenres []string `json:"dominant_genres,omitempty"`

	// DominantKeywords are the most frequent member keywords, descending.
	DominantKeywords []string `json:"dominant_keywords,omitempty"`

	// FranchiseID is the dominant collection id when the phase is
	// franchise-driven (0 otherwise).
	FranchiseID int64 `json:"franchise_id,omitempty"`

	// FranchiseName is the dominant collection name.
	FranchiseName string `json:"franchise_name,omitempty"`

	// Metrics are the cluster quality measures.
	Metrics PhaseMetrics `json:"metrics"`

	// PhaseType is derived from score and recency.
	PhaseType PhaseType `json:"phase_type"`

	// Explanation is a 1-2 sentence description.
	Explanation string `json:"explanation,omitempty"`

	// Posters are representative poster paths (up to three).
	Posters []string `json:"posters,omitempty"`

	// UpdatedAt is the last detection touch.
	UpdatedAt time.Time `json:"updated_at"`
}

// ActiveNow reports whether the phase is open-ended or ends in the future.
func (p *ViewingPhase) ActiveNow(now time.Time) bool {
	return p.EndAt == nil || p.EndAt.After(now)
}

// MemberOverlap returns the fraction of p's members present in other,
// measured against the smaller member set. Two phases with overlap
// >= 0.6 are treated as the same phase across detection runs.
func (p *ViewingPhase) MemberOverlap(other *ViewingPhase) float64 {
	if len(p.Members) == 0 || len(other.Members) == 0 {
		return 0
	}
	set := make(map[int64]struct{}, len(other.Members))
	for _, id := range other.Members {
		set[id] = struct{}{}
	}
	shared := 0
	for _, id := range p.Members {
		if _, ok := set[id]; ok {
			shared++
		}
	}
	smaller := len(p.Members)
	if len(other.Members) < smaller {
		smaller = len(other.Members)
	}
	return float64(shared) / float64(smaller)
}

// PhasePrediction is a non-persisted guess at the user's next phase.
type PhasePrediction struct {
	// Label is the predicted phase label.
	Label string `json:"label"`

	// Source is "judgments" or "clustering" depending on which
	// prediction path produced it.
	Source string `json:"source"`

	// Genres are the predicted dominant genres.
	Genres []string `json:"genres,omitempty"`

	// Keywords are the predicted dominant keywords.
	Keywords []string `json:"keywords,omitempty"`

	// CandidateIDs are suggested items matching the prediction.
	CandidateIDs []int64 `json:"candidate_ids,omitempty"`

	// Confidence is a rough [0, 1] confidence.
	Confidence float64 `json:"confidence"`

	// GeneratedAt is the prediction time.
	GeneratedAt time.Time `json:"generated_at"`
}
