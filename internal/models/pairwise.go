// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package models

import "time"

// SessionStatus is the lifecycle state of a pairwise training session.
type SessionStatus string

const (
	// SessionActive accepts judgments.
	SessionActive SessionStatus = "active"
	// SessionCompleted reached its judgment target.
	SessionCompleted SessionStatus = "completed"
	// SessionAbandoned was closed without completing.
	SessionAbandoned SessionStatus = "abandoned"
)

// Winner is the outcome of one pair judgment.
type Winner string

const (
	// WinnerA prefers the first candidate.
	WinnerA Winner = "a"
	// WinnerB prefers the second candidate.
	WinnerB Winner = "b"
	// WinnerSkip declines to judge; does not count toward completion.
	WinnerSkip Winner = "skip"
	// WinnerBoth likes both candidates.
	WinnerBoth Winner = "both"
	// WinnerNeither dislikes both candidates.
	WinnerNeither Winner = "neither"
)

// Valid reports whether w is a defined outcome.
func (w Winner) Valid() bool {
	switch w {
	case WinnerA, WinnerB, WinnerSkip, WinnerBoth, WinnerNeither:
		return true
	default:
		return false
	}
}

// Counts reports whether the outcome advances session completion.
// Skips are recorded but do not count.
func (w Winner) Counts() bool {
	return w != WinnerSkip
}

// PairwiseSession is one A/B comparison task sequence. The candidate
// pool is snapshotted at creation so judgments stay comparable even if
// the underlying list regenerates.
type PairwiseSession struct {
	// ID is the session identifier.
	ID string `json:"session_id"`

	// UserID is the judging user.
	UserID int64 `json:"user_id"`

	// Prompt is the originating list prompt.
	Prompt string `json:"prompt,omitempty"`

	// ListType is the originating list type.
	ListType ListType `json:"list_type,omitempty"`

	// Pool is the snapshotted candidate ids, in engine-score order.
	Pool []int64 `json:"pool"`

	// TotalPairs is the judgment target: 20 when the pool has >= 15
	// items, 15 when >= 10, otherwise max(10, pool size).
	TotalPairs int `json:"total_pairs"`

	// CompletedPairs counts non-skip judgments, clamped to TotalPairs.
	CompletedPairs int `json:"completed_pairs"`

	// Status is the lifecycle state.
	Status SessionStatus `json:"status"`

	// StartedAt is the creation time.
	StartedAt time.Time `json:"started_at"`

	// UpdatedAt is the last judgment time.
	UpdatedAt time.Time `json:"updated_at"`
}

// Complete reports whether the session reached its judgment target.
func (s *PairwiseSession) Complete() bool {
	return s.CompletedPairs >= s.TotalPairs
}

// PairwiseJudgment is one recorded A/B decision.
type PairwiseJudgment struct {
	// ID is the judgment identifier.
	ID string `json:"id"`

	// SessionID is the owning session.
	SessionID string `json:"session_id"`

	// CandidateA is the first candidate shown.
	CandidateA int64 `json:"candidate_a"`

	// CandidateB is the second candidate shown.
	CandidateB int64 `json:"candidate_b"`

	// Winner is the outcome.
	Winner Winner `json:"winner"`

	// Confidence is the optional user confidence in [0, 1].
	Confidence float64 `json:"confidence,omitempty"`

	// ResponseTimeMS is how long the user took to decide.
	ResponseTimeMS int `json:"response_time_ms,omitempty"`

	// Explanation is the optional free-text reason.
	Explanation string `json:"explanation,omitempty"`

	// CreatedAt is the submission time.
	CreatedAt time.Time `json:"created_at"`
}

// UnorderedPair is a session pool pair independent of presentation
// order, used to skip already-judged pairs.
type UnorderedPair struct {
	Low, High int64
}

// NewUnorderedPair normalizes (a, b) so Low <= High.
func NewUnorderedPair(a, b int64) UnorderedPair {
	if a > b {
		a, b = b, a
	}
	return UnorderedPair{Low: a, High: b}
}
