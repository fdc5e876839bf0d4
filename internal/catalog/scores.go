// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"math"

	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/models"
)

// Derived score tuning. Popularity saturates against a fixed midpoint
// and votes on a log scale, so a title needs both reach and vote depth
// to register as mainstream.
const (
	popularityMidpoint = 50.0
	votesLogCeiling    = 5.0 // log10(1+votes); 100k votes saturates

	freshnessFloorYear = 1970
	freshnessCeilYear  = 2025

	popularityShare = 0.6
	votesShare      = 0.4
)

// DeriveScores fills the derived candidate scores in place.
// MainstreamScore blends normalized popularity with vote depth,
// ObscurityScore is its complement, and FreshnessScore ramps the
// effective year across the catalog era.
func DeriveScores(c *models.Candidate) {
	var pop float64
	if c.Popularity > 0 {
		pop = c.Popularity / (c.Popularity + popularityMidpoint)
	}
	var votes float64
	if c.Votes > 0 {
		votes = math.Log10(1+float64(c.Votes)) / votesLogCeiling
	}
	mainstream := clamp01(popularityShare*pop + votesShare*votes)

	c.MainstreamScore = mainstream
	c.ObscurityScore = 1 - mainstream
	c.FreshnessScore = freshness(c)
}

// freshness ramps the release year, or the last air year for shows
// that have one, across [freshnessFloorYear, freshnessCeilYear].
func freshness(c *models.Candidate) float64 {
	year := c.Year
	if c.IsShow() {
		if y := yearOf(c.LastAirDate); y > 0 {
			year = y
		}
	}
	if year <= 0 {
		return 0
	}
	return clamp01(float64(year-freshnessFloorYear) / float64(freshnessCeilYear-freshnessFloorYear))
}

// ContentHash fingerprints the fields that feed the embedding text.
// The vector index compares stored hashes against current ones to
// decide which items need re-embedding.
func ContentHash(c *models.Candidate) string {
	sum := sha256.Sum256([]byte(embed.ComposeCandidateText(c)))
	return hex.EncodeToString(sum[:])
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
