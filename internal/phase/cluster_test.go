// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package phase

import (
	"math"
	"testing"

	"github.com/tomtom215/curatus/internal/models"
)

// vec builds a unit vector pointing into the given axes.
func vec(dim int, axes ...int) models.Vector {
	v := make(models.Vector, dim)
	for _, a := range axes {
		v[a] = 1
	}
	return v.Normalize()
}

// jitter nudges a vector slightly off its direction and renormalizes.
func jitter(v models.Vector, axis int, amount float32) models.Vector {
	out := append(models.Vector(nil), v...)
	out[axis] += amount
	return out.Normalize()
}

func TestDensityClusterTwoGroups(t *testing.T) {
	dim := 8
	a := vec(dim, 0)
	b := vec(dim, 4)
	vecs := []models.Vector{
		a, jitter(a, 1, 0.05), jitter(a, 2, 0.04),
		b, jitter(b, 5, 0.05), jitter(b, 6, 0.04),
	}

	r, ok := densityCluster(vecs, 2, 0.1)
	if !ok {
		t.Fatal("expected clusters, got none")
	}
	if r.clusters != 2 {
		t.Fatalf("clusters = %d, want 2", r.clusters)
	}
	if r.assignments[0] != r.assignments[1] || r.assignments[1] != r.assignments[2] {
		t.Errorf("first group split: %v", r.assignments)
	}
	if r.assignments[3] != r.assignments[4] || r.assignments[4] != r.assignments[5] {
		t.Errorf("second group split: %v", r.assignments)
	}
	if r.assignments[0] == r.assignments[3] {
		t.Errorf("groups merged: %v", r.assignments)
	}
}

func TestDensityClusterTooFewPoints(t *testing.T) {
	r, ok := densityCluster([]models.Vector{vec(4, 0)}, 2, 0.1)
	if ok {
		t.Fatal("single point should not cluster")
	}
	if len(r.assignments) != 1 || r.assignments[0] != noise {
		t.Errorf("assignments = %v, want all noise", r.assignments)
	}
}

func TestDensityClusterIsolatesOutlier(t *testing.T) {
	dim := 8
	a := vec(dim, 0)
	vecs := []models.Vector{
		a, jitter(a, 1, 0.05), jitter(a, 2, 0.04), jitter(a, 3, 0.05),
		vec(dim, 7), // far from everything
	}
	r, ok := densityCluster(vecs, 2, 0.1)
	if !ok {
		t.Fatal("expected a cluster")
	}
	if r.assignments[4] != noise {
		t.Errorf("outlier assigned to cluster %d, want noise", r.assignments[4])
	}
}

func TestKmeansFallbackSeparates(t *testing.T) {
	dim := 8
	a := vec(dim, 0)
	b := vec(dim, 4)
	vecs := []models.Vector{
		a, jitter(a, 1, 0.1),
		b, jitter(b, 5, 0.1),
	}
	r := kmeansFallback(vecs, 2)
	if r.clusters < 2 {
		t.Fatalf("clusters = %d, want >= 2", r.clusters)
	}
	if r.assignments[0] != r.assignments[1] {
		t.Errorf("first pair split: %v", r.assignments)
	}
	if r.assignments[0] == r.assignments[2] {
		t.Errorf("pairs merged: %v", r.assignments)
	}
}

func TestKmeansFallbackTooSmall(t *testing.T) {
	r := kmeansFallback([]models.Vector{vec(4, 0), vec(4, 1)}, 2)
	for _, a := range r.assignments {
		if a != noise {
			t.Fatalf("assignments = %v, want all noise for n=2", r.assignments)
		}
	}
}

func TestSilhouettePrefersTightClusters(t *testing.T) {
	dim := 8
	a := vec(dim, 0)
	b := vec(dim, 4)
	vecs := []models.Vector{a, jitter(a, 1, 0.02), b, jitter(b, 5, 0.02)}

	good := silhouette(vecs, []int{0, 0, 1, 1})
	bad := silhouette(vecs, []int{0, 1, 0, 1})
	if good <= bad {
		t.Errorf("silhouette good=%.3f bad=%.3f, want good > bad", good, bad)
	}
	if good <= 0.5 {
		t.Errorf("silhouette for clean split = %.3f, want > 0.5", good)
	}
}

func TestMeanPairwiseCosine(t *testing.T) {
	if got := meanPairwiseCosine(nil); got != 1.0 {
		t.Errorf("empty = %v, want 1.0", got)
	}
	if got := meanPairwiseCosine([]models.Vector{vec(4, 0)}); got != 1.0 {
		t.Errorf("singleton = %v, want 1.0", got)
	}

	same := []models.Vector{vec(4, 0), vec(4, 0)}
	if got := meanPairwiseCosine(same); math.Abs(got-1.0) > 1e-6 {
		t.Errorf("identical pair = %v, want 1.0", got)
	}

	orth := []models.Vector{vec(4, 0), vec(4, 1)}
	if got := meanPairwiseCosine(orth); math.Abs(got) > 1e-6 {
		t.Errorf("orthogonal pair = %v, want 0", got)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{3}, 3},
		{"odd", []float64{5, 1, 3}, 3},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(tt.in); got != tt.want {
				t.Errorf("median(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
