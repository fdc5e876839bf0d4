// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package phase

import (
	"math"
	"sort"

	"github.com/tomtom215/curatus/internal/models"
)

// noise marks points no cluster claimed.
const noise = -1

// clusterResult assigns each input vector a cluster id, -1 for noise.
// Cluster ids are dense, 0-based, and ordered by first appearance.
type clusterResult struct {
	assignments []int
	clusters    int
}

// members returns the input indexes assigned to cluster c.
func (r clusterResult) members(c int) []int {
	var out []int
	for i, a := range r.assignments {
		if a == c {
			out = append(out, i)
		}
	}
	return out
}

// euclidean returns the L2 distance between two vectors. On unit
// vectors this is sqrt(2 - 2*cos), monotone in cosine distance.
func euclidean(a, b models.Vector) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// densityCluster groups vectors by connected components under an
// adaptive radius: each point's nearest-neighbor distance is collected,
// the median scaled by (1 + epsilon) becomes the linking radius, and
// components smaller than minClusterSize are noise. With every point
// treated as core (min_samples = 1) this is the degenerate DBSCAN the
// detection parameters ask for. Returns ok = false when no component
// survives, which sends the caller to the k-means fallback.
func densityCluster(vecs []models.Vector, minClusterSize int, epsilon float64) (clusterResult, bool) {
	n := len(vecs)
	if minClusterSize < 2 {
		minClusterSize = 2
	}
	if n < minClusterSize {
		return clusterResult{assignments: allNoise(n)}, false
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := euclidean(vecs[i], vecs[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	nearest := make([]float64, n)
	for i := 0; i < n; i++ {
		best := math.Inf(1)
		for j := 0; j < n; j++ {
			if j != i && dist[i][j] < best {
				best = dist[i][j]
			}
		}
		nearest[i] = best
	}
	radius := median(nearest) * (1 + epsilon)

	// Union by linking every pair within the radius.
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if dist[i][j] <= radius {
				ri, rj := find(i), find(j)
				if ri != rj {
					parent[rj] = ri
				}
			}
		}
	}

	sizes := make(map[int]int)
	for i := 0; i < n; i++ {
		sizes[find(i)]++
	}

	assignments := make([]int, n)
	ids := make(map[int]int)
	next := 0
	for i := 0; i < n; i++ {
		root := find(i)
		if sizes[root] < minClusterSize {
			assignments[i] = noise
			continue
		}
		id, ok := ids[root]
		if !ok {
			id = next
			ids[root] = id
			next++
		}
		assignments[i] = id
	}

	return clusterResult{assignments: assignments, clusters: next}, next > 0
}

// kmeansFallback clusters with k-means for k in [2, min(4, n-1)] and
// keeps the k with the best silhouette. Used when density clustering
// found no structure. Deterministic: centroids seed from evenly spaced
// input points.
func kmeansFallback(vecs []models.Vector, minClusterSize int) clusterResult {
	n := len(vecs)
	maxK := 4
	if n-1 < maxK {
		maxK = n - 1
	}
	if maxK < 2 {
		return clusterResult{assignments: allNoise(n)}
	}

	best := clusterResult{assignments: allNoise(n)}
	bestScore := math.Inf(-1)
	for k := 2; k <= maxK; k++ {
		r := kmeans(vecs, k)
		s := silhouette(vecs, r.assignments)
		if s > bestScore {
			bestScore = s
			best = r
		}
	}

	// Sub-minimum clusters become noise after the fact.
	if minClusterSize >= 2 {
		sizes := make(map[int]int)
		for _, a := range best.assignments {
			sizes[a]++
		}
		for i, a := range best.assignments {
			if a != noise && sizes[a] < minClusterSize {
				best.assignments[i] = noise
			}
		}
	}
	return best
}

// kmeans is Lloyd's algorithm with deterministic seeding and a bounded
// iteration count.
func kmeans(vecs []models.Vector, k int) clusterResult {
	n := len(vecs)
	dim := 0
	for _, v := range vecs {
		if len(v) > dim {
			dim = len(v)
		}
	}

	centroids := make([]models.Vector, k)
	for c := 0; c < k; c++ {
		seed := c * n / k
		centroids[c] = append(models.Vector(nil), vecs[seed]...)
	}

	assignments := make([]int, n)
	for iter := 0; iter < 50; iter++ {
		changed := false
		for i, v := range vecs {
			best, bestDist := 0, math.Inf(1)
			for c := range centroids {
				if d := euclidean(v, centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([]models.Vector, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make(models.Vector, dim)
		}
		for i, v := range vecs {
			c := assignments[i]
			counts[c]++
			for d := 0; d < len(v) && d < dim; d++ {
				sums[c][d] += v[d]
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			inv := float32(1.0 / float64(counts[c]))
			for d := range sums[c] {
				sums[c][d] *= inv
			}
			centroids[c] = sums[c]
		}
	}

	// Re-number so cluster ids follow first appearance and empty
	// clusters drop out.
	ids := make(map[int]int)
	next := 0
	out := make([]int, n)
	for i, a := range assignments {
		id, ok := ids[a]
		if !ok {
			id = next
			ids[a] = id
			next++
		}
		out[i] = id
	}
	return clusterResult{assignments: out, clusters: next}
}

// silhouette is the mean silhouette coefficient over all clustered
// points. Single-member clusters contribute 0.
func silhouette(vecs []models.Vector, assignments []int) float64 {
	n := len(vecs)
	if n == 0 {
		return 0
	}

	sizes := make(map[int]int)
	for _, a := range assignments {
		if a != noise {
			sizes[a]++
		}
	}
	if len(sizes) < 2 {
		return 0
	}

	var total float64
	counted := 0
	for i := 0; i < n; i++ {
		ci := assignments[i]
		if ci == noise {
			continue
		}
		if sizes[ci] < 2 {
			counted++
			continue
		}

		// a: mean distance to own cluster; b: min mean distance to
		// another cluster.
		sums := make(map[int]float64)
		counts := make(map[int]int)
		for j := 0; j < n; j++ {
			cj := assignments[j]
			if j == i || cj == noise {
				continue
			}
			sums[cj] += euclidean(vecs[i], vecs[j])
			counts[cj]++
		}
		a := sums[ci] / float64(counts[ci])
		b := math.Inf(1)
		for c, sum := range sums {
			if c == ci {
				continue
			}
			if m := sum / float64(counts[c]); m < b {
				b = m
			}
		}
		if math.IsInf(b, 1) {
			counted++
			continue
		}
		denom := math.Max(a, b)
		if denom > 0 {
			total += (b - a) / denom
		}
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// meanPairwiseCosine is the cluster cohesion: the mean cosine over all
// member pairs, 1.0 for singletons.
func meanPairwiseCosine(vecs []models.Vector) float64 {
	n := len(vecs)
	if n <= 1 {
		return 1.0
	}
	var sum float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += vecs[i].Cosine(vecs[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func allNoise(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = noise
	}
	return out
}
