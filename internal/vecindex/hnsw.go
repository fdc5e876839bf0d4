// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package vecindex

import (
	"container/heap"
	"math"
	"math/rand"

	"github.com/tomtom215/curatus/internal/models"
)

// HNSW graph defaults. M is the neighbor budget per node on upper
// layers (doubled on layer 0); efConstruction the beam width while
// inserting; efSearch the beam width while querying.
const (
	DefaultM              = 32
	DefaultEfConstruction = 300
	DefaultEfSearch       = 100
)

// graph is a hierarchical navigable small world index. It is not safe
// for concurrent use; Primary and Multi serialize access around it.
type graph struct {
	dim      int
	m        int
	mMax0    int
	efBuild  int
	levelMul float64

	entry    uint32
	maxLevel int
	nodes    []node

	rng *rand.Rand
}

type node struct {
	vec models.Vector
	// neighbors[l] lists adjacent positions on layer l.
	neighbors [][]uint32
}

type posDist struct {
	pos  uint32
	dist float32
}

func newGraph(dim, m, efConstruction int, seed int64) *graph {
	if m <= 0 {
		m = DefaultM
	}
	if efConstruction <= 0 {
		efConstruction = DefaultEfConstruction
	}
	return &graph{
		dim:      dim,
		m:        m,
		mMax0:    2 * m,
		efBuild:  efConstruction,
		levelMul: 1.0 / math.Log(float64(m)),
		maxLevel: -1,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (g *graph) len() int { return len(g.nodes) }

// sqDist returns the squared Euclidean distance. Squared values order
// identically to true distances, so the graph works on them and only
// the search boundary takes the square root.
func sqDist(a, b models.Vector) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func (g *graph) randomLevel() int {
	return int(math.Floor(-math.Log(g.rng.Float64()) * g.levelMul))
}

// insert adds vec and returns its position.
func (g *graph) insert(vec models.Vector) uint32 {
	pos := uint32(len(g.nodes))
	level := g.randomLevel()
	n := node{vec: vec, neighbors: make([][]uint32, level+1)}
	g.nodes = append(g.nodes, n)

	if pos == 0 {
		g.entry = 0
		g.maxLevel = level
		return pos
	}

	ep := g.entry
	// Descend through layers above the new node's level greedily.
	for l := g.maxLevel; l > level; l-- {
		ep = g.greedyClosest(vec, ep, l)
	}

	top := level
	if g.maxLevel < top {
		top = g.maxLevel
	}
	eps := []posDist{{pos: ep, dist: sqDist(vec, g.nodes[ep].vec)}}
	for l := top; l >= 0; l-- {
		found := g.searchLayer(vec, eps, g.efBuild, l)
		neighbors := closestN(found, g.m)
		for _, nb := range neighbors {
			g.link(pos, nb.pos, l)
			g.link(nb.pos, pos, l)
			g.shrink(nb.pos, l)
		}
		eps = found
	}

	if level > g.maxLevel {
		g.maxLevel = level
		g.entry = pos
	}
	return pos
}

// search returns the k nearest positions with squared distances,
// ascending. ef widens the layer-0 beam; values below k are raised.
func (g *graph) search(query models.Vector, k, ef int) []posDist {
	if len(g.nodes) == 0 || k <= 0 {
		return nil
	}
	if ef < k {
		ef = k
	}
	ep := g.entry
	for l := g.maxLevel; l > 0; l-- {
		ep = g.greedyClosest(query, ep, l)
	}
	eps := []posDist{{pos: ep, dist: sqDist(query, g.nodes[ep].vec)}}
	found := g.searchLayer(query, eps, ef, 0)
	return closestN(found, k)
}

// greedyClosest walks layer l from start, always moving to the nearest
// neighbor, until no neighbor improves.
func (g *graph) greedyClosest(query models.Vector, start uint32, l int) uint32 {
	cur := start
	curDist := sqDist(query, g.nodes[cur].vec)
	for {
		improved := false
		for _, nb := range g.neighborsAt(cur, l) {
			if d := sqDist(query, g.nodes[nb].vec); d < curDist {
				cur, curDist = nb, d
				improved = true
			}
		}
		if !improved {
			return cur
		}
	}
}

// searchLayer runs a best-first beam search of width ef on layer l.
func (g *graph) searchLayer(query models.Vector, eps []posDist, ef, l int) []posDist {
	visited := make(map[uint32]struct{}, ef*4)
	candidates := &minQueue{}
	results := &maxQueue{}
	heap.Init(candidates)
	heap.Init(results)

	for _, ep := range eps {
		if _, ok := visited[ep.pos]; ok {
			continue
		}
		visited[ep.pos] = struct{}{}
		heap.Push(candidates, ep)
		heap.Push(results, ep)
	}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(posDist)
		if results.Len() >= ef && c.dist > (*results)[0].dist {
			break
		}
		for _, nb := range g.neighborsAt(c.pos, l) {
			if _, ok := visited[nb]; ok {
				continue
			}
			visited[nb] = struct{}{}
			d := sqDist(query, g.nodes[nb].vec)
			if results.Len() < ef || d < (*results)[0].dist {
				heap.Push(candidates, posDist{pos: nb, dist: d})
				heap.Push(results, posDist{pos: nb, dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]posDist, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(posDist)
	}
	return out
}

func (g *graph) neighborsAt(pos uint32, l int) []uint32 {
	nbs := g.nodes[pos].neighbors
	if l >= len(nbs) {
		return nil
	}
	return nbs[l]
}

func (g *graph) link(from, to uint32, l int) {
	if from == to {
		return
	}
	nbs := g.nodes[from].neighbors
	if l >= len(nbs) {
		return
	}
	for _, existing := range nbs[l] {
		if existing == to {
			return
		}
	}
	g.nodes[from].neighbors[l] = append(nbs[l], to)
}

// shrink trims a node's layer-l adjacency back to the budget, keeping
// the closest neighbors.
func (g *graph) shrink(pos uint32, l int) {
	budget := g.m
	if l == 0 {
		budget = g.mMax0
	}
	nbs := g.nodes[pos].neighbors[l]
	if len(nbs) <= budget {
		return
	}
	scored := make([]posDist, len(nbs))
	for i, nb := range nbs {
		scored[i] = posDist{pos: nb, dist: sqDist(g.nodes[pos].vec, g.nodes[nb].vec)}
	}
	scored = closestN(scored, budget)
	kept := make([]uint32, len(scored))
	for i, s := range scored {
		kept[i] = s.pos
	}
	g.nodes[pos].neighbors[l] = kept
}

// closestN returns the n smallest-distance entries, ascending, ties
// broken by position for determinism.
func closestN(pds []posDist, n int) []posDist {
	out := make([]posDist, len(pds))
	copy(out, pds)
	sortPosDist(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func sortPosDist(pds []posDist) {
	// Insertion sort; inputs are beam-sized (tens to low hundreds).
	for i := 1; i < len(pds); i++ {
		for j := i; j > 0 && less(pds[j], pds[j-1]); j-- {
			pds[j], pds[j-1] = pds[j-1], pds[j]
		}
	}
}

func less(a, b posDist) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.pos < b.pos
}

// minQueue pops the closest entry first.
type minQueue []posDist

func (q minQueue) Len() int            { return len(q) }
func (q minQueue) Less(i, j int) bool  { return less(q[i], q[j]) }
func (q minQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *minQueue) Push(x interface{}) { *q = append(*q, x.(posDist)) }
func (q *minQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

// maxQueue pops the furthest entry first.
type maxQueue []posDist

func (q maxQueue) Len() int            { return len(q) }
func (q maxQueue) Less(i, j int) bool  { return less(q[j], q[i]) }
func (q maxQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *maxQueue) Push(x interface{}) { *q = append(*q, x.(posDist)) }
func (q *maxQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
