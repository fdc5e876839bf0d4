// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package vecindex

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Primary index file names under the index directory.
const (
	primaryFile = "primary.idx"
	primaryLock = "primary.lock"
)

// Hit is one primary search result.
type Hit struct {
	// ID is the candidate identifier.
	ID int64 `json:"candidate_id"`

	// Similarity is 1/(1+d) with d the Euclidean distance between the
	// unit-length query and candidate vectors; higher is closer.
	Similarity float64 `json:"similarity"`
}

// PrimaryOptions configures the primary index.
type PrimaryOptions struct {
	// Dir is the snapshot directory.
	Dir string

	// M is the HNSW neighbor budget (DefaultM when zero).
	M int

	// EfConstruction is the insertion beam width (DefaultEfConstruction
	// when zero).
	EfConstruction int

	// EfSearch is the query beam width (DefaultEfSearch when zero).
	EfSearch int

	// Seed fixes level assignment for reproducible builds; zero keeps
	// the fixed default.
	Seed int64
}

// Primary is the single ANN index over candidate base embeddings.
// All methods are safe for concurrent use.
type Primary struct {
	mu       sync.RWMutex
	g        *graph
	ids      []int64 // position -> candidate id
	dir      string
	m        int
	efBuild  int
	efSearch int
	seed     int64
	logger   zerolog.Logger
}

// NewPrimary returns an empty primary index.
func NewPrimary(opts PrimaryOptions) *Primary {
	if opts.M <= 0 {
		opts.M = DefaultM
	}
	if opts.EfConstruction <= 0 {
		opts.EfConstruction = DefaultEfConstruction
	}
	if opts.EfSearch <= 0 {
		opts.EfSearch = DefaultEfSearch
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	return &Primary{
		g:        newGraph(models.EmbeddingDim, opts.M, opts.EfConstruction, opts.Seed),
		dir:      opts.Dir,
		m:        opts.M,
		efBuild:  opts.EfConstruction,
		efSearch: opts.EfSearch,
		seed:     opts.Seed,
		logger:   logging.With().Str("component", "vecindex").Logger(),
	}
}

// Build replaces the index contents with the given vectors. Inputs must
// be equal length; vectors must already be unit normalized.
func (p *Primary) Build(vectors []models.Vector, ids []int64) error {
	const op = "vecindex.Build"
	if len(vectors) != len(ids) {
		return recerr.Input(op, fmt.Sprintf("vectors/ids length mismatch: %d vs %d", len(vectors), len(ids)))
	}
	g := newGraph(models.EmbeddingDim, p.m, p.efBuild, p.seed)
	mapped := make([]int64, 0, len(ids))
	for i, vec := range vectors {
		if len(vec) != g.dim {
			return recerr.Input(op, fmt.Sprintf("vector %d has dim %d, want %d", i, len(vec), g.dim))
		}
		g.insert(vec)
		mapped = append(mapped, ids[i])
	}

	p.mu.Lock()
	p.g = g
	p.ids = mapped
	p.mu.Unlock()
	p.logger.Info().Int("vectors", len(mapped)).Msg("primary index built")
	return nil
}

// Append inserts additional vectors without rebuilding.
func (p *Primary) Append(vectors []models.Vector, ids []int64) error {
	const op = "vecindex.Append"
	if len(vectors) != len(ids) {
		return recerr.Input(op, fmt.Sprintf("vectors/ids length mismatch: %d vs %d", len(vectors), len(ids)))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, vec := range vectors {
		if len(vec) != p.g.dim {
			return recerr.Input(op, fmt.Sprintf("vector %d has dim %d, want %d", i, len(vec), p.g.dim))
		}
		p.g.insert(vec)
		p.ids = append(p.ids, ids[i])
	}
	return nil
}

// Search returns the k nearest candidates by similarity, descending.
func (p *Primary) Search(query models.Vector, k int) ([]Hit, error) {
	const op = "vecindex.Search"
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(query) != p.g.dim {
		return nil, recerr.Input(op, fmt.Sprintf("query dim %d, want %d", len(query), p.g.dim))
	}
	found := p.g.search(query, k, p.efSearch)
	hits := make([]Hit, len(found))
	for i, pd := range found {
		hits[i] = Hit{
			ID:         p.ids[pd.pos],
			Similarity: 1.0 / (1.0 + math.Sqrt(float64(pd.dist))),
		}
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (p *Primary) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ids)
}

// Save writes an atomic snapshot of the graph and the position-to-id
// map, holding an exclusive writer lock for the duration.
func (p *Primary) Save() error {
	const op = "vecindex.Save"
	lock, err := acquireWriterLock(op, filepath.Join(p.dir, primaryLock))
	if err != nil {
		return err
	}
	defer lock.release()

	p.mu.RLock()
	defer p.mu.RUnlock()
	path := filepath.Join(p.dir, primaryFile)
	err = atomicWrite(op, path, func(w io.Writer) error {
		if err := writeGraph(w, p.g); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(p.ids))); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, p.ids)
	})
	if err != nil {
		return err
	}
	p.logger.Info().Int("vectors", len(p.ids)).Str("path", path).Msg("primary index saved")
	return nil
}

// LoadPrimary restores a snapshot from opts.Dir. A missing snapshot is
// a NotFound error; the caller rebuilds from stored embeddings.
func LoadPrimary(opts PrimaryOptions) (*Primary, error) {
	const op = "vecindex.LoadPrimary"
	path := filepath.Join(opts.Dir, primaryFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, recerr.NotFound(op, "index snapshot")
		}
		return nil, recerr.Internal(op, err)
	}
	defer f.Close()

	g, err := readGraph(f)
	if err != nil {
		return nil, recerr.E(recerr.KindDataIntegrity, op, err)
	}
	var count uint32
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return nil, recerr.E(recerr.KindDataIntegrity, op, err)
	}
	ids := make([]int64, count)
	if err := binary.Read(f, binary.LittleEndian, ids); err != nil {
		return nil, recerr.E(recerr.KindDataIntegrity, op, err)
	}
	if int(count) != g.len() {
		return nil, recerr.E(recerr.KindDataIntegrity, op,
			fmt.Sprintf("id map has %d entries for %d nodes", count, g.len()))
	}

	p := NewPrimary(opts)
	p.g = g
	p.ids = ids
	p.logger.Info().Int("vectors", len(ids)).Str("path", path).Msg("primary index loaded")
	return p, nil
}
