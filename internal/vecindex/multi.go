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
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Multi index file names under the index directory.
const (
	multiFile = "multi.idx"
	multiLock = "multi.lock"
)

// Entry is one labeled vector of an item.
type Entry struct {
	// Pos is the graph position holding the vector.
	Pos uint32

	// Hash is the content hash of the source text at add time.
	Hash string

	// Label names the aspect.
	Label models.VectorLabel
}

// ItemRef identifies one labeled vector.
type ItemRef struct {
	// ID is the candidate identifier.
	ID int64 `json:"candidate_id"`

	// Label names the aspect.
	Label models.VectorLabel `json:"label"`
}

// ItemHit is one multi-vector search result.
type ItemHit struct {
	// ID is the candidate identifier.
	ID int64 `json:"candidate_id"`

	// Label names the matched aspect.
	Label models.VectorLabel `json:"label"`

	// Similarity is 1/(1+d), as in the primary index.
	Similarity float64 `json:"similarity"`
}

// MultiOptions configures the multi-vector index.
type MultiOptions struct {
	// Dir is the snapshot directory.
	Dir string

	// M is the HNSW neighbor budget (DefaultM when zero).
	M int

	// EfConstruction is the insertion beam width (DefaultEfConstruction
	// when zero).
	EfConstruction int

	// EfSearch is the query beam width (DefaultEfSearch when zero).
	EfSearch int

	// Seed fixes level assignment; zero keeps the fixed default.
	Seed int64
}

// Multi holds several labeled vectors per candidate. Re-adding an
// existing (id, label) pair replaces the entry: the old graph position
// becomes a tombstone that search and position lookups skip. All
// methods are safe for concurrent use.
type Multi struct {
	mu         sync.RWMutex
	g          *graph
	items      map[int64][]Entry
	reverse    map[uint32]ItemRef
	tombstones int
	dir        string
	m          int
	efBuild    int
	efSearch   int
	seed       int64
	logger     zerolog.Logger
}

// NewMulti returns an empty multi-vector index.
func NewMulti(opts MultiOptions) *Multi {
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
	return &Multi{
		g:        newGraph(models.EmbeddingDim, opts.M, opts.EfConstruction, opts.Seed),
		items:    make(map[int64][]Entry),
		reverse:  make(map[uint32]ItemRef),
		dir:      opts.Dir,
		m:        opts.M,
		efBuild:  opts.EfConstruction,
		efSearch: opts.EfSearch,
		seed:     opts.Seed,
		logger:   logging.With().Str("component", "vecindex").Logger(),
	}
}

// AddItems inserts labeled vectors. All four slices must have equal
// length; vectors must be unit normalized. Position i describes the
// vector for (ids[i], labels[i]) with content hash hashes[i].
func (x *Multi) AddItems(ids []int64, vectors []models.Vector, labels []models.VectorLabel, hashes []string) error {
	const op = "vecindex.AddItems"
	if len(ids) != len(vectors) || len(ids) != len(labels) || len(ids) != len(hashes) {
		return recerr.Input(op, fmt.Sprintf("length mismatch: ids=%d vectors=%d labels=%d hashes=%d",
			len(ids), len(vectors), len(labels), len(hashes)))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != x.g.dim {
			return recerr.Input(op, fmt.Sprintf("vector %d has dim %d, want %d", i, len(vectors[i]), x.g.dim))
		}
		pos := x.g.insert(vectors[i])
		entries := x.items[id]
		replaced := false
		for j := range entries {
			if entries[j].Label == labels[i] {
				delete(x.reverse, entries[j].Pos)
				x.tombstones++
				entries[j] = Entry{Pos: pos, Hash: hashes[i], Label: labels[i]}
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, Entry{Pos: pos, Hash: hashes[i], Label: labels[i]})
		}
		x.items[id] = entries
		x.reverse[pos] = ItemRef{ID: id, Label: labels[i]}
	}
	return nil
}

// Search returns the k nearest live labeled vectors by similarity,
// descending. Tombstoned positions are skipped.
func (x *Multi) Search(query models.Vector, k int) ([]ItemHit, error) {
	const op = "vecindex.MultiSearch"
	x.mu.RLock()
	defer x.mu.RUnlock()
	if len(query) != x.g.dim {
		return nil, recerr.Input(op, fmt.Sprintf("query dim %d, want %d", len(query), x.g.dim))
	}
	// Over-fetch to cover tombstones still present in the graph.
	found := x.g.search(query, k+x.tombstones, x.efSearch+x.tombstones)
	hits := make([]ItemHit, 0, k)
	for _, pd := range found {
		ref, ok := x.reverse[pd.pos]
		if !ok {
			continue
		}
		hits = append(hits, ItemHit{
			ID:         ref.ID,
			Label:      ref.Label,
			Similarity: 1.0 / (1.0 + math.Sqrt(float64(pd.dist))),
		})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

// MissingOrStale returns the ids that are absent from the index or
// whose stored content hash differs from the given current hash,
// ascending.
func (x *Multi) MissingOrStale(current map[int64]string) []int64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]int64, 0)
	for id, hash := range current {
		entries, ok := x.items[id]
		if !ok || len(entries) == 0 {
			out = append(out, id)
			continue
		}
		for _, e := range entries {
			if e.Hash != hash {
				out = append(out, id)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PositionsToItems resolves graph positions to (id, label) pairs in
// input order. Tombstoned or unknown positions are skipped.
func (x *Multi) PositionsToItems(positions []uint32) []ItemRef {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]ItemRef, 0, len(positions))
	for _, pos := range positions {
		if ref, ok := x.reverse[pos]; ok {
			out = append(out, ref)
		}
	}
	return out
}

// Len returns the number of live labeled vectors.
func (x *Multi) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.reverse)
}

// Save writes an atomic snapshot of the graph and the item map under
// the exclusive writer lock. The reverse map is derived and rebuilt on
// load.
func (x *Multi) Save() error {
	const op = "vecindex.MultiSave"
	lock, err := acquireWriterLock(op, filepath.Join(x.dir, multiLock))
	if err != nil {
		return err
	}
	defer lock.release()

	x.mu.RLock()
	defer x.mu.RUnlock()
	path := filepath.Join(x.dir, multiFile)
	err = atomicWrite(op, path, func(w io.Writer) error {
		if err := writeGraph(w, x.g); err != nil {
			return err
		}
		ids := make([]int64, 0, len(x.items))
		for id := range x.items {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		if err := binary.Write(w, binary.LittleEndian, uint32(len(ids))); err != nil {
			return err
		}
		for _, id := range ids {
			entries := x.items[id]
			if err := binary.Write(w, binary.LittleEndian, id); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, uint16(len(entries))); err != nil {
				return err
			}
			for _, e := range entries {
				if err := binary.Write(w, binary.LittleEndian, e.Pos); err != nil {
					return err
				}
				if err := writeString(w, string(e.Label)); err != nil {
					return err
				}
				if err := writeString(w, e.Hash); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	x.logger.Info().Int("items", len(x.items)).Str("path", path).Msg("multi index saved")
	return nil
}

// LoadMulti restores a snapshot from opts.Dir. A missing snapshot is a
// NotFound error.
func LoadMulti(opts MultiOptions) (*Multi, error) {
	const op = "vecindex.LoadMulti"
	path := filepath.Join(opts.Dir, multiFile)
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
	var itemCount uint32
	if err := binary.Read(f, binary.LittleEndian, &itemCount); err != nil {
		return nil, recerr.E(recerr.KindDataIntegrity, op, err)
	}

	x := NewMulti(opts)
	x.g = g
	for i := uint32(0); i < itemCount; i++ {
		var id int64
		if err := binary.Read(f, binary.LittleEndian, &id); err != nil {
			return nil, recerr.E(recerr.KindDataIntegrity, op, err)
		}
		var entryCount uint16
		if err := binary.Read(f, binary.LittleEndian, &entryCount); err != nil {
			return nil, recerr.E(recerr.KindDataIntegrity, op, err)
		}
		entries := make([]Entry, entryCount)
		for j := range entries {
			var pos uint32
			if err := binary.Read(f, binary.LittleEndian, &pos); err != nil {
				return nil, recerr.E(recerr.KindDataIntegrity, op, err)
			}
			label, err := readString(f)
			if err != nil {
				return nil, recerr.E(recerr.KindDataIntegrity, op, err)
			}
			hash, err := readString(f)
			if err != nil {
				return nil, recerr.E(recerr.KindDataIntegrity, op, err)
			}
			if int(pos) >= g.len() {
				return nil, recerr.E(recerr.KindDataIntegrity, op,
					fmt.Sprintf("entry position %d beyond %d nodes", pos, g.len()))
			}
			entries[j] = Entry{Pos: pos, Hash: hash, Label: models.VectorLabel(label)}
			x.reverse[pos] = ItemRef{ID: id, Label: models.VectorLabel(label)}
		}
		x.items[id] = entries
	}
	x.tombstones = g.len() - len(x.reverse)
	x.logger.Info().Int("items", len(x.items)).Str("path", path).Msg("multi index loaded")
	return x, nil
}
