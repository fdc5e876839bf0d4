// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package models

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EmbeddingDim is the fixed embedding dimensionality used everywhere:
// the encoder output, both vector indexes and the stored user
// preference vectors.
const EmbeddingDim = 384

// VectorLabel names one aspect in the multi-vector index.
type VectorLabel string

// Multi-vector aspect labels. Base is required for a candidate to
// participate in the index; the rest are optional.
const (
	LabelBase     VectorLabel = "base"
	LabelTitle    VectorLabel = "title"
	LabelKeywords VectorLabel = "keywords"
	LabelPeople   VectorLabel = "people"
	LabelBrands   VectorLabel = "brands"
)

// VectorLabels lists all aspect labels in canonical order.
var VectorLabels = []VectorLabel{LabelBase, LabelTitle, LabelKeywords, LabelPeople, LabelBrands}

// Vector is a dense float32 embedding.
type Vector []float32

// Dot returns the inner product. Mismatched lengths contribute only the
// shared prefix.
func (v Vector) Dot(o Vector) float64 {
	n := len(v)
	if len(o) < n {
		n = len(o)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(v[i]) * float64(o[i])
	}
	return sum
}

// Norm returns the L2 norm.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize scales v in place to unit length and returns it. Zero
// vectors are returned unchanged.
func (v Vector) Normalize() Vector {
	n := v.Norm()
	if n == 0 {
		return v
	}
	inv := float32(1.0 / n)
	for i := range v {
		v[i] *= inv
	}
	return v
}

// Cosine returns the cosine similarity in [-1, 1]. Zero vectors yield 0.
func (v Vector) Cosine(o Vector) float64 {
	nv, no := v.Norm(), o.Norm()
	if nv == 0 || no == 0 {
		return 0
	}
	return v.Dot(o) / (nv * no)
}

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Add accumulates o into v in place and returns v.
func (v Vector) Add(o Vector) Vector {
	n := len(v)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		v[i] += o[i]
	}
	return v
}

// Sub subtracts o from v in place and returns v.
func (v Vector) Sub(o Vector) Vector {
	n := len(v)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		v[i] -= o[i]
	}
	return v
}

// Scale multiplies v by s in place and returns v.
func (v Vector) Scale(s float64) Vector {
	f := float32(s)
	for i := range v {
		v[i] *= f
	}
	return v
}

// MeanVector averages the given vectors. Nil and empty inputs are
// skipped; the result has the length of the first non-empty vector and
// is NOT normalized.
func MeanVector(vs []Vector) Vector {
	var out Vector
	count := 0
	for _, v := range vs {
		if len(v) == 0 {
			continue
		}
		if out == nil {
			out = make(Vector, len(v))
		}
		out.Add(v)
		count++
	}
	if count == 0 {
		return nil
	}
	return out.Scale(1.0 / float64(count))
}

// MarshalVector encodes v as little-endian float32 bytes. This is the
// storage layout for preference vectors in the key-value store; the
// store must return the bytes unmodified.
func MarshalVector(v Vector) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// UnmarshalVector decodes little-endian float32 bytes. The byte length
// must be a positive multiple of 4.
func UnmarshalVector(b []byte) (Vector, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("vector bytes length %d not a positive multiple of 4", len(b))
	}
	v := make(Vector, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
