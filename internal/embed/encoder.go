// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package embed

import (
	"encoding/binary"
	"math"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"

	"github.com/tomtom215/curatus/internal/models"
)

// Encoder turns text into unit-norm embedding vectors.
//
// Implementations must be safe for concurrent use and deterministic:
// the same text always yields the same vector.
type Encoder interface {
	// Encode returns the embedding for a single text. Empty or
	// all-punctuation input yields the zero vector.
	Encode(text string) models.Vector

	// EncodeBatch returns one embedding per input text, in order.
	EncodeBatch(texts []string) []models.Vector

	// Dim returns the output dimensionality.
	Dim() int
}

// Feature class weights. Unigrams carry the signal; bigrams add word
// order; character trigrams keep misspelled or rare tokens near their
// neighbors instead of in a random direction.
const (
	unigramWeight = 1.0
	bigramWeight  = 0.6
	trigramWeight = 0.3
)

// HashingEncoder is the default deterministic encoder.
//
// Each feature is hashed with BLAKE2b; the digest selects a dimension
// and a sign, and the feature's weight is accumulated there. Repeated
// features are scaled by sqrt(count) so long overviews do not drown
// short titles. The final vector is L2-normalized.
type HashingEncoder struct {
	dim int
}

var _ Encoder = (*HashingEncoder)(nil)

// NewHashingEncoder returns an encoder producing vectors of the given
// dimensionality. dim <= 0 selects models.EmbeddingDim.
func NewHashingEncoder(dim int) *HashingEncoder {
	if dim <= 0 {
		dim = models.EmbeddingDim
	}
	return &HashingEncoder{dim: dim}
}

// Dim returns the output dimensionality.
func (e *HashingEncoder) Dim() int { return e.dim }

// Encode implements Encoder.
func (e *HashingEncoder) Encode(text string) models.Vector {
	vec := make(models.Vector, e.dim)
	counts := make(map[string]featureCount)

	tokens := splitTokens(text)
	for i, tok := range tokens {
		bump(counts, "u\x00"+tok, unigramWeight)
		if i+1 < len(tokens) {
			bump(counts, "b\x00"+tok+"\x00"+tokens[i+1], bigramWeight)
		}
		for _, tri := range charTrigrams(tok) {
			bump(counts, "t\x00"+tri, trigramWeight)
		}
	}

	for feat, fc := range counts {
		idx, sign := hashFeature(feat, e.dim)
		vec[idx] += sign * float32(fc.weight*math.Sqrt(float64(fc.n)))
	}
	return vec.Normalize()
}

// EncodeBatch implements Encoder.
func (e *HashingEncoder) EncodeBatch(texts []string) []models.Vector {
	out := make([]models.Vector, len(texts))
	for i, t := range texts {
		out[i] = e.Encode(t)
	}
	return out
}

type featureCount struct {
	weight float64
	n      int
}

func bump(counts map[string]featureCount, feat string, weight float64) {
	fc := counts[feat]
	fc.weight = weight
	fc.n++
	counts[feat] = fc
}

// hashFeature maps a feature string to a dimension index and a sign.
// The first 8 digest bytes pick the dimension, the ninth the sign.
func hashFeature(feat string, dim int) (int, float32) {
	sum := blake2b.Sum256([]byte(feat))
	idx := int(binary.LittleEndian.Uint64(sum[:8]) % uint64(dim))
	if sum[8]&1 == 1 {
		return idx, -1
	}
	return idx, 1
}

// splitTokens lowercases and splits on anything that is not a letter or
// digit. Single-rune tokens are kept: "a" and "i" still disambiguate
// bigrams even though they carry little weight alone.
func splitTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// charTrigrams returns the rune trigrams of a padded token. Tokens of
// one or two runes return nothing; the unigram already covers them.
func charTrigrams(token string) []string {
	runes := []rune(token)
	if len(runes) < 3 {
		return nil
	}
	padded := make([]rune, 0, len(runes)+2)
	padded = append(padded, '^')
	padded = append(padded, runes...)
	padded = append(padded, '$')
	out := make([]string, 0, len(padded)-2)
	for i := 0; i+3 <= len(padded); i++ {
		out = append(out, string(padded[i:i+3]))
	}
	return out
}
