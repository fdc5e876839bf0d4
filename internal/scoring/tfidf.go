// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package scoring

import (
	"math"
	"sort"
)

// sparseVec is an L2-normalized TF-IDF row keyed by vocabulary column.
type sparseVec map[int]float64

// cosine returns the similarity of two normalized rows. Rows are unit
// length, so the dot product suffices.
func (a sparseVec) cosine(b sparseVec) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for col, x := range a {
		if y, ok := b[col]; ok {
			dot += x * y
		}
	}
	return dot
}

// vectorizer maps token bags onto TF-IDF rows over a vocabulary capped
// at maxFeatures terms. It is fit once per scoring request: the corpus
// is the prompt plus the surviving candidate texts, so vocabularies
// never leak between requests.
type vectorizer struct {
	vocab map[string]int
	idf   []float64
}

// fitVectorizer learns vocabulary and document frequencies from the
// token bags. When distinct terms exceed maxFeatures the most frequent
// terms across the corpus win, ties going alphabetically.
func fitVectorizer(docs [][]string, maxFeatures int) *vectorizer {
	type termStat struct{ count, df int }
	stats := make(map[string]*termStat)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, tok := range doc {
			st := stats[tok]
			if st == nil {
				st = &termStat{}
				stats[tok] = st
			}
			st.count++
			if !seen[tok] {
				st.df++
				seen[tok] = true
			}
		}
	}

	terms := make([]string, 0, len(stats))
	for t := range stats {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if stats[terms[i]].count != stats[terms[j]].count {
			return stats[terms[i]].count > stats[terms[j]].count
		}
		return terms[i] < terms[j]
	})
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	v := &vectorizer{
		vocab: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	n := float64(len(docs))
	for i, t := range terms {
		v.vocab[t] = i
		// Smoothed IDF; never zero, so every vocabulary term keeps some
		// discriminating power.
		v.idf[i] = math.Log((1+n)/(1+float64(stats[t].df))) + 1
	}
	return v
}

// transform returns the normalized TF-IDF row for one token bag. Tokens
// outside the vocabulary are ignored; a bag with no known terms yields
// nil.
func (v *vectorizer) transform(tokens []string) sparseVec {
	if len(tokens) == 0 {
		return nil
	}
	row := make(sparseVec)
	for _, tok := range tokens {
		if col, ok := v.vocab[tok]; ok {
			row[col]++
		}
	}
	if len(row) == 0 {
		return nil
	}
	var norm float64
	for col := range row {
		row[col] *= v.idf[col]
		norm += row[col] * row[col]
	}
	norm = math.Sqrt(norm)
	for col := range row {
		row[col] /= norm
	}
	return row
}
