// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package embed produces the unit-norm 384-dimensional vectors used by
// the vector indexes, the retriever and the pairwise trainer.
//
// The default encoder is a deterministic feature-hashing sentence
// encoder: token unigrams, bigrams and character trigrams are hashed
// into a fixed-width vector with a sign trick, scaled sublinearly and
// L2-normalized. It needs no model files and always produces the same
// vector for the same text, which keeps index rebuilds reproducible.
// Components depend on the Encoder interface so a remote or ONNX-backed
// encoder can be swapped in without touching call sites.
//
// The package also owns the candidate text composition rule: the fixed
// field order that turns catalog metadata into the single string every
// base embedding is computed from. Changing the order or rendering of
// fields invalidates every stored vector, so both are frozen here and
// covered by tests.
package embed
