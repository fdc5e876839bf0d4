// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package core is the engine facade the host service talks to. It
// composes the pipeline stages (intent extraction, hybrid retrieval,
// scoring, optional LLM judge and pairwise rerank, MMR
// diversification) into the list, search, profile, pairwise and phase
// operations, and implements the background job contract for the
// event bus. Entry points prefer partial results over total failure:
// a dead lexical back-end degrades search to dense-only, a failed
// judge batch keeps engine ordering.
package core
