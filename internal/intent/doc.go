// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package intent turns a free-text prompt into a structured
// models.Intent the retrieval and scoring stages can act on.
//
// Extraction runs two layers. A deterministic rules layer is always
// applied: it reads the textproc parse of the prompt and maps genre,
// mood, tone, era, popularity, complexity and pacing vocabulary,
// splits named people into actors and directors, folds
// genre-shaped negative cues into genre exclusions and derives
// year windows, runtime bounds, languages and the requested list
// size. An LLM layer is then attempted with a strict JSON-only
// prompt at low temperature; its reply is merged over the rules
// result. Any LLM failure, a timeout, an unusable reply, leaves the
// rules result standing, so Extract never fails.
//
// Two guardrails hold regardless of what the model returns: genres
// become required only when the prompt literally says "must be" or
// "only", and actors or directors are kept only when their names
// appear verbatim in the prompt.
//
// Merged results are cached for six hours under a SHA-256 key of the
// prompt, the truncated persona, the truncated history summary and
// the schema version.
package intent
