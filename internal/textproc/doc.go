// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

/*
Package textproc turns a free-text prompt into the structures the
intent extractor builds on: a canonical normalized prompt, tokens and
lemmas, quoted phrases, named people and organizations, structured
constraints (year windows, numeric comparators, boolean flags),
negative cues and seed titles.

Parse never fails. Malformed or hostile input produces best-effort
partial structures; an empty Result is a valid answer to an empty
prompt. Everything here is rule-based and deterministic so the
downstream LLM layer can be unavailable without loss of core function.
*/
package textproc
