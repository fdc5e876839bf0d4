// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package judge rescores shortlists with an LLM. Items go out in small
// batches against a weighted rubric and come back with absolute scores
// in [0, 1] plus short reason strings. The judge is best-effort end to
// end: a failed batch leaves its items unjudged and the pipeline keeps
// the engine ordering for them.
package judge
