// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package watchprov talks to the Trakt-style watch-history provider:
// watched summaries, paged history, explicit ratings and list CRUD.
// Authentication failures come back as recerr.KindAuth so sync can
// suppress the affected user without failing the pipeline, and tokens
// that look like expired JWTs are rejected before a request is spent
// on them.
package watchprov
