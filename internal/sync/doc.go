// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package sync pulls watch history and ratings from the watch provider
// into local storage. Each configured household user is synced
// incrementally from a per-user high-water mark; bulk inserts rely on
// the store's conflict-ignore semantics, so a full re-sync is always
// safe. Users whose provider token stops authenticating are suppressed
// for a cool-down period instead of failing every run.
package sync
