// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

/*
Package kv provides the shared key-value store behind caches, preference
vectors, distributed locks and lightweight notifications.

Two backends implement the same Store contract:

  - Badger: embedded, zero external dependencies, the default for
    single-binary deployments. Lists and hashes are emulated on flat
    keys; Publish is a no-op because a single process has no remote
    subscribers.
  - Redis: shared server for multi-process deployments where locks and
    pub/sub must be visible across instances.

Values are opaque bytes. Preference vectors are stored as packed
little-endian float32 (see models.MarshalVector), so implementations
must never assume UTF-8 payloads.

Locks follow the SET-NX-EX pattern: Acquire writes a random token with a
TTL, Release deletes the key only when the token still matches. A lock
that is lost to TTL expiry is not an error; the next holder simply wins.
*/
package kv
