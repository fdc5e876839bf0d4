// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package api is the internal HTTP surface the host media service
// calls. It routes with chi, wraps every payload in a uniform response
// envelope, and maps error kinds to status codes (input 400, not found
// 404, auth 401, transient upstream 502, data integrity 409, anything
// else 500). The API is host-trusted: there is no authentication layer
// here, only request tracing, metrics and compression.
package api
