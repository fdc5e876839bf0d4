// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package middleware holds the HTTP middleware shared by the internal
// API: request-ID propagation wired into the logging context,
// Prometheus request instrumentation, and gzip response compression.
// Middleware uses the func(http.HandlerFunc) http.HandlerFunc shape;
// the api package adapts it to chi.
package middleware
