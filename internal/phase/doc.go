// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package phase detects viewing phases: labeled time windows during
// which a user's watch history clusters semantically. Detection splits
// the history into fixed windows, density-clusters each window's
// candidate embeddings (falling back to k-means by silhouette), scores
// the clusters, and persists the survivors as phases with LLM or
// rule-based labels. A per-user lease in the key-value store keeps
// concurrent detections from racing.
package phase
