// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package events is the job bus: long-running operations (list
// generation, phase detection, index rebuilds, profile refreshes,
// history sync) are published as idempotent job events over NATS
// JetStream and consumed by worker handlers through a Watermill
// router. An embedded NATS server keeps single-binary deployments
// self-contained; external URLs serve shared deployments.
package events
