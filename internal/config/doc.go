// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

/*
Package config provides centralized configuration management for Curatus.

This package loads, layers and validates configuration for all application
components using Koanf v2: built-in defaults first, then an optional YAML
config file, then environment variables. The result is an immutable Config
struct shared by every service.

# Configuration Sources

  - Defaults: defaultConfig() covers every optional setting
  - Config file: config.yaml (searched via DefaultConfigPaths or CURATUS_CONFIG)
  - Environment variables: explicit mapping in envTransformFunc

# Configuration Structure

Configuration is organized into logical groups:

  - ServerConfig / APIConfig: HTTP server and API response shaping
  - DatabaseConfig: DuckDB catalog and history store
  - KVConfig: Badger or Redis key-value store
  - IndexConfig / LexicalConfig: vector index and OpenSearch settings
  - LLMConfig / CatalogConfig / WatchProviderConfig: external providers
  - RetrievalConfig ... PhaseConfig: recommendation pipeline tuning
  - NATSConfig / SyncConfig: background jobs and history sync

# Usage

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

Validation runs at load time; a process never starts with a config that
would fail later at first use.
*/
package config
