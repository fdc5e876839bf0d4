// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateLogging(); err != nil {
		return err
	}

	if err := c.validateKV(); err != nil {
		return err
	}

	if err := c.validateIndex(); err != nil {
		return err
	}

	if err := c.validateLexical(); err != nil {
		return err
	}

	if err := c.validateLLM(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	return c.validatePipeline()
}

// validateServer validates HTTP server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

// validateLogging validates log level and format
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateKV validates the key-value store backend selection
func (c *Config) validateKV() error {
	switch c.KV.Backend {
	case "badger":
		if c.KV.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required when KV_BACKEND=badger")
		}
	case "redis":
		if c.KV.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when KV_BACKEND=redis")
		}
	default:
		return fmt.Errorf("KV_BACKEND must be badger or redis, got %q", c.KV.Backend)
	}
	return nil
}

// validateIndex validates HNSW build parameters. The bounds follow the
// usable ranges for graph degree and beam widths; values outside them
// produce either degenerate graphs or pathological build times.
func (c *Config) validateIndex() error {
	if c.Index.Dir == "" {
		return fmt.Errorf("INDEX_DIR is required")
	}
	if c.Index.HNSWM < 4 || c.Index.HNSWM > 128 {
		return fmt.Errorf("HNSW_M must be between 4 and 128, got %d", c.Index.HNSWM)
	}
	if c.Index.HNSWEfConstruct < c.Index.HNSWM {
		return fmt.Errorf("HNSW_EF_CONSTRUCTION must be >= HNSW_M (%d), got %d",
			c.Index.HNSWM, c.Index.HNSWEfConstruct)
	}
	if c.Index.HNSWEfSearch < 1 {
		return fmt.Errorf("HNSW_EF_SEARCH must be positive, got %d", c.Index.HNSWEfSearch)
	}
	return nil
}

// validateLexical validates OpenSearch configuration (only if enabled)
func (c *Config) validateLexical() error {
	if !c.Lexical.Enabled {
		return nil
	}
	if len(c.Lexical.Addresses) == 0 {
		return fmt.Errorf("OPENSEARCH_URLS is required when LEXICAL_ENABLED=true")
	}
	for _, addr := range c.Lexical.Addresses {
		if err := validateHTTPURL(addr, "OPENSEARCH_URLS"); err != nil {
			return err
		}
	}
	if c.Lexical.IndexName == "" {
		return fmt.Errorf("LEXICAL_INDEX_NAME is required when LEXICAL_ENABLED=true")
	}
	return nil
}

// validateLLM validates the chat-completions provider configuration
func (c *Config) validateLLM() error {
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("LLM_BASE_URL is required")
	}
	if err := validateHTTPURL(c.LLM.BaseURL, "LLM_BASE_URL"); err != nil {
		return err
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %g", c.LLM.Temperature)
	}
	if c.LLM.RatePerSecond <= 0 {
		return fmt.Errorf("llm.rate_per_second must be positive, got %g", c.LLM.RatePerSecond)
	}
	return nil
}

// validateNATS validates event bus configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_EMBEDDED_SERVER=false")
	}
	if c.NATS.URL != "" {
		if err := validateNATSURL(c.NATS.URL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED_SERVER=true")
	}
	return nil
}

// validatePipeline validates retrieval and ranking tunables
func (c *Config) validatePipeline() error {
	if c.Retrieval.DenseK < 1 {
		return fmt.Errorf("RETRIEVAL_DENSE_K must be positive, got %d", c.Retrieval.DenseK)
	}
	if c.Retrieval.LexicalK < 0 {
		return fmt.Errorf("RETRIEVAL_LEXICAL_K must be non-negative, got %d", c.Retrieval.LexicalK)
	}
	if c.Scoring.TopKReduce < 1 {
		return fmt.Errorf("SCORING_TOPK_REDUCE must be positive, got %d", c.Scoring.TopKReduce)
	}
	if c.Judge.BatchSize < 1 {
		return fmt.Errorf("JUDGE_BATCH_SIZE must be positive, got %d", c.Judge.BatchSize)
	}
	if c.Pairwise.BatchSize < 1 {
		return fmt.Errorf("pairwise.batch_size must be positive, got %d", c.Pairwise.BatchSize)
	}
	if c.Pairwise.Alpha <= 0 || c.Pairwise.Alpha >= 1 {
		return fmt.Errorf("PAIRWISE_ALPHA must be in (0, 1), got %g", c.Pairwise.Alpha)
	}
	if c.Pairwise.DiversityLambda < 0 || c.Pairwise.DiversityLambda > 1 {
		return fmt.Errorf("pairwise.diversity_lambda must be in [0, 1], got %g", c.Pairwise.DiversityLambda)
	}
	if c.Phase.ScoreThreshold < 0 || c.Phase.ScoreThreshold > 1 {
		return fmt.Errorf("PHASE_SCORE_THRESHOLD must be in [0, 1], got %g", c.Phase.ScoreThreshold)
	}
	if c.Phase.ActiveThreshold < c.Phase.ScoreThreshold {
		return fmt.Errorf("PHASE_ACTIVE_THRESHOLD must be >= PHASE_SCORE_THRESHOLD (%g), got %g",
			c.Phase.ScoreThreshold, c.Phase.ActiveThreshold)
	}
	if c.Phase.OverlapUpdate <= 0 || c.Phase.OverlapUpdate > 1 {
		return fmt.Errorf("phase.overlap_update must be in (0, 1], got %g", c.Phase.OverlapUpdate)
	}
	if c.Profile.RecentDays < 1 {
		return fmt.Errorf("profile.recent_days must be positive, got %d", c.Profile.RecentDays)
	}
	return nil
}
