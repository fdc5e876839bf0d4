// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CURATUS_CONFIG is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config/config.yaml",
	"/etc/curatus/config.yaml",
}

// ConfigPathEnvVar overrides the config file search path entirely.
const ConfigPathEnvVar = "CURATUS_CONFIG"

// defaultConfig returns the built-in defaults. Every tunable has a
// working value so a bare binary starts against local embedded stores.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        3917,
			Timeout:     30 * time.Second,
			Environment: "production",
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:                   "data/curatus.db",
			MaxMemory:              "1GB",
			Threads:                0,
			PreserveInsertionOrder: false,
		},
		KV: KVConfig{
			Backend:    "badger",
			BadgerPath: "data/kv",
			RedisAddr:  "localhost:6379",
			RedisDB:    0,
			GCInterval: 10 * time.Minute,
		},
		NATS: NATSConfig{
			Enabled:                    true,
			URL:                        "",
			EmbeddedServer:             true,
			StoreDir:                   "data/nats",
			DurableName:                "curatus-jobs",
			QueueGroup:                 "curatus-workers",
			RouterRetryCount:           3,
			RouterRetryInitialInterval: time.Second,
			RouterCloseTimeout:         30 * time.Second,
		},
		Index: IndexConfig{
			Dir:             "data/index",
			HNSWM:           32,
			HNSWEfConstruct: 300,
			HNSWEfSearch:    100,
			RebuildInterval: 6 * time.Hour,
		},
		Lexical: LexicalConfig{
			Enabled:      false,
			Addresses:    []string{"http://localhost:9200"},
			IndexName:    "curatus-candidates",
			Timeout:      5 * time.Second,
			RetryTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:       "http://localhost:11434/v1",
			Model:         "llama3.1:8b",
			Temperature:   0.2,
			MaxTokens:     2048,
			IntentTimeout: 60 * time.Second,
			JudgeTimeout:  90 * time.Second,
			RatePerSecond: 2,
			RateBurst:     4,
		},
		Catalog: CatalogConfig{
			Language:            "en-US",
			RatePerSecond:       4,
			RateBurst:           8,
			Timeout:             15 * time.Second,
			MaintenanceInterval: 30 * time.Minute,
			EnrichBatch:         50,
		},
		WatchProvider: WatchProviderConfig{
			BaseURL: "https://api.trakt.tv",
			Timeout: 15 * time.Second,
		},
		Retrieval: RetrievalConfig{
			DenseK:        30,
			LexicalK:      12,
			CacheTTL:      45 * time.Second,
			SuggestK:      25,
			SuggestMinSim: 0.45,
		},
		Scoring: ScoringConfig{
			TopKReduce:     200,
			TFIDFFeatures:  5000,
			DefaultListLen: 30,
		},
		Judge: JudgeConfig{
			Enabled:   true,
			BatchSize: 5,
		},
		Pairwise: PairwiseConfig{
			MaxPairs:        150,
			BatchSize:       12,
			Alpha:           0.08,
			Boost:           0.1,
			VectorTTL:       90 * 24 * time.Hour,
			WeightsTTL:      30 * 24 * time.Hour,
			DiversityLambda: 0.7,
		},
		Profile: ProfileConfig{
			CacheTTL:     time.Hour,
			RecentDays:   90,
			RecentWeight: 2.0,
		},
		Phase: PhaseConfig{
			WindowDays:      14,
			MinClusterSize:  2,
			Epsilon:         0.1,
			ScoreThreshold:  0.35,
			ActiveThreshold: 0.55,
			OverlapUpdate:   0.6,
			LockTTL:         10 * time.Minute,
			LookbackDays:    42,
		},
		Sync: SyncConfig{
			Interval:      time.Hour,
			PageSize:      200,
			RetryAttempts: 3,
			RetryDelay:    2 * time.Second,
		},
	}
}

// Load loads configuration with Koanf, layering defaults, an optional
// YAML file and environment variables, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults.
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file.
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	processSliceFields(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// findConfigFile returns the first existing config path. The env var
// wins even when the file it names does not exist, so a bad override
// surfaces as a load error instead of silently using another file.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config keys that accept comma-separated
// values from the environment.
var sliceConfigPaths = []string{
	"api.cors_origins",
	"lexical.addresses",
}

// processSliceFields splits comma-separated env values into slices so
// Unmarshal sees []string instead of a single joined string.
func processSliceFields(k *koanf.Koanf) {
	for _, path := range sliceConfigPaths {
		raw := k.Get(path)
		s, ok := raw.(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		_ = k.Set(path, out)
	}
}

// envTransformFunc maps environment variable names onto koanf paths.
// Only explicitly mapped variables are honored; everything else is
// ignored so unrelated environment noise cannot perturb the config.
func envTransformFunc(s string) string {
	mapping := map[string]string{
		// Server
		"HTTP_HOST":    "server.host",
		"HTTP_PORT":    "server.port",
		"HTTP_TIMEOUT": "server.timeout",
		"ENVIRONMENT":  "server.environment",

		// API
		"API_DEFAULT_PAGE_SIZE":   "api.default_page_size",
		"API_MAX_PAGE_SIZE":       "api.max_page_size",
		"API_RATE_LIMIT_REQS":     "api.rate_limit_reqs",
		"API_RATE_LIMIT_WINDOW":   "api.rate_limit_window",
		"API_RATE_LIMIT_DISABLED": "api.rate_limit_disabled",
		"CORS_ORIGINS":            "api.cors_origins",

		// Logging
		"LOG_LEVEL":  "logging.level",
		"LOG_FORMAT": "logging.format",
		"LOG_CALLER": "logging.caller",

		// Database
		"DUCKDB_PATH":       "database.path",
		"DUCKDB_MAX_MEMORY": "database.max_memory",
		"DUCKDB_THREADS":    "database.threads",

		// KV store
		"KV_BACKEND":     "kv.backend",
		"BADGER_PATH":    "kv.badger_path",
		"REDIS_ADDR":     "kv.redis_addr",
		"REDIS_PASSWORD": "kv.redis_password",
		"REDIS_DB":       "kv.redis_db",

		// NATS
		"NATS_ENABLED":         "nats.enabled",
		"NATS_URL":             "nats.url",
		"NATS_EMBEDDED_SERVER": "nats.embedded_server",
		"NATS_STORE_DIR":       "nats.store_dir",

		// Index
		"INDEX_DIR":              "index.dir",
		"HNSW_M":                 "index.hnsw_m",
		"HNSW_EF_CONSTRUCTION":   "index.hnsw_ef_construction",
		"HNSW_EF_SEARCH":         "index.hnsw_ef_search",
		"INDEX_REBUILD_INTERVAL": "index.rebuild_interval",

		// Lexical search
		"LEXICAL_ENABLED":    "lexical.enabled",
		"OPENSEARCH_URLS":    "lexical.addresses",
		"OPENSEARCH_USER":    "lexical.username",
		"OPENSEARCH_PASS":    "lexical.password",
		"LEXICAL_INDEX_NAME": "lexical.index_name",

		// LLM provider
		"LLM_BASE_URL":    "llm.base_url",
		"LLM_API_KEY":     "llm.api_key",
		"LLM_MODEL":       "llm.model",
		"LLM_TEMPERATURE": "llm.temperature",
		"LLM_MAX_TOKENS":  "llm.max_tokens",

		// Catalog provider
		"TMDB_API_KEY":  "catalog.tmdb_api_key",
		"TMDB_LANGUAGE": "catalog.language",

		// Watch provider
		"WATCH_BASE_URL":      "watch_provider.base_url",
		"WATCH_CLIENT_ID":     "watch_provider.client_id",
		"WATCH_CLIENT_SECRET": "watch_provider.client_secret",
		"WATCH_ACCESS_TOKEN":  "watch_provider.access_token",

		// Pipeline tuning
		"RETRIEVAL_DENSE_K":   "retrieval.dense_k",
		"RETRIEVAL_LEXICAL_K": "retrieval.lexical_k",
		"RETRIEVAL_CACHE_TTL": "retrieval.cache_ttl",
		"SCORING_TOPK_REDUCE": "scoring.topk_reduce",
		"JUDGE_ENABLED":       "judge.enabled",
		"JUDGE_BATCH_SIZE":    "judge.batch_size",
		"PAIRWISE_MAX_PAIRS":  "pairwise.max_pairs",
		"PAIRWISE_ALPHA":      "pairwise.alpha",

		// Personalization
		"PROFILE_CACHE_TTL":      "profile.cache_ttl",
		"PHASE_WINDOW_DAYS":      "phase.window_days",
		"PHASE_SCORE_THRESHOLD":  "phase.score_threshold",
		"PHASE_ACTIVE_THRESHOLD": "phase.active_threshold",
		"PHASE_LOCK_TTL":         "phase.lock_ttl",

		// Sync
		"SYNC_INTERVAL":  "sync.interval",
		"SYNC_PAGE_SIZE": "sync.page_size",
	}

	if mapped, ok := mapping[s]; ok {
		return mapped
	}
	// Unmapped variables are dropped.
	return ""
}
