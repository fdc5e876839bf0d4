// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package config

import "time"

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config File: optional YAML config file (config.yaml)
//  3. Environment Variables: override any setting
//
// Configuration Categories:
//
//  1. Infrastructure:
//     - Database: DuckDB catalog/history store
//     - KV: key-value store backend (embedded Badger or shared Redis)
//     - NATS: background job dispatch with Watermill/NATS JetStream
//     - Server: HTTP server for the internal core API
//
//  2. Retrieval & Ranking:
//     - Index: vector index files and HNSW build parameters
//     - Lexical: OpenSearch fuzzy full-text back-end
//     - Retrieval / Scoring / Judge / Pairwise / Rerank: pipeline tuning
//
//  3. Personalization:
//     - Profile: taste profile caching
//     - Phase: viewing-phase detection thresholds
//     - Trainer: pairwise feedback vector updates
//
//  4. Providers:
//     - Catalog: TMDB metadata provider
//     - WatchProvider: Trakt-style watch history provider
//     - LLM: chat-completions endpoint shared by all LLM callers
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	API           APIConfig           `koanf:"api"`
	Logging       LoggingConfig       `koanf:"logging"`
	Database      DatabaseConfig      `koanf:"database"`
	KV            KVConfig            `koanf:"kv"`
	NATS          NATSConfig          `koanf:"nats"`
	Index         IndexConfig         `koanf:"index"`
	Lexical       LexicalConfig       `koanf:"lexical"`
	LLM           LLMConfig           `koanf:"llm"`
	Catalog       CatalogConfig       `koanf:"catalog"`
	WatchProvider WatchProviderConfig `koanf:"watch_provider"`
	Retrieval     RetrievalConfig     `koanf:"retrieval"`
	Scoring       ScoringConfig       `koanf:"scoring"`
	Judge         JudgeConfig         `koanf:"judge"`
	Pairwise      PairwiseConfig      `koanf:"pairwise"`
	Profile       ProfileConfig       `koanf:"profile"`
	Phase         PhaseConfig         `koanf:"phase"`
	Sync          SyncConfig          `koanf:"sync"`
}

// ServerConfig holds HTTP server settings for the internal core API.
//
// Environment Variables:
//   - HTTP_HOST: bind address (default: 0.0.0.0)
//   - HTTP_PORT: listen port (default: 3917)
//   - HTTP_TIMEOUT: request timeout (default: 30s)
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development or production
}

// APIConfig holds response shaping and rate limiting for the API layer.
type APIConfig struct {
	DefaultPageSize   int           `koanf:"default_page_size"`
	MaxPageSize       int           `koanf:"max_page_size"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig holds DuckDB settings for the catalog, watch history,
// pairwise sessions and phases.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"` // 0 = runtime.NumCPU()
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// KVConfig selects and tunes the key-value store used for caches,
// preference vectors, locks and notifications.
//
// Backend "badger" runs embedded and needs only a directory; "redis"
// points at a shared server for multi-process deployments.
type KVConfig struct {
	Backend       string        `koanf:"backend"` // badger or redis
	BadgerPath    string        `koanf:"badger_path"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	GCInterval    time.Duration `koanf:"gc_interval"` // badger value-log GC cadence
}

// NATSConfig holds event bus settings. The embedded server makes the
// single-binary deployment self-contained; external URLs are supported
// for shared deployments.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	DurableName    string        `koanf:"durable_name"`
	QueueGroup     string        `koanf:"queue_group"`
	// Router settings (Watermill middleware)
	RouterRetryCount           int           `koanf:"router_retry_count"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout"`
}

// IndexConfig holds vector index storage and HNSW build parameters.
type IndexConfig struct {
	Dir             string        `koanf:"dir"`
	HNSWM           int           `koanf:"hnsw_m"`               // graph degree (default 32)
	HNSWEfConstruct int           `koanf:"hnsw_ef_construction"` // build-time beam (default 300)
	HNSWEfSearch    int           `koanf:"hnsw_ef_search"`       // query-time beam (default 100)
	RebuildInterval time.Duration `koanf:"rebuild_interval"`
}

// LexicalConfig holds OpenSearch connection and query settings.
type LexicalConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Addresses    []string      `koanf:"addresses"`
	Username     string        `koanf:"username"`
	Password     string        `koanf:"password"`
	IndexName    string        `koanf:"index_name"`
	Timeout      time.Duration `koanf:"timeout"`
	RetryTimeout time.Duration `koanf:"retry_timeout"` // longer timeout for the single retry
}

// LLMConfig holds the chat-completions provider shared by the intent
// extractor, judge, pairwise ranker, persona summarizer and phase
// labeler. Per-caller timeouts follow the concurrency model: 90s for
// the judge, 60s for intent and persona.
type LLMConfig struct {
	BaseURL       string        `koanf:"base_url"`
	APIKey        string        `koanf:"api_key"`
	Model         string        `koanf:"model"`
	Temperature   float64       `koanf:"temperature"`
	MaxTokens     int           `koanf:"max_tokens"`
	IntentTimeout time.Duration `koanf:"intent_timeout"`
	JudgeTimeout  time.Duration `koanf:"judge_timeout"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	RateBurst     int           `koanf:"rate_burst"`
}

// CatalogConfig holds the TMDB metadata provider settings and the
// maintenance cadence for ingest backfill and LLM profile enrichment.
type CatalogConfig struct {
	TMDBAPIKey    string        `koanf:"tmdb_api_key"`
	Language      string        `koanf:"language"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	RateBurst     int           `koanf:"rate_burst"`
	Timeout       time.Duration `koanf:"timeout"`

	// MaintenanceInterval is the cadence of the catalog maintenance
	// pass (ingesting items seen in history, enriching profiles).
	MaintenanceInterval time.Duration `koanf:"maintenance_interval"`

	// EnrichBatch caps items profiled per maintenance pass.
	EnrichBatch int `koanf:"enrich_batch"`
}

// WatchProviderConfig holds the Trakt-style watch history provider
// settings. Auth failures degrade the affected user's features rather
// than failing the pipeline.
type WatchProviderConfig struct {
	BaseURL      string        `koanf:"base_url"`
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	AccessToken  string        `koanf:"access_token"`
	Timeout      time.Duration `koanf:"timeout"`
}

// RetrievalConfig tunes the hybrid retriever.
type RetrievalConfig struct {
	DenseK        int           `koanf:"dense_k"`         // dense hits fetched (default 30)
	LexicalK      int           `koanf:"lexical_k"`       // lexical hits fetched (default 12)
	CacheTTL      time.Duration `koanf:"cache_ttl"`       // per-user result cache (default 45s)
	SuggestK      int           `koanf:"suggest_k"`       // neighbors per list item (default 25)
	SuggestMinSim float64       `koanf:"suggest_min_sim"` // neighbor similarity floor (default 0.45)
}

// ScoringConfig tunes the scoring engine.
type ScoringConfig struct {
	TopKReduce     int `koanf:"topk_reduce"`      // quick-reduction survivor count (default 200)
	TFIDFFeatures  int `koanf:"tfidf_features"`   // vocabulary cap (default 5000)
	DefaultListLen int `koanf:"default_list_len"` // default target size (default 30)
}

// JudgeConfig tunes the optional LLM judge.
type JudgeConfig struct {
	Enabled   bool `koanf:"enabled"`
	BatchSize int  `koanf:"batch_size"` // candidates per prompt (default 5)
}

// PairwiseConfig tunes the tournament ranker and the trainer.
type PairwiseConfig struct {
	MaxPairs        int           `koanf:"max_pairs"`  // ranker pair budget (default 150)
	BatchSize       int           `koanf:"batch_size"` // pairs per prompt (default 12)
	Alpha           float64       `koanf:"alpha"`      // preference vector learning rate (default 0.08)
	Boost           float64       `koanf:"boost"`      // interpretable weight step (default 0.1)
	VectorTTL       time.Duration `koanf:"vector_ttl"` // preference vector expiry (default 90 days)
	WeightsTTL      time.Duration `koanf:"weights_ttl"`
	DiversityLambda float64       `koanf:"diversity_lambda"` // MMR lambda (default 0.7)
}

// ProfileConfig tunes taste profile construction.
type ProfileConfig struct {
	CacheTTL     time.Duration `koanf:"cache_ttl"`     // profile cache (default 1h)
	RecentDays   int           `koanf:"recent_days"`   // recency window (default 90)
	RecentWeight float64       `koanf:"recent_weight"` // recent event weight (default 2.0)
}

// PhaseConfig tunes viewing-phase detection.
type PhaseConfig struct {
	WindowDays      int           `koanf:"window_days"`      // history window (default 14)
	MinClusterSize  int           `koanf:"min_cluster_size"` // density clustering floor (default 2)
	Epsilon         float64       `koanf:"epsilon"`          // cluster selection epsilon (default 0.1)
	ScoreThreshold  float64       `koanf:"score_threshold"`  // keep threshold (default 0.35)
	ActiveThreshold float64       `koanf:"active_threshold"` // active threshold (default 0.55)
	OverlapUpdate   float64       `koanf:"overlap_update"`   // same-phase member overlap (default 0.6)
	LockTTL         time.Duration `koanf:"lock_ttl"`         // per-user detection lease (default 10m)
	LookbackDays    int           `koanf:"lookback_days"`    // prediction lookback (default 42)
}

// SyncConfig tunes watch-history synchronization.
type SyncConfig struct {
	Interval      time.Duration `koanf:"interval"`
	PageSize      int           `koanf:"page_size"`
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`

	// Users lists the household profiles to synchronize. An entry
	// without a token reuses the provider's account token.
	Users []SyncUserConfig `koanf:"users"`
}

// SyncUserConfig binds one household profile to a provider token.
type SyncUserConfig struct {
	UserID      int64  `koanf:"user_id"`
	AccessToken string `koanf:"access_token"`
}
