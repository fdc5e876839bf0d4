// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/api"
	"github.com/tomtom215/curatus/internal/catalog"
	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/core"
	"github.com/tomtom215/curatus/internal/database"
	"github.com/tomtom215/curatus/internal/embed"
	"github.com/tomtom215/curatus/internal/events"
	"github.com/tomtom215/curatus/internal/history"
	"github.com/tomtom215/curatus/internal/intent"
	"github.com/tomtom215/curatus/internal/judge"
	"github.com/tomtom215/curatus/internal/kv"
	"github.com/tomtom215/curatus/internal/lexical"
	"github.com/tomtom215/curatus/internal/llm"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/pairwise"
	"github.com/tomtom215/curatus/internal/phase"
	"github.com/tomtom215/curatus/internal/profile"
	"github.com/tomtom215/curatus/internal/recerr"
	"github.com/tomtom215/curatus/internal/rerank"
	"github.com/tomtom215/curatus/internal/retrieval"
	"github.com/tomtom215/curatus/internal/scoring"
	"github.com/tomtom215/curatus/internal/supervisor"
	"github.com/tomtom215/curatus/internal/supervisor/services"
	"github.com/tomtom215/curatus/internal/sync"
	"github.com/tomtom215/curatus/internal/vecindex"
	"github.com/tomtom215/curatus/internal/watchprov"
)

// components holds everything the supervision tree and the API depend
// on, in dependency order for shutdown.
type components struct {
	DB       *database.DB
	Store    kv.Store
	Primary  *vecindex.Primary
	Multi    *vecindex.Multi
	Lexical  *lexical.Index
	Engine   *core.Engine
	Worker   *core.JobWorker
	Enricher *catalog.Enricher
	Ingest   *catalog.Service
	Bus      *busComponents

	syncEnabled bool
	logger      zerolog.Logger
}

// newComponents wires the full pipeline bottom-up. Optional
// collaborators (LLM, lexical index, watch provider, NATS) degrade to
// nil and disable their feature.
func newComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	logger := logging.With().Str("component", "init").Logger()

	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store, err := kv.New(kv.Options{
		Backend:       cfg.KV.Backend,
		BadgerPath:    cfg.KV.BadgerPath,
		RedisAddr:     cfg.KV.RedisAddr,
		RedisPassword: cfg.KV.RedisPassword,
		RedisDB:       cfg.KV.RedisDB,
		GCInterval:    cfg.KV.GCInterval,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open kv store: %w", err)
	}
	closeOnError := func() {
		_ = store.Close()
		_ = db.Close()
	}

	encoder := embed.NewHashingEncoder(0)
	primary, multi := loadIndexes(cfg.Index, logger)

	var lexIndex *lexical.Index
	if cfg.Lexical.Enabled {
		lexIndex, err = lexical.NewIndex(lexical.Options{
			Addresses:    cfg.Lexical.Addresses,
			Username:     cfg.Lexical.Username,
			Password:     cfg.Lexical.Password,
			IndexName:    cfg.Lexical.IndexName,
			Timeout:      cfg.Lexical.Timeout,
			RetryTimeout: cfg.Lexical.RetryTimeout,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("lexical index unavailable, running dense-only")
			lexIndex = nil
		}
	}

	var completer *llm.Client
	if cfg.LLM.BaseURL != "" {
		completer = llm.NewClient(llm.Options{
			BaseURL:       cfg.LLM.BaseURL,
			APIKey:        cfg.LLM.APIKey,
			Model:         cfg.LLM.Model,
			Temperature:   cfg.LLM.Temperature,
			MaxTokens:     cfg.LLM.MaxTokens,
			RatePerSecond: cfg.LLM.RatePerSecond,
			Burst:         cfg.LLM.RateBurst,
		})
	}

	profiles := profile.NewService(db, store, encoder, cfg.Profile)
	persona := profile.NewPersona(profiles, store)
	histService := history.NewService(db)

	retrieverOpts := retrieval.Options{
		Encoder: encoder,
		Dense:   primary,
		Catalog: db,
		Fit:     profiles,
		Scorer:  profile.NewFitScorer(encoder),
		Store:   store,
		Config:  cfg.Retrieval,
	}
	if lexIndex != nil {
		retrieverOpts.Lexical = lexIndex
	}
	retriever := retrieval.New(retrieverOpts)

	var tmdb *catalog.TMDBProvider
	if cfg.Catalog.TMDBAPIKey != "" {
		tmdb, err = catalog.NewTMDBProvider(cfg.Catalog)
		if err != nil {
			logger.Warn().Err(err).Msg("tmdb provider unavailable, catalog ingest disabled")
			tmdb = nil
		}
	}

	trainerOpts := pairwise.TrainerOptions{
		DB:       db,
		Store:    store,
		Encoder:  encoder,
		Persona:  persona,
		Profiles: profiles,
		Config:   cfg.Pairwise,
	}
	if completer != nil {
		trainerOpts.Completer = completer
	}
	trainer, err := pairwise.NewTrainer(trainerOpts)
	if err != nil {
		closeOnError()
		return nil, fmt.Errorf("build pairwise trainer: %w", err)
	}

	phaseOpts := phase.Options{
		DB:      db,
		Store:   store,
		Encoder: encoder,
		Persona: persona,
		Multi:   multi,
		Config:  cfg.Phase,
	}
	if tmdb != nil {
		phaseOpts.Provider = tmdb
	}
	if completer != nil {
		phaseOpts.Completer = completer
	}
	phases, err := phase.New(phaseOpts)
	if err != nil {
		closeOnError()
		return nil, fmt.Errorf("build phase detector: %w", err)
	}

	var watchClient *watchprov.Client
	var syncer *sync.Syncer
	if cfg.WatchProvider.BaseURL != "" && cfg.WatchProvider.ClientID != "" {
		watchClient, err = watchprov.NewClient(cfg.WatchProvider)
		if err != nil {
			logger.Warn().Err(err).Msg("watch provider unavailable, sync and list writes disabled")
			watchClient = nil
		} else {
			syncer, err = sync.New(sync.Options{
				Client:  watchClient,
				History: histService,
				Ratings: db,
				Store:   store,
				Config:  cfg.Sync,
			})
			if err != nil {
				logger.Warn().Err(err).Msg("history syncer unavailable")
				syncer = nil
			}
		}
	}

	var intentCompleter intent.Completer
	if completer != nil {
		intentCompleter = completer
	}
	engineOpts := core.Options{
		Intent:    intent.New(intentCompleter, store, cfg.LLM.IntentTimeout),
		Retriever: retriever,
		Scorer:    scoring.New(cfg.Scoring),
		MMR:       rerank.NewMMR(cfg.Pairwise.DiversityLambda),
		Profiles:  profiles,
		Persona:   persona,
		History:   histService,
		Trainer:   trainer,
		Phases:    phases,
		Catalog:   db,
		Encoder:   encoder,
		Store:     store,
		Primary:   primary,
		Multi:     multi,
		Config:    *cfg,
	}
	if cfg.Judge.Enabled && completer != nil {
		engineOpts.Judge = judge.New(completer, store, cfg.Judge)
	}
	if completer != nil {
		engineOpts.Ranker = pairwise.NewRanker(completer, cfg.Pairwise)
	}
	if lexIndex != nil {
		engineOpts.Lexical = lexIndex
	}
	if watchClient != nil {
		engineOpts.Lists = watchClient
	}
	if syncer != nil {
		engineOpts.Syncer = syncer
	}

	engine, err := core.New(engineOpts)
	if err != nil {
		closeOnError()
		return nil, fmt.Errorf("compose engine: %w", err)
	}
	worker := core.NewJobWorker(engine)

	c := &components{
		DB:          db,
		Store:       store,
		Primary:     primary,
		Multi:       multi,
		Lexical:     lexIndex,
		Engine:      engine,
		Worker:      worker,
		syncEnabled: syncer != nil,
		logger:      logger,
	}

	if completer != nil {
		c.Enricher = catalog.NewEnricher(db, completer)
	}

	bus, err := initBus(ctx, cfg.NATS, worker)
	if err != nil {
		// The engine still serves requests; jobs fall back to in-process
		// dispatch.
		logger.Warn().Err(err).Msg("event bus unavailable, using direct dispatch")
		bus = nil
	}
	c.Bus = bus

	if tmdb != nil {
		if bus != nil {
			c.Ingest = catalog.NewService(db, tmdb, bus)
		} else {
			c.Ingest = catalog.NewService(db, tmdb, nil)
		}
	}

	return c, nil
}

// loadIndexes restores index snapshots, falling back to empty indexes
// on first boot.
func loadIndexes(cfg config.IndexConfig, logger zerolog.Logger) (*vecindex.Primary, *vecindex.Multi) {
	primaryOpts := vecindex.PrimaryOptions{
		Dir:            filepath.Join(cfg.Dir, "primary"),
		M:              cfg.HNSWM,
		EfConstruction: cfg.HNSWEfConstruct,
		EfSearch:       cfg.HNSWEfSearch,
	}
	primary, err := vecindex.LoadPrimary(primaryOpts)
	if err != nil {
		if !recerr.IsKind(err, recerr.KindNotFound) {
			logger.Warn().Err(err).Msg("primary index snapshot unreadable, rebuilding from scratch")
		}
		primary = vecindex.NewPrimary(primaryOpts)
	}

	multiOpts := vecindex.MultiOptions{
		Dir:            filepath.Join(cfg.Dir, "multi"),
		M:              cfg.HNSWM,
		EfConstruction: cfg.HNSWEfConstruct,
		EfSearch:       cfg.HNSWEfSearch,
	}
	multi, err := vecindex.LoadMulti(multiOpts)
	if err != nil {
		if !recerr.IsKind(err, recerr.KindNotFound) {
			logger.Warn().Err(err).Msg("aspect index snapshot unreadable, rebuilding from scratch")
		}
		multi = vecindex.NewMulti(multiOpts)
	}
	return primary, multi
}

// AddServices registers the background services on the supervision
// tree: the job router and the schedulers.
func (c *components) AddServices(tree *supervisor.Tree, cfg *config.Config) {
	if c.Bus != nil {
		tree.AddJobService(services.NewRouterService(c.Bus.Router))
	}

	if c.syncEnabled && cfg.Sync.Interval > 0 {
		tree.AddJobService(services.NewScheduler(services.SchedulerOptions{
			Name:       "history-sync",
			Interval:   cfg.Sync.Interval,
			RunAtStart: true,
			Task:       c.dispatch(events.TopicHistorySync, c.Worker.SyncHistory),
		}))
	}

	if cfg.Index.RebuildInterval > 0 {
		tree.AddDataService(services.NewScheduler(services.SchedulerOptions{
			Name:       "index-rebuild",
			Interval:   cfg.Index.RebuildInterval,
			RunAtStart: true,
			Task:       c.dispatch(events.TopicIndexRebuild, c.Worker.RebuildIndexes),
		}))
	}

	if (c.Ingest != nil || c.Enricher != nil) && cfg.Catalog.MaintenanceInterval > 0 {
		tree.AddDataService(services.NewScheduler(services.SchedulerOptions{
			Name:     "catalog-maintenance",
			Interval: cfg.Catalog.MaintenanceInterval,
			Task: func(ctx context.Context) error {
				return c.catalogMaintenance(ctx, cfg.Catalog.EnrichBatch)
			},
		}))
	}
}

// dispatch publishes a job when the bus is up, falling back to running
// the worker in-process on transient publish failures.
func (c *components) dispatch(topic string, direct func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if c.Bus != nil {
			err := c.Bus.Publisher.PublishJob(ctx, events.NewJobEvent(topic))
			if err == nil {
				return nil
			}
			if !recerr.Retryable(err) {
				return err
			}
			c.logger.Warn().Str("topic", topic).Msg("bus publish failed, running job in-process")
		}
		return direct(ctx)
	}
}

// catalogMaintenance ingests items seen in history but missing from
// the catalog, links their events, then backfills LLM item profiles.
func (c *components) catalogMaintenance(ctx context.Context, enrichBatch int) error {
	if c.Ingest != nil {
		keys, err := c.DB.UnlinkedEventKeys(ctx, 500)
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			n, err := c.Ingest.IngestBatch(ctx, keys)
			if err != nil {
				return err
			}
			if n > 0 {
				if _, err := c.DB.LinkWatchEvents(ctx); err != nil {
					return err
				}
			}
		}
	}

	if c.Enricher != nil && enrichBatch > 0 {
		if _, err := c.Enricher.EnrichPending(ctx, enrichBatch); err != nil {
			return err
		}
	}
	return nil
}

// HealthChecks probes the durable stores.
func (c *components) HealthChecks() []api.HealthCheck {
	return []api.HealthCheck{
		{Name: "database", Check: c.DB.Ping},
		{Name: "kv", Check: func(ctx context.Context) error {
			_, err := c.Store.Get(ctx, "health_probe")
			if err != nil && !recerr.IsKind(err, recerr.KindNotFound) {
				return err
			}
			return nil
		}},
	}
}

// Close tears the components down in reverse dependency order.
func (c *components) Close() {
	if c.Bus != nil {
		c.Bus.Close()
	}
	if err := c.Store.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("kv close failed")
	}
	if err := c.DB.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("database close failed")
	}
}
