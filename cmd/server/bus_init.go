// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/events"
	"github.com/tomtom215/curatus/internal/logging"
)

const busShutdownTimeout = 10 * time.Second

// busComponents bundles the job bus pieces: the optional embedded NATS
// server, the JetStream publisher and the handler router.
type busComponents struct {
	Server    *events.EmbeddedServer
	Publisher *events.Publisher
	Router    *events.Router
}

// initBus starts the embedded NATS server when configured, provisions
// the job stream and wires every job topic to the worker. A nil return
// with nil error means the bus is disabled by configuration.
func initBus(ctx context.Context, cfg config.NATSConfig, worker events.Worker) (*busComponents, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	logger := logging.With().Str("component", "bus").Logger()

	var server *events.EmbeddedServer
	url := cfg.URL
	if cfg.EmbeddedServer {
		var err error
		server, err = events.StartEmbeddedServer(cfg.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("start embedded nats: %w", err)
		}
		url = server.ClientURL()
	}
	if url == "" {
		shutdownServer(server)
		return nil, fmt.Errorf("nats enabled but no url configured")
	}

	if err := events.EnsureStream(ctx, url); err != nil {
		shutdownServer(server)
		return nil, fmt.Errorf("provision job stream: %w", err)
	}

	publisher, err := events.NewPublisher(url)
	if err != nil {
		shutdownServer(server)
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	subscriber, err := events.NewSubscriber(url, cfg.DurableName, cfg.QueueGroup)
	if err != nil {
		_ = publisher.Close()
		shutdownServer(server)
		return nil, fmt.Errorf("create subscriber: %w", err)
	}

	routerCfg := events.DefaultRouterConfig()
	if cfg.RouterCloseTimeout > 0 {
		routerCfg.CloseTimeout = cfg.RouterCloseTimeout
	}
	if cfg.RouterRetryCount > 0 {
		routerCfg.RetryMaxRetries = cfg.RouterRetryCount
	}
	if cfg.RouterRetryInitialInterval > 0 {
		routerCfg.RetryInitialInterval = cfg.RouterRetryInitialInterval
	}
	router, err := events.NewRouter(routerCfg, subscriber, publisher.Raw())
	if err != nil {
		_ = publisher.Close()
		shutdownServer(server)
		return nil, fmt.Errorf("create job router: %w", err)
	}
	events.RegisterHandlers(router, worker)

	logger.Info().
		Bool("embedded", cfg.EmbeddedServer).
		Str("durable", cfg.DurableName).
		Msg("job bus ready")
	return &busComponents{Server: server, Publisher: publisher, Router: router}, nil
}

// CandidatesUpserted enqueues an index rebuild after catalog writes so
// new items become searchable without waiting for the next cadence.
func (b *busComponents) CandidatesUpserted(ctx context.Context, candidateIDs []int64) error {
	if len(candidateIDs) == 0 {
		return nil
	}
	return b.Publisher.PublishJob(ctx, events.NewJobEvent(events.TopicIndexRebuild))
}

// Close stops the publisher and the embedded server. The router is
// closed by its supervised service.
func (b *busComponents) Close() {
	if err := b.Publisher.Close(); err != nil {
		logging.Warn().Err(err).Msg("publisher close failed")
	}
	shutdownServer(b.Server)
}

func shutdownServer(server *events.EmbeddedServer) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), busShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("embedded nats shutdown failed")
	}
}
