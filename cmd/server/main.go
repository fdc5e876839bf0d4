// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package main is the Curatus server entry point.
//
// Curatus is the recommendation core of a personal media service: it
// turns a household's watch history and free-text prompts into ranked
// movie and show lists. The binary is self-contained; DuckDB, Badger,
// the vector indexes and (optionally) an embedded NATS server all run
// in-process.
//
// Startup wires the components bottom-up (storage, indexes, LLM
// pipeline, core engine, event bus, HTTP API) and hands the
// long-running pieces to a suture supervision tree. SIGINT/SIGTERM
// cancel the root context for graceful shutdown.
//
// @title Curatus API
// @version 1.0
// @description Personal media recommendation and taste analytics API
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/curatus/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /api/v1
// @schemes http
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	_ "github.com/tomtom215/curatus/docs" // generated swagger document

	"github.com/tomtom215/curatus/internal/api"
	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/supervisor"
	"github.com/tomtom215/curatus/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.With().Str("component", "main").Logger()
	logger.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("starting curatus")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := newComponents(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize components: %w", err)
	}
	defer comps.Close()

	handler := api.NewHandler(comps.Engine, comps.HealthChecks()...)
	httpServer := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.NewRouter(handler, api.RouterOptions{
			CORSOrigins:       cfg.API.CORSOrigins,
			RateLimitReqs:     cfg.API.RateLimitReqs,
			RateLimitWindow:   cfg.API.RateLimitWindow,
			RateLimitDisabled: cfg.API.RateLimitDisabled,
		}),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPService(httpServer, cfg.Server.Timeout))
	comps.AddServices(tree, cfg)

	logger.Info().Msg("supervision tree assembled")
	err = tree.Serve(ctx)
	if err != nil && ctx.Err() != nil {
		// Signal-driven shutdown is the expected exit path.
		err = nil
	}

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logger.Warn().Str("service", svc.Name).Msg("service missed shutdown timeout")
		}
	}
	logger.Info().Msg("curatus stopped")
	return err
}
