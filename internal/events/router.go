// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/curatus/internal/metrics"
	"github.com/tomtom215/curatus/internal/recerr"
)

const poisonTopic = "job.poison"

// RouterConfig tunes the Watermill middleware chain.
type RouterConfig struct {
	CloseTimeout         time.Duration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// DefaultRouterConfig returns production defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      5,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     time.Minute,
	}
}

// JobFunc handles one decoded job event. A returned error nacks the
// message and triggers the retry chain; input and data-integrity
// errors are treated as permanent and acked into the poison topic.
type JobFunc func(ctx context.Context, event *JobEvent) error

// Router dispatches job messages to handlers with panic recovery,
// exponential backoff retry, and poison routing for permanent
// failures.
type Router struct {
	router     *message.Router
	subscriber message.Subscriber
	config     RouterConfig
}

// NewRouter builds a router over the given subscriber. The poison
// publisher receives messages that exhausted retries or failed
// permanently.
func NewRouter(cfg RouterConfig, subscriber message.Subscriber, poisonPub message.Publisher) (*Router, error) {
	logger := newLogAdapter()

	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	wmRouter.AddMiddleware(middleware.Recoverer)
	wmRouter.AddMiddleware(middleware.CorrelationID)

	if poisonPub != nil {
		poison, err := middleware.PoisonQueue(poisonPub, poisonTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue: %w", err)
		}
		wmRouter.AddMiddleware(poison)
	}

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      2.0,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	return &Router{router: wmRouter, subscriber: subscriber, config: cfg}, nil
}

// Handle registers a job handler for one topic. Permanent failures
// (bad input, undecodable payloads) bypass the retry chain.
func (r *Router) Handle(name, topic string, fn JobFunc) {
	r.router.AddNoPublisherHandler(name, topic, r.subscriber,
		func(msg *message.Message) error {
			event, err := DecodeJob(msg)
			if err != nil {
				// Retrying a malformed payload cannot succeed.
				if recerr.IsKind(err, recerr.KindDataIntegrity) || recerr.IsKind(err, recerr.KindInput) {
					metrics.RecordJobFailed(topic)
					return nil
				}
				return err
			}

			start := time.Now()
			if err := fn(msg.Context(), event); err != nil {
				if recerr.IsKind(err, recerr.KindInput) {
					metrics.RecordJobFailed(topic)
					return nil
				}
				metrics.RecordJobFailed(topic)
				return err
			}
			metrics.RecordJobProcessed(topic, time.Since(start))
			return nil
		})
}

// Run blocks until the context is canceled or the router fails.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel closed once the router is up. Useful for
// startup ordering in the supervisor.
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// Close shuts the router down, waiting up to CloseTimeout for
// in-flight handlers.
func (r *Router) Close() error {
	return r.router.Close()
}
