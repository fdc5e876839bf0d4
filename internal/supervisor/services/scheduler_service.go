// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/logging"
)

// Scheduler runs a task on a fixed interval under supervision. Task
// failures are logged and the cadence continues; only a canceled
// context stops the loop, so a persistently failing task never
// crash-loops the tree.
type Scheduler struct {
	name       string
	interval   time.Duration
	runAtStart bool
	task       func(ctx context.Context) error
	logger     zerolog.Logger
}

// SchedulerOptions configures one scheduler.
type SchedulerOptions struct {
	// Name labels the scheduler in logs and supervisor events.
	Name string

	// Interval is the cadence between runs.
	Interval time.Duration

	// RunAtStart triggers one run immediately on startup.
	RunAtStart bool

	// Task is the work; it receives the supervision context.
	Task func(ctx context.Context) error
}

// NewScheduler builds a scheduler service.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	return &Scheduler{
		name:       opts.Name,
		interval:   opts.Interval,
		runAtStart: opts.RunAtStart,
		task:       opts.Task,
		logger:     logging.With().Str("component", "scheduler").Str("task", opts.Name).Logger(),
	}
}

// Serve implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	if s.runAtStart {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	if err := s.task(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("scheduled task failed")
		return
	}
	s.logger.Debug().Dur("elapsed", time.Since(start)).Msg("scheduled task completed")
}

// String identifies the scheduler in supervisor logs.
func (s *Scheduler) String() string {
	return "scheduler-" + s.name
}
