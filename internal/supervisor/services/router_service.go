// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package services

import (
	"context"
	"errors"
	"fmt"
)

// JobRouter matches the event router's lifecycle.
type JobRouter interface {
	Run(ctx context.Context) error
	Close() error
}

// RouterService runs the job event router under supervision.
type RouterService struct {
	router JobRouter
}

// NewRouterService wraps the router.
func NewRouterService(router JobRouter) *RouterService {
	return &RouterService{router: router}
}

// Serve implements suture.Service. Run blocks until the context is
// canceled; Close then waits out in-flight handlers.
func (s *RouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if closeErr := s.router.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close job router: %w", closeErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *RouterService) String() string {
	return "job-router"
}
