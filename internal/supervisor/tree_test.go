// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingService struct {
	serves atomic.Int32
}

func (s *countingService) Serve(ctx context.Context) error {
	s.serves.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return "counting" }

func TestDefaultTreeConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5.0 || cfg.FailureDecay != 30.0 {
		t.Errorf("unexpected failure params: %+v", cfg)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.ShutdownTimeout)
	}
}

func TestTreeServesAllLayers(t *testing.T) {
	t.Parallel()

	tree := NewTree(slog.New(slog.DiscardHandler), TreeConfig{})

	data := &countingService{}
	jobs := &countingService{}
	api := &countingService{}
	tree.AddDataService(data)
	tree.AddJobService(jobs)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for data.serves.Load() == 0 || jobs.serves.Load() == 0 || api.serves.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("services did not start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("tree exited with %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestTreeRestartsCrashedService(t *testing.T) {
	t.Parallel()

	tree := NewTree(slog.New(slog.DiscardHandler), TreeConfig{
		FailureBackoff: 5 * time.Millisecond,
	})

	var serves atomic.Int32
	crashing := serveFunc(func(ctx context.Context) error {
		if serves.Add(1) == 1 {
			return errors.New("crash once")
		}
		<-ctx.Done()
		return ctx.Err()
	})
	tree.AddJobService(crashing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for serves.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("service restarted %d times, want >= 2", serves.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type serveFunc func(ctx context.Context) error

func (f serveFunc) Serve(ctx context.Context) error { return f(ctx) }
func (f serveFunc) String() string                  { return "serve-func" }
