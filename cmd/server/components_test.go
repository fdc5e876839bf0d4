// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/logging"
)

func TestInitBusDisabled(t *testing.T) {
	t.Parallel()

	bus, err := initBus(context.Background(), config.NATSConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("initBus: %v", err)
	}
	if bus != nil {
		t.Fatal("disabled bus should be nil")
	}
}

func TestInitBusRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := initBus(context.Background(), config.NATSConfig{Enabled: true}, nil)
	if err == nil {
		t.Fatal("expected error without url or embedded server")
	}
}

func TestLoadIndexesFreshDirectories(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := config.IndexConfig{Dir: t.TempDir()}
	primary, multi := loadIndexes(cfg, logging.NewTestLogger(&buf))
	if primary == nil || multi == nil {
		t.Fatal("expected empty indexes on first boot")
	}
	if primary.Len() != 0 || multi.Len() != 0 {
		t.Errorf("fresh indexes should be empty: primary=%d multi=%d", primary.Len(), multi.Len())
	}
}
