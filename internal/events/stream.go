// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	streamMaxAge     = 72 * time.Hour
	streamMaxMsgs    = 100_000
	streamDuplicates = 10 * time.Minute
)

// EnsureStream creates or updates the job stream. Idempotent; run it
// before publishers and subscribers start so wildcard subscriptions
// can bind to an existing stream.
func EnsureStream(ctx context.Context, url string) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect for stream init: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}

	cfg := jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{TopicWildcard},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      streamMaxAge,
		MaxMsgs:     streamMaxMsgs,
		Duplicates:  streamDuplicates,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		AllowDirect: true,
	}

	if _, err := js.Stream(ctx, StreamName); err == nil {
		if _, err := js.UpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("update stream %s: %w", StreamName, err)
		}
		return nil
	} else if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("check stream %s: %w", StreamName, err)
	}

	if _, err := js.CreateStream(ctx, cfg); err != nil {
		return fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	return nil
}
