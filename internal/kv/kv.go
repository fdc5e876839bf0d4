// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package kv

import (
	"context"
	"fmt"
	"time"
)

// Backend names for Options.Backend.
const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Store is the key-value contract shared by every component that needs
// ephemeral or semi-durable state: intent and retrieval caches, user
// preference vectors, pairwise weights, judgment trails and locks.
//
// Missing keys return an error of kind recerr.KindNotFound; callers
// test with recerr.IsKind rather than comparing sentinel errors.
type Store interface {
	// Get returns the value stored at key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key without expiry.
	Set(ctx context.Context, key string, value []byte) error

	// SetEx stores value at key with a time-to-live.
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores value at key only when the key does not exist,
	// returning true when the write happened. A zero ttl means no
	// expiry.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Del removes keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// Incr increments the integer stored at key by one, creating it at
	// zero first, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// LPush prepends values to the list at key, newest first.
	LPush(ctx context.Context, key string, values ...[]byte) error

	// LRange returns list elements between start and stop inclusive.
	// Negative indices count from the tail, -1 being the last element.
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	// LTrim keeps only list elements between start and stop inclusive.
	LTrim(ctx context.Context, key string, start, stop int64) error

	// HSet stores value under field in the hash at key.
	HSet(ctx context.Context, key, field string, value []byte) error

	// HGet returns the value under field in the hash at key.
	HGet(ctx context.Context, key, field string) ([]byte, error)

	// HGetAll returns every field of the hash at key. A missing hash
	// yields an empty map, not an error.
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)

	// Publish sends payload to subscribers of channel. Embedded
	// backends without remote subscribers treat this as a no-op.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Close releases backend resources.
	Close() error
}

// Options selects and tunes a Store backend.
type Options struct {
	// Backend is "badger" (default) or "redis".
	Backend string

	// BadgerPath is the on-disk directory for the embedded backend.
	BadgerPath string

	// RedisAddr, RedisPassword and RedisDB configure the shared
	// backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// GCInterval is the badger value-log GC cadence. Zero disables GC.
	GCInterval time.Duration
}

// New builds a Store for the configured backend.
func New(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendRedis:
		return newRedisStore(opts)
	case BackendBadger, "":
		return newBadgerStore(opts)
	default:
		return nil, fmt.Errorf("unknown kv backend %q", opts.Backend)
	}
}
