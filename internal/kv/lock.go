// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package kv

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/curatus/internal/recerr"
)

// Lock is a held SET-NX-EX advisory lock. The TTL bounds how long a
// crashed holder can block other workers; Release before expiry is the
// normal path.
type Lock struct {
	store Store
	key   string
	token []byte
}

// AcquireLock tries to take the named lock for ttl. It returns
// (nil, nil) when another holder owns the lock; callers treat that as
// "work already in progress" rather than an error.
func AcquireLock(ctx context.Context, store Store, key string, ttl time.Duration) (*Lock, error) {
	token := []byte(uuid.NewString())
	acquired, err := store.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, nil
	}
	return &Lock{store: store, key: key, token: token}, nil
}

// Release frees the lock if this holder still owns it. A lock that
// expired and was re-acquired elsewhere is left alone: the token no
// longer matches.
func (l *Lock) Release(ctx context.Context) error {
	current, err := l.store.Get(ctx, l.key)
	if recerr.IsKind(err, recerr.KindNotFound) {
		return nil // expired
	}
	if err != nil {
		return err
	}
	if !bytes.Equal(current, l.token) {
		return nil // taken over after expiry
	}
	return l.store.Del(ctx, l.key)
}

// Key returns the lock's key, for logging.
func (l *Lock) Key() string {
	return l.key
}
