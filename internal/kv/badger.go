// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package kv

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/recerr"
)

// hashSep separates hash key from field in the flat badger keyspace.
// Callers never use control characters in keys, so the namespace cannot
// collide with plain Get/Set keys.
const hashSep = "\x1f"

// badgerGCDiscardRatio is the value-log rewrite threshold. 0.5 reclaims
// files where at least half the space is stale.
const badgerGCDiscardRatio = 0.5

// badgerStore is the embedded Store backend.
type badgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
	done   chan struct{}
}

var _ Store = (*badgerStore)(nil)

func newBadgerStore(opts Options) (*badgerStore, error) {
	if opts.BadgerPath == "" {
		return nil, fmt.Errorf("badger backend requires a path")
	}
	if err := os.MkdirAll(opts.BadgerPath, 0o750); err != nil {
		return nil, fmt.Errorf("creating badger directory: %w", err)
	}

	db, err := badger.Open(badger.DefaultOptions(opts.BadgerPath).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", opts.BadgerPath, err)
	}

	s := &badgerStore{
		db:     db,
		logger: logging.With().Str("component", "kv").Str("backend", BackendBadger).Logger(),
		done:   make(chan struct{}),
	}
	if opts.GCInterval > 0 {
		go s.runGC(opts.GCInterval)
	}
	s.logger.Info().Str("path", opts.BadgerPath).Msg("Badger key-value store opened")
	return s, nil
}

// runGC rewrites stale value-log files on a fixed cadence. Repeated
// calls in one tick drain every reclaimable file; ErrNoRewrite ends the
// inner loop.
func (s *badgerStore) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(badgerGCDiscardRatio); err != nil {
					break
				}
			}
		}
	}
}

func (s *badgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, recerr.E(recerr.KindNotFound, "kv.Get", fmt.Sprintf("key %q not found", key))
	}
	if err != nil {
		return nil, recerr.Internal("kv.Get", err)
	}
	return value, nil
}

func (s *badgerStore) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return recerr.Internal("kv.Set", err)
	}
	return nil
}

func (s *badgerStore) SetEx(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return recerr.Internal("kv.SetEx", err)
	}
	return nil
}

func (s *badgerStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var acquired bool
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		switch {
		case err == nil:
			acquired = false
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			entry := badger.NewEntry([]byte(key), value)
			if ttl > 0 {
				entry = entry.WithTTL(ttl)
			}
			acquired = true
			return txn.SetEntry(entry)
		default:
			return err
		}
	})
	if err != nil {
		return false, recerr.Internal("kv.SetNX", err)
	}
	return acquired, nil
}

func (s *badgerStore) Del(_ context.Context, keys ...string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return recerr.Internal("kv.Del", err)
	}
	return nil
}

func (s *badgerStore) Incr(_ context.Context, key string) (int64, error) {
	var next int64
	err := s.db.Update(func(txn *badger.Txn) error {
		var current int64
		item, err := txn.Get([]byte(key))
		switch {
		case err == nil:
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			current, err = strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("value at %q is not an integer: %w", key, err)
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			current = 0
		default:
			return err
		}
		next = current + 1
		return txn.Set([]byte(key), []byte(strconv.FormatInt(next, 10)))
	})
	if err != nil {
		return 0, recerr.Internal("kv.Incr", err)
	}
	return next, nil
}

func (s *badgerStore) LPush(_ context.Context, key string, values ...[]byte) error {
	if len(values) == 0 {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := readList(txn, key)
		if err != nil {
			return err
		}
		// Redis LPUSH order: each value lands at the head in turn, so
		// the last argument ends up first.
		merged := make([][]byte, 0, len(values)+len(existing))
		for i := len(values) - 1; i >= 0; i-- {
			merged = append(merged, values[i])
		}
		merged = append(merged, existing...)
		return txn.Set([]byte(key), encodeList(merged))
	})
	if err != nil {
		return recerr.Internal("kv.LPush", err)
	}
	return nil
}

func (s *badgerStore) LRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	var out [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		list, err := readList(txn, key)
		if err != nil {
			return err
		}
		lo, hi, ok := normalizeRange(start, stop, int64(len(list)))
		if !ok {
			return nil
		}
		out = append(out, list[lo:hi+1]...)
		return nil
	})
	if err != nil {
		return nil, recerr.Internal("kv.LRange", err)
	}
	return out, nil
}

func (s *badgerStore) LTrim(_ context.Context, key string, start, stop int64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		list, err := readList(txn, key)
		if err != nil {
			return err
		}
		lo, hi, ok := normalizeRange(start, stop, int64(len(list)))
		if !ok {
			return txn.Delete([]byte(key))
		}
		return txn.Set([]byte(key), encodeList(list[lo:hi+1]))
	})
	if err != nil {
		return recerr.Internal("kv.LTrim", err)
	}
	return nil
}

func (s *badgerStore) HSet(_ context.Context, key, field string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key+hashSep+field), value)
	})
	if err != nil {
		return recerr.Internal("kv.HSet", err)
	}
	return nil
}

func (s *badgerStore) HGet(_ context.Context, key, field string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key + hashSep + field))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, recerr.E(recerr.KindNotFound, "kv.HGet", fmt.Sprintf("hash %q field %q not found", key, field))
	}
	if err != nil {
		return nil, recerr.Internal("kv.HGet", err)
	}
	return value, nil
}

func (s *badgerStore) HGetAll(_ context.Context, key string) (map[string][]byte, error) {
	fields := make(map[string][]byte)
	prefix := []byte(key + hashSep)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			field := string(item.Key()[len(prefix):])
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			fields[field] = value
		}
		return nil
	})
	if err != nil {
		return nil, recerr.Internal("kv.HGetAll", err)
	}
	return fields, nil
}

// Publish is a no-op for the embedded backend: in a single-binary
// deployment every interested party is already in-process and listens
// on the event bus instead.
func (s *badgerStore) Publish(_ context.Context, channel string, _ []byte) error {
	s.logger.Debug().Str("channel", channel).Msg("Publish ignored on embedded backend")
	return nil
}

func (s *badgerStore) Close() error {
	close(s.done)
	return s.db.Close()
}

// readList loads and decodes the list at key. A missing key is an empty
// list.
func readList(txn *badger.Txn, key string) ([][]byte, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw)
}

// encodeList packs elements as uint32 big-endian length prefixes
// followed by the raw bytes. Values are binary-safe.
func encodeList(elements [][]byte) []byte {
	size := 0
	for _, e := range elements {
		size += 4 + len(e)
	}
	buf := make([]byte, 0, size)
	var lenb [4]byte
	for _, e := range elements {
		binary.BigEndian.PutUint32(lenb[:], uint32(len(e)))
		buf = append(buf, lenb[:]...)
		buf = append(buf, e...)
	}
	return buf
}

func decodeList(raw []byte) ([][]byte, error) {
	var out [][]byte
	for off := 0; off < len(raw); {
		if off+4 > len(raw) {
			return nil, fmt.Errorf("truncated list header at offset %d", off)
		}
		n := int(binary.BigEndian.Uint32(raw[off : off+4]))
		off += 4
		if off+n > len(raw) {
			return nil, fmt.Errorf("truncated list element at offset %d", off)
		}
		out = append(out, raw[off:off+n])
		off += n
	}
	return out, nil
}

// normalizeRange resolves redis-style inclusive indices against a list
// of length n. ok is false when the range selects nothing.
func normalizeRange(start, stop, n int64) (lo, hi int64, ok bool) {
	if n == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
