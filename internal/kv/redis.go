// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/recerr"
)

// redisStore is the shared Store backend for multi-process deployments.
type redisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

var _ Store = (*redisStore)(nil)

func newRedisStore(opts Options) (*redisStore, error) {
	if opts.RedisAddr == "" {
		return nil, fmt.Errorf("redis backend requires an address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis at %s: %w", opts.RedisAddr, err)
	}

	s := &redisStore{
		client: client,
		logger: logging.With().Str("component", "kv").Str("backend", BackendRedis).Logger(),
	}
	s.logger.Info().Str("addr", opts.RedisAddr).Int("db", opts.RedisDB).Msg("Redis key-value store connected")
	return s, nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, recerr.E(recerr.KindNotFound, "kv.Get", fmt.Sprintf("key %q not found", key))
	}
	if err != nil {
		return nil, recerr.Transient("kv.Get", err)
	}
	return value, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return recerr.Transient("kv.Set", err)
	}
	return nil
}

func (s *redisStore) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return recerr.Transient("kv.SetEx", err)
	}
	return nil
}

func (s *redisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, recerr.Transient("kv.SetNX", err)
	}
	return acquired, nil
}

func (s *redisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return recerr.Transient("kv.Del", err)
	}
	return nil
}

func (s *redisStore) Incr(ctx context.Context, key string) (int64, error) {
	next, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, recerr.Transient("kv.Incr", err)
	}
	return next, nil
}

func (s *redisStore) LPush(ctx context.Context, key string, values ...[]byte) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := s.client.LPush(ctx, key, args...).Err(); err != nil {
		return recerr.Transient("kv.LPush", err)
	}
	return nil
}

func (s *redisStore) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	elements, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, recerr.Transient("kv.LRange", err)
	}
	out := make([][]byte, len(elements))
	for i, e := range elements {
		out[i] = []byte(e)
	}
	return out, nil
}

func (s *redisStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	if err := s.client.LTrim(ctx, key, start, stop).Err(); err != nil {
		return recerr.Transient("kv.LTrim", err)
	}
	return nil
}

func (s *redisStore) HSet(ctx context.Context, key, field string, value []byte) error {
	if err := s.client.HSet(ctx, key, field, value).Err(); err != nil {
		return recerr.Transient("kv.HSet", err)
	}
	return nil
}

func (s *redisStore) HGet(ctx context.Context, key, field string) ([]byte, error) {
	value, err := s.client.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, recerr.E(recerr.KindNotFound, "kv.HGet", fmt.Sprintf("hash %q field %q not found", key, field))
	}
	if err != nil {
		return nil, recerr.Transient("kv.HGet", err)
	}
	return value, nil
}

func (s *redisStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	raw, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, recerr.Transient("kv.HGetAll", err)
	}
	fields := make(map[string][]byte, len(raw))
	for f, v := range raw {
		fields[f] = []byte(v)
	}
	return fields, nil
}

func (s *redisStore) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return recerr.Transient("kv.Publish", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
