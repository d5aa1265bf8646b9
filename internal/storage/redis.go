// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisNamespace is used when Options.RedisNamespace is empty.
const DefaultRedisNamespace = "default"

// RedisStore keeps values as fields of a single Redis hash.
type RedisStore struct {
	rdb  *redis.Client
	hash string
}

// NewRedisStore connects to opts.RedisAddr and verifies the connection.
func NewRedisStore(ctx context.Context, opts Options) (*RedisStore, error) {
	if opts.RedisAddr == "" {
		return nil, &StoreError{Op: "open", Err: errors.New("redis address is required")}
	}
	ns := opts.RedisNamespace
	if ns == "" {
		ns = DefaultRedisNamespace
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("redis ping %s: %w", opts.RedisAddr, err)}
	}
	return newRedisStore(rdb, ns), nil
}

func newRedisStore(rdb *redis.Client, namespace string) *RedisStore {
	return &RedisStore{rdb: rdb, hash: "monkai:" + namespace}
}

// Hash returns the name of the backing hash.
func (s *RedisStore) Hash() string {
	return s.hash
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage)
	if len(keys) == 0 {
		all, err := s.rdb.HGetAll(ctx, s.hash).Result()
		if err != nil {
			return nil, &StoreError{Op: "get", Err: err}
		}
		for k, v := range all {
			out[k] = json.RawMessage(v)
		}
		return out, nil
	}

	vals, err := s.rdb.HMGet(ctx, s.hash, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, &StoreError{Op: "get", Err: err}
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		out[keys[i]] = json.RawMessage(str)
	}
	return out, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, values map[string]any) error {
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}
	if len(encoded) == 0 {
		return nil
	}
	fields := make(map[string]any, len(encoded))
	for k, v := range encoded {
		fields[k] = string(v)
	}
	if err := s.rdb.HSet(ctx, s.hash, fields).Err(); err != nil {
		return &StoreError{Op: "set", Err: err}
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
