// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/jeranaias/monkai/internal/util"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Store is a key-value store of JSON values.
//
// Get returns the raw values of the requested keys; missing keys are absent
// from the map. With no keys it returns every stored value. Set merges the
// given values into the store.
type Store interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, values map[string]any) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string

	// Path is the JSON file (file) or database file (sqlite).
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// RedisNamespace names the hash, stored as "monkai:<namespace>".
	RedisNamespace string
}

// DefaultPath returns the default location for a file-based backend.
func DefaultPath(backend string) string {
	switch backend {
	case BackendSQLite:
		return filepath.Join(util.HomeDir(), "monkai.db")
	default:
		return filepath.Join(util.HomeDir(), "settings.json")
	}
}

// Open creates the store named by opts.Backend. An empty backend means file.
func Open(ctx context.Context, opts Options) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendFile
	}
	path := opts.Path
	if path == "" {
		path = DefaultPath(backend)
	}

	switch backend {
	case BackendFile:
		return NewFileStore(path)
	case BackendSQLite:
		return NewSQLiteStore(ctx, path)
	case BackendRedis:
		return NewRedisStore(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// Decode unmarshals vals[key] into v. It reports false when the key is
// missing or holds JSON null.
func Decode(vals map[string]json.RawMessage, key string, v any) (bool, error) {
	raw, ok := vals[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := sonic.Unmarshal(raw, v); err != nil {
		return false, &StoreError{Op: "decode", Key: key, Err: err}
	}
	return true, nil
}

func encodeValues(values map[string]any) (map[string][]byte, error) {
	out := make(map[string][]byte, len(values))
	for k, v := range values {
		if k == "" {
			return nil, ErrEmptyKey
		}
		data, err := sonic.Marshal(v)
		if err != nil {
			return nil, &StoreError{Op: "encode", Key: k, Err: err}
		}
		out[k] = data
	}
	return out, nil
}
