// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key-value settings store monkai persists its
// preferences, conversation and prompt history, and user scripts in.
//
// # Key Types
//
//   - Store: Get/Set over JSON values keyed by name
//   - FileStore: a single JSON document written atomically
//   - SQLiteStore: a kv table in a local SQLite database
//   - RedisStore: a Redis hash, for sharing state between machines
//   - History: typed access to the conversation and prompt-history keys
//
// # Usage
//
//	store, err := storage.Open(ctx, storage.Options{Backend: "file", Path: path})
//	defer store.Close()
//	err = store.Set(ctx, map[string]any{"enableTts": true})
//	vals, err := store.Get(ctx, "enableTts")
package storage
