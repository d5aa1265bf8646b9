// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/monkai/internal/model"
)

// backends returns one instance of every backend that can run locally.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	file, err := NewFileStore(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)

	sqlite, err := NewSQLiteStore(ctx, filepath.Join(dir, "monkai.db"))
	require.NoError(t, err)

	stores := map[string]Store{"file": file, "sqlite": sqlite}
	if addr := os.Getenv("MONKAI_TEST_REDIS_ADDR"); addr != "" {
		rs, err := NewRedisStore(ctx, Options{RedisAddr: addr, RedisNamespace: "test-" + filepath.Base(dir)})
		require.NoError(t, err)
		t.Cleanup(func() { rs.rdb.Del(context.Background(), rs.Hash()) })
		stores["redis"] = rs
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

// =============================================================================
// STORE CONTRACT TESTS
// =============================================================================

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, map[string]any{
				"apiProvider": "claude",
				"ttsSpeed":    1.25,
				"enableTts":   true,
			}))

			vals, err := s.Get(ctx, "apiProvider", "ttsSpeed", "missing")
			require.NoError(t, err)
			assert.JSONEq(t, `"claude"`, string(vals["apiProvider"]))
			assert.JSONEq(t, `1.25`, string(vals["ttsSpeed"]))
			_, ok := vals["missing"]
			assert.False(t, ok, "missing key should be absent")
		})
	}
}

func TestStore_SetMerges(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, map[string]any{"a": 1, "b": 2}))
			require.NoError(t, s.Set(ctx, map[string]any{"b": 3}))

			all, err := s.Get(ctx)
			require.NoError(t, err)
			assert.JSONEq(t, `1`, string(all["a"]))
			assert.JSONEq(t, `3`, string(all["b"]))
		})
	}
}

func TestStore_EmptyKeyRejected(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Set(ctx, map[string]any{"": 1})
			assert.ErrorIs(t, err, ErrEmptyKey)
		})
	}
}

// =============================================================================
// FILE STORE TESTS
// =============================================================================

func TestFileStore_SeesExternalWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")
	a, _ := NewFileStore(path)
	b, _ := NewFileStore(path)

	require.NoError(t, a.Set(ctx, map[string]any{"model": "gpt-4o"}))
	vals, err := b.Get(ctx, "model")
	require.NoError(t, err)
	assert.JSONEq(t, `"gpt-4o"`, string(vals["model"]))
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	s, _ := NewFileStore(path)

	_, err := s.Get(context.Background())
	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "read", se.Op)
}

func TestFileStore_Closed(t *testing.T) {
	s, _ := NewFileStore(filepath.Join(t.TempDir(), "x.json"))
	require.NoError(t, s.Close())
	_, err := s.Get(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(context.Background(), map[string]any{"a": 1}), ErrClosed)
}

func TestFileStore_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, _ := NewFileStore(path)
	require.NoError(t, s.Set(context.Background(), map[string]any{"apiKey": "sk-test"}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

// =============================================================================
// OPEN TESTS
// =============================================================================

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Options{Path: filepath.Join(dir, "s.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	s.Close()

	s, err = Open(ctx, Options{Backend: "SQLite", Path: filepath.Join(dir, "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(ctx, Options{Backend: "redis"})
	assert.Error(t, err, "redis without an address should fail")
}

func TestDecode(t *testing.T) {
	s, _ := NewFileStore(filepath.Join(t.TempDir(), "x.json"))
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, map[string]any{"n": 7, "nil": nil, "bad": "str"}))
	got, err := s.Get(ctx)
	require.NoError(t, err)

	var n int
	ok, err := Decode(got, "n", &n)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	ok, err = Decode(got, "nil", &n)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Decode(got, "absent", &n)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Decode(got, "bad", &n)
	assert.Error(t, err)
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestHistory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			h := NewHistory(s)

			msgs, err := h.LoadConversation(ctx)
			require.NoError(t, err)
			assert.Empty(t, msgs)

			in := []*model.Message{
				model.NewUserMessage("What is this page?"),
				model.NewMessage(model.RoleAssistant, "A login form."),
			}
			require.NoError(t, h.SaveConversation(ctx, in))
			out, err := h.LoadConversation(ctx)
			require.NoError(t, err)
			require.Len(t, out, 2)
			assert.Equal(t, in[0].ID, out[0].ID)
			assert.Equal(t, model.RoleAssistant, out[1].Role)
			assert.Equal(t, "A login form.", out[1].Content)

			require.NoError(t, h.SavePrompts(ctx, []string{"second", "first"}))
			prompts, err := h.LoadPrompts(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"second", "first"}, prompts)

			require.NoError(t, h.SaveConversation(ctx, nil))
			out, err = h.LoadConversation(ctx)
			require.NoError(t, err)
			assert.Empty(t, out)
		})
	}
}
