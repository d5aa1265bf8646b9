// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"

	"github.com/jeranaias/monkai/internal/history"
	"github.com/jeranaias/monkai/internal/model"
)

// History persists the conversation and the prompt history in a Store.
// It satisfies model.Snapshotter.
type History struct {
	Store Store
}

// NewHistory wraps s.
func NewHistory(s Store) *History {
	return &History{Store: s}
}

// SaveConversation writes msgs under the conversationHistory key.
func (h *History) SaveConversation(ctx context.Context, msgs []*model.Message) error {
	if msgs == nil {
		msgs = []*model.Message{}
	}
	return h.Store.Set(ctx, map[string]any{model.SnapshotKey: msgs})
}

// LoadConversation reads the persisted conversation. A missing key yields
// an empty slice.
func (h *History) LoadConversation(ctx context.Context) ([]*model.Message, error) {
	vals, err := h.Store.Get(ctx, model.SnapshotKey)
	if err != nil {
		return nil, err
	}
	var msgs []*model.Message
	if _, err := Decode(vals, model.SnapshotKey, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SavePrompts writes the prompt history, most recent first.
func (h *History) SavePrompts(ctx context.Context, entries []string) error {
	if entries == nil {
		entries = []string{}
	}
	return h.Store.Set(ctx, map[string]any{history.StorageKey: entries})
}

// LoadPrompts reads the prompt history.
func (h *History) LoadPrompts(ctx context.Context) ([]string, error) {
	vals, err := h.Store.Get(ctx, history.StorageKey)
	if err != nil {
		return nil, err
	}
	var entries []string
	if _, err := Decode(vals, history.StorageKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
