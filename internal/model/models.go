// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes a chat model the assistant can talk to.
type ModelInfo struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Provider is "openai" or "claude"
	Provider string `json:"provider"`

	// MaxTokens is the context window size
	MaxTokens int `json:"max_tokens"`
}

// ContextString returns a formatted context window string.
func (m ModelInfo) ContextString() string {
	if m.MaxTokens >= 1000 {
		return fmt.Sprintf("%dK tokens", m.MaxTokens/1000)
	}
	return fmt.Sprintf("%d tokens", m.MaxTokens)
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// Models is the registry of known chat models keyed by ID.
var Models = map[string]ModelInfo{
	"gpt-3.5-turbo": {
		ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Provider: "openai", MaxTokens: 16385,
	},
	"gpt-4": {
		ID: "gpt-4", Name: "GPT-4", Provider: "openai", MaxTokens: 8192,
	},
	"gpt-4-turbo-2024-04-09": {
		ID: "gpt-4-turbo-2024-04-09", Name: "GPT-4 Turbo", Provider: "openai", MaxTokens: 128000,
	},
	"gpt-4o": {
		ID: "gpt-4o", Name: "GPT-4o", Provider: "openai", MaxTokens: 128000,
	},
	"gpt-4o-mini": {
		ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: "openai", MaxTokens: 128000,
	},
	"claude-3-5-sonnet-20241022": {
		ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", Provider: "claude", MaxTokens: 200000,
	},
	"claude-3-haiku-20240307": {
		ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku", Provider: "claude", MaxTokens: 200000,
	},
	"claude-3-opus-20240229": {
		ID: "claude-3-opus-20240229", Name: "Claude 3 Opus", Provider: "claude", MaxTokens: 200000,
	},
}

// =============================================================================
// MODEL LOOKUP FUNCTIONS
// =============================================================================

// GetModelInfo looks up a model by exact ID.
func GetModelInfo(id string) (ModelInfo, bool) {
	info, ok := Models[id]
	return info, ok
}

// BelongsTo reports whether id is a known model of provider.
func BelongsTo(id, provider string) bool {
	info, ok := Models[id]
	return ok && strings.EqualFold(info.Provider, provider)
}

// GetModelsByProvider returns the models of provider sorted by ID.
func GetModelsByProvider(provider string) []ModelInfo {
	result := []ModelInfo{}
	for _, info := range Models {
		if strings.EqualFold(info.Provider, provider) {
			result = append(result, info)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
