// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"io"
	"net/http"

	"github.com/jeranaias/monkai/internal/model"
)

// ClaudeClient streams from {base}/messages.
type ClaudeClient struct {
	base
	version string
}

// MessagesRequest is the Claude messages request body.
type MessagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
	System      string        `json:"system,omitempty"`
	Messages    []ChatMessage `json:"messages"`
}

// Provider returns "claude".
func (c *ClaudeClient) Provider() string { return ProviderClaude }

// BuildRequest returns the body sent for req. The system prompt travels in
// its own field, system-role messages are dropped, every non-assistant role
// is sent as user, and the list starts at the first user message.
func (c *ClaudeClient) BuildRequest(req Request) MessagesRequest {
	msgs := make([]ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == model.RoleSystem {
			continue
		}
		role := string(model.RoleUser)
		if m.Role == model.RoleAssistant {
			role = string(model.RoleAssistant)
		}
		if len(msgs) == 0 && role != string(model.RoleUser) {
			continue
		}
		msgs = append(msgs, ChatMessage{Role: role, Content: m.Content})
	}
	return MessagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      true,
		System:      req.System,
		Messages:    msgs,
	}
}

// Stream implements Transport.
func (c *ClaudeClient) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	return c.post(ctx, ProviderClaude, c.baseURL+"/messages", c.BuildRequest(req), func(r *http.Request) {
		r.Header.Set("x-api-key", c.apiKey)
		r.Header.Set("anthropic-version", c.version)
	})
}
