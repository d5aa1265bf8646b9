// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"io"
	"net/http"

	"github.com/jeranaias/monkai/internal/model"
)

// OpenAIClient streams from {base}/chat/completions.
type OpenAIClient struct {
	base
}

// ChatRequest is the chat-completions request body.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

// Provider returns "openai".
func (c *OpenAIClient) Provider() string { return ProviderOpenAI }

// BuildRequest returns the body sent for req: the system prompt followed by
// the window, roles unchanged.
func (c *OpenAIClient) BuildRequest(req Request) ChatRequest {
	msgs := make([]ChatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, ChatMessage{Role: string(model.RoleSystem), Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return ChatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      true,
	}
}

// Stream implements Transport.
func (c *OpenAIClient) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	return c.post(ctx, ProviderOpenAI, c.baseURL+"/chat/completions", c.BuildRequest(req), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+c.apiKey)
	})
}
