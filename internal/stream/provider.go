// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Provider turns one SSE record (a single line, without its newline) into a
// text delta. ok is false when the record carries no text. err is non-nil
// only when the payload is not valid JSON.
type Provider interface {
	Name() string
	ParseRecord(line string) (delta string, ok bool, err error)
}

// ProviderFor returns the record grammar for a provider name.
func ProviderFor(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return OpenAI{}, nil
	case "claude":
		return Claude{}, nil
	default:
		return nil, fmt.Errorf("unknown stream provider %q", name)
	}
}

// =============================================================================
// OPENAI
// =============================================================================

// OpenAI parses chat-completions chunks.
type OpenAI struct{}

type openAIChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Name returns "openai".
func (OpenAI) Name() string { return "openai" }

// ParseRecord extracts choices[0].delta.content.
func (OpenAI) ParseRecord(line string) (string, bool, error) {
	payload, ok := dataPayload(line)
	if !ok || payload == doneSentinel {
		return "", false, nil
	}
	var chunk openAIChunk
	if err := sonic.UnmarshalString(payload, &chunk); err != nil {
		return "", false, err
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == nil {
		return "", false, nil
	}
	text := *chunk.Choices[0].Delta.Content
	return text, text != "", nil
}

// =============================================================================
// CLAUDE
// =============================================================================

// Claude parses messages-API stream events.
type Claude struct{}

type claudeEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Text *string `json:"text"`
	} `json:"delta"`
}

// Name returns "claude".
func (Claude) Name() string { return "claude" }

// ParseRecord yields delta.text of content_block_delta events only.
func (Claude) ParseRecord(line string) (string, bool, error) {
	payload, ok := dataPayload(line)
	if !ok {
		return "", false, nil
	}
	var ev claudeEvent
	if err := sonic.UnmarshalString(payload, &ev); err != nil {
		return "", false, err
	}
	if ev.Type != "content_block_delta" || ev.Delta == nil || ev.Delta.Text == nil {
		return "", false, nil
	}
	text := *ev.Delta.Text
	return text, text != "", nil
}

func dataPayload(line string) (string, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	return line[len(dataPrefix):], true
}
