// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/monkai/internal/model"
)

func conversation() []*model.Message {
	return []*model.Message{
		model.NewMessage(model.RoleAssistant, "earlier reply"),
		model.NewUserMessage("hi"),
		model.NewSystemMessage("Error: boom"),
		model.NewMessage(model.RoleAssistant, "hello"),
		model.NewUserMessage("what is this page?"),
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
		wantErr  error
		wantName string
	}{
		{"openai", "openai", "sk-1", nil, ProviderOpenAI},
		{"claude", "Claude", "sk-ant", nil, ProviderClaude},
		{"blank key", "openai", "  ", ErrNotConfigured, ""},
		{"unknown", "gemini", "k", ErrUnknownProvider, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.provider, tt.key, Options{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, tr.Provider())
		})
	}
}

func TestNewDefaults(t *testing.T) {
	tr, err := New(ProviderOpenAI, "sk", Options{})
	require.NoError(t, err)
	c := tr.(*OpenAIClient)
	assert.Equal(t, DefaultOpenAIURL, c.baseURL)
	assert.Equal(t, DefaultOpenAIModel, c.Model())
	assert.Equal(t, DefaultTemperature, c.temperature)
	assert.Equal(t, DefaultMaxTokens, c.maxTokens)

	tr, err = New(ProviderClaude, "sk", Options{BaseURL: "http://x/v1/", Model: "claude-3-haiku-20240307"})
	require.NoError(t, err)
	cc := tr.(*ClaudeClient)
	assert.Equal(t, "http://x/v1", cc.baseURL)
	assert.Equal(t, "claude-3-haiku-20240307", cc.Model())
	assert.Equal(t, DefaultClaudeVersion, cc.version)
}

func temp(v float64) *float64 { return &v }

func TestZeroTemperatureIsSent(t *testing.T) {
	for _, provider := range []string{ProviderOpenAI, ProviderClaude} {
		t.Run(provider, func(t *testing.T) {
			var raw map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				require.NoError(t, sonic.Unmarshal(body, &raw))
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = io.WriteString(w, "data: [DONE]\n\n")
			}))
			defer srv.Close()

			tr, err := New(provider, "sk-test", Options{BaseURL: srv.URL, Temperature: temp(0)})
			require.NoError(t, err)
			body, err := tr.Stream(context.Background(), Request{Messages: conversation()})
			require.NoError(t, err)
			_, _ = io.ReadAll(body)
			body.Close()

			require.Contains(t, raw, "temperature")
			assert.Equal(t, float64(0), raw["temperature"])
		})
	}
}

func TestOpenAIStream(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, sonic.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n\n")
	}))
	defer srv.Close()

	tr, err := New(ProviderOpenAI, "sk-test", Options{BaseURL: srv.URL, Model: "gpt-4o", Temperature: temp(0.2), MaxTokens: 100})
	require.NoError(t, err)

	body, err := tr.Stream(context.Background(), Request{System: "be brief", Messages: conversation()})
	require.NoError(t, err)
	defer body.Close()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[DONE]")

	assert.Equal(t, "gpt-4o", got.Model)
	assert.True(t, got.Stream)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, 100, got.MaxTokens)
	require.Len(t, got.Messages, 6)
	assert.Equal(t, ChatMessage{Role: "system", Content: "be brief"}, got.Messages[0])
	assert.Equal(t, ChatMessage{Role: "user", Content: "what is this page?"}, got.Messages[5])
}

func TestClaudeStream(t *testing.T) {
	var got MessagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, DefaultClaudeVersion, r.Header.Get("anthropic-version"))
		assert.Empty(t, r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, sonic.Unmarshal(body, &got))
		_, _ = io.WriteString(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	tr, err := New(ProviderClaude, "sk-ant", Options{BaseURL: srv.URL})
	require.NoError(t, err)
	body, err := tr.Stream(context.Background(), Request{System: "persona", Messages: conversation()})
	require.NoError(t, err)
	body.Close()

	assert.Equal(t, "persona", got.System)
	assert.True(t, got.Stream)
	assert.Equal(t, []ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "what is this page?"},
	}, got.Messages)
}

func TestClaudeBuildRequestOnlyAssistant(t *testing.T) {
	tr, err := New(ProviderClaude, "k", Options{})
	require.NoError(t, err)
	req := tr.(*ClaudeClient).BuildRequest(Request{Messages: []*model.Message{
		model.NewMessage(model.RoleAssistant, "orphan"),
	}})
	assert.Empty(t, req.Messages)
	assert.Empty(t, req.System)
}

func TestStreamErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`, "Incorrect API key provided", ErrAuthFailed},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"type":"rate_limit_error","message":"slow down"}}`, "slow down", ErrRateLimited},
		{"no message", http.StatusInternalServerError, `oops`, fallbackErrorMessage, nil},
		{"empty message", http.StatusBadRequest, `{"error":{"message":""}}`, fallbackErrorMessage, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			for _, provider := range []string{ProviderOpenAI, ProviderClaude} {
				tr, err := New(provider, "k", Options{BaseURL: srv.URL})
				require.NoError(t, err)
				_, err = tr.Stream(context.Background(), Request{Messages: conversation()})
				require.Error(t, err)

				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.status, apiErr.Status)
				assert.Equal(t, provider, apiErr.Provider)
				assert.Equal(t, tt.wantMsg, err.Error())
				if tt.sentinel != nil {
					assert.ErrorIs(t, err, tt.sentinel)
				} else {
					assert.False(t, errors.Is(err, ErrAuthFailed))
				}
			}
		})
	}
}

func TestStreamCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr, err := New(ProviderOpenAI, "k", Options{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = tr.Stream(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
