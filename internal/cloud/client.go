// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/jeranaias/monkai/internal/logging"
	"github.com/jeranaias/monkai/internal/model"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultOpenAIURL     = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4-turbo-2024-04-09"
	DefaultClaudeURL     = "https://api.anthropic.com/v1"
	DefaultClaudeModel   = "claude-3-5-sonnet-20241022"
	DefaultClaudeVersion = "2023-06-01"
	DefaultTemperature   = 0.7
	DefaultMaxTokens     = 4096

	// MaxErrorBodySize bounds how much of a failed response is read.
	MaxErrorBodySize = 1 << 20

	userAgent = "monkai/1.0"
)

// sharedStreamingClient has no timeout; the caller's context bounds each
// request.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	},
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired API key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnknownProvider is returned by New for an unsupported provider.
	ErrUnknownProvider = errors.New("unknown provider")
)

// fallbackErrorMessage is reported when a failed response has no
// error.message.
const fallbackErrorMessage = "API request failed"

// APIError is a non-2xx response from a chat endpoint.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

// Error returns the API's own message, which is what the user sees.
func (e *APIError) Error() string {
	return e.Message
}

// Is maps status codes onto the sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Status == http.StatusUnauthorized
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func readErrorResponse(provider string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
	msg := fallbackErrorMessage
	var parsed apiErrorResponse
	if err := sonic.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}
	return &APIError{Provider: provider, Status: resp.StatusCode, Message: msg}
}

// =============================================================================
// TRANSPORT
// =============================================================================

// ChatMessage is one message on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one exchange: the system prompt and the message window.
type Request struct {
	System   string
	Messages []*model.Message
}

// Transport sends a streaming chat request. On a 2xx response it returns
// the event-stream body, which the caller must close.
type Transport interface {
	Provider() string
	Model() string
	Stream(ctx context.Context, req Request) (io.ReadCloser, error)
}

// Options configures a transport. Zero values select the package defaults.
type Options struct {
	BaseURL string
	Model   string
	Version string // Claude only
	// Temperature is sent as given; nil selects DefaultTemperature.
	Temperature *float64
	MaxTokens   int
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// New creates the transport for provider.
func New(provider, apiKey string, opts Options) (Transport, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	b := base{
		apiKey:      apiKey,
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		model:       opts.Model,
		temperature: DefaultTemperature,
		maxTokens:   opts.MaxTokens,
		http:        opts.HTTPClient,
		log:         logging.OrDiscard(opts.Logger),
	}
	if b.http == nil {
		b.http = sharedStreamingClient
	}
	if opts.Temperature != nil {
		b.temperature = *opts.Temperature
	}
	if b.maxTokens == 0 {
		b.maxTokens = DefaultMaxTokens
	}

	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		if b.baseURL == "" {
			b.baseURL = DefaultOpenAIURL
		}
		if b.model == "" {
			b.model = DefaultOpenAIModel
		}
		return &OpenAIClient{base: b}, nil
	case ProviderClaude:
		if b.baseURL == "" {
			b.baseURL = DefaultClaudeURL
		}
		if b.model == "" {
			b.model = DefaultClaudeModel
		}
		version := opts.Version
		if version == "" {
			version = DefaultClaudeVersion
		}
		return &ClaudeClient{base: b, version: version}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

type base struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	http        *http.Client
	log         *slog.Logger
}

// Model returns the model the transport requests.
func (b *base) Model() string {
	return b.model
}

// KeyFingerprint returns a loggable identifier for the API key.
func (b *base) KeyFingerprint() string {
	return logging.KeyFingerprint(b.apiKey)
}

// post sends body to url and returns the response body on 2xx.
func (b *base) post(ctx context.Context, provider, url string, body any, setHeaders func(*http.Request)) (io.ReadCloser, error) {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", userAgent)
	setHeaders(req)

	b.log.Debug("chat request",
		"provider", provider, "model", b.model, "path", req.URL.Path, "key", b.KeyFingerprint())

	start := time.Now()
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	b.log.Debug("chat response", "provider", provider, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := readErrorResponse(provider, resp)
		b.log.Warn("chat request rejected", "provider", provider, "status", apiErr.Status, "message", apiErr.Message)
		return nil, apiErr
	}
	return resp.Body, nil
}
