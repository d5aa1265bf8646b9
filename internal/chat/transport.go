// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log/slog"
	"net/http"

	"github.com/jeranaias/monkai/internal/cloud"
	"github.com/jeranaias/monkai/internal/config"
)

// TransportFunc builds the transport for one exchange. An empty model
// selects the configured default for provider.
type TransportFunc func(provider, apiKey, model string) (cloud.Transport, error)

// NewTransportFunc returns a TransportFunc using cfg's endpoints and request
// parameters. A nil client uses the shared streaming client.
func NewTransportFunc(cfg *config.Config, client *http.Client, logger *slog.Logger) TransportFunc {
	return func(provider, apiKey, model string) (cloud.Transport, error) {
		temperature := cfg.Chat.Temperature
		opts := cloud.Options{
			Temperature: &temperature,
			MaxTokens:   cfg.Chat.MaxTokens,
			HTTPClient:  client,
			Logger:      logger,
		}
		switch provider {
		case cloud.ProviderOpenAI:
			opts.BaseURL = cfg.OpenAI.BaseURL
			opts.Model = cfg.OpenAI.Model
		case cloud.ProviderClaude:
			opts.BaseURL = cfg.Claude.BaseURL
			opts.Model = cfg.Claude.Model
			opts.Version = cfg.Claude.Version
		}
		if model != "" {
			opts.Model = model
		}
		return cloud.New(provider, apiKey, opts)
	}
}
