// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jeranaias/monkai/internal/config"
)

// ErrUnavailable is returned when no page context can be collected.
var ErrUnavailable = errors.New("page context unavailable")

// DefaultTimeout bounds a single context request.
const DefaultTimeout = 10 * time.Second

// Context is what a provider reports about the current page.
type Context struct {
	DOMSummary  string
	ConsoleLogs []string
}

// Provider collects page context.
type Provider interface {
	Request(ctx context.Context) (Context, error)
}

// None is the provider used when page context is disabled.
type None struct{}

// Request always fails with ErrUnavailable.
func (None) Request(context.Context) (Context, error) {
	return Context{}, ErrUnavailable
}

// New returns the provider selected by cfg.Mode.
func New(cfg config.BrowserConfig, logger *slog.Logger) (Provider, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	switch strings.ToLower(cfg.Mode) {
	case config.BrowserChrome:
		return NewChromeProvider(ChromeOptions{
			DevToolsURL: cfg.DevToolsURL,
			TargetURL:   cfg.TargetURL,
			Timeout:     timeout,
			Logger:      logger,
		}), nil
	case config.BrowserHTTP:
		if cfg.TargetURL == "" {
			return nil, fmt.Errorf("browser mode %q needs browser.target_url", cfg.Mode)
		}
		return NewHTMLProvider(cfg.TargetURL, nil, timeout), nil
	case config.BrowserNone, "":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown browser mode %q", cfg.Mode)
	}
}

// Close releases p if it holds a connection.
func Close(p Provider) error {
	if c, ok := p.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
