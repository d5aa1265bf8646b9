// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html"
)

// MaxPageSize bounds how much of a fetched page is parsed.
const MaxPageSize = 5 << 20

// HTMLProvider summarizes a page fetched over HTTP. It has no console.
type HTMLProvider struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTMLProvider returns a provider for url. A nil client uses
// http.DefaultClient.
func NewHTMLProvider(url string, client *http.Client, timeout time.Duration) *HTMLProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTMLProvider{url: url, client: client, timeout: timeout}
}

// URL returns the page the provider fetches.
func (p *HTMLProvider) URL() string { return p.url }

// Request fetches the page and summarizes it.
func (p *HTMLProvider) Request(ctx context.Context) (Context, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := p.client.Do(req)
	if err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Context{}, fmt.Errorf("%w: %s returned %d", ErrUnavailable, p.url, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, MaxPageSize))
	if err != nil {
		return Context{}, fmt.Errorf("%w: parse %s: %v", ErrUnavailable, p.url, err)
	}
	return Context{DOMSummary: Summarize(doc, Title(doc), p.url)}, nil
}
