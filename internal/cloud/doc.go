// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud implements the streaming chat transports for the OpenAI
// chat-completions API and the Claude messages API.
//
// A Transport sends one request and hands back the raw event-stream body on
// success; decoding the body into text is the job of package stream. Non-2xx
// responses become *APIError values that match ErrAuthFailed and
// ErrRateLimited with errors.Is.
//
// # Usage
//
//	t, err := cloud.New("claude", key, cloud.Options{Model: "claude-3-5-sonnet-20241022"})
//	body, err := t.Stream(ctx, cloud.Request{System: prompt, Messages: window})
//	defer body.Close()
//
// API keys are never logged; requests are identified by a key fingerprint.
package cloud
