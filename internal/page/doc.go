// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package page collects context about the web page the user is looking at.
//
// A Provider returns a simplified DOM summary and the recent console output.
// ChromeProvider attaches to a running browser over the DevTools protocol;
// HTMLProvider fetches a URL and summarizes the markup; None always reports
// ErrUnavailable. All providers share the same summarizer so the model sees
// the same shape of context regardless of source.
package page
