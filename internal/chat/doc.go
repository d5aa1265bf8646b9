// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs one exchange at a time between the user and the
// selected chat provider.
//
// A Session records the prompt, collects page context when asked, streams
// the reply into the conversation and optionally speaks it. Failures never
// leave a partial assistant message behind: the placeholder is removed and
// an "Error: ..." system message takes its place.
package chat
