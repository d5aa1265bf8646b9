// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: mutex-guarded ordered message store with one streaming slot
//   - Message: a single message with role, content and timestamp
//   - ModelInfo: a known chat model and its provider
//   - Role: user, assistant or system
//
// # Usage
//
//	conv := model.NewConversation(history)
//	conv.Append(model.NewUserMessage("What is on this page?"))
//	conv.BeginAssistant()
//	conv.ReplaceLast("It is a")
//	conv.FinalizeLast("It is a login form.")
//	conv.PersistSnapshot(ctx)
package model
