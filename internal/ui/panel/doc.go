// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package panel is the interactive chat panel.
//
// The panel is a Bubble Tea model layered over a chat.Session. Session
// events and speech state arrive as tea.Msg values sent from the goroutine
// that produced them; every call that can emit an event runs inside a
// tea.Cmd so the event loop is never blocked on itself.
//
// Key bindings:
//
//	Enter      send the draft
//	Up/Down    step through prompt history
//	PgUp/PgDn  scroll the transcript
//	Ctrl+L     clear the conversation
//	Ctrl+R     start or stop voice input
//	Ctrl+O     toggle page DOM context
//	Ctrl+G     toggle console log context
//	Ctrl+T     toggle spoken replies
//	Esc        stop speaking
//	Ctrl+C     quit
package panel
