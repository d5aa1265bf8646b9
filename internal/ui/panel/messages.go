// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/monkai/internal/chat"
)

// =============================================================================
// MESSAGES
// =============================================================================

// EventMsg carries a session event into the event loop.
type EventMsg chat.Event

// SpeakingMsg reports that playback started (true) or ended (false).
type SpeakingMsg bool

// sendDoneMsg is returned when an exchange has finished.
type sendDoneMsg struct{ err error }

// clearDoneMsg is returned when the conversation has been cleared.
type clearDoneMsg struct{ err error }

// togglesSavedMsg is returned after the toggles were persisted.
type togglesSavedMsg struct{ err error }

// listenStartedMsg is returned once recording started or failed to.
type listenStartedMsg struct{ err error }

// transcriptMsg carries the result of voice input.
type transcriptMsg struct {
	text string
	err  error
}

// =============================================================================
// COMMANDS
// =============================================================================

func sendCmd(ctx context.Context, s *chat.Session, text string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{err: s.Send(ctx, text)}
	}
}

func clearCmd(ctx context.Context, s *chat.Session) tea.Cmd {
	return func() tea.Msg {
		return clearDoneMsg{err: s.Clear(ctx)}
	}
}

func togglesCmd(ctx context.Context, s *chat.Session, flags chat.ContextFlags, tts bool) tea.Cmd {
	return func() tea.Msg {
		return togglesSavedMsg{err: s.SetToggles(ctx, flags, tts)}
	}
}

// stopSpeechCmd ends playback. The controller hook reports the change too;
// the returned message covers a session run without the hook.
func stopSpeechCmd(s *chat.Session) tea.Cmd {
	return func() tea.Msg {
		ctl := s.Speech()
		if ctl == nil {
			return nil
		}
		ctl.Stop()
		return SpeakingMsg(false)
	}
}

func startListenCmd(l Listener) tea.Cmd {
	return func() tea.Msg {
		return listenStartedMsg{err: l.Start()}
	}
}

func stopListenCmd(ctx context.Context, l Listener) tea.Cmd {
	return func() tea.Msg {
		text, err := l.Stop(ctx)
		return transcriptMsg{text: text, err: err}
	}
}
