// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/monkai/internal/chat"
	"github.com/jeranaias/monkai/internal/model"
	"github.com/jeranaias/monkai/internal/settings"
	"github.com/jeranaias/monkai/internal/util"
)

// Rows taken by the header, the input area and the status bar.
const (
	headerHeight = 1
	inputHeight  = 2
	statusHeight = 1
)

const emptyText = "No messages yet. Ask a question about the current page."

// layout sizes the viewport and the input from the window size.
func (m *Model) layout() {
	h := m.height - headerHeight - inputHeight - statusHeight
	if h < 1 {
		h = 1
	}
	w := m.width
	if w < 1 {
		w = 1
	}
	m.viewport.Width = w
	m.viewport.Height = h

	inputWidth := m.width - len(m.input.Prompt) - 1
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth
}

// refresh re-renders the transcript, following the newest message unless
// the user has scrolled away from the bottom.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderMessages())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) render() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.renderStatus(),
	)
}

// =============================================================================
// HEADER AND STATUS BAR
// =============================================================================

// modelLabel shows a known model by name and context window, else by ID.
func modelLabel(id string) string {
	info, ok := model.GetModelInfo(id)
	if !ok {
		return id
	}
	return info.Name + " (" + info.ContextString() + ")"
}

func (m Model) renderHeader() string {
	set := m.session.Settings()
	provider := settings.ProviderLabel(set.Provider())
	parts := []string{
		m.theme.HeaderBrand.Render("monkai"),
		provider,
	}
	if m.modelName != "" {
		parts = append(parts, m.theme.HeaderModel.Render(util.TruncateWidth(modelLabel(m.modelName), 32)))
	}
	parts = append(parts,
		m.theme.Toggle("DOM", m.flags.DOM),
		m.theme.Toggle("Console", m.flags.Console),
		m.theme.Toggle("Speech", m.tts),
	)
	return m.theme.Header.Width(m.width).MaxWidth(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderStatus() string {
	var left string
	switch {
	case m.listening:
		left = m.theme.Listening.Render("* Listening (C-r to stop)")
	case m.busy:
		left = m.spinner.View() + " " + stateLabel(m.session.State())
	case m.speaking:
		left = m.theme.Speaking.Render("~ Speaking (Esc to stop)")
	}
	if m.notice != "" {
		if left != "" {
			left += "  "
		}
		left += m.notice
	}

	help := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		help = append(help, m.theme.Shortcut(h.Key, h.Desc))
	}
	right := strings.Join(help, " ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	line := left
	if gap > 0 {
		line = left + strings.Repeat(" ", gap) + right
	}
	return m.theme.StatusBar.Width(m.width).MaxWidth(m.width).Render(line)
}

func stateLabel(st chat.State) string {
	switch st {
	case chat.StateAwaitingContext:
		return "Reading page..."
	case chat.StateFinalizing:
		return "Saving..."
	}
	return "Thinking..."
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderMessages() string {
	msgs := m.session.Conversation().Messages()
	width := m.width - 2
	if width < 10 {
		width = 10
	}

	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if m.hidden[msg.ID] {
			continue
		}
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	if len(blocks) == 0 {
		return m.theme.Empty.Render(emptyText)
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg *model.Message, width int) string {
	switch msg.Role {
	case model.RoleUser:
		return m.theme.UserLabel.Render(msg.Role.DisplayName()) + "\n" +
			m.theme.UserBubble.Width(width).Render(msg.Content)

	case model.RoleAssistant:
		label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
		if !msg.Streaming {
			return label + "\n" + m.md.render(msg.ID, msg.Content, width)
		}
		if msg.IsEmpty() {
			return label + "\n" + m.spinner.View() + " " + stateLabel(m.session.State())
		}
		return label + "\n" + m.theme.AssistantBody.Width(width).Render(msg.Content+m.theme.Cursor.Render("_"))

	default:
		return m.theme.SystemBubble.Width(width).Render(msg.Content)
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
