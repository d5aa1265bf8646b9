// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

import "github.com/charmbracelet/bubbles/key"

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the panel.
type KeyMap struct {
	Submit        key.Binding
	HistoryBack   key.Binding
	HistoryNext   key.Binding
	PageUp        key.Binding
	PageDown      key.Binding
	Bottom        key.Binding
	Clear         key.Binding
	Listen        key.Binding
	ToggleDOM     key.Binding
	ToggleConsole key.Binding
	ToggleTTS     key.Binding
	StopSpeech    key.Binding
	Quit          key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		HistoryBack: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("Up", "older prompt"),
		),
		HistoryNext: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("Down", "newer prompt"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("End", "latest"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear"),
		),
		Listen: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "voice"),
		),
		ToggleDOM: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "DOM"),
		),
		ToggleConsole: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "console"),
		),
		ToggleTTS: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "speech"),
		),
		StopSpeech: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "stop speaking"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Listen, k.Clear, k.ToggleDOM, k.ToggleConsole, k.ToggleTTS, k.Quit}
}
