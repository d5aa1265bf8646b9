// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"UserBubble", theme.UserBubble},
		{"AssistantBody", theme.AssistantBody},
		{"SystemBubble", theme.SystemBubble},
		{"InputContainer", theme.InputContainer},
		{"StatusBar", theme.StatusBar},
		{"Speaking", theme.Speaking},
	}
	for _, s := range styles {
		if !strings.Contains(s.style.Render("test"), "test") {
			t.Errorf("%s style dropped its content", s.name)
		}
	}
}

func TestToggle(t *testing.T) {
	theme := NewTheme()
	if got := theme.Toggle("DOM", true); !strings.Contains(got, "[x] DOM") {
		t.Errorf("Toggle(on) = %q", got)
	}
	if got := theme.Toggle("DOM", false); !strings.Contains(got, "[ ] DOM") {
		t.Errorf("Toggle(off) = %q", got)
	}
}

func TestRenderHelpers(t *testing.T) {
	tests := []struct {
		name   string
		render func(string) string
		marker string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.render("saved")
			if !strings.Contains(got, tt.marker+" saved") {
				t.Errorf("got %q, want marker %q", got, tt.marker)
			}
		})
	}
}
