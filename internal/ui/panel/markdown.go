// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdown renders finalized replies and caches the output per message.
// The cache is dropped when the wrap width changes.
type markdown struct {
	style string
	width int
	r     *glamour.TermRenderer
	cache map[string]string
}

func newMarkdown(style string, dark bool) *markdown {
	if style == "" {
		style = "light"
		if dark {
			style = "dark"
		}
	}
	return &markdown{style: style, cache: make(map[string]string)}
}

// render returns content as terminal markdown, or content unchanged when
// the renderer fails.
func (md *markdown) render(id, content string, width int) string {
	if width < 20 {
		width = 20
	}
	if width != md.width || md.r == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(md.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		md.r, md.width = r, width
		md.cache = make(map[string]string)
	}
	if out, ok := md.cache[id]; ok {
		return out
	}
	out, err := md.r.Render(content)
	if err != nil {
		return content
	}
	out = strings.Trim(out, "\n")
	md.cache[id] = out
	return out
}

func (md *markdown) reset() {
	md.cache = make(map[string]string)
}
