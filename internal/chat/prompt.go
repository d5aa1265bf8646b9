// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/monkai/internal/page"
)

// Persona is the fixed start of every system prompt.
const Persona = `You are a code writing specialist AI assistant integrated into a web browser. You excel at:
- Writing clean, efficient, and well-documented code
- Debugging and fixing code issues
- Explaining technical concepts clearly
- Creating browser scripts and automation
- Web development (HTML, CSS, JavaScript)
- Using modern frameworks and libraries

Always provide working code examples when relevant. Format code blocks properly for readability.`

// ContextUnavailable stands in for page context that could not be collected.
const ContextUnavailable = "context unavailable"

// ContextFlags selects which page context goes into the prompt.
type ContextFlags struct {
	DOM     bool
	Console bool
}

// Any reports whether any context was requested.
func (f ContextFlags) Any() bool { return f.DOM || f.Console }

// BuildSystemPrompt returns the persona followed by the requested context
// sections.
func BuildSystemPrompt(flags ContextFlags, pc page.Context) string {
	var sb strings.Builder
	sb.WriteString(Persona)
	if !flags.Any() {
		return sb.String()
	}
	if flags.DOM && pc.DOMSummary != "" {
		sb.WriteString("\n\nCurrent page DOM structure (simplified):\n")
		sb.WriteString(pc.DOMSummary)
		sb.WriteString("\n")
	}
	if flags.Console && len(pc.ConsoleLogs) > 0 {
		sb.WriteString("\n\nRecent console logs:\n")
		sb.WriteString(strings.Join(pc.ConsoleLogs, "\n"))
		sb.WriteString("\n")
	}
	sb.WriteString("\nUse this context to answer questions about the current webpage.")
	return sb.String()
}

// unavailableContext is substituted when the page provider fails.
func unavailableContext() page.Context {
	return page.Context{
		DOMSummary:  ContextUnavailable,
		ConsoleLogs: []string{ContextUnavailable},
	}
}
