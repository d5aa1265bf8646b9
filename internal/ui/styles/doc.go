// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the monkai panel.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Colors (colors.go)

  - Purple - Brand accent and assistant replies
  - Cyan - Prompt and user messages
  - Emerald - Enabled toggles
  - Amber - Notices and the speaking indicator
  - Rose - Errors and the listening indicator

The Render helpers pair each status color with an ASCII marker so the state
reads in monochrome terminals:

	fmt.Println(styles.RenderSuccess("Settings saved"))
	fmt.Println(styles.RenderError("API key is required"))

# Theme (theme.go)

Theme holds the composed lipgloss styles for the panel. Create one with
NewTheme, which probes the terminal color profile through termenv.

	theme := styles.NewTheme()
	header := theme.Header.Render("monkai")
*/
package styles
