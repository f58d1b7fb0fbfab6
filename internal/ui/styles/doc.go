// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors, styles and spinner animations of the
rigchat chat view.

All colors use Lip Gloss AdaptiveColor, so the same palette works on light
and dark terminals.

# Theme

	theme := styles.NewTheme(cfg.UI.Theme) // "auto", "dark" or "light"
	theme.AssistantBubble.Render(text)

"auto" asks the terminal for its background; "dark" and "light" force the
choice and also pin lipgloss's adaptive colors to it. GlamourStyle returns
the matching glamour standard style for markdown rendering.

# Spinners

PendingSpinner animates the assistant placeholder while a turn has produced
no text. PendingPlaceholder is its static form.
*/
package styles
