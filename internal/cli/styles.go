// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PALETTE
// =============================================================================

var (
	purple        = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	cyan          = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}
	emerald       = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	rose          = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	amber         = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	textSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(textSecondary)

	errorStyle = lipgloss.NewStyle().
			Foreground(rose).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(amber)

	// Peer bubbles, left-aligned.
	peerNameStyle = lipgloss.NewStyle().
			Foreground(emerald).
			Bold(true)

	// Your bubbles.
	selfNameStyle = lipgloss.NewStyle().
			Foreground(cyan).
			Bold(true)

	// Inner monologue line above a peer bubble.
	osStyle = lipgloss.NewStyle().
			Foreground(textSecondary).
			Italic(true)

	// System recall notices and other centered hints.
	systemStyle = lipgloss.NewStyle().
			Foreground(textSecondary)

	translationStyle = lipgloss.NewStyle().
				Foreground(textSecondary)

	quoteStyle = lipgloss.NewStyle().
			Foreground(textSecondary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(textSecondary).
			PaddingLeft(1)

	transferStyle = lipgloss.NewStyle().
			Foreground(amber).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(purple)

	noticeStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)
)
