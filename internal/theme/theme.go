package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/crm-timeline/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// MonthHeaderStyle renders the month section headers.
var MonthHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Underline(true).
	MarginTop(1)

// PinnedHeaderStyle renders the pinned section header.
var PinnedHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorYellow).
	MarginTop(1)

// ItemStyle is the base style for timeline entries.
var ItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// MetaStyle renders secondary per-item details (author, stage, ...).
var MetaStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	PaddingLeft(4)

// TabStyle renders an inactive filter tab.
var TabStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Padding(0, 1)

// ActiveTabStyle renders the selected filter tab.
var ActiveTabStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// HelpStyle is used for keyboard shortcut hints.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle renders user-visible error notifications.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// KindStyle returns a color-coded style for an activity kind label.
func KindStyle(kind model.ActivityKind) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch kind {
	case model.KindNote:
		return base.Foreground(ColorYellow)
	case model.KindCase:
		return base.Foreground(ColorRed)
	case model.KindDeal:
		return base.Foreground(ColorGreen)
	case model.KindEmail:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}
