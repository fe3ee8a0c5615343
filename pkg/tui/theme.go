package tui

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Title    lipgloss.Style
	Section  lipgloss.Style
	Muted    lipgloss.Style
	Running  lipgloss.Style
	Dead     lipgloss.Style
	Disabled lipgloss.Style
	Warn     lipgloss.Style
	Box      lipgloss.Style
}

func DefaultTheme() Theme {
	primary := lipgloss.Color("#7C3AED")
	success := lipgloss.Color("#22C55E")
	warning := lipgloss.Color("#EAB308")
	errorC := lipgloss.Color("#EF4444")
	muted := lipgloss.Color("#6B7280")

	return Theme{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(primary),
		Section:  lipgloss.NewStyle().Bold(true).Underline(true),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Running:  lipgloss.NewStyle().Foreground(success),
		Dead:     lipgloss.NewStyle().Foreground(errorC).Bold(true),
		Disabled: lipgloss.NewStyle().Foreground(muted).Strikethrough(true),
		Warn:     lipgloss.NewStyle().Foreground(warning),
		Box:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1),
	}
}
