package main

import "github.com/charmbracelet/lipgloss"

// theme keeps CLI status styling in one place.
type theme struct {
	OK     lipgloss.Style
	Failed lipgloss.Style
	Warn   lipgloss.Style
	Label  lipgloss.Style
	Dim    lipgloss.Style
}

func newTheme() theme {
	return theme{
		OK:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00")),
		Failed: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000")),
		Warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF")),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}
