package ui

import "github.com/charmbracelet/lipgloss"

var (
	brand   = lipgloss.Color("#00A3E0")
	accent  = lipgloss.Color("#FFD100")
	good    = lipgloss.Color("#39B54A")
	bad     = lipgloss.Color("#E4002B")
	caution = lipgloss.Color("#FF8200")
	muted   = lipgloss.Color("#8A8D8F")

	bannerStyle = lipgloss.NewStyle().
			Foreground(brand).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(brand).
			Padding(0, 2)

	labelStyle   = lipgloss.NewStyle().Foreground(brand).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(accent)
	successStyle = lipgloss.NewStyle().Foreground(good).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(bad).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(caution).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(muted)
	highlight    = lipgloss.NewStyle().Foreground(accent).Bold(true)

	headerCell = lipgloss.NewStyle().Foreground(brand).Bold(true).Padding(0, 1)
	cell       = lipgloss.NewStyle().Padding(0, 1)
	numberCell = cell.Align(lipgloss.Right)
)
