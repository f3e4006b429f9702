package ui

import "github.com/charmbracelet/lipgloss"

var (
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")

	Muted = lipgloss.Color("#6C7280")
	Text  = lipgloss.Color("#ECEFF4")
)

// Styles used for command output.
type Styles struct {
	Title  lipgloss.Style
	Key    lipgloss.Style
	Value  lipgloss.Style
	OK     lipgloss.Style
	Fail   lipgloss.Style
	Warn   lipgloss.Style
	Muted  lipgloss.Style
	Panel  lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Foreground(Cyan).Bold(true),
		Key:   lipgloss.NewStyle().Foreground(Muted),
		Value: lipgloss.NewStyle().Foreground(Text),
		OK:    lipgloss.NewStyle().Foreground(Green).Bold(true),
		Fail:  lipgloss.NewStyle().Foreground(Red).Bold(true),
		Warn:  lipgloss.NewStyle().Foreground(Yellow),
		Muted: lipgloss.NewStyle().Foreground(Muted).Italic(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Magenta).
			Padding(0, 1),
		Header: lipgloss.NewStyle().Foreground(Magenta).Bold(true).Padding(0, 1),
		Cell:   lipgloss.NewStyle().Foreground(Text).Padding(0, 1),
	}
}
