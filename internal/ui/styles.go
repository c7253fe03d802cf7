package ui

import "github.com/charmbracelet/lipgloss"

// Color palette - single amber accent over neutral grays.
const (
	ColorAmber    = "214" // Primary accent - cluster labels, found file
	ColorAmberDim = "172" // Dimmed amber for secondary accents
	ColorWhite    = "255" // Headers, important text
	ColorGray     = "245" // Secondary text, hints
	ColorDarkGray = "238" // Separators, off-path nodes
	ColorRed      = "196" // Errors
	ColorGreen    = "114" // Found status
)

// Styles holds the lipgloss styles for the narrowing loop.
type Styles struct {
	Header   lipgloss.Style
	Label    lipgloss.Style
	Number   lipgloss.Style
	File     lipgloss.Style
	Question lipgloss.Style
	Found    lipgloss.Style
	Error    lipgloss.Style
	Hint     lipgloss.Style
	Dim      lipgloss.Style
	Current  lipgloss.Style
}

// DefaultStyles returns the styled components for TUI mode.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Label:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAmber)),
		Number:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAmberDim)),
		File:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Question: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(ColorWhite)),
		Found:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorGreen)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Hint:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Current:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAmber)),
	}
}

// NoColorStyles returns unstyled components for NO_COLOR terminals.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header: plain, Label: plain, Number: plain, File: plain,
		Question: plain, Found: plain, Error: plain, Hint: plain,
		Dim: plain, Current: plain,
	}
}
