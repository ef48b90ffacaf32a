package ui

import "github.com/charmbracelet/lipgloss"

// Theme holds the colors and shared styles of the terminal view.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Selected lipgloss.Style
	Marked   lipgloss.Style
	Editing  lipgloss.Style
	Helper   lipgloss.Style
	Status   lipgloss.Style
}

// DefaultTheme builds the Dracula-flavored theme on the given renderer.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#F1FA8C"},
		Highlight: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Muted:     lipgloss.AdaptiveColor{Light: "#999999", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#DDDDDD", Dark: "#44475A"},
		Error:     lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
	}
	t.Base = r.NewStyle()
	t.Selected = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#E8E0FF", Dark: "#44475A"}).
		Bold(true)
	t.Marked = r.NewStyle().Foreground(t.Secondary).Underline(true)
	t.Editing = r.NewStyle().Foreground(t.Highlight)
	t.Helper = r.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Background(t.Highlight).
		Padding(0, 1)
	t.Status = r.NewStyle().Foreground(t.Subtext)
	return t
}
