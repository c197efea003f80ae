package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var darkBackground = termenv.HasDarkBackground()

// pick returns the variant suited to the terminal background.
func pick(dark, light string) lipgloss.Color {
	if darkBackground {
		return lipgloss.Color(dark)
	}
	return lipgloss.Color(light)
}

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	TurnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	CardStyle = lipgloss.NewStyle().
			Foreground(pick("#FAFAFA", "#1A1A1A")).
			Bold(true)

	ActionCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	ModifierCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#96CEB4")).
				Bold(true)

	StatusActiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#96CEB4"))

	StatusOutStyle = lipgloss.NewStyle().
			Foreground(pick("#626262", "#8A8A8A"))

	StatusFlip7Style = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFD700")).
				Bold(true)

	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(pick("#626262", "#8A8A8A"))

	LogStyle = lipgloss.NewStyle().
			Foreground(pick("#FAFAFA", "#1A1A1A"))
)
