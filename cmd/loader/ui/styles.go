// Package ui is the interactive terminal form of the loader.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mind-engage/mindengage-loader/internal/content"
)

var (
	ProdAccent = lipgloss.Color("#4338CA") // indigo
	BetaAccent = lipgloss.Color("#D97706") // amber

	Foreground  = lipgloss.Color("#F2F2F2")
	Muted       = lipgloss.Color("#8A8F98")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
	Destructive = lipgloss.Color("#E53935")
)

// AccentFor returns the accent colour of an environment so the operator can
// always tell which system the payload targets.
func AccentFor(env content.Environment) lipgloss.Color {
	if env == content.Beta {
		return BetaAccent
	}
	return ProdAccent
}

// Styles holds the styled components of the form.
type Styles struct {
	Accent lipgloss.Color

	Header    lipgloss.Style
	Badge     lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style

	StepDone   lipgloss.Style
	StepOpen   lipgloss.Style
	StepLocked lipgloss.Style

	Label   lipgloss.Style
	Focused lipgloss.Style
	Pending lipgloss.Style
	Ready   lipgloss.Style
	Status  lipgloss.Style
	Error   lipgloss.Style
	Help    lipgloss.Style
	Preview lipgloss.Style
}

func NewStyles(env content.Environment) Styles {
	accent := AccentFor(env)
	return Styles{
		Accent: accent,

		Header: lipgloss.NewStyle().Bold(true).Foreground(Foreground).Background(accent).Padding(0, 1),
		Badge:  lipgloss.NewStyle().Bold(true).Foreground(accent).Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1),
		Tab:    lipgloss.NewStyle().Foreground(Muted).Padding(0, 1),
		ActiveTab: lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true).
			Padding(0, 1),

		StepDone:   lipgloss.NewStyle().Foreground(Success),
		StepOpen:   lipgloss.NewStyle().Foreground(Foreground),
		StepLocked: lipgloss.NewStyle().Foreground(Muted).Faint(true),

		Label:   lipgloss.NewStyle().Foreground(Muted).Width(18),
		Focused: lipgloss.NewStyle().Bold(true).Foreground(accent),
		Pending: lipgloss.NewStyle().Foreground(Warning),
		Ready:   lipgloss.NewStyle().Bold(true).Foreground(Success),
		Status:  lipgloss.NewStyle().Italic(true).Foreground(Foreground),
		Error:   lipgloss.NewStyle().Foreground(Destructive),
		Help:    lipgloss.NewStyle().Foreground(Muted),
		Preview: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(accent).Padding(0, 1),
	}
}
