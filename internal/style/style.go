package style

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorPink     = lipgloss.Color("205")
	colorDarkGray = lipgloss.Color("240")
	colorCyan     = lipgloss.Color("212")
	colorGreen    = lipgloss.Color("42")
	colorRed      = lipgloss.Color("196")
)

var (
	DocStyle     = lipgloss.NewStyle().Margin(1, 2)
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	BoxStyle     = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(colorDarkGray).Padding(0, 1)
	LabelStyle   = lipgloss.NewStyle().Faint(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(colorCyan)
	SuccessStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	HelpStyle    = lipgloss.NewStyle().Faint(true)
)

// NewSpinner creates a spinner with a consistent style.
func NewSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorPink)
	return s
}
