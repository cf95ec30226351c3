package tui

import "github.com/charmbracelet/lipgloss"

var (
	nord0  = lipgloss.Color("#2E3440")
	nord2  = lipgloss.Color("#434C5E")
	nord3  = lipgloss.Color("#4C566A")
	nord4  = lipgloss.Color("#D8DEE9")
	nord8  = lipgloss.Color("#88C0D0")
	nord9  = lipgloss.Color("#81A1C1")
	nord10 = lipgloss.Color("#5E81AC")
	nord11 = lipgloss.Color("#BF616A")
	nord13 = lipgloss.Color("#EBCB8B")
	nord14 = lipgloss.Color("#A3BE8C")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(nord8)
	sectionStyle = lipgloss.NewStyle().Foreground(nord9)
	focusStyle   = lipgloss.NewStyle().Foreground(nord13)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	playedStyle  = lipgloss.NewStyle().Foreground(nord8)
	pendingStyle = lipgloss.NewStyle().Foreground(nord3)
	activeLine   = lipgloss.NewStyle().Bold(true).Foreground(nord13)
	activeWord   = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(nord14)
	errorStyle   = lipgloss.NewStyle().Foreground(nord11)
	okStyle      = lipgloss.NewStyle().Foreground(nord14)
	btnStyle     = lipgloss.NewStyle().Padding(0, 1).Foreground(nord4).Background(nord2)
	btnOnStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(nord0).Background(nord10)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(nord3).Padding(0, 1)
)
