package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	identityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	avatarStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63")).Padding(0, 1)

	badgeStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("250"))
	activeBadgeStyle = badgeStyle.Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63"))

	calmStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	urgentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle   = mutedStyle.Strikethrough(true)
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

var priorityStyles = map[string]lipgloss.Style{
	"high":   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	"medium": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	"low":    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
}
