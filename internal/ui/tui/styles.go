package tui

import "github.com/charmbracelet/lipgloss"

// Styles - стили экрана.
type Styles struct {
	App       lipgloss.Style
	Title     lipgloss.Style
	Section   lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Selected  lipgloss.Style
	Row       lipgloss.Style
	Terminal  lipgloss.Style
	Help      lipgloss.Style
	Offline   lipgloss.Style
	AlertText lipgloss.Style
}

// DefaultStyles возвращает стили по умолчанию.
func DefaultStyles() Styles {
	return Styles{
		App:       lipgloss.NewStyle().Padding(1, 2),
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1),
		Section:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).MarginTop(1),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4672")),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		Selected:  lipgloss.NewStyle().Foreground(lipgloss.Color("#EE6FF8")).Bold(true),
		Row:       lipgloss.NewStyle(),
		Terminal:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#3C3C3C")).Padding(0, 1),
		Help:      lipgloss.NewStyle().MarginTop(1),
		Offline:   lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		AlertText: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF4672")),
	}
}
