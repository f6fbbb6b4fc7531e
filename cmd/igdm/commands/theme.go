package commands

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	styleHandle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleUnread = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	styleViewer = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// relativeTime renders a timestamp the way an inbox shows it.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// truncate shortens s to max runes for single-line previews.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
