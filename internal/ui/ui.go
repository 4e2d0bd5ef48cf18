// Package ui provides terminal rendering helpers for the CLI.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/daybook-app/daybook/internal/schema"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	neutralStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	limitStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	syncingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// SentimentStyle returns the display style for an item or category sentiment.
func SentimentStyle(s schema.Sentiment) lipgloss.Style {
	switch s {
	case schema.SentimentPositive:
		return positiveStyle
	case schema.SentimentLimit:
		return limitStyle
	default:
		return neutralStyle
	}
}

// RenderSentiment renders a sentiment in its style.
func RenderSentiment(s schema.Sentiment) string {
	return SentimentStyle(s).Render(string(s))
}

// RenderSyncStatus renders a sync engine phase in its style.
func RenderSyncStatus(status string) string {
	switch status {
	case "syncing":
		return syncingStyle.Render(status)
	case "error":
		return errorStyle.Render(status)
	default:
		return idleStyle.Render(status)
	}
}

// RenderError renders an error message in the error style.
func RenderError(msg string) string {
	return errorStyle.Render(msg)
}

// RenderField renders a dimmed label followed by its value.
func RenderField(label, value string) string {
	return labelStyle.Render(label+":") + " " + value
}

// RenderHeader renders a bold section title with indented detail lines.
func RenderHeader(title string, fields []string) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n")
	for _, f := range fields {
		sb.WriteString("  " + f + "\n")
	}
	return sb.String()
}
