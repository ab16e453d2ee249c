package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tech-tracker/internal/theme"
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// RenderHeader renders the top header bar with a title on the left and the
// progress summary on the right.
func (l Layout) RenderHeader(title string, summary string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	summaryRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(summary)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		fill(theme.HeaderStyle, l.Width-lipgloss.Width(titleRendered)-lipgloss.Width(summaryRendered)),
		summaryRendered,
	)
}

// RenderStatusBar renders the bottom status bar. A non-empty notice (the
// outcome of the last action) replaces the keyboard hints.
func (l Layout) RenderStatusBar(hints string, notice string, isError bool) string {
	style := theme.StatusBarStyle
	text := hints
	if notice != "" {
		text = notice
		if isError {
			style = style.Foreground(theme.ColorRed)
		}
	}
	rendered := style.Render(text)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		rendered,
		fill(theme.StatusBarStyle, l.Width-lipgloss.Width(rendered)),
	)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}

// fill renders gap blank cells in the background of style.
func fill(style lipgloss.Style, gap int) string {
	if gap < 0 {
		gap = 0
	}
	return lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
}
