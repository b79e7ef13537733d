package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ettsumailer/internal/theme"
)

// listShare is the fraction of the content width given to the list pane.
const listShare = 0.4

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

// ListWidth returns the inner width of the list pane.
func (l Layout) ListWidth() int {
	return max(int(float64(l.Width)*listShare)-2, 20)
}

// DetailWidth returns the inner width of the detail pane.
func (l Layout) DetailWidth() int {
	return max(l.Width-l.ListWidth()-4, 20)
}

// PaneHeight returns the inner height of both panes, excluding borders.
func (l Layout) PaneHeight() int {
	return max(l.ContentHeight()-2, 3)
}

// RenderPanes places the list and detail panes side by side, outlining
// the focused one.
func (l Layout) RenderPanes(list, detail string, detailFocused bool) string {
	left := theme.PaneStyle(!detailFocused).
		Width(l.ListWidth()).
		Height(l.PaneHeight()).
		Render(list)
	right := theme.PaneStyle(detailFocused).
		Width(l.DetailWidth()).
		Height(l.PaneHeight()).
		Render(detail)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

// RenderHeader renders the top header bar with a title and a status.
func (l Layout) RenderHeader(title string, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(status)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
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
