package inbox

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/ettsumailer/internal/model"
	"github.com/nhle/ettsumailer/internal/theme"
)

// emailItem is the list projection of one summary.
type emailItem struct {
	summary model.EmailSummary
	active  bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i emailItem) FilterValue() string { return i.summary.Subject }

// itemDelegate renders one email per line.
type itemDelegate struct {
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d itemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d itemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list row: unread marker, sender, subject, date.
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(emailItem)
	if !ok {
		return
	}

	marker := " "
	if it.summary.Unread {
		marker = "●"
	}

	date := shortDate(it.summary, d.now())
	textWidth := max(m.Width()-len([]rune(date))-6, 10)
	text := truncate(fmt.Sprintf("%s  %s", it.summary.From, it.summary.Subject), textWidth)
	if it.summary.Unread {
		text = theme.UnreadStyle.Render(text)
	}

	line := fmt.Sprintf("%s %s  %s", marker, text, theme.DimmedStyle.Render(date))

	switch {
	case index == m.Index():
		line = theme.SelectedItemStyle.Render(line)
	case it.active:
		line = theme.ActiveItemStyle.Render(line)
	default:
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// shortDate shows the time for today's mail and the day otherwise. An
// unparsable date is shown as received.
func shortDate(s model.EmailSummary, now time.Time) string {
	t := s.Time()
	if t.IsZero() {
		return s.Date
	}
	t = t.Local()
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Local().Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return t.Format("15:04")
	}
	return t.Format("Jan 02")
}

// truncate shortens s to n runes, ending with an ellipsis when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
