// Package mailbox is the email list model: the summaries of the last
// fetch, in server order, and the currently selected UID.
package mailbox

import "github.com/nhle/ettsumailer/internal/model"

// State describes what the list region should show.
type State int

const (
	StateIdle State = iota // nothing requested yet
	StateLoading
	StateReady
	StateEmpty
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateEmpty:
		return "empty"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Model owns the uid-indexed summaries and the selection. A failed load
// keeps the previous summaries; see Loaded.
type Model struct {
	emails   []model.EmailSummary
	index    map[uint32]int
	selected uint32
	hasSel   bool
	state    State
	err      error
	// refresh asks for another fetch once the outstanding one resolves.
	refresh bool
}

// New returns an empty model in StateIdle.
func New() *Model {
	return &Model{index: make(map[uint32]int)}
}

// BeginLoad marks a fetch as outstanding. It returns false when one is
// already in flight, in which case the caller must not issue another.
func (m *Model) BeginLoad() bool {
	if m.state == StateLoading {
		return false
	}
	m.state = StateLoading
	m.err = nil
	return true
}

// RequestRefresh starts a fetch like BeginLoad. If one is already in
// flight it records that another must follow it and returns false.
func (m *Model) RequestRefresh() bool {
	if m.BeginLoad() {
		return true
	}
	m.refresh = true
	return false
}

// TakeRefresh reports and clears a refresh recorded by RequestRefresh.
func (m *Model) TakeRefresh() bool {
	r := m.refresh
	m.refresh = false
	return r
}

// Loaded applies the result of a fetch. On success the sequence is
// replaced wholesale and the selection cleared. On failure the previous
// sequence and selection stay in the model while State reports
// StateFailed.
func (m *Model) Loaded(emails []model.EmailSummary, err error) {
	if err != nil {
		m.state = StateFailed
		m.err = err
		return
	}

	m.emails = append([]model.EmailSummary(nil), emails...)
	m.index = make(map[uint32]int, len(emails))
	for i, e := range m.emails {
		m.index[e.UID] = i
	}
	m.selected = 0
	m.hasSel = false
	m.err = nil
	if len(m.emails) == 0 {
		m.state = StateEmpty
	} else {
		m.state = StateReady
	}
}

// Select makes uid the active row and clears its unread flag locally.
// It returns false, changing nothing, if uid is not in the last loaded
// sequence.
func (m *Model) Select(uid uint32) bool {
	i, ok := m.index[uid]
	if !ok {
		return false
	}
	m.selected = uid
	m.hasSel = true
	m.emails[i].Unread = false
	return true
}

// Selected returns the active UID, if any.
func (m *Model) Selected() (uint32, bool) {
	return m.selected, m.hasSel
}

// IsActive reports whether uid is the active row.
func (m *Model) IsActive(uid uint32) bool {
	return m.hasSel && m.selected == uid
}

// Emails returns a copy of the held sequence in server order.
func (m *Model) Emails() []model.EmailSummary {
	return append([]model.EmailSummary(nil), m.emails...)
}

// Lookup returns the summary for uid.
func (m *Model) Lookup(uid uint32) (model.EmailSummary, bool) {
	i, ok := m.index[uid]
	if !ok {
		return model.EmailSummary{}, false
	}
	return m.emails[i], true
}

// Len returns the number of held summaries.
func (m *Model) Len() int {
	return len(m.emails)
}

// UnreadCount counts held summaries still flagged unread.
func (m *Model) UnreadCount() int {
	n := 0
	for _, e := range m.emails {
		if e.Unread {
			n++
		}
	}
	return n
}

// State returns the current list state.
func (m *Model) State() State {
	return m.state
}

// Err returns the error of the last failed load.
func (m *Model) Err() error {
	return m.err
}
