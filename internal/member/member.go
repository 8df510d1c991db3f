// Package member holds tracked community members and the directory used to
// resolve free-text names and handles to them.
package member

import "strings"

// Member is one tracked individual.
type Member struct {
	Handle          string
	SecondaryHandle string
	Aliases         []string
	ReportCount     int
	SignupCount     int
}

// New creates a member with zero counters.
func New(handle string) *Member {
	return &Member{Handle: handle}
}

// IncrementReports adds one after-action report to the member.
func (m *Member) IncrementReports() {
	m.ReportCount++
}

// IncrementSignups adds one roster sign-up to the member.
func (m *Member) IncrementSignups() {
	m.SignupCount++
}

// AddAlias appends alias unless an equal alias (after normalisation) is
// already present. Reports whether the alias was added.
func (m *Member) AddAlias(alias string) bool {
	key := normalize(alias)
	if key == "" {
		return false
	}
	for _, a := range m.Aliases {
		if normalize(a) == key {
			return false
		}
	}
	m.Aliases = append(m.Aliases, alias)
	return true
}

// String returns the member's handle.
func (m *Member) String() string {
	return m.Handle
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
