package member

import (
	"fmt"
	"sort"
	"strings"
)

// Counter selects which activity counter a ranking is ordered by.
type Counter int

const (
	Reports Counter = iota
	Signups
)

// ParseCounter maps a CLI word to a Counter. An empty string means Reports.
func ParseCounter(s string) (Counter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "report", "reports", "aar":
		return Reports, nil
	case "signup", "signups":
		return Signups, nil
	}
	return 0, fmt.Errorf("unknown counter %q (expected report or signup)", s)
}

func (c Counter) String() string {
	if c == Signups {
		return "signups"
	}
	return "reports"
}

// Value returns m's counter selected by c.
func (c Counter) Value(m *Member) int {
	if c == Signups {
		return m.SignupCount
	}
	return m.ReportCount
}

// Rank returns a sorted copy of members: counter descending, then handle
// ascending ignoring case, then the raw handle.
func Rank(members []*Member, by Counter) []*Member {
	out := make([]*Member, len(members))
	copy(out, members)
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := by.Value(out[i]), by.Value(out[j])
		if vi != vj {
			return vi > vj
		}
		hi, hj := strings.ToLower(out[i].Handle), strings.ToLower(out[j].Handle)
		if hi != hj {
			return hi < hj
		}
		return out[i].Handle < out[j].Handle
	})
	return out
}

// Positions numbers an already ranked slice for display. Members sharing a
// counter value share the position of the first of them.
func Positions(ranked []*Member, by Counter) []int {
	out := make([]int, len(ranked))
	for i, m := range ranked {
		if i > 0 && by.Value(m) == by.Value(ranked[i-1]) {
			out[i] = out[i-1]
			continue
		}
		out[i] = i + 1
	}
	return out
}
