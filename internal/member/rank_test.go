package member

import "testing"

func handles(ms []*Member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Handle
	}
	return out
}

func TestRankByCounterThenHandle(t *testing.T) {
	members := []*Member{
		{Handle: "charlie", ReportCount: 1, SignupCount: 9},
		{Handle: "Bravo", ReportCount: 5},
		{Handle: "alpha", ReportCount: 5, SignupCount: 2},
		{Handle: "delta", ReportCount: 0, SignupCount: 2},
	}

	got := handles(Rank(members, Reports))
	want := []string{"alpha", "Bravo", "charlie", "delta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	got = handles(Rank(members, Signups))
	want = []string{"charlie", "alpha", "delta", "Bravo"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if members[0].Handle != "charlie" {
		t.Error("Rank must not reorder its input")
	}
}

func TestParseCounter(t *testing.T) {
	for _, s := range []string{"", "report", "AAR", "reports"} {
		if c, err := ParseCounter(s); err != nil || c != Reports {
			t.Errorf("ParseCounter(%q) = %v, %v", s, c, err)
		}
	}
	if c, err := ParseCounter("Signup"); err != nil || c != Signups {
		t.Errorf("ParseCounter(Signup) = %v, %v", c, err)
	}
	if _, err := ParseCounter("karma"); err == nil {
		t.Error("expected error for unknown counter")
	}
}

func TestPositionsShareTies(t *testing.T) {
	members := []*Member{
		{Handle: "a", SignupCount: 4},
		{Handle: "b", SignupCount: 4},
		{Handle: "c", SignupCount: 2},
		{Handle: "d", SignupCount: 2},
		{Handle: "e", SignupCount: 0},
	}

	got := Positions(Rank(members, Signups), Signups)
	want := []int{1, 1, 3, 3, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if got := Positions(nil, Reports); len(got) != 0 {
		t.Errorf("expected no positions, got %v", got)
	}
}
