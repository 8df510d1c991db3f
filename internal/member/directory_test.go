package member

import "testing"

func withAliases(handle string, aliases ...string) *Member {
	m := New(handle)
	m.Aliases = aliases
	return m
}

func TestResolveIgnoresCaseAndWhitespace(t *testing.T) {
	d := NewDirectory([]*Member{withAliases("jsmith", "Jo Smith")}, nil)

	m, ok := d.Resolve("  jo smith (squad B)")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Handle != "jsmith" {
		t.Errorf("expected jsmith, got %q", m.Handle)
	}
}

func TestResolveAliasMustBeInsideText(t *testing.T) {
	short := NewDirectory([]*Member{withAliases("a", "smith")}, nil)
	if _, ok := short.Resolve("jsmith99"); !ok {
		t.Error("expected alias 'smith' to match 'jsmith99'")
	}

	long := NewDirectory([]*Member{withAliases("b", "jsmith100")}, nil)
	if m, ok := long.Resolve("jsmith99"); ok {
		t.Errorf("expected no match, got %q", m.Handle)
	}
}

func TestResolveFirstMemberWins(t *testing.T) {
	d := NewDirectory([]*Member{
		withAliases("first", "ace"),
		withAliases("second", "ace pilot"),
	}, nil)

	m, ok := d.Resolve("Ace Pilot")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Handle != "first" {
		t.Errorf("expected insertion order to win, got %q", m.Handle)
	}
}

func TestResolveSkipsBlankAliases(t *testing.T) {
	d := NewDirectory([]*Member{withAliases("blank", "", "   ")}, nil)
	if _, ok := d.Resolve("anyone"); ok {
		t.Error("blank aliases must not match")
	}
	if _, ok := d.Resolve("   "); ok {
		t.Error("blank text must not match")
	}
}

func TestLookupByHandle(t *testing.T) {
	m := withAliases("JSmith99", "Jo")
	m.SecondaryHandle = "jo#0420"
	d := NewDirectory([]*Member{m}, nil)

	got, ok := d.LookupByHandle("  jsmith99 ")
	if !ok || got != m {
		t.Fatal("expected handle lookup to ignore case and whitespace")
	}
	if _, ok := d.LookupByHandle("Jo"); ok {
		t.Error("aliases must not be used for handle lookup")
	}
	if _, ok := d.LookupByHandle("jo#0420"); ok {
		t.Error("secondary handle must not be used for handle lookup")
	}
}

func TestEnsureCreatesOnce(t *testing.T) {
	d := NewDirectory(nil, nil)

	a := d.Ensure("NewPilot")
	b := d.Ensure("newpilot")
	if a != b {
		t.Error("expected the same member for the same handle")
	}
	if d.Len() != 1 {
		t.Errorf("expected 1 member, got %d", d.Len())
	}
	if a.ReportCount != 0 || a.SignupCount != 0 {
		t.Error("expected zero counters on creation")
	}
}

func TestNewDirectoryMergesMapping(t *testing.T) {
	existing := withAliases("jsmith", "Jo")
	existing.ReportCount = 3

	d := NewDirectory([]*Member{existing}, Mapping{
		"JSmith":   {SecondaryHandle: "jo#0420", Aliases: []string{"jo", "Jo Smith"}},
		"newcomer": {SecondaryHandle: "nc#1", Aliases: []string{"Newbie"}},
	})

	if existing.SecondaryHandle != "jo#0420" {
		t.Errorf("expected secondary handle to be filled, got %q", existing.SecondaryHandle)
	}
	if len(existing.Aliases) != 2 {
		t.Errorf("expected duplicate alias to be skipped, got %v", existing.Aliases)
	}
	if existing.ReportCount != 3 {
		t.Error("mapping must not touch counters")
	}

	nc, ok := d.LookupByHandle("newcomer")
	if !ok {
		t.Fatal("expected mapped handle to be created")
	}
	if nc.SecondaryHandle != "nc#1" {
		t.Errorf("expected nc#1, got %q", nc.SecondaryHandle)
	}
	if m, ok := d.Resolve("the newbie"); !ok || m != nc {
		t.Error("expected mapped alias to resolve")
	}
}

func TestNewDirectoryKeepsExistingIdentity(t *testing.T) {
	m := New("pilot")
	m.SecondaryHandle = "original#1"
	NewDirectory([]*Member{m}, Mapping{"pilot": {SecondaryHandle: "other#2"}})

	if m.SecondaryHandle != "original#1" {
		t.Errorf("expected identity to stay, got %q", m.SecondaryHandle)
	}
}

func TestNewDirectoryFoldsDuplicateHandles(t *testing.T) {
	a := withAliases("Pilot", "p1")
	a.ReportCount = 2
	b := withAliases("pilot ", "p2")
	b.ReportCount = 1
	b.SignupCount = 4

	d := NewDirectory([]*Member{a, b}, nil)
	if d.Len() != 1 {
		t.Fatalf("expected 1 member, got %d", d.Len())
	}
	if a.ReportCount != 3 || a.SignupCount != 4 {
		t.Errorf("expected folded counters 3/4, got %d/%d", a.ReportCount, a.SignupCount)
	}
	if len(a.Aliases) != 2 {
		t.Errorf("expected folded aliases, got %v", a.Aliases)
	}
}

func TestAddAlias(t *testing.T) {
	m := New("x")
	if !m.AddAlias("Ghost") {
		t.Error("expected alias to be added")
	}
	if m.AddAlias(" ghost ") {
		t.Error("expected equal alias to be skipped")
	}
	if m.AddAlias("  ") {
		t.Error("expected blank alias to be skipped")
	}
}
