package member

import "testing"

func TestSuggestClosestAlias(t *testing.T) {
	jo := withAliases("jsmith", "Jo Smith")
	d := NewDirectory([]*Member{jo, withAliases("other", "Zulu")}, nil)

	s, ok := d.Suggest("Jo Smth")
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if s.Member != jo || s.Alias != "Jo Smith" {
		t.Errorf("expected Jo Smith, got %q via %q", s.Member.Handle, s.Alias)
	}
}

func TestSuggestNothingClose(t *testing.T) {
	d := NewDirectory([]*Member{withAliases("jsmith", "Jo Smith")}, nil)
	if _, ok := d.Suggest("qqqq"); ok {
		t.Error("expected no suggestion")
	}
	if _, ok := d.Suggest(""); ok {
		t.Error("expected no suggestion for empty name")
	}
}
