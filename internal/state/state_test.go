package state

import "testing"

func TestLedger(t *testing.T) {
	st := New()
	if st.IsProcessed("c1") {
		t.Fatal("expected empty ledger")
	}
	st.MarkProcessed("c1")
	st.MarkProcessed("c1")
	if !st.IsProcessed("c1") {
		t.Error("expected c1 to be processed")
	}
	if len(st.ProcessedCommentIDs) != 1 {
		t.Errorf("expected 1 ledger entry, got %d", len(st.ProcessedCommentIDs))
	}
}

func TestExclude(t *testing.T) {
	st := New()
	st.Exclude("AutoModerator", " automoderator ", "", "ModBot")

	if len(st.ExcludedHandles) != 2 {
		t.Errorf("expected 2 excluded handles, got %v", st.ExcludedHandles)
	}
	if !st.IsExcluded("automoderator") || !st.IsExcluded(" MODBOT") {
		t.Error("expected case-insensitive exclusion")
	}
	if st.IsExcluded("someone") {
		t.Error("unexpected exclusion")
	}
}

func TestAddUnresolvedExactDedupe(t *testing.T) {
	st := New()
	if !st.AddUnresolved("Ghost") {
		t.Error("expected first add to be new")
	}
	if st.AddUnresolved("Ghost") {
		t.Error("expected duplicate to be skipped")
	}
	if !st.AddUnresolved("ghost") {
		t.Error("expected a different spelling to be kept")
	}
	if len(st.UnresolvedNames) != 2 {
		t.Errorf("expected 2 names, got %v", st.UnresolvedNames)
	}
}

func TestIndexFollowsDirectAssignment(t *testing.T) {
	st := &State{
		ProcessedCommentIDs: []string{"a", "b", "a"},
		ExcludedHandles:     []string{"Bot"},
	}
	if !st.IsProcessed("b") {
		t.Error("expected assigned ledger to be indexed")
	}
	if len(st.ProcessedCommentIDs) != 2 {
		t.Errorf("expected duplicates dropped, got %v", st.ProcessedCommentIDs)
	}
	if !st.IsExcluded("bot") {
		t.Error("expected assigned exclusions to be indexed")
	}
}
