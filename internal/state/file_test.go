package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/TobiSchelling/MisfitCrawler/internal/member"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs := NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	if _, err := fs.Create(); err != nil {
		t.Fatalf("failed to create state file: %v", err)
	}
	return fs
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := newTestStore(t)

	st := New()
	st.MarkProcessed("c1")
	st.MarkProcessed("c2")
	st.Exclude("AutoModerator")
	st.AddUnresolved("Mystery Pilot")
	st.Members = []*member.Member{
		{Handle: "jsmith", SecondaryHandle: "jo#0420", Aliases: []string{"Jo Smith"}, ReportCount: 3, SignupCount: 5},
		{Handle: "newbie", ReportCount: 1},
	}

	if err := fs.Save(st); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded := New()
	if err := fs.Load(loaded); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	opts := cmpopts.IgnoreUnexported(State{})
	empty := cmpopts.EquateEmpty()
	if diff := cmp.Diff(st, loaded, opts, empty); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
	if !loaded.IsProcessed("c2") || !loaded.IsExcluded("automoderator") {
		t.Error("expected loaded sets to be indexed")
	}
}

func TestSaveWritesSchema(t *testing.T) {
	fs := newTestStore(t)
	st := New()
	st.Members = []*member.Member{{Handle: "solo"}}
	if err := fs.Save(st); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	data, err := os.ReadFile(fs.Path())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"processedAARCommentIds", "excludedRedditIds", "unknownPlayers", "users"} {
		if _, ok := raw[key].([]any); !ok {
			t.Errorf("expected %s to be a list, got %v", key, raw[key])
		}
	}

	user := raw["users"].([]any)[0].(map[string]any)
	if user["discordId"] != "" {
		t.Errorf("expected empty discordId string, got %v", user["discordId"])
	}
	if _, ok := user["aliases"].([]any); !ok {
		t.Errorf("expected aliases list, got %v", user["aliases"])
	}
}

func TestLoadMissingFileIsSoft(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	st := New()
	st.MarkProcessed("keep")

	err := fs.Load(st)
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}
	if !st.IsProcessed("keep") {
		t.Error("expected state to be left untouched")
	}
}

func TestLoadCorruptFileIsSoft(t *testing.T) {
	fs := newTestStore(t)
	if err := os.WriteFile(fs.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	st := New()
	st.AddUnresolved("keep")
	if err := fs.Load(st); err == nil {
		t.Fatal("expected error for corrupt file")
	}
	if len(st.UnresolvedNames) != 1 {
		t.Error("expected state to be left untouched")
	}
}

func TestLoadClampsNegativeCounters(t *testing.T) {
	fs := newTestStore(t)
	data := `{"users":[{"redditId":"x","aarCount":-2,"signupCount":4}]}`
	if err := os.WriteFile(fs.Path(), []byte(data), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	st := New()
	if err := fs.Load(st); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if st.Members[0].ReportCount != 0 || st.Members[0].SignupCount != 4 {
		t.Errorf("unexpected counters %d/%d", st.Members[0].ReportCount, st.Members[0].SignupCount)
	}
}

func TestSaveRequiresExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	fs := NewFileStore(path)

	if err := fs.Save(New()); err == nil {
		t.Fatal("expected error when the file does not exist")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("save must not create the file")
	}
}

func TestCreateKeepsExistingFile(t *testing.T) {
	fs := newTestStore(t)
	st := New()
	st.MarkProcessed("c1")
	if err := fs.Save(st); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	created, err := fs.Create()
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created {
		t.Error("expected existing file to be kept")
	}

	loaded := New()
	if err := fs.Load(loaded); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !loaded.IsProcessed("c1") {
		t.Error("expected saved content to survive Create")
	}
}
