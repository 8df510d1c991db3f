package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/TobiSchelling/MisfitCrawler/internal/member"
)

// fileState is the on-disk JSON shape.
type fileState struct {
	ProcessedAARCommentIDs []string   `json:"processedAARCommentIds"`
	ExcludedRedditIDs      []string   `json:"excludedRedditIds"`
	UnknownPlayers         []string   `json:"unknownPlayers"`
	Users                  []fileUser `json:"users"`
}

type fileUser struct {
	RedditID    string   `json:"redditId"`
	DiscordID   string   `json:"discordId"`
	Aliases     []string `json:"aliases"`
	AARCount    int      `json:"aarCount"`
	SignupCount int      `json:"signupCount"`
}

// LoadError reports a state file that could not be read. It is a soft
// failure: the state it was loading into is left untouched.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading state from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FileStore persists a State as a JSON file. The file must already exist
// before Save; use Create to make an empty one.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load replaces st's contents with the file's. On any failure a warning is
// logged, st keeps its current value and a *LoadError is returned.
func (f *FileStore) Load(st *State) error {
	snapshot, err := f.read()
	if err != nil {
		lerr := &LoadError{Path: f.path, Err: err}
		log.Printf("Warning: %v (continuing with current state)", lerr)
		return lerr
	}
	st.replace(snapshot)
	return nil
}

func (f *FileStore) read() (*State, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file")
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	var fs fileState
	if err := json.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	return decode(&fs), nil
}

// Save overwrites the file with st. The file must exist and be readable and
// writable. The new content is written to a temporary file next to it and
// renamed into place.
func (f *FileStore) Save(st *State) error {
	info, err := checkAccess(f.path)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(encode(st), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing state: %w", err)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting state file mode: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// Create writes an empty state file if none exists. Reports whether a file
// was created.
func (f *FileStore) Create() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return false, fmt.Errorf("creating state directory: %w", err)
	}
	fh, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating state file: %w", err)
	}
	defer fh.Close()

	data, err := json.MarshalIndent(encode(New()), "", "  ")
	if err != nil {
		return false, fmt.Errorf("encoding state: %w", err)
	}
	if _, err := fh.Write(append(data, '\n')); err != nil {
		return false, fmt.Errorf("writing state file: %w", err)
	}
	return true, nil
}

func checkAccess(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("state file %s does not exist or is not accessible: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("state file %s is not a regular file", path)
	}
	fh, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("state file %s is not readable/writable: %w", path, err)
	}
	fh.Close()
	return info, nil
}

func encode(st *State) *fileState {
	fs := &fileState{
		ProcessedAARCommentIDs: nonNil(st.ProcessedCommentIDs),
		ExcludedRedditIDs:      nonNil(st.ExcludedHandles),
		UnknownPlayers:         nonNil(st.UnresolvedNames),
		Users:                  make([]fileUser, 0, len(st.Members)),
	}
	for _, m := range st.Members {
		if m == nil {
			continue
		}
		fs.Users = append(fs.Users, fileUser{
			RedditID:    m.Handle,
			DiscordID:   m.SecondaryHandle,
			Aliases:     nonNil(m.Aliases),
			AARCount:    m.ReportCount,
			SignupCount: m.SignupCount,
		})
	}
	return fs
}

func decode(fs *fileState) *State {
	st := &State{
		ProcessedCommentIDs: fs.ProcessedAARCommentIDs,
		ExcludedHandles:     fs.ExcludedRedditIDs,
		UnresolvedNames:     fs.UnknownPlayers,
		Members:             make([]*member.Member, 0, len(fs.Users)),
	}
	for _, u := range fs.Users {
		st.Members = append(st.Members, &member.Member{
			Handle:          u.RedditID,
			SecondaryHandle: u.DiscordID,
			Aliases:         u.Aliases,
			ReportCount:     max(u.AARCount, 0),
			SignupCount:     max(u.SignupCount, 0),
		})
	}
	st.reindex()
	return st
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
