// Package state holds the crawl state carried between runs and its JSON
// file representation.
package state

import (
	"strings"

	"github.com/TobiSchelling/MisfitCrawler/internal/member"
)

// State is everything needed to resume crawling without double-counting
// report comments.
type State struct {
	ProcessedCommentIDs []string
	ExcludedHandles     []string
	UnresolvedNames     []string
	Members             []*member.Member

	processed map[string]struct{}
	excluded  map[string]struct{}
	unknown   map[string]struct{}
}

// New returns an empty state.
func New() *State {
	s := &State{}
	s.reindex()
	return s
}

// IsProcessed reports whether a comment was already counted.
func (s *State) IsProcessed(commentID string) bool {
	s.ensureIndex()
	_, ok := s.processed[commentID]
	return ok
}

// MarkProcessed appends a comment id to the ledger.
func (s *State) MarkProcessed(commentID string) {
	s.ensureIndex()
	if _, ok := s.processed[commentID]; ok {
		return
	}
	s.processed[commentID] = struct{}{}
	s.ProcessedCommentIDs = append(s.ProcessedCommentIDs, commentID)
}

// IsExcluded reports whether a handle is on the exclusion list. Handles are
// compared trimmed and case-insensitively.
func (s *State) IsExcluded(handle string) bool {
	s.ensureIndex()
	_, ok := s.excluded[handleKey(handle)]
	return ok
}

// Exclude adds handles to the exclusion list, skipping ones already there.
func (s *State) Exclude(handles ...string) {
	s.ensureIndex()
	for _, h := range handles {
		key := handleKey(h)
		if key == "" {
			continue
		}
		if _, ok := s.excluded[key]; ok {
			continue
		}
		s.excluded[key] = struct{}{}
		s.ExcludedHandles = append(s.ExcludedHandles, strings.TrimSpace(h))
	}
}

// AddUnresolved records a sign-up name no member matched. Names are
// deduplicated by exact string. Reports whether the name was new.
func (s *State) AddUnresolved(name string) bool {
	s.ensureIndex()
	if _, ok := s.unknown[name]; ok {
		return false
	}
	s.unknown[name] = struct{}{}
	s.UnresolvedNames = append(s.UnresolvedNames, name)
	return true
}

// replace swaps in the contents of other.
func (s *State) replace(other *State) {
	s.ProcessedCommentIDs = other.ProcessedCommentIDs
	s.ExcludedHandles = other.ExcludedHandles
	s.UnresolvedNames = other.UnresolvedNames
	s.Members = other.Members
	s.reindex()
}

// ensureIndex rebuilds the lookup sets if the exported slices were assigned
// directly.
func (s *State) ensureIndex() {
	if s.processed == nil || len(s.processed) != len(s.ProcessedCommentIDs) ||
		len(s.excluded) != len(s.ExcludedHandles) || len(s.unknown) != len(s.UnresolvedNames) {
		s.reindex()
	}
}

// reindex rebuilds the lookup sets, dropping duplicate entries.
func (s *State) reindex() {
	s.processed = make(map[string]struct{}, len(s.ProcessedCommentIDs))
	s.ProcessedCommentIDs = dedupe(s.ProcessedCommentIDs, s.processed, identity)
	s.excluded = make(map[string]struct{}, len(s.ExcludedHandles))
	s.ExcludedHandles = dedupe(s.ExcludedHandles, s.excluded, handleKey)
	s.unknown = make(map[string]struct{}, len(s.UnresolvedNames))
	s.UnresolvedNames = dedupe(s.UnresolvedNames, s.unknown, identity)
}

func dedupe(values []string, seen map[string]struct{}, key func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		k := key(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

func identity(s string) string { return s }

func handleKey(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
