// Package aggregate counts member activity found in submissions: report
// comments on after-action reports and roster slots on event posts.
package aggregate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/TobiSchelling/MisfitCrawler/internal/collect"
	"github.com/TobiSchelling/MisfitCrawler/internal/member"
	"github.com/TobiSchelling/MisfitCrawler/internal/signup"
	"github.com/TobiSchelling/MisfitCrawler/internal/state"
)

const deletedAuthor = "[deleted]"

// Options configures the queries and matching used by the flows.
type Options struct {
	ReportQuery  string
	ReportMarker string
	SignupQuery  string
	SignupFlair  string // when set, flaired submissions must carry it
	Extractor    signup.Extractor
	Debug        bool
}

// Result holds the outcome of one flow.
type Result struct {
	Submissions int // qualifying submissions processed
	Counted     int // comments or slots credited to a member
	Skipped     int // comments ignored, or event search hits with another flair
	Unresolved  int // slots no member matched
	Scanned     []collect.Submission
}

// Aggregator applies activity from a source to the crawl state. It is the
// only writer of the state while a flow runs.
type Aggregator struct {
	source collect.Source
	state  *state.State
	dir    *member.Directory
	opts   Options
}

// New creates an aggregator. The state's member collection is replaced by
// the directory's, which owns it from then on.
func New(source collect.Source, st *state.State, dir *member.Directory, opts Options) *Aggregator {
	st.Members = dir.Members()
	return &Aggregator{source: source, state: st, dir: dir, opts: opts}
}

// CountReports credits one report to the author of every new direct reply on
// report submissions within tf.
func (a *Aggregator) CountReports(ctx context.Context, tf collect.Timeframe) (*Result, error) {
	if !a.source.CanListComments() {
		return nil, fmt.Errorf("counting reports: %w", collect.ErrCommentsUnsupported)
	}

	subs, err := a.source.Search(ctx, a.opts.ReportQuery, tf)
	if err != nil {
		return nil, fmt.Errorf("searching reports: %w", err)
	}

	r := &Result{}
	for _, sub := range subs {
		// Flair and search hits are not reliable; the title must say it.
		if !strings.Contains(sub.Title, a.opts.ReportMarker) {
			continue
		}

		a.debugf("%s (%s)", sub.Title, sub.Created.Format("2006-01-02"))
		r.Submissions++
		r.Scanned = append(r.Scanned, sub)

		if sub.NumComments < 1 {
			continue
		}

		comments, err := a.source.Comments(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("fetching comments of %s: %w", sub.ID, err)
		}

		for _, c := range comments {
			if !a.countable(sub, c) {
				r.Skipped++
				continue
			}
			a.dir.Ensure(c.Author).IncrementReports()
			a.state.MarkProcessed(c.ID)
			r.Counted++
		}
	}

	a.state.Members = a.dir.Members()
	log.Printf("Reports: %d submissions, %d comments counted, %d skipped", r.Submissions, r.Counted, r.Skipped)
	return r, nil
}

func (a *Aggregator) countable(sub collect.Submission, c collect.Comment) bool {
	author := strings.TrimSpace(c.Author)
	switch {
	case author == "" || author == deletedAuthor:
		return false
	case sameAuthor(sub, c):
		return false
	case a.state.IsExcluded(author):
		return false
	case a.state.IsProcessed(c.ID):
		return false
	}
	return true
}

// sameAuthor compares author ids when both sides carry one, names otherwise.
func sameAuthor(sub collect.Submission, c collect.Comment) bool {
	if sub.AuthorID != "" && c.AuthorID != "" {
		return sub.AuthorID == c.AuthorID
	}
	return strings.EqualFold(strings.TrimSpace(sub.Author), strings.TrimSpace(c.Author))
}

// CountSignups credits one sign-up per roster slot on event submissions
// within tf. There is no ledger for slots: scanning the same submission in
// a later run counts it again.
func (a *Aggregator) CountSignups(ctx context.Context, tf collect.Timeframe) (*Result, error) {
	subs, err := a.source.Search(ctx, a.opts.SignupQuery, tf)
	if err != nil {
		return nil, fmt.Errorf("searching events: %w", err)
	}

	r := &Result{}
	for _, sub := range subs {
		if !a.eventFlair(sub) {
			a.debugf("skipping %s: flair %q", sub.Title, sub.Flair)
			r.Skipped++
			continue
		}

		a.debugf("%s (%s)", sub.Title, sub.Created.Format("2006-01-02"))
		r.Submissions++
		r.Scanned = append(r.Scanned, sub)

		slots := a.opts.Extractor.Extract(sub.Body)
		if len(slots) == 0 {
			a.debugf("  no roster found")
			continue
		}

		for _, slot := range slots {
			m, ok := a.dir.Resolve(slot.Player)
			if !ok {
				if a.state.AddUnresolved(slot.Player) {
					a.debugf("  unresolved: %q (%s)", slot.Player, slot.Role)
				}
				r.Unresolved++
				continue
			}
			m.IncrementSignups()
			r.Counted++
		}
	}

	a.state.Members = a.dir.Members()
	log.Printf("Sign-ups: %d submissions, %d slots counted, %d unresolved, %d other flairs skipped", r.Submissions, r.Counted, r.Unresolved, r.Skipped)
	return r, nil
}

// eventFlair backs up the event search: a submission with a flair other than
// the configured one is not an event. Sources without flairs pass.
func (a *Aggregator) eventFlair(sub collect.Submission) bool {
	if a.opts.SignupFlair == "" || sub.Flair == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(sub.Flair), strings.TrimSpace(a.opts.SignupFlair))
}

func (a *Aggregator) debugf(format string, args ...any) {
	if a.opts.Debug {
		log.Printf(format, args...)
	}
}
