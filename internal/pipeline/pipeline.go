package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/MisfitCrawler/internal/aggregate"
	"github.com/TobiSchelling/MisfitCrawler/internal/collect"
	"github.com/TobiSchelling/MisfitCrawler/internal/config"
	"github.com/TobiSchelling/MisfitCrawler/internal/database"
	"github.com/TobiSchelling/MisfitCrawler/internal/member"
	"github.com/TobiSchelling/MisfitCrawler/internal/signup"
	"github.com/TobiSchelling/MisfitCrawler/internal/state"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a report or sign-up run.
type Result struct {
	Command   string
	Timeframe collect.Timeframe
	Steps     []StepResult
	Counts    *aggregate.Result
	Rescanned []database.ScannedSubmission
}

// Err returns the first failed step's error, if any.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", s.Name, s.Err)
		}
	}
	return nil
}

// Pipeline runs one counting flow: load state, count, save, record.
type Pipeline struct {
	cfg    *config.Config
	db     *database.DB
	source collect.Source
	store  *state.FileStore
	now    func() time.Time
}

// New creates a new pipeline. db may be nil, in which case runs are not
// recorded.
func New(cfg *config.Config, db *database.DB, source collect.Source) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		db:     db,
		source: source,
		store:  state.NewFileStore(cfg.GetStateFile()),
		now:    time.Now,
	}
}

// Run executes the flow named by command over tf. Nothing is saved or
// recorded when counting fails.
func (p *Pipeline) Run(ctx context.Context, command string, tf collect.Timeframe) *Result {
	r := &Result{Command: command, Timeframe: tf}
	started := p.now()

	st, dir, step := p.runLoad()
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	counts, step := p.runCount(ctx, command, tf, st, dir)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	r.Counts = counts

	step = p.runSave(st)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	if p.db != nil {
		rescanned, step := p.runRecord(command, tf, started, counts)
		r.Steps = append(r.Steps, step)
		r.Rescanned = rescanned
	}

	return r
}

func (p *Pipeline) runLoad() (*state.State, *member.Directory, StepResult) {
	log.Printf("Loading state from %s...", p.store.Path())
	st, dir, err := LoadState(p.cfg, p.store)
	if err != nil {
		return nil, nil, StepResult{Name: "Load", Err: err}
	}
	return st, dir, StepResult{
		Name:    "Load",
		Summary: fmt.Sprintf("%d members, %d processed comments, %d excluded", dir.Len(), len(st.ProcessedCommentIDs), len(st.ExcludedHandles)),
	}
}

func (p *Pipeline) runCount(ctx context.Context, command string, tf collect.Timeframe, st *state.State, dir *member.Directory) (*aggregate.Result, StepResult) {
	agg := aggregate.New(p.source, st, dir, p.options())

	var (
		counts *aggregate.Result
		err    error
	)
	switch command {
	case database.CommandReport:
		log.Printf("Counting reports (%s)...", tf)
		counts, err = agg.CountReports(ctx, tf)
		if err != nil {
			return nil, StepResult{Name: "Count", Err: err}
		}
		return counts, StepResult{
			Name:    "Count",
			Summary: fmt.Sprintf("%d reports counted on %d submissions (%d skipped)", counts.Counted, counts.Submissions, counts.Skipped),
		}
	case database.CommandSignup:
		log.Printf("Counting sign-ups (%s)...", tf)
		counts, err = agg.CountSignups(ctx, tf)
		if err != nil {
			return nil, StepResult{Name: "Count", Err: err}
		}
		return counts, StepResult{
			Name:    "Count",
			Summary: fmt.Sprintf("%d sign-ups counted on %d submissions (%d unresolved, %d skipped)", counts.Counted, counts.Submissions, counts.Unresolved, counts.Skipped),
		}
	}
	return nil, StepResult{Name: "Count", Err: fmt.Errorf("unknown command %q", command)}
}

func (p *Pipeline) runSave(st *state.State) StepResult {
	if err := p.store.Save(st); err != nil {
		return StepResult{Name: "Save", Err: fmt.Errorf("saving state: %w", err)}
	}
	return StepResult{Name: "Save", Summary: fmt.Sprintf("State written to %s", p.store.Path())}
}

func (p *Pipeline) runRecord(command string, tf collect.Timeframe, started time.Time, counts *aggregate.Result) ([]database.ScannedSubmission, StepResult) {
	scanned := make([]database.ScannedSubmission, 0, len(counts.Scanned))
	seen := make(map[string]bool, len(counts.Scanned))
	for _, sub := range counts.Scanned {
		if seen[sub.ID] {
			continue
		}
		seen[sub.ID] = true
		scanned = append(scanned, database.ScannedSubmission{SubmissionID: sub.ID, Title: sub.Title, Permalink: sub.Permalink})
	}

	runID, rows, err := p.db.RecordRun(database.Run{
		Command:     command,
		Timeframe:   string(tf),
		Submissions: counts.Submissions,
		Counted:     counts.Counted,
		Skipped:     counts.Skipped,
		Unresolved:  counts.Unresolved,
		StartedAt:   database.FormatTime(started),
	}, scanned)
	if err != nil {
		// The state file is already saved; a missing history row is not fatal.
		log.Printf("Warning: recording run: %v", err)
		return nil, StepResult{Name: "Record", Summary: "Run history not updated"}
	}

	var rescanned []database.ScannedSubmission
	if command == database.CommandSignup {
		for _, row := range rows {
			if row.Rescanned() {
				log.Printf("Warning: sign-up %s (%q) was already counted by an earlier run (scan %d)", row.SubmissionID, row.Title, row.ScanCount)
				rescanned = append(rescanned, row)
			}
		}
	}

	summary := fmt.Sprintf("Run %d recorded", runID)
	if len(rescanned) > 0 {
		summary = fmt.Sprintf("Run %d recorded, %d sign-up posts counted again", runID, len(rescanned))
	}
	return rescanned, StepResult{Name: "Record", Summary: summary}
}

func (p *Pipeline) options() aggregate.Options {
	return aggregate.Options{
		ReportQuery:  p.cfg.Reports.Query,
		ReportMarker: p.cfg.Reports.Marker,
		SignupQuery:  p.cfg.Signups.Query,
		SignupFlair:  p.cfg.Signups.Flair,
		Extractor:    signup.Extractor{MinRows: p.cfg.Signups.MinRows},
		Debug:        p.cfg.IsDebug(),
	}
}

// LoadState reads the persisted state and builds the member directory from
// it and the configured alias mapping. An unreadable state file is only
// warned about; an unreadable mapping file is an error.
func LoadState(cfg *config.Config, store *state.FileStore) (*state.State, *member.Directory, error) {
	st := state.New()
	var lerr *state.LoadError
	if err := store.Load(st); err != nil && !errors.As(err, &lerr) {
		return nil, nil, err
	}
	st.Exclude(cfg.Members.Excluded...)

	var mapping member.Mapping
	if cfg.Members.AliasesFile != "" {
		m, err := member.LoadMapping(cfg.Members.AliasesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading aliases: %w", err)
		}
		mapping = m
	}

	dir := member.NewDirectory(st.Members, mapping)
	st.Members = dir.Members()
	return st, dir, nil
}
