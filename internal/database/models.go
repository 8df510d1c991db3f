package database

import "time"

// Commands recorded in the run history.
const (
	CommandReport = "report"
	CommandSignup = "signup"
)

// Run is one recorded report or sign-up run.
type Run struct {
	ID          int64
	Command     string
	Timeframe   string
	Submissions int
	Counted     int
	Skipped     int
	Unresolved  int
	StartedAt   string
	FinishedAt  string
}

// ScannedSubmission tracks how often a submission was scanned by a command.
type ScannedSubmission struct {
	SubmissionID string
	Command      string
	Title        string
	Permalink    string
	ScanCount    int
	FirstRunID   int64
	LastRunID    int64
	FirstSeen    string
	LastSeen     string
}

// Rescanned reports whether more than one run has scanned the submission.
func (s ScannedSubmission) Rescanned() bool {
	return s.ScanCount > 1
}

// Stats holds aggregate run history statistics.
type Stats struct {
	TotalRuns          int
	ReportRuns         int
	SignupRuns         int
	ScannedSubmissions int
	RescannedSignups   int
	CountedReports     int
	CountedSignups     int
}

// FormatTime renders timestamps the way SQLite's datetime('now') does.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
