package database

import (
	"database/sql"
	"time"
)

// RecordRun stores a finished run together with the submissions it scanned.
// Each submission's scan counter is bumped per command; the returned slice
// carries the updated rows in input order.
func (db *DB) RecordRun(r Run, scanned []ScannedSubmission) (int64, []ScannedSubmission, error) {
	if r.StartedAt == "" {
		r.StartedAt = FormatTime(time.Now())
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO runs (command, timeframe, submissions, counted, skipped, unresolved, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Command, r.Timeframe, r.Submissions, r.Counted, r.Skipped, r.Unresolved, r.StartedAt,
	)
	if err != nil {
		return 0, nil, err
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, nil, err
	}

	updated := make([]ScannedSubmission, 0, len(scanned))
	for _, s := range scanned {
		if _, err := tx.Exec(
			`INSERT INTO scanned_submissions (submission_id, command, title, permalink, first_run_id, last_run_id)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(submission_id, command) DO UPDATE SET
				scan_count = scan_count + 1,
				title = excluded.title,
				permalink = excluded.permalink,
				last_run_id = excluded.last_run_id,
				last_seen = datetime('now')`,
			s.SubmissionID, r.Command, s.Title, s.Permalink, runID, runID,
		); err != nil {
			return 0, nil, err
		}

		row, err := scanSubmission(tx.QueryRow(
			`SELECT `+submissionColumns+`
			FROM scanned_submissions WHERE submission_id = ? AND command = ?`,
			s.SubmissionID, r.Command,
		))
		if err != nil {
			return 0, nil, err
		}
		updated = append(updated, *row)
	}

	return runID, updated, tx.Commit()
}

// GetRecentRuns returns up to limit runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, command, timeframe, submissions, counted, skipped, unresolved,
			started_at, COALESCE(finished_at, '')
		FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Command, &r.Timeframe, &r.Submissions, &r.Counted,
			&r.Skipped, &r.Unresolved, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetLastRun returns the most recent run of a command, or nil if none exist.
func (db *DB) GetLastRun(command string) (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, command, timeframe, submissions, counted, skipped, unresolved,
			started_at, COALESCE(finished_at, '')
		FROM runs WHERE command = ? ORDER BY id DESC LIMIT 1`, command,
	)

	var r Run
	if err := row.Scan(&r.ID, &r.Command, &r.Timeframe, &r.Submissions, &r.Counted,
		&r.Skipped, &r.Unresolved, &r.StartedAt, &r.FinishedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GetStats returns aggregate run history statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM runs", &s.TotalRuns},
		{"SELECT COUNT(*) FROM runs WHERE command = 'report'", &s.ReportRuns},
		{"SELECT COUNT(*) FROM runs WHERE command = 'signup'", &s.SignupRuns},
		{"SELECT COUNT(*) FROM scanned_submissions", &s.ScannedSubmissions},
		{"SELECT COUNT(*) FROM scanned_submissions WHERE command = 'signup' AND scan_count > 1", &s.RescannedSignups},
		{"SELECT COALESCE(SUM(counted), 0) FROM runs WHERE command = 'report'", &s.CountedReports},
		{"SELECT COALESCE(SUM(counted), 0) FROM runs WHERE command = 'signup'", &s.CountedSignups},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
