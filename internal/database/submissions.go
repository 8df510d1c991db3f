package database

const submissionColumns = `submission_id, command, title, COALESCE(permalink, ''), scan_count,
	COALESCE(first_run_id, 0), COALESCE(last_run_id, 0), first_seen, last_seen`

// GetRescannedSubmissions returns submissions a command scanned in more than
// one run, most recently seen first.
func (db *DB) GetRescannedSubmissions(command string) ([]ScannedSubmission, error) {
	rows, err := db.conn.Query(
		`SELECT `+submissionColumns+`
		FROM scanned_submissions
		WHERE command = ? AND scan_count > 1
		ORDER BY last_run_id DESC, submission_id`, command,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScannedSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*ScannedSubmission, error) {
	var s ScannedSubmission
	if err := row.Scan(&s.SubmissionID, &s.Command, &s.Title, &s.Permalink, &s.ScanCount,
		&s.FirstRunID, &s.LastRunID, &s.FirstSeen, &s.LastSeen); err != nil {
		return nil, err
	}
	return &s, nil
}
