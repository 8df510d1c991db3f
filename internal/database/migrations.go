package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "run history",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    command TEXT NOT NULL CHECK(command IN ('report', 'signup')),
    timeframe TEXT NOT NULL,
    submissions INTEGER DEFAULT 0,
    counted INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    unresolved INTEGER DEFAULT 0,
    started_at TEXT NOT NULL,
    finished_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "scanned submissions",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS scanned_submissions (
    submission_id TEXT NOT NULL,
    command TEXT NOT NULL,
    title TEXT NOT NULL,
    permalink TEXT DEFAULT '',
    scan_count INTEGER DEFAULT 1,
    first_run_id INTEGER REFERENCES runs(id),
    last_run_id INTEGER REFERENCES runs(id),
    first_seen TEXT DEFAULT (datetime('now')),
    last_seen TEXT DEFAULT (datetime('now')),
    PRIMARY KEY (submission_id, command)
);

CREATE INDEX IF NOT EXISTS idx_scanned_command ON scanned_submissions(command);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
