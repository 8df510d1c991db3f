// Package database keeps the run history: one row per report or sign-up
// run and a scan counter per submission, so posts counted again by a later
// sign-up run can be reported.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the history database's name inside the data directory.
const FileName = "misfitcrawler.db"

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// DB is the run history store.
type DB struct {
	conn *sql.DB
	path string
}

// OpenInDir opens the history database in dataDir, creating the directory
// if needed.
func OpenInDir(dataDir string) (*DB, error) {
	return Open(filepath.Join(dataDir, FileName))
}

// Open opens or creates the history database at dbPath and brings its
// schema up to date.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}

	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating run history: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
