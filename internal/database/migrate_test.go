package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func tableExists(t *testing.T, conn *sql.DB, name string) bool {
	t.Helper()
	var count int
	if err := conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count); err != nil {
		t.Fatalf("checking table %s: %v", name, err)
	}
	return count == 1
}

func TestMigrateNewDB(t *testing.T) {
	db := openTestDB(t)

	version, err := getSchemaVersion(db.conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
	for _, table := range []string{"runs", "scanned_submissions"} {
		if !tableExists(t, db.conn, table) {
			t.Errorf("expected table %s", table)
		}
	}
}

func TestMigrateFromFirstVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v1.db")

	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if err := apply(raw, migrations[0]); err != nil {
		t.Fatalf("applying first migration: %v", err)
	}
	if _, err := raw.Exec(`INSERT INTO runs (command, timeframe, started_at) VALUES ('report', 'week', '2026-01-01 00:00:00')`); err != nil {
		t.Fatalf("seeding run: %v", err)
	}
	raw.Close()

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	version, _ := getSchemaVersion(db.conn)
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
	if !tableExists(t, db.conn, "scanned_submissions") {
		t.Error("expected later migrations to run")
	}
	runs, err := db.GetRecentRuns(10)
	if err != nil {
		t.Fatalf("GetRecentRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Timeframe != "week" {
		t.Errorf("expected existing run to survive, got %+v", runs)
	}
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "future.db")
	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := raw.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("setting version: %v", err)
	}
	raw.Close()

	if db, err := Open(dbPath); err == nil {
		db.Close()
		t.Error("expected error for a schema newer than the build")
	}
}

func TestMigrateIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "idem.db")

	db1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	db1.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer db2.Close()

	version, err := getSchemaVersion(db2.conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
}

func TestGetSchemaVersionNewDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	version, err := getSchemaVersion(conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 on new db, got %d", version)
	}
}

func TestOpenInDirCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	db, err := OpenInDir(dir)
	if err != nil {
		t.Fatalf("OpenInDir: %v", err)
	}
	defer db.Close()

	if db.Path() != filepath.Join(dir, FileName) {
		t.Errorf("unexpected path %q", db.Path())
	}
	if _, err := os.Stat(db.Path()); err != nil {
		t.Errorf("expected database file: %v", err)
	}
}
