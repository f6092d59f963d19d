package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/porystore/porystore/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/porystore.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.porystore.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the connection string apply to every pooled connection.
	// foreign_keys is required for the note cascade on creature purge.
	dbPath := filepath.Join(baseDir, "porystore.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS users (
		  name                    TEXT PRIMARY KEY,
		  password_hash           TEXT NOT NULL,
		  is_admin                INTEGER NOT NULL DEFAULT 0,
		  default_visibility      TEXT NOT NULL DEFAULT 'private',
		  default_note_visibility TEXT NOT NULL DEFAULT 'private',
		  created_at              INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS boxes (
		  id         TEXT PRIMARY KEY,
		  owner      TEXT NOT NULL REFERENCES users(name),
		  name       TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_boxes_owner ON boxes(owner);

		CREATE TABLE IF NOT EXISTS creatures (
		  id               TEXT PRIMARY KEY,
		  owner            TEXT NOT NULL REFERENCES users(name),
		  box_id           TEXT NOT NULL REFERENCES boxes(id),
		  payload_json     TEXT NOT NULL,
		  raw_payload      BLOB NOT NULL,
		  fingerprint      TEXT NOT NULL,
		  visibility       TEXT NOT NULL,
		  pending_deletion INTEGER NOT NULL DEFAULT 0,
		  pending_since    INTEGER,
		  download_count   INTEGER NOT NULL DEFAULT 0,
		  created_at       INTEGER NOT NULL,
		  updated_at       INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_creatures_fingerprint
		ON creatures(fingerprint)
		WHERE pending_deletion = 0;

		CREATE INDEX IF NOT EXISTS idx_creatures_owner
		ON creatures(owner, pending_deletion);

		CREATE INDEX IF NOT EXISTS idx_creatures_box
		ON creatures(box_id)
		WHERE pending_deletion = 0;

		CREATE TABLE IF NOT EXISTS notes (
		  id          TEXT PRIMARY KEY,
		  creature_id TEXT NOT NULL REFERENCES creatures(id) ON DELETE CASCADE,
		  note_text   TEXT NOT NULL,
		  visibility  TEXT NOT NULL,
		  created_at  INTEGER NOT NULL,
		  updated_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notes_creature ON notes(creature_id);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
