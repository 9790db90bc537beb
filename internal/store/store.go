package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// FormatVersion identifies the saved translation unit layout.
const FormatVersion = "1"

// Store is the SQLite data access layer for one saved translation unit.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing database without creating or
// migrating it.
func OpenReadOnly(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  ordinal         INTEGER NOT NULL,
  path            TEXT NOT NULL UNIQUE,
  content         BLOB NOT NULL,
  mod_time        TIMESTAMP,
  overlay         BOOLEAN DEFAULT FALSE,
  include_guarded BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  parent_id       INTEGER REFERENCES diagnostics(id),
  ordinal         INTEGER NOT NULL,
  severity        INTEGER NOT NULL,
  path            TEXT,
  byte_offset     INTEGER,
  message         TEXT NOT NULL,
  option_name     TEXT,
  category        INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS diagnostic_spans (
  id              INTEGER PRIMARY KEY,
  diagnostic_id   INTEGER NOT NULL REFERENCES diagnostics(id),
  ordinal         INTEGER NOT NULL,
  kind            TEXT NOT NULL,
  path            TEXT,
  start_offset    INTEGER,
  end_offset      INTEGER,
  replacement     TEXT
);

CREATE TABLE IF NOT EXISTS top_level_decls (
  id              INTEGER PRIMARY KEY,
  ordinal         INTEGER NOT NULL,
  kind            INTEGER NOT NULL,
  name            TEXT
);

CREATE INDEX IF NOT EXISTS idx_diagnostics_parent ON diagnostics(parent_id);
CREATE INDEX IF NOT EXISTS idx_diagnostic_spans_diag ON diagnostic_spans(diagnostic_id);
CREATE INDEX IF NOT EXISTS idx_top_level_ordinal ON top_level_decls(ordinal);
`

// ErrNoMetadata is returned by GetMetadata for an unknown key.
var ErrNoMetadata = errors.New("store: no such metadata key")

// SetMetadata stores a key/value pair, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}

// GetMetadata returns the value stored for key.
func (s *Store) GetMetadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoMetadata
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return v, nil
}

// Seal switches the database out of WAL mode so the saved file is
// self-contained and can be opened read-only.
func (s *Store) Seal() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=DELETE"); err != nil {
		return fmt.Errorf("seal: %w", err)
	}
	return nil
}
