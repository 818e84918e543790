package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

const sqliteUpsert = `
INSERT INTO records (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`

// SQLiteStore persists records in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore creates or opens a SQLite database at path. The pool
// holds a single connection.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: connect sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get retrieves the value stored under key.
func (s *SQLiteStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM records WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: get %q: %w", key, err)
	}
	return value, nil
}

// Has reports whether key is present.
func (s *SQLiteStore) Has(key string) (bool, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(1) FROM records WHERE key = ?", key).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlitestore: has %q: %w", key, err)
	}
	return n > 0, nil
}

// Set stores value under key.
func (s *SQLiteStore) Set(key string, value []byte) error {
	return s.Apply([]Write{{Key: key, Value: value}})
}

// Apply stores all writes in one SQL transaction.
func (s *SQLiteStore) Apply(writes []Write) error {
	for _, w := range writes {
		if err := validateWrite(w.Key, w.Value); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	for _, w := range writes {
		if _, err := tx.Exec(sqliteUpsert, w.Key, w.Value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlitestore: put %q: %w", w.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
