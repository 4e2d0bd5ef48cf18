// Package storage persists the dataset and tombstone sets to a local SQLite
// database used as a small key-value store.
//
// The database runs embedded with WAL mode so reads from other processes
// (status commands while the daemon runs) don't block writes. State is
// written after every store mutation, so the schema is deliberately tiny:
// one kv table holding the serialized dataset and tombstones.
//
// Corrupt or missing local state is never fatal. LoadState treats anything
// it cannot parse as "no prior data" and returns empty defaults.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/daybook-app/daybook/internal/schema"
)

const (
	keyDataset    = "dataset"
	keyTombstones = "tombstones"
)

// Store wraps the SQLite connection used for local persistence.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the persistence database at the given path.
//
// The caller MUST call Close() when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	// WAL for concurrent readers during writes.
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// SaveState writes the dataset and tombstone sets in one transaction, so a
// crash mid-save never leaves them disagreeing about a deletion.
func (s *Store) SaveState(dataset *schema.Dataset, tombstones schema.Tombstones) error {
	datasetJSON, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	tombstonesJSON, err := json.Marshal(tombstones)
	if err != nil {
		return fmt.Errorf("failed to marshal tombstones: %w", err)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(query, keyDataset, datasetJSON, now); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	if _, err := tx.Exec(query, keyTombstones, tombstonesJSON, now); err != nil {
		return fmt.Errorf("failed to save tombstones: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

// LoadState reads the persisted dataset and tombstones. Absent or unparsable
// values fall back to empty defaults; only infrastructure failures (the query
// itself erroring) are returned.
func (s *Store) LoadState() (*schema.Dataset, schema.Tombstones, error) {
	dataset := schema.NewDataset()
	tombstones := schema.NewTombstones()

	raw, err := s.get(keyDataset)
	if err != nil {
		return nil, nil, err
	}
	if raw != nil {
		if parsed, perr := schema.ParseDataset(raw); perr == nil {
			dataset = parsed
		}
		// Unparsable dataset: treated as no prior data.
	}

	raw, err = s.get(keyTombstones)
	if err != nil {
		return nil, nil, err
	}
	if raw != nil {
		var loaded schema.Tombstones
		if uerr := json.Unmarshal(raw, &loaded); uerr == nil && loaded.Validate() == nil {
			// Merge into fresh sets so every kind has a non-nil map.
			for kind, set := range loaded {
				for id := range set {
					tombstones.Mark(kind, id)
				}
			}
		}
	}

	return dataset, tombstones, nil
}

func (s *Store) get(key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}
