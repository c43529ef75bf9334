package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"jobtrack/app/store"
)

// slotKey names the single slot holding the serialized collection
const slotKey = "records"

// SQLiteStore implements the persistence slot using SQLite
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens or creates the database and prepares the slot table
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	query := `CREATE TABLE IF NOT EXISTS state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER
	)`
	if _, err := db.Exec(query); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to create state table: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to create state table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load retrieves the stored collection. A missing slot yields an empty
// collection; an unreadable or undecodable slot is reported to the caller,
// which decides how to degrade.
func (s *SQLiteStore) Load() ([]store.JobRecord, error) {
	var blob string
	err := s.db.Get(&blob, "SELECT value FROM state WHERE key = ?", slotKey)
	if errors.Is(err, sql.ErrNoRows) {
		return []store.JobRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var recs []store.JobRecord
	if err := json.Unmarshal([]byte(blob), &recs); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return recs, nil
}

// Save serializes the full collection and overwrites the slot
func (s *SQLiteStore) Save(records []store.JobRecord) error {
	blob, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		slotKey, string(blob), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
