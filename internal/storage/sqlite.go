// Package storage persists the favorites ledger: one row per library
// submission made by the favorite command in primary mode.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"

	apperrors "github.com/xlg/player/internal/errors"

	// SQLite driver - imported for side effects (registers the driver).
	// Using modernc.org/sqlite which is a pure-Go implementation that
	// doesn't require CGO.
	_ "modernc.org/sqlite"
)

// ErrFavoriteNotFound is returned when a favorite lookup fails.
var ErrFavoriteNotFound = errors.New("favorite not found")

// SQLiteStore implements the favorites ledger using SQLite.
// It creates the database and tables on first use and supports
// concurrent access through internal locking.
type SQLiteStore struct {
	db *sql.DB      // Database connection handle.
	mu sync.RWMutex // Guards all database operations.
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// It initializes the schema if the tables don't exist.
// Use ":memory:" for an in-memory database (useful for testing).
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	log.Printf("storage: opening database at %s", path)

	// busy_timeout covers the CLI reading the ledger while the host writes.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, apperrors.StorageOpenFailed(path, err)
	}
	// One connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.StorageOpenFailed(path, err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.StorageOpenFailed(path, fmt.Errorf("init schema: %w", err))
	}

	log.Printf("storage: database ready (schema version %d)", currentSchemaVersion)
	return store, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	log.Printf("storage: closing database")
	return s.db.Close()
}
