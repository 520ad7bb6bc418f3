package storage

// favorites.go contains SQLiteStore methods for the favorites ledger.
// Every favorite command records its outcome so failures that the command
// socket swallows remain visible from the CLI.

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/xlg/player/internal/errors"
)

// Favorite outcomes.
const (
	FavoriteAdded       = "added"        // Library accepted the track
	FavoriteToggled     = "toggled"      // In-app flag flipped by script
	FavoriteFailed      = "failed"       // Call failed or was rejected
	FavoriteRateLimited = "rate_limited" // Dropped by the submission limiter
)

// FavoriteEntry is one favorite submission.
type FavoriteEntry struct {
	// ID is the unique identifier for this entry. Assigned on save if empty.
	ID string

	// TrackID is the catalog id sent to the library; empty in legacy mode.
	TrackID string

	Title  string
	Artist string

	// Mode is the backend mode the command ran in ("primary" or "legacy").
	Mode string

	// Status is one of the Favorite* outcomes.
	Status string

	// Error is the failure message, empty on success.
	Error string

	// CreatedAt is when the submission finished. Set on save if zero.
	CreatedAt time.Time
}

// SaveFavorite persists a favorite entry.
func (s *SQLiteStore) SaveFavorite(entry *FavoriteEntry) error {
	if entry == nil {
		return errors.New("favorite entry cannot be nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("storage: saving favorite %s (track=%s, mode=%s, status=%s)",
		entry.ID, entry.TrackID, entry.Mode, entry.Status)

	const query = `
		INSERT INTO favorites (id, track_id, title, artist, mode, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		entry.ID,
		entry.TrackID,
		entry.Title,
		entry.Artist,
		entry.Mode,
		entry.Status,
		entry.Error,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return apperrors.StorageSaveFailed("favorite", err)
	}

	return nil
}

// GetFavorite returns the entry with the given id, or ErrFavoriteNotFound.
func (s *SQLiteStore) GetFavorite(id string) (*FavoriteEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const query = `
		SELECT id, track_id, title, artist, mode, status, error, created_at
		FROM favorites
		WHERE id = ?
	`

	entry, err := scanFavorite(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFavoriteNotFound
	}
	if err != nil {
		return nil, apperrors.StorageQueryFailed("favorite "+id, err)
	}
	return entry, nil
}

// ListFavorites returns entries newest first.
// Use limit <= 0 to return all entries.
func (s *SQLiteStore) ListFavorites(limit int) ([]*FavoriteEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, track_id, title, artist, mode, status, error, created_at
		FROM favorites
		ORDER BY created_at DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperrors.StorageQueryFailed("favorites", err)
	}
	defer rows.Close()

	var entries []*FavoriteEntry
	for rows.Next() {
		entry, err := scanFavorite(rows)
		if err != nil {
			return nil, apperrors.StorageQueryFailed("favorites", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageQueryFailed("favorites", err)
	}

	return entries, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFavorite(row rowScanner) (*FavoriteEntry, error) {
	var (
		entry     FavoriteEntry
		createdAt string
	)

	err := row.Scan(
		&entry.ID,
		&entry.TrackID,
		&entry.Title,
		&entry.Artist,
		&entry.Mode,
		&entry.Status,
		&entry.Error,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	entry.CreatedAt = t

	return &entry, nil
}
