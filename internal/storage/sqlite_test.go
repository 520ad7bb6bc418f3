package storage

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/xlg/player/internal/errors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestNewSQLiteStore verifies that a store can be created with an in-memory database.
func TestNewSQLiteStore(t *testing.T) {
	store := newTestStore(t)

	entries, err := store.ListFavorites(0)
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty list, got %d entries", len(entries))
	}
}

// TestSchemaVersion verifies migrations are recorded and not reapplied.
func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	var version int
	if err := store.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("query version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("version = %d, want %d", version, currentSchemaVersion)
	}
	if err := store.SaveFavorite(&FavoriteEntry{TrackID: "1", Mode: "primary", Status: FavoriteAdded}); err != nil {
		t.Fatalf("SaveFavorite failed: %v", err)
	}
	store.Close()

	// Reopening must not fail on the ALTER TABLE in migrateToV2.
	store, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	entries, err := store.ListFavorites(0)
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry after reopen, got %d", len(entries))
	}
}

// TestSaveAndGetFavorite verifies a favorite round-trips with its fields.
func TestSaveAndGetFavorite(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().Truncate(time.Millisecond)
	entry := &FavoriteEntry{
		TrackID:   "1440833098",
		Title:     "Bohemian Rhapsody",
		Artist:    "Queen",
		Mode:      "primary",
		Status:    FavoriteFailed,
		Error:     "status 401",
		CreatedAt: now,
	}
	if err := store.SaveFavorite(entry); err != nil {
		t.Fatalf("SaveFavorite failed: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("SaveFavorite did not assign an id")
	}

	got, err := store.GetFavorite(entry.ID)
	if err != nil {
		t.Fatalf("GetFavorite failed: %v", err)
	}
	if got.TrackID != entry.TrackID || got.Title != entry.Title || got.Artist != entry.Artist {
		t.Errorf("got %+v, want %+v", got, entry)
	}
	if got.Mode != "primary" || got.Status != FavoriteFailed || got.Error != "status 401" {
		t.Errorf("got mode=%q status=%q error=%q", got.Mode, got.Status, got.Error)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
}

func TestGetFavorite_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetFavorite("missing")
	if !errors.Is(err, ErrFavoriteNotFound) {
		t.Errorf("error = %v, want ErrFavoriteNotFound", err)
	}
}

func TestSaveFavorite_Nil(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveFavorite(nil); err == nil {
		t.Error("expected error for nil entry")
	}
}

func TestNewSQLiteStore_OpenFailed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "favorites.db")
	_, err := NewSQLiteStore(path)
	if !apperrors.IsCode(err, apperrors.CodeStorageOpenFailed) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeStorageOpenFailed)
	}
}

func TestClosedStoreErrorCodes(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	store.Close()

	err = store.SaveFavorite(&FavoriteEntry{Status: FavoriteAdded})
	if !apperrors.IsCode(err, apperrors.CodeStorageSaveFailed) {
		t.Errorf("SaveFavorite() error = %v, want %s", err, apperrors.CodeStorageSaveFailed)
	}
	_, err = store.ListFavorites(0)
	if !apperrors.IsCode(err, apperrors.CodeStorageQueryFailed) {
		t.Errorf("ListFavorites() error = %v, want %s", err, apperrors.CodeStorageQueryFailed)
	}
	_, err = store.GetFavorite("x")
	if !apperrors.IsCode(err, apperrors.CodeStorageQueryFailed) {
		t.Errorf("GetFavorite() error = %v, want %s", err, apperrors.CodeStorageQueryFailed)
	}
}

// TestListFavorites_NewestFirst verifies ordering and limit.
func TestListFavorites_NewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i, title := range []string{"first", "second", "third"} {
		err := store.SaveFavorite(&FavoriteEntry{
			Title:     title,
			Mode:      "legacy",
			Status:    FavoriteToggled,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveFavorite failed: %v", err)
		}
	}

	entries, err := store.ListFavorites(0)
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Title != "third" || entries[2].Title != "first" {
		t.Errorf("order = %s,%s,%s", entries[0].Title, entries[1].Title, entries[2].Title)
	}

	limited, err := store.ListFavorites(2)
	if err != nil {
		t.Fatalf("ListFavorites(2) failed: %v", err)
	}
	if len(limited) != 2 || limited[0].Title != "third" {
		t.Errorf("limited = %d entries, first %q", len(limited), limited[0].Title)
	}
}

// TestSaveFavorite_Concurrent verifies concurrent writers are serialized.
func TestSaveFavorite_Concurrent(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.SaveFavorite(&FavoriteEntry{Mode: "primary", Status: FavoriteAdded}); err != nil {
				t.Errorf("SaveFavorite failed: %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := store.ListFavorites(0)
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	if len(entries) != 20 {
		t.Errorf("expected 20 entries, got %d", len(entries))
	}
}
