package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// PositionStore persists how far each log file has been read, so a
// restarted session resumes instead of replaying the whole file.
type PositionStore struct {
	db *sql.DB
}

// Position is a saved resume point for one log file.
type Position struct {
	Offset    int64
	Watermark time.Time
}

// NewPositionStore opens the store in the user's app data directory.
func NewPositionStore() (*PositionStore, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}

	dbDir := filepath.Join(configDir, "RaidTick")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	return OpenPositionStoreAt(filepath.Join(dbDir, "positions.db"))
}

// OpenPositionStoreAt opens the store at an explicit path.
func OpenPositionStoreAt(path string) (*PositionStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &PositionStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PositionStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS read_positions (
			file TEXT PRIMARY KEY,
			offset INTEGER NOT NULL,
			watermark INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Get returns the saved position for a log file name. A file never seen
// before reports ok = false.
func (s *PositionStore) Get(fileName string) (Position, bool, error) {
	var offset, watermark int64
	err := s.db.QueryRow(
		"SELECT offset, watermark FROM read_positions WHERE file = ?", fileName,
	).Scan(&offset, &watermark)
	if err == sql.ErrNoRows {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("failed to read position: %w", err)
	}
	return Position{Offset: offset, Watermark: time.Unix(watermark, 0)}, true, nil
}

// Save upserts the position for a log file name.
func (s *PositionStore) Save(fileName string, offset int64, watermark time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO read_positions (file, offset, watermark, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(file) DO UPDATE SET
			offset = excluded.offset,
			watermark = excluded.watermark,
			updated_at = excluded.updated_at
	`, fileName, offset, watermark.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// Forget removes the saved position for a log file name.
func (s *PositionStore) Forget(fileName string) error {
	if _, err := s.db.Exec("DELETE FROM read_positions WHERE file = ?", fileName); err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *PositionStore) Close() error {
	return s.db.Close()
}
