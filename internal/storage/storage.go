/*
Package storage persists analysis runs in a SQLite database.

Each run records the session summaries, per-trial rows and ephys condition
measurements it produced. The database uses modernc.org/sqlite (pure Go, no
CGo) through sqlx. A storage created with an empty path is disabled and every
operation on it is a no-op.
*/
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"trialkit/pkg/trialtypes"
)

// Storage defines the persistent run store operations.
type Storage interface {
	// Init opens the database and runs migrations.
	Init() error

	// CreateRun records a new run.
	CreateRun(run Run) error

	// FinishRun stores the final record count of a run.
	FinishRun(runID string, records int) error

	// ListRuns returns the most recent runs first.
	ListRuns(limit int) ([]Run, error)

	// GetRun returns a single run.
	GetRun(runID string) (*Run, error)

	// SaveSession stores a session summary and its trials.
	SaveSession(runID string, rec *trialtypes.SessionRecord) error

	// ListSessions returns the session summaries of a run.
	ListSessions(runID string) ([]SessionRow, error)

	// ListTrials returns the trials of one session of a run.
	ListTrials(runID, session string) ([]TrialRow, error)

	// SaveEphys stores the condition measurements of one cell.
	SaveEphys(runID string, rec *trialtypes.EphysRecord) error

	// ListEphys returns the ephys rows of a run.
	ListEphys(runID string) ([]EphysRow, error)

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements Storage on SQLite.
type SQLiteStorage struct {
	db       *sqlx.DB
	dbPath   string
	enabled  bool
	mu       sync.Mutex
	initOnce sync.Once
}

// NewStorage creates a storage for the database at path. An empty path
// yields a disabled storage.
func NewStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{
		dbPath:  path,
		enabled: path != "",
	}
}

// Enabled reports whether operations reach the database.
func (s *SQLiteStorage) Enabled() bool {
	return s.enabled
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Init creates the database directory, opens the database and migrates it.
// Unlike a cache, the run store is the product of a run, so failures are
// returned to the caller.
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		if dir := filepath.Dir(s.dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				initErr = fmt.Errorf("failed to create db directory: %w", err)
				return
			}
		}

		db, err := sqlx.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			return
		}
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)

		if err := db.Ping(); err != nil {
			_ = db.Close()
			initErr = fmt.Errorf("failed to ping database: %w", err)
			return
		}
		s.db = db

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}
	})

	return initErr
}

// ready reports whether the store should touch the database.
func (s *SQLiteStorage) ready() bool {
	return s.enabled && s.db != nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.ready() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// timestampFormat is how run times are stored.
const timestampFormat = time.RFC3339
