package storage

import (
	"fmt"

	"trialkit/internal/logger"
)

// migration is a single schema step.
type migration struct {
	version int
	name    string
	up      func() error
}

// runMigrations applies every migration newer than the recorded version.
func (s *SQLiteStorage) runMigrations() error {
	if !s.ready() {
		return nil
	}

	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.currentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
	}

	for _, m := range migrations {
		if version >= m.version {
			continue
		}
		logger.Debug("Running migration", "version", m.version, "name", m.name)
		if err := m.up(); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	return err
}

func (s *SQLiteStorage) currentMigrationVersion() (int, error) {
	var version int
	if err := s.db.Get(&version, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"); err != nil {
		return 0, err
	}
	return version, nil
}

// migration001InitialSchema creates the run, session, trial and ephys tables.
func (s *SQLiteStorage) migration001InitialSchema() error {
	statements := []struct {
		name string
		sql  string
	}{
		{"runs", `
			CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				started_at TEXT NOT NULL,
				config_file TEXT NOT NULL DEFAULT '',
				inputs INTEGER NOT NULL DEFAULT 0,
				records INTEGER NOT NULL DEFAULT 0
			)`},
		{"runs started index", `
			CREATE INDEX IF NOT EXISTS idx_runs_started
			ON runs(started_at DESC)`},
		{"sessions", `
			CREATE TABLE IF NOT EXISTS sessions (
				run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				session TEXT NOT NULL,
				path TEXT NOT NULL,
				frames INTEGER NOT NULL,
				trials INTEGER NOT NULL,
				reward_events INTEGER NOT NULL,
				rewarded_trials INTEGER NOT NULL,
				baseline_trials INTEGER NOT NULL,
				baseline_rewarded INTEGER NOT NULL,
				stim_trials INTEGER NOT NULL,
				stim_rewarded INTEGER NOT NULL,
				post_stim_trials INTEGER NOT NULL,
				post_stim_rewarded INTEGER NOT NULL,
				mean_shift REAL NOT NULL,
				median_shift REAL NOT NULL,
				has_boundaries INTEGER NOT NULL,
				PRIMARY KEY (run_id, session)
			)`},
		{"trials", `
			CREATE TABLE IF NOT EXISTS trials (
				run_id TEXT NOT NULL,
				session TEXT NOT NULL,
				number INTEGER NOT NULL,
				raw_index INTEGER NOT NULL,
				onset_index INTEGER NOT NULL,
				shift INTEGER NOT NULL,
				threshold REAL NOT NULL,
				rewarded INTEGER NOT NULL,
				reward_index INTEGER NOT NULL,
				epoch TEXT NOT NULL,
				in_range INTEGER NOT NULL,
				PRIMARY KEY (run_id, session, number),
				FOREIGN KEY (run_id, session) REFERENCES sessions(run_id, session) ON DELETE CASCADE
			)`},
		{"ephys", `
			CREATE TABLE IF NOT EXISTS ephys (
				run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				cell TEXT NOT NULL,
				wavelength_nm INTEGER NOT NULL,
				holding_mv INTEGER NOT NULL,
				present INTEGER NOT NULL,
				baseline REAL,
				peak REAL,
				amplitude REAL,
				peak_index INTEGER NOT NULL,
				PRIMARY KEY (run_id, cell, wavelength_nm, holding_mv)
			)`},
	}

	for _, st := range statements {
		if _, err := s.db.Exec(st.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", st.name, err)
		}
	}
	return nil
}
