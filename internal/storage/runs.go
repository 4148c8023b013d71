package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// CreateRun records a new run.
func (s *SQLiteStorage) CreateRun(run Run) error {
	if !s.ready() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := runRow{
		ID:         run.ID,
		Kind:       run.Kind,
		StartedAt:  run.StartedAt.UTC().Format(timestampFormat),
		ConfigFile: run.ConfigFile,
		Inputs:     run.Inputs,
		Records:    run.Records,
	}

	query := `
		INSERT INTO runs (id, kind, started_at, config_file, inputs, records)
		VALUES (:id, :kind, :started_at, :config_file, :inputs, :records)
	`
	if _, err := s.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stores the final record count of a run.
func (s *SQLiteStorage) FinishRun(runID string, records int) error {
	if !s.ready() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE runs SET records = ? WHERE id = ?", records, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *SQLiteStorage) ListRuns(limit int) ([]Run, error) {
	if !s.ready() {
		return []Run{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, kind, started_at, config_file, inputs, records
		FROM runs
		ORDER BY started_at DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []runRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		run, err := r.toRun()
		if err != nil {
			return nil, fmt.Errorf("run %s has bad timestamp: %w", r.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// GetRun returns the run with the given id.
func (s *SQLiteStorage) GetRun(runID string) (*Run, error) {
	if !s.ready() {
		return nil, fmt.Errorf("%w: %s (storage disabled)", ErrRunNotFound, runID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var row runRow
	err := s.db.Get(&row, `
		SELECT id, kind, started_at, config_file, inputs, records
		FROM runs WHERE id = ?
	`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}

	run, err := row.toRun()
	if err != nil {
		return nil, fmt.Errorf("run %s has bad timestamp: %w", runID, err)
	}
	return &run, nil
}
