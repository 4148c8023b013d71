package storage

import (
	"fmt"

	"trialkit/pkg/trialtypes"
)

// SaveSession stores a session summary and its trials in one transaction.
// Saving the same session again within a run replaces it.
func (s *SQLiteStorage) SaveSession(runID string, rec *trialtypes.SessionRecord) error {
	if !s.ready() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM trials WHERE run_id = ? AND session = ?", runID, rec.Session); err != nil {
		return fmt.Errorf("failed to clear trials for %s: %w", rec.Session, err)
	}

	sessionQuery := `
		INSERT OR REPLACE INTO sessions (
			run_id, session, path, frames, trials, reward_events, rewarded_trials,
			baseline_trials, baseline_rewarded, stim_trials, stim_rewarded,
			post_stim_trials, post_stim_rewarded, mean_shift, median_shift, has_boundaries
		) VALUES (
			:run_id, :session, :path, :frames, :trials, :reward_events, :rewarded_trials,
			:baseline_trials, :baseline_rewarded, :stim_trials, :stim_rewarded,
			:post_stim_trials, :post_stim_rewarded, :mean_shift, :median_shift, :has_boundaries
		)
	`
	if _, err := tx.NamedExec(sessionQuery, newSessionRow(runID, rec)); err != nil {
		return fmt.Errorf("failed to save session %s: %w", rec.Session, err)
	}

	trialQuery := `
		INSERT INTO trials (
			run_id, session, number, raw_index, onset_index, shift, threshold,
			rewarded, reward_index, epoch, in_range
		) VALUES (
			:run_id, :session, :number, :raw_index, :onset_index, :shift, :threshold,
			:rewarded, :reward_index, :epoch, :in_range
		)
	`
	stmt, err := tx.PrepareNamed(trialQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare trial insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range rec.Trials {
		if _, err := stmt.Exec(newTrialRow(runID, rec.Session, t)); err != nil {
			return fmt.Errorf("failed to save trial %d of %s: %w", t.Number, rec.Session, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", rec.Session, err)
	}
	return nil
}

// ListSessions returns the session summaries of a run ordered by name.
func (s *SQLiteStorage) ListSessions(runID string) ([]SessionRow, error) {
	if !s.ready() {
		return []SessionRow{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []SessionRow{}
	if err := s.db.Select(&rows, "SELECT * FROM sessions WHERE run_id = ? ORDER BY session", runID); err != nil {
		return nil, fmt.Errorf("failed to list sessions of %s: %w", runID, err)
	}
	return rows, nil
}

// ListTrials returns the trials of one session ordered by trial number.
func (s *SQLiteStorage) ListTrials(runID, session string) ([]TrialRow, error) {
	if !s.ready() {
		return []TrialRow{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []TrialRow{}
	query := "SELECT * FROM trials WHERE run_id = ? AND session = ? ORDER BY number"
	if err := s.db.Select(&rows, query, runID, session); err != nil {
		return nil, fmt.Errorf("failed to list trials of %s/%s: %w", runID, session, err)
	}
	return rows, nil
}
