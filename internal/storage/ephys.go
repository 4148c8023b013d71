package storage

import (
	"fmt"

	"trialkit/pkg/trialtypes"
)

// SaveEphys stores one row per condition of a cell.
func (s *SQLiteStorage) SaveEphys(runID string, rec *trialtypes.EphysRecord) error {
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

	query := `
		INSERT OR REPLACE INTO ephys (
			run_id, cell, wavelength_nm, holding_mv, present,
			baseline, peak, amplitude, peak_index
		) VALUES (
			:run_id, :cell, :wavelength_nm, :holding_mv, :present,
			:baseline, :peak, :amplitude, :peak_index
		)
	`
	for _, c := range rec.Conditions() {
		row := newEphysRow(runID, rec.Cell, c, rec.Results[c])
		if _, err := tx.NamedExec(query, row); err != nil {
			return fmt.Errorf("failed to save %s %s: %w", rec.Cell, c, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cell %s: %w", rec.Cell, err)
	}
	return nil
}

// ListEphys returns the ephys rows of a run ordered by cell and condition.
func (s *SQLiteStorage) ListEphys(runID string) ([]EphysRow, error) {
	if !s.ready() {
		return []EphysRow{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []EphysRow{}
	query := `
		SELECT * FROM ephys WHERE run_id = ?
		ORDER BY cell, wavelength_nm, holding_mv
	`
	if err := s.db.Select(&rows, query, runID); err != nil {
		return nil, fmt.Errorf("failed to list ephys of %s: %w", runID, err)
	}
	return rows, nil
}

// Records groups ephys rows back into per-cell records.
func Records(rows []EphysRow) []*trialtypes.EphysRecord {
	var out []*trialtypes.EphysRecord
	byCell := map[string]*trialtypes.EphysRecord{}
	for _, r := range rows {
		rec, ok := byCell[r.Cell]
		if !ok {
			rec = &trialtypes.EphysRecord{Cell: r.Cell, Results: map[trialtypes.Condition]trialtypes.ConditionResult{}}
			byCell[r.Cell] = rec
			out = append(out, rec)
		}
		rec.Results[r.Condition()] = r.Result()
	}
	return out
}
