package main

import (
	"fmt"

	"trialkit/internal/output"
	"trialkit/internal/storage"
	"trialkit/pkg/trialtypes"
)

// showSessions prints the session table of a behavior run, or the trials of
// a single session when one is named.
func showSessions(printer *output.Printer, store storage.Storage, runID, session string) error {
	rows, err := store.ListSessions(runID)
	if err != nil {
		return err
	}

	records := make([]*trialtypes.SessionRecord, 0, len(rows))
	for _, row := range rows {
		if session != "" && row.Session != session {
			continue
		}
		trials, err := store.ListTrials(runID, row.Session)
		if err != nil {
			return err
		}
		rec, err := row.Record(trials)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	if session == "" {
		return printer.PrintSessionTable(records)
	}
	if len(records) == 0 {
		return fmt.Errorf("session %q not found in run %s", session, runID)
	}
	return printer.PrintTrials(records[0].Trials)
}
