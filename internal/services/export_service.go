package services

import (
	"github.com/charmbracelet/log"

	"trialkit/internal/export"
	"trialkit/internal/logger"
	"trialkit/internal/storage"
	"trialkit/pkg/trialtypes"
)

// ExportService writes run results to the export directory.
type ExportService struct {
	exporter *export.Exporter
	log      *log.Logger
}

// NewExportService creates an uninitialized export service.
func NewExportService() *ExportService {
	return &ExportService{log: logger.NewStyledLogger("Export")}
}

// Name returns "export".
func (s *ExportService) Name() string {
	return ExportServiceName
}

// Initialize prepares the exporter when export is enabled.
func (s *ExportService) Initialize(env *Environment) error {
	s.exporter = nil
	if env.Config.Export.Enabled {
		s.exporter = export.NewExporter(env.Config.Export.Directory)
	}
	return nil
}

// Enabled reports whether results are written to disk.
func (s *ExportService) Enabled() bool {
	return s.exporter != nil
}

// Dir returns the export directory, or "" when disabled.
func (s *ExportService) Dir() string {
	if s.exporter == nil {
		return ""
	}
	return s.exporter.Dir()
}

// ExportSessions writes the trial tables, trace matrices and run summary.
func (s *ExportService) ExportSessions(run storage.Run, records []*trialtypes.SessionRecord) error {
	if s.exporter == nil {
		return nil
	}

	for _, rec := range records {
		if _, err := s.exporter.WriteSessionTrials(rec); err != nil {
			return err
		}
		if _, err := s.exporter.WriteSessionTraces(rec); err != nil {
			return err
		}
	}

	summary := export.NewBehaviorSummary(run.ID, run.StartedAt, run.ConfigFile, records)
	path, err := s.exporter.WriteSummary(summary)
	if err != nil {
		return err
	}
	s.log.Info("Results exported", "file", path, "sessions", len(records))
	return nil
}

// ExportEphys writes the per-cell tables and run summary.
func (s *ExportService) ExportEphys(run storage.Run, records []*trialtypes.EphysRecord) error {
	if s.exporter == nil {
		return nil
	}

	for _, rec := range records {
		if _, err := s.exporter.WriteEphysRecord(rec); err != nil {
			return err
		}
	}

	summary := export.NewEphysSummary(run.ID, run.StartedAt, run.ConfigFile, records)
	path, err := s.exporter.WriteSummary(summary)
	if err != nil {
		return err
	}
	s.log.Info("Results exported", "file", path, "cells", len(records))
	return nil
}

// GetGlobalExportService returns the export service from the global registry.
func GetGlobalExportService() (*ExportService, error) {
	return lookup[*ExportService](ExportServiceName)
}
