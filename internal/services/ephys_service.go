package services

import (
	"fmt"

	"github.com/charmbracelet/log"

	"trialkit/internal/ephys"
	"trialkit/internal/logger"
	"trialkit/internal/storage"
	"trialkit/pkg/trialtypes"
)

// EphysResult is the outcome of one ephys run.
type EphysResult struct {
	Run     storage.Run
	Records []*trialtypes.EphysRecord
}

// EphysService runs the amplitude pipeline over a directory of cells.
type EphysService struct {
	analyzer *ephys.Analyzer
	log      *log.Logger
}

// NewEphysService creates an uninitialized ephys service.
func NewEphysService() *EphysService {
	return &EphysService{log: logger.NewStyledLogger("Ephys")}
}

// Name returns "ephys".
func (s *EphysService) Name() string {
	return EphysServiceName
}

// Initialize builds the analyzer from the ephys config.
func (s *EphysService) Initialize(env *Environment) error {
	s.analyzer = ephys.NewAnalyzer(env.Config.Ephys)
	return nil
}

// Run analyzes every cell directory under root, stores and exports the results.
func (s *EphysService) Run(root string) (*EphysResult, error) {
	if s.analyzer == nil {
		return nil, fmt.Errorf("ephys service not initialized")
	}

	store, err := GetGlobalStorageService()
	if err != nil {
		return nil, err
	}
	exporter, err := GetGlobalExportService()
	if err != nil {
		return nil, err
	}

	records, err := s.analyzer.AnalyzeRoot(root)
	if err != nil {
		return nil, err
	}

	run, err := store.StartRun(storage.KindEphys, len(records))
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := store.Store().SaveEphys(run.ID, rec); err != nil {
			return nil, err
		}
	}
	if err := store.Store().FinishRun(run.ID, len(records)); err != nil {
		return nil, err
	}
	run.Records = len(records)

	if err := exporter.ExportEphys(run, records); err != nil {
		return nil, err
	}

	s.log.Info("Run complete", "run", run.ID, "cells", len(records))
	return &EphysResult{Run: run, Records: records}, nil
}

// GetGlobalEphysService returns the ephys service from the global registry.
func GetGlobalEphysService() (*EphysService, error) {
	return lookup[*EphysService](EphysServiceName)
}
