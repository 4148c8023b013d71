package services

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	"trialkit/internal/behavior"
	"trialkit/internal/config"
	"trialkit/internal/logger"
	"trialkit/internal/storage"
	"trialkit/pkg/trialtypes"
)

// BehaviorResult is the outcome of one behavior run.
type BehaviorResult struct {
	Run     storage.Run
	Records []*trialtypes.SessionRecord
}

// BehaviorService runs the session pipeline over behavior files.
type BehaviorService struct {
	cfg       config.BehaviorConfig
	processor *behavior.Processor
	log       *log.Logger
}

// NewBehaviorService creates an uninitialized behavior service.
func NewBehaviorService() *BehaviorService {
	return &BehaviorService{log: logger.NewStyledLogger("Behavior")}
}

// Name returns "behavior".
func (s *BehaviorService) Name() string {
	return BehaviorServiceName
}

// Initialize loads the boundary table and builds the processor.
func (s *BehaviorService) Initialize(env *Environment) error {
	s.cfg = env.Config.Behavior
	boundaries, err := behavior.LoadBoundaries(s.cfg.BoundaryTable)
	if err != nil {
		return fmt.Errorf("failed to load boundary table: %w", err)
	}
	if len(boundaries) > 0 {
		s.log.Debug("Boundary table loaded", "file", s.cfg.BoundaryTable, "sessions", len(boundaries))
	}
	s.processor = behavior.NewProcessor(s.cfg, boundaries)
	return nil
}

// Processor returns the configured session processor.
func (s *BehaviorService) Processor() *behavior.Processor {
	return s.processor
}

// Run processes the files matched by patterns, stores every session and
// exports the results. Files that cannot be read are skipped; inputs that
// share a session key are rejected before anything is recorded.
func (s *BehaviorService) Run(patterns []string) (*BehaviorResult, error) {
	if s.processor == nil {
		return nil, fmt.Errorf("behavior service not initialized")
	}

	paths, err := ExpandInputs(patterns)
	if err != nil {
		return nil, err
	}
	if err := behavior.CheckSessionKeys(paths); err != nil {
		return nil, err
	}

	store, err := GetGlobalStorageService()
	if err != nil {
		return nil, err
	}
	exporter, err := GetGlobalExportService()
	if err != nil {
		return nil, err
	}

	run, err := store.StartRun(storage.KindBehavior, len(paths))
	if err != nil {
		return nil, err
	}

	records := s.processor.ProcessFiles(paths)
	for _, rec := range records {
		if err := store.Store().SaveSession(run.ID, rec); err != nil {
			return nil, err
		}
	}
	if err := store.Store().FinishRun(run.ID, len(records)); err != nil {
		return nil, err
	}
	run.Records = len(records)

	if err := exporter.ExportSessions(run, records); err != nil {
		return nil, err
	}

	s.log.Info("Run complete", "run", run.ID, "sessions", len(records))
	return &BehaviorResult{Run: run, Records: records}, nil
}

// ExpandInputs expands glob patterns into a sorted, de-duplicated file
// list. Patterns without glob characters are kept even when the file does
// not exist so the pipeline can report them.
func ExpandInputs(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad input pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	return paths, nil
}

// GetGlobalBehaviorService returns the behavior service from the global registry.
func GetGlobalBehaviorService() (*BehaviorService, error) {
	return lookup[*BehaviorService](BehaviorServiceName)
}
