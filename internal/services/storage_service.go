package services

import (
	"fmt"

	"github.com/charmbracelet/log"

	"trialkit/internal/logger"
	"trialkit/internal/storage"
	"trialkit/internal/testutils"
)

// StorageService owns the run store for the lifetime of a command.
type StorageService struct {
	store      *storage.SQLiteStorage
	configFile string
	testMode   bool
	log        *log.Logger
}

// NewStorageService creates an uninitialized storage service.
func NewStorageService() *StorageService {
	return &StorageService{log: logger.NewStyledLogger("Storage")}
}

// Name returns "storage".
func (s *StorageService) Name() string {
	return StorageServiceName
}

// Initialize opens the database named in the storage config. A disabled
// store accepts every call and records nothing.
func (s *StorageService) Initialize(env *Environment) error {
	path := ""
	if env.Config.Storage.Enabled {
		path = env.Config.Storage.Path
	}
	s.configFile = env.ConfigFile
	s.testMode = env.TestMode

	s.store = storage.NewStorage(path)
	if err := s.store.Init(); err != nil {
		return err
	}
	if s.store.Enabled() {
		s.log.Debug("Run store opened", "file", path)
	}
	return nil
}

// Store returns the underlying store.
func (s *StorageService) Store() storage.Storage {
	return s.store
}

// Enabled reports whether runs are persisted.
func (s *StorageService) Enabled() bool {
	return s.store != nil && s.store.Enabled()
}

// StartRun creates and records a run of the given kind.
func (s *StorageService) StartRun(kind string, inputs int) (storage.Run, error) {
	run := storage.Run{
		ID:         testutils.GenerateUUID(s.testMode),
		Kind:       kind,
		StartedAt:  testutils.GetCurrentTime(s.testMode),
		ConfigFile: s.configFile,
		Inputs:     inputs,
	}
	if s.store == nil {
		return run, fmt.Errorf("storage service not initialized")
	}
	if err := s.store.CreateRun(run); err != nil {
		return run, err
	}
	return run, nil
}

// Close closes the store.
func (s *StorageService) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// GetGlobalStorageService returns the storage service from the global registry.
func GetGlobalStorageService() (*StorageService, error) {
	return lookup[*StorageService](StorageServiceName)
}
