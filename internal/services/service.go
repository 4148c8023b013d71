// Package services wires the analysis pipelines, the run store and the
// exporter together behind a named-service registry used by the CLI.
package services

import (
	"fmt"

	"trialkit/internal/config"
)

// Service is a named component initialized from the run environment.
type Service interface {
	Name() string
	Initialize(env *Environment) error
}

// Environment is what services are initialized with.
type Environment struct {
	Config     *config.Config
	ConfigFile string
	TestMode   bool
}

// Service names.
const (
	StorageServiceName  = "storage"
	ExportServiceName   = "export"
	BehaviorServiceName = "behavior"
	EphysServiceName    = "ephys"
)

// RegisterDefaults registers the named services, or all of them when no
// name is given, in dependency order: storage, export, behavior, ephys.
func RegisterDefaults(r *Registry, names ...string) error {
	factories := []struct {
		name string
		new  func() Service
	}{
		{StorageServiceName, func() Service { return NewStorageService() }},
		{ExportServiceName, func() Service { return NewExportService() }},
		{BehaviorServiceName, func() Service { return NewBehaviorService() }},
		{EphysServiceName, func() Service { return NewEphysService() }},
	}

	known := make(map[string]bool, len(factories))
	for _, f := range factories {
		known[f.name] = true
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if !known[name] {
			return fmt.Errorf("unknown service %q", name)
		}
		wanted[name] = true
	}

	for _, f := range factories {
		if len(names) > 0 && !wanted[f.name] {
			continue
		}
		if err := r.RegisterService(f.new()); err != nil {
			return err
		}
	}
	return nil
}
