// Package config loads trialkit settings from defaults, an optional YAML file,
// a .env file, TRIALKIT_* environment variables and command-line flags.
// Later sources override earlier ones; flags win.
package config

import (
	"errors"
	"fmt"
	"math"

	"trialkit/pkg/trialtypes"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "TRIALKIT"

// Config is the complete runtime configuration.
type Config struct {
	Behavior BehaviorConfig `mapstructure:"behavior" yaml:"behavior"`
	Ephys    EphysConfig    `mapstructure:"ephys" yaml:"ephys"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Export   ExportConfig   `mapstructure:"export" yaml:"export"`
}

// BehaviorConfig controls trial extraction from manipulandum recordings.
type BehaviorConfig struct {
	SampleRate      float64   `mapstructure:"sample_rate" yaml:"sample_rate"`   // frames per second
	TrimMinutes     float64   `mapstructure:"trim_minutes" yaml:"trim_minutes"` // analysed recording length
	HeaderRows      int       `mapstructure:"header_rows" yaml:"header_rows"`
	StateColumn     int       `mapstructure:"state_column" yaml:"state_column"`
	RewardColumn    int       `mapstructure:"reward_column" yaml:"reward_column"`
	LickColumn      int       `mapstructure:"lick_column" yaml:"lick_column"`
	PositionColumn  int       `mapstructure:"position_column" yaml:"position_column"`
	TransitionFrom  int       `mapstructure:"transition_from" yaml:"transition_from"`
	TransitionTo    int       `mapstructure:"transition_to" yaml:"transition_to"`
	RewardTolerance int       `mapstructure:"reward_tolerance" yaml:"reward_tolerance"` // frames
	PreWindow       int       `mapstructure:"pre_window" yaml:"pre_window"`             // frames searched before a trial
	HalfWindow      int       `mapstructure:"half_window" yaml:"half_window"`           // frames kept each side of onset
	Thresholds      []float64 `mapstructure:"thresholds" yaml:"thresholds"`
	EpochSeconds    float64   `mapstructure:"epoch_seconds" yaml:"epoch_seconds"`
	BoundaryTable   string    `mapstructure:"boundary_table" yaml:"boundary_table"`
}

// EphysConfig controls amplitude measurement on evoked current traces.
type EphysConfig struct {
	Column        int                    `mapstructure:"column" yaml:"column"`
	HeaderRows    int                    `mapstructure:"header_rows" yaml:"header_rows"`
	BaselineStart int                    `mapstructure:"baseline_start" yaml:"baseline_start"`
	BaselineEnd   int                    `mapstructure:"baseline_end" yaml:"baseline_end"`
	PeakStart     int                    `mapstructure:"peak_start" yaml:"peak_start"`
	PeakEnd       int                    `mapstructure:"peak_end" yaml:"peak_end"`
	SnippetStart  int                    `mapstructure:"snippet_start" yaml:"snippet_start"`
	SnippetEnd    int                    `mapstructure:"snippet_end" yaml:"snippet_end"`
	Conditions    []trialtypes.Condition `mapstructure:"conditions" yaml:"conditions"`
}

// StorageConfig controls the SQLite run store.
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ExportConfig controls CSV/YAML exports.
type ExportConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// TrimFrames is the number of frames kept from the start of each recording.
func (b BehaviorConfig) TrimFrames() int {
	return int(math.Round(b.TrimMinutes * 60 * b.SampleRate))
}

// EpochFrames is the length of the baseline and post-stim windows in frames.
func (b BehaviorConfig) EpochFrames() int {
	return int(math.Round(b.EpochSeconds * b.SampleRate))
}

// TraceLength is the fixed length of every onset-aligned trace window.
func (b BehaviorConfig) TraceLength() int {
	return 2*b.HalfWindow + 1
}

// Validate checks that the configuration can drive an analysis.
func (c *Config) Validate() error {
	var errs []error
	b := c.Behavior
	if b.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("behavior.sample_rate must be positive, got %v", b.SampleRate))
	}
	if b.TrimMinutes <= 0 {
		errs = append(errs, fmt.Errorf("behavior.trim_minutes must be positive, got %v", b.TrimMinutes))
	}
	if b.PreWindow <= 1 {
		errs = append(errs, fmt.Errorf("behavior.pre_window must be greater than 1, got %d", b.PreWindow))
	}
	if b.HalfWindow < 0 {
		errs = append(errs, fmt.Errorf("behavior.half_window must not be negative, got %d", b.HalfWindow))
	}
	if b.RewardTolerance <= 0 {
		errs = append(errs, fmt.Errorf("behavior.reward_tolerance must be positive, got %d", b.RewardTolerance))
	}
	if len(b.Thresholds) == 0 {
		errs = append(errs, errors.New("behavior.thresholds must list at least one threshold"))
	}
	for i, th := range b.Thresholds {
		if !(th > 0) {
			errs = append(errs, fmt.Errorf("behavior.thresholds[%d] must be positive, got %v", i, th))
		}
	}
	if b.EpochSeconds <= 0 {
		errs = append(errs, fmt.Errorf("behavior.epoch_seconds must be positive, got %v", b.EpochSeconds))
	}
	for name, col := range map[string]int{
		"state_column":    b.StateColumn,
		"reward_column":   b.RewardColumn,
		"lick_column":     b.LickColumn,
		"position_column": b.PositionColumn,
	} {
		if col < 0 {
			errs = append(errs, fmt.Errorf("behavior.%s must not be negative, got %d", name, col))
		}
	}

	e := c.Ephys
	if e.Column < 0 {
		errs = append(errs, fmt.Errorf("ephys.column must not be negative, got %d", e.Column))
	}
	for name, w := range map[string][2]int{
		"baseline": {e.BaselineStart, e.BaselineEnd},
		"peak":     {e.PeakStart, e.PeakEnd},
		"snippet":  {e.SnippetStart, e.SnippetEnd},
	} {
		if w[0] < 0 || w[1] <= w[0] {
			errs = append(errs, fmt.Errorf("ephys.%s window [%d, %d) is empty or negative", name, w[0], w[1]))
		}
	}
	if len(e.Conditions) == 0 {
		errs = append(errs, errors.New("ephys.conditions must list at least one condition"))
	}

	if c.Storage.Enabled && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required when storage is enabled"))
	}
	if c.Export.Enabled && c.Export.Directory == "" {
		errs = append(errs, errors.New("export.directory is required when export is enabled"))
	}
	return errors.Join(errs...)
}
