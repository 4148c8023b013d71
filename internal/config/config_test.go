package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"trialkit/pkg/trialtypes"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load("", "")
	require.NoError(t, err)

	b := cfg.Behavior
	assert.Equal(t, 1000.0, b.SampleRate)
	assert.Equal(t, 15.0, b.TrimMinutes)
	assert.Equal(t, 900000, b.TrimFrames())
	assert.Equal(t, 120000, b.EpochFrames())
	assert.Equal(t, 1601, b.TraceLength())
	assert.Equal(t, 500, b.RewardTolerance)
	assert.Equal(t, 800, b.PreWindow)
	assert.Equal(t, []float64{0.25, 0.15}, b.Thresholds)
	assert.Equal(t, 0, b.TransitionFrom)
	assert.Equal(t, 1, b.TransitionTo)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{b.StateColumn, b.RewardColumn, b.LickColumn, b.PositionColumn})

	e := cfg.Ephys
	assert.Len(t, e.Conditions, 4)
	assert.Contains(t, e.Conditions, trialtypes.Condition{WavelengthNM: 590, HoldingMV: -70})
	assert.Equal(t, 1000, e.BaselineEnd)

	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "trialkit.db", cfg.Storage.Path)
	assert.Equal(t, "trialkit-out", cfg.Export.Directory)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `
behavior:
  sample_rate: 500
  thresholds: [0.4, 0.2, 0.1]
ephys:
  conditions:
    - wavelength_nm: 405
      holding_mv: -60
storage:
  path: runs.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loader := NewLoader()
	cfg, err := loader.Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, path, loader.ConfigFileUsed())
	assert.Equal(t, 500.0, cfg.Behavior.SampleRate)
	assert.Equal(t, []float64{0.4, 0.2, 0.1}, cfg.Behavior.Thresholds)
	assert.Equal(t, []trialtypes.Condition{{WavelengthNM: 405, HoldingMV: -60}}, cfg.Ephys.Conditions)
	assert.Equal(t, "runs.db", cfg.Storage.Path)
	assert.Equal(t, 800, cfg.Behavior.PreWindow)
}

func TestLoadMissingExplicitConfig(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "trialkit.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("behavior:\n  sample_rate: 100\n  trim_minutes: 5\n  reward_tolerance: 50\n"), 0o600))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TRIALKIT_BEHAVIOR_SAMPLE_RATE=200\nTRIALKIT_BEHAVIOR_TRIM_MINUTES=6\nUNRELATED=1\n"), 0o600))

	t.Setenv("TRIALKIT_BEHAVIOR_TRIM_MINUTES", "7")

	loader := NewLoader()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("reward-tolerance", 500, "")
	require.NoError(t, flags.Parse([]string{"--reward-tolerance=25"}))
	require.NoError(t, loader.BindFlag("behavior.reward_tolerance", flags.Lookup("reward-tolerance")))

	cfg, err := loader.Load(cfgPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, 200.0, cfg.Behavior.SampleRate, ".env beats config file")
	assert.Equal(t, 7.0, cfg.Behavior.TrimMinutes, "environment beats .env")
	assert.Equal(t, 25, cfg.Behavior.RewardTolerance, "flag beats config file")
}

func TestMissingDotEnvIgnored(t *testing.T) {
	_, err := NewLoader().Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestBindFlagNil(t *testing.T) {
	assert.Error(t, NewLoader().BindFlag("behavior.sample_rate", nil))
}

func TestValidate(t *testing.T) {
	cfg, err := NewLoader().Load("", "")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"rate", func(c *Config) { c.Behavior.SampleRate = 0 }, "sample_rate"},
		{"thresholds", func(c *Config) { c.Behavior.Thresholds = nil }, "thresholds"},
		{"zero threshold", func(c *Config) { c.Behavior.Thresholds = []float64{0.25, 0} }, "thresholds[1] must be positive"},
		{"negative threshold", func(c *Config) { c.Behavior.Thresholds = []float64{-0.1} }, "thresholds[0] must be positive"},
		{"pre window", func(c *Config) { c.Behavior.PreWindow = 1 }, "pre_window"},
		{"column", func(c *Config) { c.Behavior.LickColumn = -1 }, "lick_column"},
		{"peak window", func(c *Config) { c.Ephys.PeakEnd = c.Ephys.PeakStart }, "ephys.peak window"},
		{"conditions", func(c *Config) { c.Ephys.Conditions = nil }, "conditions"},
		{"storage path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"export dir", func(c *Config) { c.Export.Directory = "" }, "export.directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *cfg
			c.Behavior.Thresholds = append([]float64(nil), cfg.Behavior.Thresholds...)
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFrameConversionRounds(t *testing.T) {
	b := BehaviorConfig{SampleRate: 1000, TrimMinutes: 0.57, EpochSeconds: 1.005}
	assert.Equal(t, 34200, b.TrimFrames())
	assert.Equal(t, 1005, b.EpochFrames())
}

func TestDisabledStorageNeedsNoPath(t *testing.T) {
	cfg, err := NewLoader().Load("", "")
	require.NoError(t, err)
	cfg.Storage.Enabled = false
	cfg.Storage.Path = ""
	assert.NoError(t, cfg.Validate())
}

func TestWrite(t *testing.T) {
	cfg, err := NewLoader().Load("", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cfg))

	var decoded Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, cfg.Behavior.SampleRate, decoded.Behavior.SampleRate)
	assert.Equal(t, cfg.Ephys.Conditions, decoded.Ephys.Conditions)
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "TRIALKIT_BEHAVIOR_SAMPLE_RATE", EnvName("behavior.sample_rate"))
}
