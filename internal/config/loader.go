package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the config file looked up in the working directory
// when no explicit path is given.
const DefaultConfigName = "trialkit"

// Loader layers configuration sources on top of a viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a loader with every default registered.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("behavior.sample_rate", 1000.0)
	v.SetDefault("behavior.trim_minutes", 15.0)
	v.SetDefault("behavior.header_rows", 1)
	v.SetDefault("behavior.state_column", 1)
	v.SetDefault("behavior.reward_column", 2)
	v.SetDefault("behavior.lick_column", 3)
	v.SetDefault("behavior.position_column", 4)
	v.SetDefault("behavior.transition_from", 0)
	v.SetDefault("behavior.transition_to", 1)
	v.SetDefault("behavior.reward_tolerance", 500)
	v.SetDefault("behavior.pre_window", 800)
	v.SetDefault("behavior.half_window", 800)
	v.SetDefault("behavior.thresholds", []float64{0.25, 0.15})
	v.SetDefault("behavior.epoch_seconds", 120.0)
	v.SetDefault("behavior.boundary_table", "")

	v.SetDefault("ephys.column", 0)
	v.SetDefault("ephys.header_rows", 0)
	v.SetDefault("ephys.baseline_start", 0)
	v.SetDefault("ephys.baseline_end", 1000)
	v.SetDefault("ephys.peak_start", 1000)
	v.SetDefault("ephys.peak_end", 1500)
	v.SetDefault("ephys.snippet_start", 900)
	v.SetDefault("ephys.snippet_end", 2000)
	v.SetDefault("ephys.conditions", []map[string]interface{}{
		{"wavelength_nm": 470, "holding_mv": -70},
		{"wavelength_nm": 470, "holding_mv": 0},
		{"wavelength_nm": 590, "holding_mv": -70},
		{"wavelength_nm": 590, "holding_mv": 0},
	})

	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.path", "trialkit.db")
	v.SetDefault("export.enabled", true)
	v.SetDefault("export.directory", "trialkit-out")
}

// BindFlag binds a command-line flag to a configuration key.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag to bind for %s", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads the optional config file and .env file and returns the merged,
// validated configuration. An explicit configFile must exist; without one,
// trialkit.yaml in the working directory is used when present. A missing
// envFile is ignored.
func (l *Loader) Load(configFile, envFile string) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		l.v.SetConfigName(DefaultConfigName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if envFile != "" {
		if err := l.mergeDotEnv(envFile); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the config file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// mergeDotEnv folds TRIALKIT_* entries from a .env file into the config layer,
// so they rank below real environment variables and flags.
func (l *Loader) mergeDotEnv(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	overlay := map[string]interface{}{}
	for _, key := range l.v.AllKeys() {
		val, ok := values[EnvName(key)]
		if !ok {
			continue
		}
		setNested(overlay, strings.Split(key, "."), val)
	}
	if len(overlay) == 0 {
		return nil
	}
	return l.v.MergeConfigMap(overlay)
}

// EnvName returns the environment variable that overrides a config key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setNested(m map[string]interface{}, path []string, val interface{}) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = val
}

// Write renders the configuration as YAML.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
