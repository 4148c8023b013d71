package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"trialkit/internal/config"
	"trialkit/internal/logger"
	"trialkit/internal/output"
	"trialkit/internal/services"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	logLevel   string
	logFile    string
	testMode   bool
	configFile string
	envFile    string
	outputMode string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "trialkit",
		Short: "trialkit - reach trial and ephys amplitude analysis",
		Long: `trialkit segments manipulandum behavior recordings into reach trials,
aligns them on movement onset and splits them into stimulation epochs.
It also measures light-evoked current amplitudes from patch-clamp traces.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Configure(opts.logLevel, opts.logFile, opts.testMode); err != nil {
				return fmt.Errorf("failed to configure logger: %w", err)
			}
			return opts.configurePrinter(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	flags.StringVar(&opts.logFile, "log-file", "", "Write logs to file instead of stderr")
	flags.BoolVar(&opts.testMode, "test-mode", false, "Run in deterministic test mode")
	flags.StringVarP(&opts.configFile, "config", "c", "", "Config file [default: ./trialkit.yaml when present]")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Dotenv file with TRIALKIT_* overrides")
	flags.StringVarP(&opts.outputMode, "output", "o", "auto", "Output mode (auto|styled|plain|json)")

	rootCmd.AddCommand(
		newBehaviorCmd(opts),
		newEphysCmd(opts),
		newRunsCmd(opts),
		newShowCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig merges defaults, config file, .env, environment and the
// command's flags. flagKeys maps flag names to config keys.
func (o *globalOptions) loadConfig(cmd *cobra.Command, flagKeys map[string]string) (*config.Config, string, error) {
	loader := config.NewLoader()
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return nil, "", fmt.Errorf("unknown flag %q", name)
		}
		if err := loader.BindFlag(key, flag); err != nil {
			return nil, "", fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	cfg, err := loader.Load(o.configFile, o.envFile)
	if err != nil {
		return nil, "", err
	}
	return cfg, loader.ConfigFileUsed(), nil
}

// configurePrinter points the global printer at the command's output with
// the requested mode.
func (o *globalOptions) configurePrinter(cmd *cobra.Command) error {
	mode, ok := output.ParseMode(o.outputMode)
	if !ok {
		return fmt.Errorf("unknown output mode %q", o.outputMode)
	}
	output.ConfigureGlobal(append(output.Options(mode, o.testMode), output.WithWriter(cmd.OutOrStdout()))...)
	return nil
}

// startServices installs a fresh global registry holding the named services
// and initializes them. The returned func closes them.
func (o *globalOptions) startServices(cfg *config.Config, configFile string, names ...string) (func(), error) {
	registry := services.NewRegistry()
	if err := services.RegisterDefaults(registry, names...); err != nil {
		return nil, err
	}
	services.SetGlobalRegistry(registry)

	env := &services.Environment{Config: cfg, ConfigFile: configFile, TestMode: o.testMode}
	if err := registry.InitializeAll(env); err != nil {
		_ = registry.CloseAll()
		return nil, err
	}
	return func() {
		if err := registry.CloseAll(); err != nil {
			logger.Error("Failed to close services", "error", err)
		}
	}, nil
}

// applyToggles turns a --no-<thing> flag into a disabled config section.
func applyToggles(flags *pflag.FlagSet, cfg *config.Config) {
	if noStore, _ := flags.GetBool("no-store"); noStore {
		cfg.Storage.Enabled = false
	}
	if noExport, _ := flags.GetBool("no-export"); noExport {
		cfg.Export.Enabled = false
	}
}

// addRunFlags adds the storage and export flags shared by analysis commands.
func addRunFlags(cmd *cobra.Command) map[string]string {
	cmd.Flags().String("db", "", "SQLite run store path")
	cmd.Flags().String("out", "", "Export directory")
	cmd.Flags().Bool("no-store", false, "Do not record the run in the run store")
	cmd.Flags().Bool("no-export", false, "Do not write CSV/YAML exports")
	return map[string]string{
		"db":  "storage.path",
		"out": "export.directory",
	}
}
