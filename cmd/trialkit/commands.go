package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trialkit/internal/config"
	"trialkit/internal/output"
	"trialkit/internal/services"
	"trialkit/internal/storage"
	"trialkit/internal/version"
)

func newBehaviorCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "behavior <file|glob>...",
		Short: "Extract trials from behavior recordings",
		Long: `Segment each behavior CSV into reach trials, match rewards, align trials
on movement onset, cut trace windows and classify stimulation epochs.
Missing files are skipped.`,
		Args: cobra.MinimumNArgs(1),
	}

	flagKeys := addRunFlags(cmd)
	cmd.Flags().String("stim-table", "", "CSV with session, stim_start_s, stim_end_s")
	cmd.Flags().Float64("sample-rate", 0, "Frames per second [default: 1000]")
	cmd.Flags().Float64("trim-minutes", 0, "Analysed recording length in minutes [default: 15]")
	flagKeys["stim-table"] = "behavior.boundary_table"
	flagKeys["sample-rate"] = "behavior.sample_rate"
	flagKeys["trim-minutes"] = "behavior.trim_minutes"

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, configFile, err := opts.loadConfig(cmd, flagKeys)
		if err != nil {
			return err
		}
		applyToggles(cmd.Flags(), cfg)

		printer := output.GetGlobalPrinter()

		stop, err := opts.startServices(cfg, configFile,
			services.StorageServiceName, services.ExportServiceName, services.BehaviorServiceName)
		if err != nil {
			return err
		}
		defer stop()

		svc, err := services.GetGlobalBehaviorService()
		if err != nil {
			return err
		}
		result, err := svc.Run(args)
		if err != nil {
			return err
		}

		if !printer.IsJSON() {
			printer.Header(fmt.Sprintf("Run %s", result.Run.ID))
		}
		if err := printer.PrintSessionTable(result.Records); err != nil {
			return err
		}
		if len(result.Records) == 0 {
			printer.Warning("No sessions could be processed")
		}
		return nil
	}
	return cmd
}

func newEphysCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ephys <root>",
		Short: "Measure evoked current amplitudes per cell",
		Long: `Every subdirectory of root is a cell holding one trace file per condition,
named <wavelength>nm_<holding>mV.csv. Missing conditions are reported as absent.`,
		Args: cobra.ExactArgs(1),
	}

	flagKeys := addRunFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, configFile, err := opts.loadConfig(cmd, flagKeys)
		if err != nil {
			return err
		}
		applyToggles(cmd.Flags(), cfg)

		printer := output.GetGlobalPrinter()

		stop, err := opts.startServices(cfg, configFile,
			services.StorageServiceName, services.ExportServiceName, services.EphysServiceName)
		if err != nil {
			return err
		}
		defer stop()

		svc, err := services.GetGlobalEphysService()
		if err != nil {
			return err
		}
		result, err := svc.Run(args[0])
		if err != nil {
			return err
		}

		if !printer.IsJSON() {
			printer.Header(fmt.Sprintf("Run %s", result.Run.ID))
		}
		if err := printer.PrintEphysTable(result.Records); err != nil {
			return err
		}
		if len(result.Records) == 0 {
			printer.Warning("No cells with traces found")
		}
		return nil
	}
	return cmd
}

// openStore loads the config and opens only the run store.
func openStore(opts *globalOptions, cmd *cobra.Command) (storage.Storage, func(), error) {
	cfg, configFile, err := opts.loadConfig(cmd, map[string]string{"db": "storage.path"})
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Storage.Enabled {
		return nil, nil, fmt.Errorf("run store is disabled in the configuration")
	}

	stop, err := opts.startServices(cfg, configFile, services.StorageServiceName)
	if err != nil {
		return nil, nil, err
	}
	svc, err := services.GetGlobalStorageService()
	if err != nil {
		stop()
		return nil, nil, err
	}
	return svc.Store(), stop, nil
}

func newRunsCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printer := output.GetGlobalPrinter()
			store, stop, err := openStore(opts, cmd)
			if err != nil {
				return err
			}
			defer stop()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			return printer.PrintRuns(runs)
		},
	}
	cmd.Flags().String("db", "", "SQLite run store path")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs (0 for all)")
	return cmd
}

func newShowCmd(opts *globalOptions) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the stored results of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := output.GetGlobalPrinter()
			store, stop, err := openStore(opts, cmd)
			if err != nil {
				return err
			}
			defer stop()

			run, err := store.GetRun(args[0])
			if err != nil {
				return err
			}
			if !printer.IsJSON() {
				printer.Header(fmt.Sprintf("Run %s (%s, %d records)", run.ID, run.Kind, run.Records))
			}

			switch run.Kind {
			case storage.KindEphys:
				rows, err := store.ListEphys(run.ID)
				if err != nil {
					return err
				}
				return printer.PrintEphysTable(storage.Records(rows))
			default:
				return showSessions(printer, store, run.ID, session)
			}
		},
	}
	cmd.Flags().String("db", "", "SQLite run store path")
	cmd.Flags().StringVar(&session, "session", "", "Print the trials of one session")
	return cmd
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			return config.Write(cmd.OutOrStdout(), cfg)
		},
	}
}

func newVersionCmd() *cobra.Command {
	var detailed bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			printer := output.GetGlobalPrinter()
			if printer.IsJSON() {
				info, err := version.GetInfo()
				if err != nil {
					return err
				}
				return printer.Value(info)
			}
			if detailed {
				printer.Println(version.GetDetailedVersion())
				return nil
			}
			printer.Println(version.GetFormattedVersion())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&detailed, "detailed", "d", false, "Show build details")
	return cmd
}
