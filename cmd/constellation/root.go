package main

import (
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/constellation/internal/cliapp"
	"github.com/alexisbeaulieu97/constellation/internal/cliconfig"
	"github.com/alexisbeaulieu97/constellation/internal/logging"
	"github.com/alexisbeaulieu97/constellation/internal/metrics"
)

type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "constellation",
		Short:         "Run and inspect Constellation dataflow executions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", cliconfig.DefaultConfigPath(), "Path to the CLI settings file")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Force full debug logging regardless of settings")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newResumeCmd(flags))
	cmd.AddCommand(newStoreCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// newApp loads flags.configPath and wires a cliapp.App from it, used by
// every subcommand that touches the engine.
func newApp(flags *rootFlags) (*cliapp.App, error) {
	cfg, err := cliconfig.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	debug := logging.DebugSetting(cfg.Log.Debug)
	if flags.verbose {
		debug = logging.DebugFull
	}
	logger := logging.New(logging.Options{
		Debug:   debug,
		Pretty:  cfg.Log.Pretty,
		Service: "constellation",
	})

	snapshotDir := filepath.Join(filepath.Dir(cfg.StorePath), "snapshots")
	return cliapp.New(logger, snapshotDir, cfg.StorePath)
}

// newMetricsCollector gives every `run` invocation a Collector (`resume`
// builds none: cliapp.App.Resume takes no MetricsCollector) backed by a
// private registry: the CLI is a one-shot process with no
// /metrics HTTP endpoint, so there is nothing for prometheus.DefaultRegisterer
// to serve here — a throwaway registry still exercises the
// ports.MetricsCollector wiring (module_invocations_total,
// module_duration_seconds) without leaking collectors across invocations.
func newMetricsCollector() *metrics.Collector {
	return metrics.New(prometheus.NewRegistry())
}
