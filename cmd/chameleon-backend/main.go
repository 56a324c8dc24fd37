package main

import (
	"os"

	"github.com/google/gops/agent"
	"github.com/spf13/cobra"

	"github.com/fmcsa-watch/chameleon-backend/internal/config"
	"github.com/fmcsa-watch/chameleon-backend/internal/fetch"
	"github.com/fmcsa-watch/chameleon-backend/internal/notify"
	"github.com/fmcsa-watch/chameleon-backend/internal/obsrv"
	"github.com/fmcsa-watch/chameleon-backend/internal/repository"
	"github.com/fmcsa-watch/chameleon-backend/internal/runner"
	"github.com/fmcsa-watch/chameleon-backend/pkg/log"
)

var (
	flagConfigFile  string
	flagLogLevel    string
	flagGops        bool
	flagMetricsAddr string
)

var rootCmd = &cobra.Command{
	Use:           "chameleon-backend",
	Short:         "Detect FMCSA chameleon carriers from census, crash, and inspection data",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetLogLevel(flagLogLevel)
		if flagGops {
			if err := agent.Listen(agent.Options{}); err != nil {
				log.Warnf("gops agent failed to start: %v", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to an optional JSON config overlay")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "loglevel", "info", "log level: debug, info, warn, err")
	rootCmd.PersistentFlags().BoolVar(&flagGops, "gops", false, "listen via github.com/google/gops/agent (for debugging)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "address to serve /metrics and /healthz on (empty disables)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(detectCmd)
}

// maybeStartMetrics starts the metrics server when an address was given,
// preferring the --metrics-addr flag over the configured default.
func maybeStartMetrics(keys config.Keys) *obsrv.Server {
	addr := flagMetricsAddr
	if addr == "" {
		addr = keys.MetricsAddr
	}
	if addr == "" {
		return nil
	}
	s := obsrv.NewServer(addr)
	s.Start()
	return s
}

// openStore loads config, connects to the store, and migrates it, the
// common setup every subcommand needs before touching the gateway.
func openStore() (*repository.Gateway, config.Keys, error) {
	keys, err := config.Init(flagConfigFile)
	if err != nil {
		return nil, keys, err
	}
	if err := repository.MigrateUp(keys.DatabaseURL); err != nil {
		return nil, keys, err
	}
	db, err := repository.Connect(keys.DatabaseURL)
	if err != nil {
		return nil, keys, err
	}
	return repository.NewGateway(db), keys, nil
}

func newRunner(gateway *repository.Gateway, keys config.Keys) *runner.Runner {
	client := fetch.NewClient(keys.ExternalAPIBase, keys.FetchTimeout)
	return runner.New(gateway, client)
}

// connectNotifier dials NATS when an address is configured; a nil
// *notify.Publisher is a valid, inert value, so callers don't need to
// branch on whether notifications are enabled.
func connectNotifier(keys config.Keys) *notify.Publisher {
	pub, err := notify.Connect(keys.NATSURL)
	if err != nil {
		log.Warnf("notify: could not connect to %s: %v", keys.NATSURL, err)
		return nil
	}
	return pub
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
