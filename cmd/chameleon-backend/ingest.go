package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
	"github.com/fmcsa-watch/chameleon-backend/internal/runner"
	"github.com/fmcsa-watch/chameleon-backend/internal/schedule"
)

var (
	flagMaxSeeds        int
	flagExpandHops      int
	flagSkipCrashes     bool
	flagSkipInspections bool
	flagSchedule        time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Pull carrier, crash, and inspection data into the store",
	Args:  cobra.NoArgs,
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&flagMaxSeeds, "max-seeds", 0, "cap the number of prior-revoked seed carriers fetched (0 = unbounded)")
	ingestCmd.Flags().IntVar(&flagExpandHops, "expand-hops", 1, "number of identifier-expansion hops to run (0 or 1)")
	ingestCmd.Flags().BoolVar(&flagSkipCrashes, "skip-crashes", false, "skip the crash ingestion stage")
	ingestCmd.Flags().BoolVar(&flagSkipInspections, "skip-inspections", false, "skip the inspection ingestion stage")
	ingestCmd.Flags().DurationVar(&flagSchedule, "schedule", 0, "re-run ingestion on this interval instead of exiting after one run (e.g. 6h)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	gateway, keys, err := openStore()
	if err != nil {
		return err
	}
	r := newRunner(gateway, keys)

	if metrics := maybeStartMetrics(keys); metrics != nil {
		defer metrics.Shutdown()
	}
	notifier := connectNotifier(keys)
	defer notifier.Close()

	opts := runner.IngestOptions{
		MaxSeeds:        flagMaxSeeds,
		ExpandHops:      flagExpandHops,
		SkipCrashes:     flagSkipCrashes,
		SkipInspections: flagSkipInspections,
	}

	if flagSchedule > 0 {
		sched, err := schedule.New(r)
		if err != nil {
			return err
		}
		if err := sched.RegisterPeriodicIngest(flagSchedule); err != nil {
			return err
		}
		sched.Start()
		cmd.Println("ingest scheduled every", flagSchedule)
		select {}
	}

	runID, err := r.Ingest(context.Background(), opts)
	status := model.SyncRunDone
	errMsg := ""
	if err != nil {
		status = model.SyncRunFailed
		errMsg = err.Error()
	}
	notifier.PublishIngestDone(runID, status, 0, errMsg)
	if err != nil {
		return err
	}
	cmd.Println("ingest run:", runID)
	return nil
}
