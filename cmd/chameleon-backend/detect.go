package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fmcsa-watch/chameleon-backend/internal/export"
	"github.com/fmcsa-watch/chameleon-backend/internal/obsrv"
	"github.com/fmcsa-watch/chameleon-backend/pkg/log"
)

var (
	flagThreshold float64
	flagRunID     string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Score carrier affiliations and write links, clusters, and risk scores",
	Args:  cobra.NoArgs,
	RunE:  runDetect,
}

func init() {
	detectCmd.Flags().Float64Var(&flagThreshold, "threshold", 30.0, "cluster-membership score cutoff")
	detectCmd.Flags().StringVar(&flagRunID, "run-id", "", "run identifier (default: a generated UUID)")
}

func runDetect(cmd *cobra.Command, args []string) error {
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

	ctx := context.Background()
	start := time.Now()
	runID, result, err := r.Detect(ctx, flagThreshold, flagRunID)
	obsrv.DetectDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	obsrv.DetectLinksTotal.Set(float64(len(result.Links)))
	obsrv.DetectClustersTotal.Set(float64(len(result.Clusters)))
	notifier.PublishDetectDone(runID, len(result.Links))

	if keys.S3Bucket != "" {
		target, err := export.NewTarget(ctx, keys.S3Bucket, keys.S3Prefix)
		if err != nil {
			return fmt.Errorf("detect: build export target: %w", err)
		}
		if err := target.WriteRiskScores(ctx, runID, result.RiskScores); err != nil {
			return fmt.Errorf("detect: export risk scores: %w", err)
		}
		log.Infof("detect: exported %d risk scores to s3://%s", len(result.RiskScores), keys.S3Bucket)
	}

	cmd.Println(fmt.Sprintf("links=%d clusters=%d scores=%d", len(result.Links), len(result.Clusters), len(result.RiskScores)))
	return nil
}
