// Package runner wires the ingestion orchestrator and detection engine to
// the store gateway behind the two top-level operations the CLI exposes:
// Ingest and Detect.
package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fmcsa-watch/chameleon-backend/internal/detect"
	"github.com/fmcsa-watch/chameleon-backend/internal/fetch"
	"github.com/fmcsa-watch/chameleon-backend/internal/ingest"
	"github.com/fmcsa-watch/chameleon-backend/internal/model"
	"github.com/fmcsa-watch/chameleon-backend/internal/repository"
	"github.com/fmcsa-watch/chameleon-backend/pkg/log"
)

// Runner is the coordinator the CLI and scheduler both drive.
type Runner struct {
	Gateway *repository.Gateway
	Client  *fetch.Client
}

// New builds a Runner over an already-connected gateway and fetch client.
func New(gateway *repository.Gateway, client *fetch.Client) *Runner {
	return &Runner{Gateway: gateway, Client: client}
}

// IngestOptions mirrors the ingest CLI flags. A blank RunID generates a
// fresh one.
type IngestOptions struct {
	RunID           string
	MaxSeeds        int
	ExpandHops      int
	SkipCrashes     bool
	SkipInspections bool
}

// Ingest runs the four-stage orchestrator against the connected store.
func (r *Runner) Ingest(ctx context.Context, opts IngestOptions) (string, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log.Infof("ingest run %s starting", runID)

	orch := ingest.New(r.Gateway, r.Client)
	err := orch.Ingest(ctx, ingest.Options{
		RunID:           runID,
		MaxSeeds:        opts.MaxSeeds,
		ExpandHops:      opts.ExpandHops,
		SkipCrashes:     opts.SkipCrashes,
		SkipInspections: opts.SkipInspections,
	})
	if err != nil {
		return runID, fmt.Errorf("runner: ingest %s: %w", runID, err)
	}
	log.Infof("ingest run %s finished", runID)
	return runID, nil
}

// Detect loads every known carrier, runs the affiliation-detection pipeline
// at threshold, and writes the result back under runID. A blank runID
// generates a fresh one, returned alongside the result so callers can
// correlate exports and notifications with it.
func (r *Runner) Detect(ctx context.Context, threshold float64, runID string) (string, detect.Result, error) {
	if runID == "" {
		runID = uuid.NewString()
	}

	carriers, err := r.Gateway.LoadAllCarriers()
	if err != nil {
		return runID, detect.Result{}, fmt.Errorf("runner: load carriers: %w", err)
	}
	if len(carriers) == 0 {
		return runID, detect.Result{}, fmt.Errorf("runner: detect %s: %w", runID, model.ErrInputMissing)
	}

	log.Infof("detect run %s scoring %d carriers at threshold %.2f", runID, len(carriers), threshold)
	result := detect.Run(carriers, threshold, runID)

	if err := r.Gateway.WriteDetectionResult(runID, result); err != nil {
		return runID, result, fmt.Errorf("runner: write detection result %s: %w", runID, err)
	}
	log.Infof("detect run %s produced %d links, %d clusters", runID, len(result.Links), len(result.Clusters))
	return runID, result, nil
}
