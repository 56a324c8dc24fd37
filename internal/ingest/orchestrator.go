// Package ingest implements the four-stage ingestion orchestrator: seed
// from prior-revoked carriers, expand one hop over shared identifiers,
// then pull crashes and inspections for the active scope.
package ingest

import (
	"context"
	"strings"

	"github.com/fmcsa-watch/chameleon-backend/internal/fetch"
	"github.com/fmcsa-watch/chameleon-backend/internal/model"
	"github.com/fmcsa-watch/chameleon-backend/internal/normalize"
	"github.com/fmcsa-watch/chameleon-backend/internal/obsrv"
	"github.com/fmcsa-watch/chameleon-backend/pkg/log"
)

const (
	dotBatchSize     = 100
	phoneBatchSize   = 20
	officerBatchSize = 10
	addressBatchSize = 10

	maxSeedExpansionPhones    = 200
	maxSeedExpansionOfficers  = 100
	maxSeedExpansionAddresses = 100
)

// Store is the subset of the repository gateway the orchestrator needs.
// Declaring it here (rather than importing the concrete type) keeps ingest
// testable against a fake and avoids repository depending back on ingest.
type Store interface {
	UpsertCarriers(carriers []*model.CarrierRecord) (int, error)
	UpsertCrashes(crashes []*model.CrashRecord) (int, error)
	UpsertInspections(inspections []*model.InspectionRecord) (int, error)
	KnownDOTs() (map[int64]bool, error)
	StartSyncRun(runID, dataset string) error
	FinishSyncRun(runID, dataset string, status model.SyncRunStatus, rowsProcessed int, errMsg string) error
}

// Options controls which stages run and how far expansion goes.
type Options struct {
	RunID           string
	MaxSeeds        int
	ExpandHops      int // 0 or 1
	SkipCrashes     bool
	SkipInspections bool
}

// Orchestrator wires the fetch client and store gateway together.
type Orchestrator struct {
	Store  Store
	Client *fetch.Client
}

// New builds an Orchestrator.
func New(store Store, client *fetch.Client) *Orchestrator {
	return &Orchestrator{Store: store, Client: client}
}

// Ingest runs the four stages in order. Each stage's failure marks only its
// own SyncRun as failed and does not abort later stages.
func (o *Orchestrator) Ingest(ctx context.Context, opts Options) error {
	scope := make(map[int64]bool)

	log.Stage("ingest:seeds")
	if err := o.Store.StartSyncRun(opts.RunID, "census"); err != nil {
		return err
	}
	seedDOTs, seedRows, err := o.Stage1Seeds(ctx, opts.MaxSeeds)
	o.finishStage(opts.RunID, "census", seedRows, err)
	if err == nil {
		for d := range seedDOTs {
			scope[d] = true
		}
	}

	if opts.ExpandHops >= 1 {
		log.Stage("ingest:expand")
		if err := o.Store.StartSyncRun(opts.RunID, "expand"); err != nil {
			return err
		}
		expanded, expandedRows, err := o.Stage2Expand(ctx, scope)
		o.finishStage(opts.RunID, "expand", expandedRows, err)
		if err == nil {
			for d := range expanded {
				scope[d] = true
			}
		}
	}

	if !opts.SkipCrashes {
		log.Stage("ingest:crashes")
		if err := o.Store.StartSyncRun(opts.RunID, "crash"); err != nil {
			return err
		}
		n, err := o.Stage3Crashes(ctx, dotsOf(scope))
		o.finishStage(opts.RunID, "crash", n, err)
	}

	if !opts.SkipInspections {
		log.Stage("ingest:inspections")
		if err := o.Store.StartSyncRun(opts.RunID, "inspection"); err != nil {
			return err
		}
		n, err := o.Stage4Inspections(ctx, dotsOf(scope))
		o.finishStage(opts.RunID, "inspection", n, err)
	}

	return nil
}

// finishStage closes out a dataset's SyncRun and records the outcome on the
// shared ingest counters, the same status/row-count pair either way.
func (o *Orchestrator) finishStage(runID, dataset string, rows int, stageErr error) {
	status := model.SyncRunDone
	errMsg := ""
	if stageErr != nil {
		log.Errorf("%s stage failed: %v", dataset, stageErr)
		status = model.SyncRunFailed
		errMsg = stageErr.Error()
	}
	_ = o.Store.FinishSyncRun(runID, dataset, status, rows, errMsg)
	obsrv.IngestRowsTotal.WithLabelValues(dataset).Add(float64(rows))
	obsrv.IngestRunsTotal.WithLabelValues(dataset, string(status)).Inc()
}

func dotsOf(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	return out
}

// normalizedOfficer is a small wrapper so call sites read clearly; officer
// co-occurrence matching is case-upper-normalized.
func normalizedOfficer(s string) string {
	return strings.ToUpper(normalize.Officer(s))
}
