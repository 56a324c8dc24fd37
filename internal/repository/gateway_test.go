package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fmcsa-watch/chameleon-backend/internal/detect"
	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

// TestGatewayRoundTrip exercises the sqlite3 backend end to end: migrate,
// upsert carriers/crashes/inspections, bulk-load, run detection, write back,
// and confirm persist-then-load preserves score and reasons. Connect/migrate
// are process-wide singletons (see connection.go), so this lives in one test
// to keep ordering deterministic.
func TestGatewayRoundTrip(t *testing.T) {
	dsn := "sqlite3://file:gatewaytest?mode=memory&cache=shared"
	require.NoError(t, MigrateUp(dsn))
	db, err := Connect(dsn)
	require.NoError(t, err)
	g := NewGateway(db)

	now := time.Now().UTC()
	carriers := []*model.CarrierRecord{
		{DOT: 1, LegalName: "Acme Holdings", Phone: "555-100-0001", Officer1: "ACME HOLDINGS", AddDate: &now},
		{DOT: 2, LegalName: "Acme Holdings II", Phone: "5551000001", Officer1: "ACME HOLDINGS", AddDate: &now},
	}
	n, err := g.UpsertCarriers(carriers)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// Re-upserting must not duplicate rows.
	_, err = g.UpsertCarriers(carriers)
	require.NoError(t, err)

	crashes := []*model.CrashRecord{
		{DOT: 1, ReportDate: &now, ReportNumber: "R-1", Fatalities: 1, Injuries: 2},
	}
	_, err = g.UpsertCrashes(crashes)
	require.NoError(t, err)
	_, err = g.UpsertCrashes(crashes)
	require.NoError(t, err, "duplicate report_number must be a no-op, not an error")

	loaded, err := g.LoadAllCarriers()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	var byDOT = make(map[int64]*model.CarrierRecord)
	for _, c := range loaded {
		byDOT[c.DOT] = c
	}
	require.Equal(t, 1, byDOT[1].CrashCount)
	require.Equal(t, 1, byDOT[1].Fatalities)
	require.Equal(t, 0, byDOT[2].CrashCount)

	result := detect.Run(loaded, detect.DefaultThreshold, "run-test-1")
	require.NotEmpty(t, result.Links)
	for i := range result.RiskScores {
		result.RiskScores[i].UpdatedAt = now
	}

	require.NoError(t, g.WriteDetectionResult("run-test-1", result))

	var persistedLinks []struct {
		DOTA  int64   `db:"dot_number_a"`
		DOTB  int64   `db:"dot_number_b"`
		Score float64 `db:"score"`
	}
	require.NoError(t, db.Handle.Select(&persistedLinks,
		"SELECT dot_number_a, dot_number_b, score FROM carrier_link WHERE run_id = ?", "run-test-1"))
	require.Len(t, persistedLinks, 1)
	require.InDelta(t, result.Links[0].Score, persistedLinks[0].Score, 1e-6)

	require.NoError(t, g.StartSyncRun("run-test-1", "census"))
	require.NoError(t, g.FinishSyncRun("run-test-1", "census", model.SyncRunDone, 2, ""))

	var status string
	require.NoError(t, db.Handle.Get(&status,
		"SELECT status FROM sync_run WHERE run_id = ? AND dataset = ?", "run-test-1", "census"))
	require.Equal(t, string(model.SyncRunDone), status)
}
