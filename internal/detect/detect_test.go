package detect

import (
	"testing"
	"time"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestRarityBoundaries(t *testing.T) {
	assert.Equal(t, 0.0, rarity(0))
	assert.Equal(t, 0.0, rarity(1))
	assert.Equal(t, 1.0, rarity(2))
	assert.Equal(t, 0.5, rarity(4))
}

func TestScenarioOnePhoneOfficerAddressAndTemporal(t *testing.T) {
	a := &model.CarrierRecord{
		DOT: 1, Phone: "555-100-0001", Officer1: "ACME HOLDINGS",
		PhyStreet: "10 First Street", PhyCity: "Austin", PhyState: "TX",
		AddDate: date("2024-01-01"), StatusCode: "ACTIVE",
	}
	b := &model.CarrierRecord{
		DOT: 2, Phone: "5551000001", Officer1: "ACME HOLDINGS",
		PhyStreet: "10 First St", PhyCity: "Austin", PhyState: "TX",
		AddDate: date("2024-02-10"), StatusCode: "OUT OF SERVICE",
	}

	res := Run([]*model.CarrierRecord{a, b}, DefaultThreshold, "run-1")

	require.Len(t, res.Links, 1)
	link := res.Links[0]
	assert.Equal(t, int64(1), link.DOTA)
	assert.Equal(t, int64(2), link.DOTB)
	assert.InDelta(t, 160.0, link.Score, 1e-6)

	require.Len(t, res.Clusters, 1)
	assert.Equal(t, "C0001", res.Clusters[0].ClusterID)
	assert.Equal(t, 2, res.Clusters[0].Size)

	riskByDOT := indexRisk(res.RiskScores)
	assert.InDelta(t, 10.0, riskByDOT[1].ChameleonScore, 1e-6)
	assert.InDelta(t, 0.0, riskByDOT[1].SafetyScore, 1e-6)
	assert.InDelta(t, 7.00, riskByDOT[1].CompositeScore, 1e-6)
}

func TestScenarioTwoSharedPhoneThreeWayRarity(t *testing.T) {
	carriers := []*model.CarrierRecord{
		{DOT: 1, Phone: "555-000-0000"},
		{DOT: 2, Phone: "555-000-0000"},
		{DOT: 3, Phone: "555-000-0000"},
	}
	res := Run(carriers, DefaultThreshold, "run-2")
	require.Len(t, res.Links, 3)
	for _, l := range res.Links {
		assert.InDelta(t, 40.0*(2.0/3.0), l.Score, 1e-6)
	}
	assert.Empty(t, res.Clusters, "26.667 < threshold 30, no clusters")
}

func TestScenarioThreePriorRevoke(t *testing.T) {
	x := &model.CarrierRecord{DOT: 10, PriorRevoke: model.PriorRevokeYes, PriorRevokeDOT: 20}
	y := &model.CarrierRecord{DOT: 20}
	res := Run([]*model.CarrierRecord{x, y}, DefaultThreshold, "run-3")
	require.Len(t, res.Links, 1)
	riskByDOT := indexRisk(res.RiskScores)
	assert.GreaterOrEqual(t, riskByDOT[10].CompositeScore, 28.0)
	foundPriorRevokeSignal := false
	for _, s := range riskByDOT[10].Signals {
		if s == "prior_revoke_flag" {
			foundPriorRevokeSignal = true
		}
	}
	assert.True(t, foundPriorRevokeSignal)
}

func TestScenarioFourSafetyClamped(t *testing.T) {
	c := &model.CarrierRecord{DOT: 1, PowerUnits: 10, CrashCount: 6, Fatalities: 1}
	res := Run([]*model.CarrierRecord{c}, DefaultThreshold, "run-4")
	riskByDOT := indexRisk(res.RiskScores)
	assert.InDelta(t, 100.0, riskByDOT[1].SafetyScore, 1e-6)
	assert.InDelta(t, 30.0, 0.3*riskByDOT[1].SafetyScore, 1e-6)
}

func TestScenarioFiveSharedVIN(t *testing.T) {
	a := &model.CarrierRecord{DOT: 1, VINs: []string{"1HGBH41JXMN109186"}}
	b := &model.CarrierRecord{DOT: 2, VINs: []string{"1hgbh41jxmn109186"}}
	res := Run([]*model.CarrierRecord{a, b}, DefaultThreshold, "run-5")
	require.Len(t, res.Links, 1)
	assert.InDelta(t, 60.0, res.Links[0].Score, 1e-6)
	riskByDOT := indexRisk(res.RiskScores)
	assert.GreaterOrEqual(t, riskByDOT[1].ChameleonScore, 10.0)
}

func TestScenarioSixFullyConnectedClusterOfFour(t *testing.T) {
	// Four carriers share one officer name so every pair gets the same
	// weight (55); stack officer + another shared feature so the pairwise
	// score clears the default clustering threshold deterministically.
	carriers := make([]*model.CarrierRecord, 4)
	for i := range carriers {
		carriers[i] = &model.CarrierRecord{
			DOT:      int64(i + 1),
			Officer1: "SAME OFFICER NAME",
			Fax:      "555-222-2222",
		}
	}
	res := Run(carriers, DefaultThreshold, "run-6")
	require.Len(t, res.Clusters, 1)
	cl := res.Clusters[0]
	assert.Equal(t, "C0001", cl.ClusterID)
	assert.Equal(t, 4, cl.Size)
	assert.Equal(t, 6, cl.EdgeCount)
}

func TestLinkInvariants(t *testing.T) {
	carriers := []*model.CarrierRecord{
		{DOT: 5, Officer1: "SHARED OFFICER HERE"},
		{DOT: 3, Officer1: "SHARED OFFICER HERE"},
	}
	res := Run(carriers, DefaultThreshold, "run-7")
	for _, l := range res.Links {
		assert.Less(t, l.DOTA, l.DOTB)
		sum := 0.0
		for _, r := range l.Reasons {
			sum += r.Contribution
		}
		assert.InDelta(t, l.Score, sum, 1e-6)
	}
}

func TestDeterminism(t *testing.T) {
	carriers := []*model.CarrierRecord{
		{DOT: 1, Officer1: "REPEAT OFFICER", Phone: "555-999-0000"},
		{DOT: 2, Officer1: "REPEAT OFFICER", Phone: "5559990000"},
		{DOT: 3, Officer1: "REPEAT OFFICER"},
	}
	r1 := Run(carriers, DefaultThreshold, "run-det")
	r2 := Run(carriers, DefaultThreshold, "run-det")
	require.Equal(t, len(r1.Links), len(r2.Links))
	for i := range r1.Links {
		assert.Equal(t, r1.Links[i], r2.Links[i])
	}
	require.Equal(t, r1.Clusters, r2.Clusters)
}

func TestMeaningfulLinksCutoff(t *testing.T) {
	links := []model.CarrierLink{{Score: 4.99}, {Score: 5.0}, {Score: 100}}
	got := MeaningfulLinks(links)
	assert.Len(t, got, 2)
}

func TestTemporalWindowBoundary(t *testing.T) {
	mk := func(dot int64, days int) *model.CarrierRecord {
		d := date("2024-01-01").Add(time.Duration(days) * 24 * time.Hour)
		return &model.CarrierRecord{
			DOT: dot, PhyStreet: "1 Only Address", PhyCity: "Town", PhyState: "ST",
			AddDate: &d, StatusCode: "REVOKED",
		}
	}
	// Same address always contributes its own 25-weight link; the temporal
	// bonus of 40 is additional and only applies inside the window.
	within := []*model.CarrierRecord{mk(1, 0), mk(2, 180)}
	res := Run(within, 1000, "run-8")
	require.Len(t, res.Links, 1)
	assert.InDelta(t, 25.0+40.0, res.Links[0].Score, 1e-6)

	outside := []*model.CarrierRecord{mk(3, 0), mk(4, 181)}
	res2 := Run(outside, 1000, "run-9")
	require.Len(t, res2.Links, 1)
	assert.InDelta(t, 25.0, res2.Links[0].Score, 1e-6)
}

func indexRisk(scores []model.CarrierRiskScore) map[int64]model.CarrierRiskScore {
	out := make(map[int64]model.CarrierRiskScore, len(scores))
	for _, s := range scores {
		out[s.DOT] = s
	}
	return out
}
