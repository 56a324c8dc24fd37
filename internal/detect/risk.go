package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

// carrierLinkStats summarizes, per carrier, what its incident links imply
// for risk scoring: the best link score touching it and how many vin-feature
// reasons appear on any of its links.
type carrierLinkStats struct {
	maxLinkScore    float64
	sharedVINCount  int
}

func gatherLinkStats(sb *scoreboard) map[int64]*carrierLinkStats {
	stats := make(map[int64]*carrierLinkStats)
	touch := func(dot int64) *carrierLinkStats {
		s, ok := stats[dot]
		if !ok {
			s = &carrierLinkStats{}
			stats[dot] = s
		}
		return s
	}
	for k, score := range sb.scores {
		sa, sb2 := touch(k.A), touch(k.B)
		if score > sa.maxLinkScore {
			sa.maxLinkScore = score
		}
		if score > sb2.maxLinkScore {
			sb2.maxLinkScore = score
		}
		for _, r := range sb.reasons[k] {
			if r.Feature == model.FeatureVIN {
				sa.sharedVINCount++
				sb2.sharedVINCount++
			}
		}
	}
	return stats
}

// scoreCarrier computes the chameleon, safety, and composite scores for one
// carrier.
func scoreCarrier(c *model.CarrierRecord, clusterSize int, stats *carrierLinkStats) model.CarrierRiskScore {
	var signals []string
	chameleon := 0.0

	if c.PriorRevoke == model.PriorRevokeYes {
		chameleon += 40
		signals = append(signals, "prior_revoke_flag")
	}
	if clusterSize >= 3 {
		chameleon += 20
		signals = append(signals, fmt.Sprintf("cluster_size_%d", clusterSize))
	}
	maxLink := 0.0
	sharedVINs := 0
	if stats != nil {
		maxLink = stats.maxLinkScore
		sharedVINs = stats.sharedVINCount
	}
	if maxLink > 50 {
		chameleon += 10
		signals = append(signals, fmt.Sprintf("max_link_%d", int(math.Floor(maxLink))))
	}
	if sharedVINs > 0 {
		bonus := math.Min(10*float64(sharedVINs), 30)
		chameleon += bonus
		signals = append(signals, fmt.Sprintf("shared_vins_%d", sharedVINs))
	}
	chameleon = math.Min(chameleon, 100)

	safety := 0.0
	if c.CrashCount > 0 {
		safety += math.Min(20+5*float64(c.CrashCount), 50)
		signals = append(signals, fmt.Sprintf("crashes_%d", c.CrashCount))
	}
	if c.Fatalities > 0 {
		safety += 30
		signals = append(signals, fmt.Sprintf("fatalities_%d", c.Fatalities))
	}
	if c.PowerUnits > 0 && float64(c.CrashCount)/float64(c.PowerUnits) > 0.5 {
		safety += 20
		signals = append(signals, "high_crash_ratio")
	}
	safety = math.Min(safety, 100)

	composite := math.Round((0.7*chameleon+0.3*safety)*100) / 100

	return model.CarrierRiskScore{
		DOT:            c.DOT,
		ChameleonScore: chameleon,
		SafetyScore:    safety,
		CompositeScore: composite,
		Signals:        signals,
		ClusterSize:    clusterSize,
	}
}

// scoreAllCarriers computes risk scores for every carrier, ordered by
// descending composite score with ascending DOT as the tiebreak.
func scoreAllCarriers(carriers []*model.CarrierRecord, clusters clusterResult, sb *scoreboard) []model.CarrierRiskScore {
	linkStats := gatherLinkStats(sb)
	out := make([]model.CarrierRiskScore, 0, len(carriers))
	for _, c := range carriers {
		size := clusters.sizeByDOT[c.DOT]
		if size == 0 {
			size = 1
		}
		out = append(out, scoreCarrier(c, size, linkStats[c.DOT]))
	}
	sortRiskScores(out)
	return out
}

func sortRiskScores(scores []model.CarrierRiskScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].CompositeScore != scores[j].CompositeScore {
			return scores[i].CompositeScore > scores[j].CompositeScore
		}
		return scores[i].DOT < scores[j].DOT
	})
}
