package detect

import (
	"sort"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

// featureWeight is the fixed per-feature weight table.
// fleet_anomaly is declared but never produced by the extractor; it is
// listed here so the table stays a complete enumeration.
var featureWeight = map[model.Feature]float64{
	model.FeatureVIN:           60,
	model.FeatureOfficer:       55,
	model.FeaturePriorRevoke:   50,
	model.FeaturePhone:         40,
	model.FeatureFax:           35,
	model.FeatureCellPhone:     35,
	model.FeatureAddress:       25,
	model.FeatureAddressNewDOT: 40,
	model.FeatureFleetAnomaly:  30,
}

// featureOrder gives each feature its fixed tie-break rank in reason
// ordering.
var featureOrder = map[model.Feature]int{
	model.FeatureVIN:           0,
	model.FeatureOfficer:       1,
	model.FeaturePriorRevoke:   2,
	model.FeaturePhone:         3,
	model.FeatureFax:           4,
	model.FeatureCellPhone:     5,
	model.FeatureAddress:       6,
	model.FeatureAddressNewDOT: 7,
	model.FeatureFleetAnomaly:  8,
}

// rarity down-weights common values: 0 at freq<=1, 2.0/freq otherwise. freq=2
// yields 1.0 (full weight); freq=4 yields 0.5.
func rarity(freq int) float64 {
	if freq <= 1 {
		return 0
	}
	return 2.0 / float64(freq)
}

// pairKey is an unordered carrier pair with a < b.
type pairKey struct {
	A, B int64
}

func newPairKey(a, b int64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}

type scoreboard struct {
	scores  map[pairKey]float64
	reasons map[pairKey][]model.Reason
}

func newScoreboard() *scoreboard {
	return &scoreboard{
		scores:  make(map[pairKey]float64),
		reasons: make(map[pairKey][]model.Reason),
	}
}

func (sb *scoreboard) add(a, b int64, r model.Reason) {
	k := newPairKey(a, b)
	sb.scores[k] += r.Contribution
	sb.reasons[k] = append(sb.reasons[k], r)
}

// scorePairs walks every index bucket of size >= 2 and accumulates weighted
// contributions.
func scorePairs(idx invertedIndex) *scoreboard {
	sb := newScoreboard()

	for feature, bucket := range idx {
		weight, ok := featureWeight[feature]
		if !ok {
			continue
		}
		for value, dots := range bucket {
			freq := len(dots)
			if freq < 2 {
				continue
			}
			contribution := weight * rarity(freq)
			if contribution <= 0 {
				continue
			}
			truncated := value
			if len(truncated) > 100 {
				truncated = truncated[:100]
			}
			for i := 0; i < len(dots); i++ {
				for j := i + 1; j < len(dots); j++ {
					sb.add(dots[i], dots[j], model.Reason{
						Feature:      feature,
						Value:        truncated,
						Frequency:    freq,
						Contribution: contribution,
					})
				}
			}
		}
	}

	sb.sortReasons()
	return sb
}

// sortReasons orders each pair's reason list by (-contribution,
// feature_index, value).
func (sb *scoreboard) sortReasons() {
	for k, rs := range sb.reasons {
		sort.Slice(rs, func(i, j int) bool {
			if rs[i].Contribution != rs[j].Contribution {
				return rs[i].Contribution > rs[j].Contribution
			}
			oi, oj := featureOrder[rs[i].Feature], featureOrder[rs[j].Feature]
			if oi != oj {
				return oi < oj
			}
			return rs[i].Value < rs[j].Value
		})
		sb.reasons[k] = rs
	}
}

// orderedLinks returns every scored pair as a CarrierLink, ordered
// (-score, dot_a, dot_b).
func (sb *scoreboard) orderedLinks(runID string) []model.CarrierLink {
	links := make([]model.CarrierLink, 0, len(sb.scores))
	for k, score := range sb.scores {
		links = append(links, model.CarrierLink{
			RunID:   runID,
			DOTA:    k.A,
			DOTB:    k.B,
			Score:   score,
			Reasons: sb.reasons[k],
		})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Score != links[j].Score {
			return links[i].Score > links[j].Score
		}
		if links[i].DOTA != links[j].DOTA {
			return links[i].DOTA < links[j].DOTA
		}
		return links[i].DOTB < links[j].DOTB
	})
	return links
}
