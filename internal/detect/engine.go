// Package detect implements the core affiliation-detection pipeline:
// feature extraction, inverted indexing, pairwise scoring with rarity
// down-weighting, temporal co-location augmentation, union-find clustering,
// and composite risk scoring. Every step here is single-threaded, in-memory,
// and deterministic given the same carrier set and threshold.
package detect

import (
	"sort"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

// DefaultThreshold is the cluster-membership score cutoff used when the
// caller doesn't override it.
const DefaultThreshold = defaultThreshold

// Result is everything a detection run produces, ready for the store
// gateway's write-back transaction.
type Result struct {
	Links       []model.CarrierLink
	Clusters    []model.CarrierCluster
	RiskScores  []model.CarrierRiskScore
}

// Run executes the full pipeline over carriers for one run id. threshold
// gates both clustering and is independent of the 5.0 meaningful-link
// persistence cutoff, which callers apply when writing Links to the store.
func Run(carriers []*model.CarrierRecord, threshold float64, runID string) Result {
	idx := buildIndex(carriers)
	sb := scorePairs(idx)
	augmentTemporal(carriers, sb)

	universe := make([]int64, 0, len(carriers))
	for _, c := range carriers {
		universe = append(universe, c.DOT)
	}
	sort.Slice(universe, func(i, j int) bool { return universe[i] < universe[j] })

	clusters := buildClusters(universe, sb, threshold, runID)
	riskScores := scoreAllCarriers(carriers, clusters, sb)
	links := sb.orderedLinks(runID)

	return Result{
		Links:      links,
		Clusters:   clusters.clusters,
		RiskScores: riskScores,
	}
}

// MeaningfulLinks filters links to the persistence cutoff: only links
// scoring >= 5.0 are persisted. Clustering itself always sees the full,
// unfiltered set.
func MeaningfulLinks(links []model.CarrierLink) []model.CarrierLink {
	const cutoff = 5.0
	out := make([]model.CarrierLink, 0, len(links))
	for _, l := range links {
		if l.Score >= cutoff {
			out = append(out, l)
		}
	}
	return out
}
