package detect

import (
	"fmt"
	"sort"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

const defaultThreshold = 30.0

// clusterResult is the in-memory clustering output. Clusters holds only
// multi-member groups, in persistence order; sizeByDOT answers "what is the
// size of the cluster containing this carrier" for every known carrier,
// including singletons, retained in memory but not persisted.
type clusterResult struct {
	clusters  []model.CarrierCluster
	sizeByDOT map[int64]int
}

// buildClusters unions every pair meeting threshold, groups by
// representative, and orders/ids the multi-member groups.
func buildClusters(universe []int64, sb *scoreboard, threshold float64, runID string) clusterResult {
	uf := newUnionFind(universe)
	for k, score := range sb.scores {
		if score >= threshold {
			uf.union(k.A, k.B)
		}
	}

	groups := make(map[int64][]int64)
	for _, dot := range universe {
		root := uf.find(dot)
		groups[root] = append(groups[root], dot)
	}

	sizeByDOT := make(map[int64]int, len(universe))
	type rawCluster struct {
		members []int64
		edges   int
		scores  []float64
	}
	var raw []rawCluster

	for _, members := range groups {
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		for _, m := range members {
			sizeByDOT[m] = len(members)
		}
		if len(members) < 2 {
			continue
		}
		var edgeScores []float64
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				k := newPairKey(members[i], members[j])
				if score, ok := sb.scores[k]; ok && score >= threshold {
					edgeScores = append(edgeScores, score)
				}
			}
		}
		raw = append(raw, rawCluster{members: members, edges: len(edgeScores), scores: edgeScores})
	}

	sort.Slice(raw, func(i, j int) bool {
		if len(raw[i].members) != len(raw[j].members) {
			return len(raw[i].members) > len(raw[j].members)
		}
		mi, mj := maxOf(raw[i].scores), maxOf(raw[j].scores)
		if mi != mj {
			return mi > mj
		}
		return lessMembers(raw[i].members, raw[j].members)
	})

	clusters := make([]model.CarrierCluster, 0, len(raw))
	for i, rc := range raw {
		avg, max := 0.0, 0.0
		if len(rc.scores) > 0 {
			sum := 0.0
			for _, s := range rc.scores {
				sum += s
				if s > max {
					max = s
				}
			}
			avg = sum / float64(len(rc.scores))
		}
		clusters = append(clusters, model.CarrierCluster{
			RunID:        runID,
			ClusterID:    fmt.Sprintf("C%04d", i+1),
			Size:         len(rc.members),
			EdgeCount:    rc.edges,
			AvgLinkScore: avg,
			MaxLinkScore: max,
			Members:      rc.members,
		})
	}

	return clusterResult{clusters: clusters, sizeByDOT: sizeByDOT}
}

func maxOf(vs []float64) float64 {
	m := 0.0
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	return m
}

func lessMembers(a, b []int64) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
