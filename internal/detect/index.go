package detect

import (
	"sort"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

// invertedIndex maps, for one feature, a normalized value to the sorted set
// of carrier DOTs presenting it. Built once per run and never mutated again
// by downstream stages.
type invertedIndex map[model.Feature]map[string][]int64

// buildIndex extracts features for every carrier and inverts them. Bucket
// slices are kept sorted ascending so downstream enumeration is deterministic
// without a separate sort pass at read time.
func buildIndex(carriers []*model.CarrierRecord) invertedIndex {
	knownDOT := make(map[int64]bool, len(carriers))
	for _, c := range carriers {
		knownDOT[c.DOT] = true
	}

	idx := make(invertedIndex)
	for _, c := range carriers {
		for _, fv := range extractFeatures(c, knownDOT) {
			bucket := idx[fv.Feature]
			if bucket == nil {
				bucket = make(map[string][]int64)
				idx[fv.Feature] = bucket
			}
			bucket[fv.Value] = append(bucket[fv.Value], c.DOT)
			if fv.PartnerDOT != 0 {
				bucket[fv.Value] = append(bucket[fv.Value], fv.PartnerDOT)
			}
		}
	}

	for _, bucket := range idx {
		for value, dots := range bucket {
			sort.Slice(dots, func(i, j int) bool { return dots[i] < dots[j] })
			bucket[value] = dedupSorted(dots)
		}
	}
	return idx
}

// dedupSorted collapses adjacent equal values in an ascending slice. Buckets
// are built as sets in the original pipeline (repeat.add(dot) is a no-op);
// the prior_revoke bucket is the one case here where the same dot can be
// appended more than once (e.g. two carriers flag each other as the prior
// revocation), so every bucket is deduped after sorting rather than just
// that one.
func dedupSorted(dots []int64) []int64 {
	if len(dots) < 2 {
		return dots
	}
	out := dots[:1]
	for _, d := range dots[1:] {
		if d != out[len(out)-1] {
			out = append(out, d)
		}
	}
	return out
}
