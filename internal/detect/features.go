package detect

import (
	"fmt"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
	"github.com/fmcsa-watch/chameleon-backend/internal/normalize"
)

// featureValue is one (feature, value) tuple extracted from a carrier.
// PartnerDOT is non-zero only for the synthetic prior_revoke tuple, where
// the bucket must contain both carriers in the pair rather than just the
// one extractFeatures was called for.
type featureValue struct {
	Feature    model.Feature
	Value      string
	PartnerDOT int64
}

// extractFeatures emits the deduplicated (feature, value) tuples for one
// carrier. knownDOT resolves a prior-revoke DOT to a known carrier; when it
// doesn't resolve, the synthetic prior_revoke edge is silently dropped.
func extractFeatures(c *model.CarrierRecord, knownDOT map[int64]bool) []featureValue {
	seen := make(map[model.Feature]map[string]bool, featureCountHint)
	var out []featureValue
	emit := func(f model.Feature, v string) {
		if v == "" {
			return
		}
		if seen[f] == nil {
			seen[f] = make(map[string]bool)
		}
		if seen[f][v] {
			return
		}
		seen[f][v] = true
		out = append(out, featureValue{Feature: f, Value: v})
	}

	emit(model.FeaturePhone, normalize.Phone(c.Phone))
	emit(model.FeatureFax, normalize.Fax(c.Fax))
	emit(model.FeatureCellPhone, normalize.CellPhone(c.CellPhone))
	emit(model.FeatureAddress, normalize.Address(c.PhyStreet, c.PhyCity, c.PhyState))
	emit(model.FeatureOfficer, normalize.Officer(c.Officer1))
	emit(model.FeatureOfficer, normalize.Officer(c.Officer2))

	for _, vin := range c.VINs {
		v := normalize.VIN(vin)
		if normalize.IsLinkableVIN(v) {
			emit(model.FeatureVIN, v)
		}
	}

	if c.PriorRevoke == model.PriorRevokeYes && c.PriorRevokeDOT != 0 && knownDOT[c.PriorRevokeDOT] {
		lo, hi := c.DOT, c.PriorRevokeDOT
		if hi < lo {
			lo, hi = hi, lo
		}
		key := fmt.Sprintf("%d_%d", lo, hi)
		if seen[model.FeaturePriorRevoke] == nil || !seen[model.FeaturePriorRevoke][key] {
			if seen[model.FeaturePriorRevoke] == nil {
				seen[model.FeaturePriorRevoke] = make(map[string]bool)
			}
			seen[model.FeaturePriorRevoke][key] = true
			out = append(out, featureValue{Feature: model.FeaturePriorRevoke, Value: key, PartnerDOT: c.PriorRevokeDOT})
		}
	}

	return out
}

const featureCountHint = 8
