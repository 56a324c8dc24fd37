package detect

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
	"github.com/fmcsa-watch/chameleon-backend/internal/normalize"
)

const temporalWindowDays = 180
const temporalContribution = 40.0

var inactiveStatuses = map[string]bool{
	"NOT AUTHORIZED": true,
	"OUT OF SERVICE": true,
	"REVOKED":        true,
}

func isInactiveStatus(status string) bool {
	return inactiveStatuses[strings.ToUpper(strings.TrimSpace(status))]
}

// augmentTemporal scans same-address carrier groups for the "new DOT
// appears within 180 days of another being inactive" pattern and adds a
// bonus contribution for each qualifying pair directly into sb.
func augmentTemporal(carriers []*model.CarrierRecord, sb *scoreboard) {
	byAddress := make(map[string][]*model.CarrierRecord)
	for _, c := range carriers {
		addr := normalize.Address(c.PhyStreet, c.PhyCity, c.PhyState)
		if addr == "" {
			continue
		}
		byAddress[addr] = append(byAddress[addr], c)
	}

	for _, group := range byAddress {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				x, y := group[i], group[j]
				considerTemporalPair(x, y, sb)
			}
		}
	}
}

func considerTemporalPair(x, y *model.CarrierRecord, sb *scoreboard) {
	if !isInactiveStatus(x.StatusCode) && !isInactiveStatus(y.StatusCode) {
		return
	}
	if x.AddDate == nil || y.AddDate == nil {
		return
	}
	days := dayDiff(*x.AddDate, *y.AddDate)
	if days > temporalWindowDays {
		return
	}
	sb.add(x.DOT, y.DOT, model.Reason{
		Feature:      model.FeatureAddressNewDOT,
		Value:        sameAddressReasonText(days),
		Frequency:    2,
		Contribution: temporalContribution,
	})
}

func dayDiff(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(math.Round(d.Hours() / 24))
}

func sameAddressReasonText(days int) string {
	return "Same address, " + strconv.Itoa(days) + "d apart, one inactive"
}
