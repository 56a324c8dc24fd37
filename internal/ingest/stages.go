package ingest

import (
	"context"
	"fmt"

	"github.com/fmcsa-watch/chameleon-backend/internal/fetch"
	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

var censusSelect = []string{
	"dot_number", "legal_name", "dba_name", "phy_street", "phy_city", "phy_state", "phy_zip",
	"phone", "fax", "cell_phone", "officer_1", "officer_2", "status_code",
	"prior_revoke_flag", "prior_revoke_dot", "add_date", "power_units", "total_drivers",
	"fleet_size", "docket_prefix", "docket_number",
}

var crashSelect = []string{"dot_number", "report_date", "report_number", "state", "fatalities", "injuries", "tow_away"}

var inspectionSelect = []string{"dot_number", "inspection_date", "vin", "state", "vehicle_oos_total", "driver_oos_total"}

// Stage1Seeds queries prior-revoked carriers, upserts them, and resolves
// every prior_revoke_dot they reference that isn't already in scope. It
// returns the full set of seed dots now known to the store and the row
// count processed.
func (o *Orchestrator) Stage1Seeds(ctx context.Context, maxSeeds int) (map[int64]bool, int, error) {
	var seeds []*model.CarrierRecord
	q := fetch.Query{
		Resource: fetch.ResourceCensus,
		Select:   censusSelect,
		Where:    "prior_revoke_flag='Y'",
		MaxRows:  maxSeeds,
	}
	rows, err := o.Client.FetchAll(ctx, q, func(page []map[string]any) error {
		for _, row := range page {
			if c := parseCarrier(row); c != nil {
				seeds = append(seeds, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, rows, err
	}

	n, err := o.Store.UpsertCarriers(seeds)
	if err != nil {
		return nil, n, err
	}

	scope := make(map[int64]bool, len(seeds))
	var referencedDOTs []int64
	for _, s := range seeds {
		scope[s.DOT] = true
		if s.PriorRevokeDOT != 0 {
			referencedDOTs = append(referencedDOTs, s.PriorRevokeDOT)
		}
	}

	known, err := o.Store.KnownDOTs()
	if err != nil {
		return scope, n, err
	}
	var missing []int64
	for _, d := range referencedDOTs {
		if !known[d] && !scope[d] {
			missing = append(missing, d)
		}
	}

	for _, batch := range fetch.Chunks(missing, dotBatchSize) {
		where := fetch.InPredicate("dot_number", batch)
		var fetched []*model.CarrierRecord
		_, err := o.Client.FetchAll(ctx, fetch.Query{Resource: fetch.ResourceCensus, Select: censusSelect, Where: where},
			func(page []map[string]any) error {
				for _, row := range page {
					if c := parseCarrier(row); c != nil {
						fetched = append(fetched, c)
					}
				}
				return nil
			})
		if err != nil {
			return scope, n, err
		}
		if _, err := o.Store.UpsertCarriers(fetched); err != nil {
			return scope, n, err
		}
		for _, c := range fetched {
			scope[c.DOT] = true
		}
	}

	return scope, n, nil
}

// Stage2Expand gathers shared identifiers from the seeds currently in
// scope and issues batched OR-predicate queries to find co-occurring
// carriers. It returns the union of the input scope and newly discovered
// dots.
func (o *Orchestrator) Stage2Expand(ctx context.Context, seedScope map[int64]bool) (map[int64]bool, int, error) {
	result := make(map[int64]bool, len(seedScope))
	for d := range seedScope {
		result[d] = true
	}
	if len(seedScope) == 0 {
		return result, 0, nil
	}

	phones := make(map[string]bool)
	officers := make(map[string]bool)
	addresses := make(map[[3]string]bool)

	dots := dotsOf(seedScope)
	rowsTotal := 0
	for _, batch := range fetch.Chunks(dots, dotBatchSize) {
		where := fetch.InPredicate("dot_number", batch)
		_, err := o.Client.FetchAll(ctx, fetch.Query{Resource: fetch.ResourceCensus, Select: censusSelect, Where: where},
			func(page []map[string]any) error {
				for _, row := range page {
					c := parseCarrier(row)
					if c == nil {
						continue
					}
					rowsTotal++
					if c.Phone != "" && len(phones) < maxSeedExpansionPhones {
						phones[c.Phone] = true
					}
					if o1 := normalizedOfficer(c.Officer1); o1 != "" && len(officers) < maxSeedExpansionOfficers {
						officers[o1] = true
					}
					if o2 := normalizedOfficer(c.Officer2); o2 != "" && len(officers) < maxSeedExpansionOfficers {
						officers[o2] = true
					}
					if c.PhyStreet != "" && len(addresses) < maxSeedExpansionAddresses {
						addresses[[3]string{c.PhyStreet, c.PhyCity, c.PhyState}] = true
					}
				}
				return nil
			})
		if err != nil {
			return result, rowsTotal, err
		}
	}

	if err := o.expandByPredicate(ctx, keysOf(phones), phoneBatchSize, "phone", false, result); err != nil {
		return result, rowsTotal, err
	}
	if err := o.expandByPredicate(ctx, keysOf(officers), officerBatchSize, "officer_1", true, result); err != nil {
		return result, rowsTotal, err
	}
	if err := o.expandByAddress(ctx, keysOfAddr(addresses), addressBatchSize, result); err != nil {
		return result, rowsTotal, err
	}

	n, err := o.upsertDiscovered(ctx, result, censusSelect)
	return result, rowsTotal + n, err
}

func (o *Orchestrator) expandByPredicate(ctx context.Context, values []string, batchSize int, field string, upper bool, result map[int64]bool) error {
	for _, batch := range fetch.Chunks(values, batchSize) {
		var where string
		if upper {
			where = fetch.OrUpperEqualsPredicate(field, batch)
		} else {
			where = fetch.OrEqualsPredicate(field, batch)
		}
		_, err := o.Client.FetchAll(ctx, fetch.Query{Resource: fetch.ResourceCensus, Select: censusSelect, Where: where},
			func(page []map[string]any) error {
				for _, row := range page {
					if c := parseCarrier(row); c != nil {
						result[c.DOT] = true
					}
				}
				return nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) expandByAddress(ctx context.Context, addrs [][3]string, batchSize int, result map[int64]bool) error {
	for start := 0; start < len(addrs); start += batchSize {
		end := start + batchSize
		if end > len(addrs) {
			end = len(addrs)
		}
		batch := addrs[start:end]
		var clauses []string
		for _, a := range batch {
			clauses = append(clauses, fmt.Sprintf("(phy_street=%s AND phy_city=%s AND phy_state=%s)",
				quoteLiteral(a[0]), quoteLiteral(a[1]), quoteLiteral(a[2])))
		}
		where := joinOr(clauses)
		_, err := o.Client.FetchAll(ctx, fetch.Query{Resource: fetch.ResourceCensus, Select: censusSelect, Where: where},
			func(page []map[string]any) error {
				for _, row := range page {
					if c := parseCarrier(row); c != nil {
						result[c.DOT] = true
					}
				}
				return nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

// upsertDiscovered re-fetches and upserts every dot newly added to result
// that isn't already known to the store, so expansion matches persist
// before Stage 3/4 rely on them.
func (o *Orchestrator) upsertDiscovered(ctx context.Context, result map[int64]bool, sel []string) (int, error) {
	known, err := o.Store.KnownDOTs()
	if err != nil {
		return 0, err
	}
	var missing []int64
	for d := range result {
		if !known[d] {
			missing = append(missing, d)
		}
	}
	total := 0
	for _, batch := range fetch.Chunks(missing, dotBatchSize) {
		where := fetch.InPredicate("dot_number", batch)
		var fetched []*model.CarrierRecord
		_, err := o.Client.FetchAll(ctx, fetch.Query{Resource: fetch.ResourceCensus, Select: sel, Where: where},
			func(page []map[string]any) error {
				for _, row := range page {
					if c := parseCarrier(row); c != nil {
						fetched = append(fetched, c)
					}
				}
				return nil
			})
		if err != nil {
			return total, err
		}
		n, err := o.Store.UpsertCarriers(fetched)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Stage3Crashes fetches crash rows for the active dot scope in batches of
// 100 and upserts them.
func (o *Orchestrator) Stage3Crashes(ctx context.Context, scope []int64) (int, error) {
	total := 0
	for _, batch := range fetch.Chunks(scope, dotBatchSize) {
		where := fetch.InPredicate("dot_number", batch)
		var crashes []*model.CrashRecord
		_, err := o.Client.FetchAll(ctx, fetch.Query{Resource: fetch.ResourceCrash, Select: crashSelect, Where: where},
			func(page []map[string]any) error {
				for _, row := range page {
					if c := parseCrash(row); c != nil {
						crashes = append(crashes, c)
					}
				}
				return nil
			})
		if err != nil {
			return total, err
		}
		n, err := o.Store.UpsertCrashes(crashes)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Stage4Inspections fetches inspection rows for the active dot scope in
// batches of 100 and upserts them.
func (o *Orchestrator) Stage4Inspections(ctx context.Context, scope []int64) (int, error) {
	total := 0
	for _, batch := range fetch.Chunks(scope, dotBatchSize) {
		where := fetch.InPredicate("dot_number", batch)
		var inspections []*model.InspectionRecord
		_, err := o.Client.FetchAll(ctx, fetch.Query{Resource: fetch.ResourceInspection, Select: inspectionSelect, Where: where},
			func(page []map[string]any) error {
				for _, row := range page {
					if ins := parseInspection(row); ins != nil {
						inspections = append(inspections, ins)
					}
				}
				return nil
			})
		if err != nil {
			return total, err
		}
		n, err := o.Store.UpsertInspections(inspections)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func keysOf(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func keysOfAddr(m map[[3]string]bool) [][3]string {
	out := make([][3]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func quoteLiteral(s string) string {
	return "'" + fetch.EscapeLiteral(s) + "'"
}

func joinOr(clauses []string) string {
	out := ""
	for i, c := range clauses {
		if i > 0 {
			out += " OR "
		}
		out += c
	}
	return out
}
