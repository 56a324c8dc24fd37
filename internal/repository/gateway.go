// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

// Gateway is the store's read/write facade, grounded on the teacher's
// JobRepository: one struct wrapping the live connection plus a squirrel
// statement builder pre-configured for the connected backend's placeholder
// style (postgres uses "$1", sqlite3 uses "?").
type Gateway struct {
	db      *DB
	builder sq.StatementBuilderType
}

// NewGateway wraps an already-Connected DB.
func NewGateway(db *DB) *Gateway {
	builder := sq.StatementBuilder
	if db.Backend == "postgres" {
		builder = builder.PlaceholderFormat(sq.Dollar)
	} else {
		builder = builder.PlaceholderFormat(sq.Question)
	}
	return &Gateway{db: db, builder: builder}
}

var carrierColumns = []string{
	"dot_number", "legal_name", "dba_name", "phy_street", "phy_city", "phy_state", "phy_zip",
	"phone", "fax", "cell_phone", "officer1", "officer2", "status_code",
	"prior_revoke_flag", "prior_revoke_dot", "add_date", "power_units", "total_drivers",
	"fleet_size", "docket_prefix", "docket_number",
}

type carrierRow struct {
	DOTNumber       int64          `db:"dot_number"`
	LegalName       string         `db:"legal_name"`
	DBAName         string         `db:"dba_name"`
	PhyStreet       string         `db:"phy_street"`
	PhyCity         string         `db:"phy_city"`
	PhyState        string         `db:"phy_state"`
	PhyZip          string         `db:"phy_zip"`
	Phone           string         `db:"phone"`
	Fax             string         `db:"fax"`
	CellPhone       string         `db:"cell_phone"`
	Officer1        string         `db:"officer1"`
	Officer2        string         `db:"officer2"`
	StatusCode      string         `db:"status_code"`
	PriorRevokeFlag string         `db:"prior_revoke_flag"`
	PriorRevokeDOT  int64          `db:"prior_revoke_dot"`
	AddDate         sql.NullString `db:"add_date"`
	PowerUnits      int            `db:"power_units"`
	TotalDrivers    int            `db:"total_drivers"`
	FleetSize       string         `db:"fleet_size"`
	DocketPrefix    string         `db:"docket_prefix"`
	DocketNumber    string         `db:"docket_number"`
}

func (r carrierRow) toModel() *model.CarrierRecord {
	c := &model.CarrierRecord{
		DOT:            r.DOTNumber,
		LegalName:      r.LegalName,
		DBAName:        r.DBAName,
		PhyStreet:      r.PhyStreet,
		PhyCity:        r.PhyCity,
		PhyState:       r.PhyState,
		PhyZip:         r.PhyZip,
		Phone:          r.Phone,
		Fax:            r.Fax,
		CellPhone:      r.CellPhone,
		Officer1:       r.Officer1,
		Officer2:       r.Officer2,
		StatusCode:     r.StatusCode,
		PriorRevoke:    model.PriorRevokeFlag(r.PriorRevokeFlag),
		PriorRevokeDOT: r.PriorRevokeDOT,
		PowerUnits:     r.PowerUnits,
		TotalDrivers:   r.TotalDrivers,
		FleetSize:      r.FleetSize,
		DocketPrefix:   r.DocketPrefix,
		DocketNumber:   r.DocketNumber,
	}
	if r.AddDate.Valid {
		if t, err := parseDate(r.AddDate.String); err == nil {
			c.AddDate = &t
		}
	}
	return c
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("repository: unrecognized date %q", s)
}

// LoadCarriers bulk-loads every carrier row in a single query.
func (g *Gateway) LoadCarriers() ([]*model.CarrierRecord, error) {
	query, args, err := g.builder.Select(carrierColumns...).From("fmcsa_carrier").ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: build LoadCarriers: %w", err)
	}
	var rows []carrierRow
	if err := g.db.Handle.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: LoadCarriers: %v", model.ErrStore, err)
	}
	carriers := make([]*model.CarrierRecord, 0, len(rows))
	for _, r := range rows {
		carriers = append(carriers, r.toModel())
	}
	return carriers, nil
}

// LoadInspectionVINs bulk-loads every inspection VIN keyed by dot, joined
// into carriers.VINs in memory.
func (g *Gateway) LoadInspectionVINs(carriers []*model.CarrierRecord) error {
	query, args, err := g.builder.
		Select("dot_number", "vin").
		From("fmcsa_inspection").
		Where(sq.NotEq{"vin": ""}).
		ToSql()
	if err != nil {
		return fmt.Errorf("repository: build LoadInspectionVINs: %w", err)
	}
	type vinRow struct {
		DOTNumber int64  `db:"dot_number"`
		VIN       string `db:"vin"`
	}
	var rows []vinRow
	if err := g.db.Handle.Select(&rows, query, args...); err != nil {
		return fmt.Errorf("%w: LoadInspectionVINs: %v", model.ErrStore, err)
	}

	byDOT := make(map[int64]map[string]bool, len(carriers))
	for _, r := range rows {
		set := byDOT[r.DOTNumber]
		if set == nil {
			set = make(map[string]bool)
			byDOT[r.DOTNumber] = set
		}
		set[r.VIN] = true
	}
	for _, c := range carriers {
		for vin := range byDOT[c.DOT] {
			c.VINs = append(c.VINs, vin)
		}
	}
	return nil
}

// LoadCrashAggregates bulk-loads per-carrier crash counts and fatality sums
// via a single group-by query.
func (g *Gateway) LoadCrashAggregates(carriers []*model.CarrierRecord) error {
	query, args, err := g.builder.
		Select("dot_number", "COUNT(*) AS crash_count", "COALESCE(SUM(fatalities), 0) AS fatalities").
		From("fmcsa_crash").
		GroupBy("dot_number").
		ToSql()
	if err != nil {
		return fmt.Errorf("repository: build LoadCrashAggregates: %w", err)
	}
	type aggRow struct {
		DOTNumber  int64 `db:"dot_number"`
		CrashCount int   `db:"crash_count"`
		Fatalities int   `db:"fatalities"`
	}
	var rows []aggRow
	if err := g.db.Handle.Select(&rows, query, args...); err != nil {
		return fmt.Errorf("%w: LoadCrashAggregates: %v", model.ErrStore, err)
	}
	byDOT := make(map[int64]aggRow, len(rows))
	for _, r := range rows {
		byDOT[r.DOTNumber] = r
	}
	for _, c := range carriers {
		if agg, ok := byDOT[c.DOT]; ok {
			c.CrashCount = agg.CrashCount
			c.Fatalities = agg.Fatalities
		}
	}
	return nil
}

// LoadAllCarriers composes the three bulk reads into the
// read side of the store gateway.
func (g *Gateway) LoadAllCarriers() ([]*model.CarrierRecord, error) {
	carriers, err := g.LoadCarriers()
	if err != nil {
		return nil, err
	}
	if err := g.LoadInspectionVINs(carriers); err != nil {
		return nil, err
	}
	if err := g.LoadCrashAggregates(carriers); err != nil {
		return nil, err
	}
	return carriers, nil
}
