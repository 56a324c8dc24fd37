package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

// The external query API returns loosely-typed JSON: numeric fields may
// arrive as JSON numbers or numeric strings, dates as various layouts, and
// any field may be absent or null. A missing or malformed field becomes the
// zero value / nil, never a parse error; only structurally broken rows
// (handled by the caller) are dropped.

func str(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func integer(row map[string]any, key string) int {
	v, ok := row[key]
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func int64Field(row map[string]any, key string) int64 {
	v, ok := row[key]
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func boolField(row map[string]any, key string) bool {
	v, ok := row[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true") || t == "Y" || t == "1"
	case float64:
		return t != 0
	default:
		return false
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func dateField(row map[string]any, key string) *time.Time {
	s := str(row, key)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseCarrier decodes one census row into a CarrierRecord. dot==0 marks a
// structurally unusable row (missing primary key); the caller drops it.
func parseCarrier(row map[string]any) *model.CarrierRecord {
	dot := int64Field(row, "dot_number")
	if dot == 0 {
		return nil
	}
	priorRevoke := model.PriorRevokeUnknown
	switch strings.ToUpper(str(row, "prior_revoke_flag")) {
	case "Y":
		priorRevoke = model.PriorRevokeYes
	case "N":
		priorRevoke = model.PriorRevokeNo
	}
	return &model.CarrierRecord{
		DOT:            dot,
		LegalName:      str(row, "legal_name"),
		DBAName:        str(row, "dba_name"),
		PhyStreet:      str(row, "phy_street"),
		PhyCity:        str(row, "phy_city"),
		PhyState:       str(row, "phy_state"),
		PhyZip:         str(row, "phy_zip"),
		Phone:          str(row, "phone"),
		Fax:            str(row, "fax"),
		CellPhone:      str(row, "cell_phone"),
		Officer1:       str(row, "officer_1"),
		Officer2:       str(row, "officer_2"),
		StatusCode:     str(row, "status_code"),
		PriorRevoke:    priorRevoke,
		PriorRevokeDOT: int64Field(row, "prior_revoke_dot"),
		AddDate:        dateField(row, "add_date"),
		PowerUnits:     integer(row, "power_units"),
		TotalDrivers:   integer(row, "total_drivers"),
		FleetSize:      str(row, "fleet_size"),
		DocketPrefix:   str(row, "docket_prefix"),
		DocketNumber:   str(row, "docket_number"),
	}
}

func parseCrash(row map[string]any) *model.CrashRecord {
	dot := int64Field(row, "dot_number")
	if dot == 0 {
		return nil
	}
	return &model.CrashRecord{
		DOT:          dot,
		ReportDate:   dateField(row, "report_date"),
		ReportNumber: str(row, "report_number"),
		State:        str(row, "state"),
		Fatalities:   integer(row, "fatalities"),
		Injuries:     integer(row, "injuries"),
		TowAway:      boolField(row, "tow_away"),
	}
}

func parseInspection(row map[string]any) *model.InspectionRecord {
	dot := int64Field(row, "dot_number")
	if dot == 0 {
		return nil
	}
	return &model.InspectionRecord{
		DOT:             dot,
		InspectionDate:  dateField(row, "inspection_date"),
		VIN:             str(row, "vin"),
		State:           str(row, "state"),
		VehicleOOSTotal: integer(row, "vehicle_oos_total"),
		DriverOOSTotal:  integer(row, "driver_oos_total"),
	}
}
