// Package excel reads the master workbook into an input snapshot and writes
// computation results back out as report workbooks. A sheet that is missing
// from the workbook leaves its table nil, which the pipeline treats as a
// structural absence; malformed rows are skipped and recorded as anomalies so
// a single bad cell never aborts a run.
package excel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"cdg-engine/internal/core"
)

// Sheet names of the master workbook.
const (
	SheetUnits      = "Unita_Operative"
	SheetRevenue    = "Ricavi"
	SheetCosts      = "Costi_Diretti"
	SheetShared     = "Costi_Sede"
	SheetDrivers    = "Driver"
	SheetSchedule   = "Scadenzario"
	SheetPersonnel  = "Personale"
	SheetProduction = "Produzione_Mensile"
	SheetCapex      = "Investimenti"
	SheetBudgetRev  = "Budget_Ricavi"
	SheetBudgetCost = "Budget_Costi"
	SheetIndirect   = "Costi_Indiretti"
	SheetTreasury   = "Tesoreria"
)

const dateLayout = "02/01/2006"

// ReadSnapshot loads every recognized sheet of the workbook at path. Row
// problems go onto the report; only a workbook that cannot be opened at all
// is an error.
func ReadSnapshot(path string, report *core.RunReport) (*core.InputSnapshot, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()
	return readSnapshot(f, report)
}

func readSnapshot(f *excelize.File, report *core.RunReport) (*core.InputSnapshot, error) {
	snap := &core.InputSnapshot{}

	if rows, ok := dataRows(f, SheetUnits); ok {
		snap.Units = []core.OperatingUnit{}
		for _, row := range rows {
			if len(row) < 7 {
				shortRow(SheetUnits, report)
				continue
			}
			beds, _ := strconv.Atoi(strings.TrimSpace(row[4]))
			var types []core.StructureType
			for _, t := range strings.Split(row[2], ",") {
				if t = strings.TrimSpace(t); t != "" {
					types = append(types, core.StructureType(t))
				}
			}
			snap.Units = append(snap.Units, core.OperatingUnit{
				Code:           strings.TrimSpace(row[0]),
				Name:           strings.TrimSpace(row[1]),
				StructureTypes: types,
				Region:         strings.TrimSpace(row[3]),
				BedCount:       beds,
				Operative:      strings.EqualFold(strings.TrimSpace(row[5]), "SI"),
				Company:        strings.TrimSpace(row[6]),
			})
		}
	}

	snap.RevenueLines = readLedger(f, SheetRevenue, report)
	snap.DirectCosts = costLines(readLedger(f, SheetCosts, report))
	snap.BudgetRevenue = readLedger(f, SheetBudgetRev, report)
	snap.BudgetCosts = costLines(readLedger(f, SheetBudgetCost, report))

	if rows, ok := dataRows(f, SheetShared); ok {
		snap.SharedCosts = []core.SharedCostItem{}
		for _, row := range rows {
			if len(row) < 4 {
				shortRow(SheetShared, report)
				continue
			}
			p, okP := parsePeriod(row[2], SheetShared, report)
			amt, okA := parseAmount(row[3], SheetShared, report)
			if !okP || !okA {
				continue
			}
			snap.SharedCosts = append(snap.SharedCosts, core.SharedCostItem{
				Code:        strings.TrimSpace(row[0]),
				Description: strings.TrimSpace(row[1]),
				Period:      p,
				Amount:      amt,
			})
		}
	}

	if rows, ok := dataRows(f, SheetDrivers); ok {
		snap.DriverValues = []core.DriverValue{}
		for _, row := range rows {
			if len(row) < 4 {
				shortRow(SheetDrivers, report)
				continue
			}
			p, okP := parsePeriod(row[2], SheetDrivers, report)
			if !okP {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
			if err != nil {
				report.Addf(core.AnomalyBadRow, "excel", "", strings.TrimSpace(row[1]),
					"%s: driver value %q not numeric, row skipped", SheetDrivers, row[3])
				continue
			}
			snap.DriverValues = append(snap.DriverValues, core.DriverValue{
				Driver:   core.DriverType(strings.ToLower(strings.TrimSpace(row[0]))),
				UnitCode: strings.TrimSpace(row[1]),
				Period:   p,
				Value:    v,
			})
		}
	}

	if rows, ok := dataRows(f, SheetSchedule); ok {
		snap.Schedule = []core.ScheduleItem{}
		for _, row := range rows {
			if len(row) < 4 {
				shortRow(SheetSchedule, report)
				continue
			}
			due, err := time.Parse(dateLayout, strings.TrimSpace(row[0]))
			if err != nil {
				report.Addf(core.AnomalyBadRow, "excel", "", "",
					"%s: due date %q not %s, row skipped", SheetSchedule, row[0], dateLayout)
				continue
			}
			kind := core.KindPayment
			if strings.EqualFold(strings.TrimSpace(row[1]), "incasso") {
				kind = core.KindCollection
			}
			amt, ok := parseAmount(row[2], SheetSchedule, report)
			if !ok {
				continue
			}
			item := core.ScheduleItem{DueDate: due, Kind: kind, Amount: amt, Counterparty: strings.TrimSpace(row[3])}
			if len(row) > 4 {
				item.Category = strings.TrimSpace(row[4])
			}
			if len(row) > 5 {
				item.Note = strings.TrimSpace(row[5])
			}
			snap.Schedule = append(snap.Schedule, item)
		}
	}

	if rows, ok := dataRows(f, SheetPersonnel); ok {
		snap.Personnel = []core.PersonnelRow{}
		for _, row := range rows {
			if len(row) < 4 {
				shortRow(SheetPersonnel, report)
				continue
			}
			gross, okG := parseAmount(row[2], SheetPersonnel, report)
			charges, okC := parseAmount(row[3], SheetPersonnel, report)
			if !okG || !okC {
				continue
			}
			pr := core.PersonnelRow{
				UnitCode:        strings.TrimSpace(row[0]),
				Qualification:   strings.TrimSpace(row[1]),
				GrossPay:        gross,
				EmployerCharges: charges,
			}
			if len(row) > 4 {
				pr.FTE, _ = strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
			}
			snap.Personnel = append(snap.Personnel, pr)
		}
	}

	if rows, ok := dataRows(f, SheetProduction); ok {
		snap.Production = []core.ProductionRow{}
		for _, row := range rows {
			if len(row) < 3 {
				shortRow(SheetProduction, report)
				continue
			}
			p, okP := parsePeriod(row[1], SheetProduction, report)
			if !okP {
				continue
			}
			days, _ := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
			pr := core.ProductionRow{UnitCode: strings.TrimSpace(row[0]), Period: p, CareDays: days}
			if len(row) > 3 {
				pr.CareHours, _ = strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
			}
			snap.Production = append(snap.Production, pr)
		}
	}

	if rows, ok := dataRows(f, SheetCapex); ok {
		snap.CapexPlan = []core.CapexEntry{}
		for _, row := range rows {
			if len(row) < 2 {
				shortRow(SheetCapex, report)
				continue
			}
			year, err := strconv.Atoi(strings.TrimSpace(row[0]))
			if err != nil {
				report.Addf(core.AnomalyBadRow, "excel", "", "",
					"%s: year %q not numeric, row skipped", SheetCapex, row[0])
				continue
			}
			amt, ok := parseAmount(row[1], SheetCapex, report)
			if !ok {
				continue
			}
			snap.CapexPlan = append(snap.CapexPlan, core.CapexEntry{Year: year, Amount: amt})
		}
	}

	if rows, ok := dataRows(f, SheetIndirect); ok {
		snap.IndirectCosts = []core.DirectCostLine{}
		for _, row := range rows {
			if len(row) < 3 {
				shortRow(SheetIndirect, report)
				continue
			}
			p, okP := parsePeriod(row[1], SheetIndirect, report)
			amt, okA := parseAmount(row[2], SheetIndirect, report)
			if !okP || !okA {
				continue
			}
			snap.IndirectCosts = append(snap.IndirectCosts, core.DirectCostLine{
				Code:   strings.TrimSpace(row[0]),
				Period: p,
				Amount: amt,
			})
		}
	}

	readTreasury(f, snap, report)
	return snap, nil
}

// readLedger parses a (unit, code, period, amount) sheet. Returns nil when
// the sheet is absent, an empty non-nil slice when present but empty.
func readLedger(f *excelize.File, sheet string, report *core.RunReport) []core.RevenueLine {
	rows, ok := dataRows(f, sheet)
	if !ok {
		return nil
	}
	lines := []core.RevenueLine{}
	for _, row := range rows {
		if len(row) < 4 {
			shortRow(sheet, report)
			continue
		}
		p, okP := parsePeriod(row[2], sheet, report)
		amt, okA := parseAmount(row[3], sheet, report)
		if !okP || !okA {
			continue
		}
		lines = append(lines, core.RevenueLine{
			UnitCode: strings.TrimSpace(row[0]),
			Code:     strings.TrimSpace(row[1]),
			Period:   p,
			Amount:   amt,
		})
	}
	return lines
}

// costLines converts ledger rows to direct-cost rows, preserving nil.
func costLines(lines []core.RevenueLine) []core.DirectCostLine {
	if lines == nil {
		return nil
	}
	out := make([]core.DirectCostLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, core.DirectCostLine{UnitCode: l.UnitCode, Code: l.Code, Period: l.Period, Amount: l.Amount})
	}
	return out
}

// dataRows returns the non-blank data rows of a sheet, header excluded, and
// whether the sheet exists at all.
func dataRows(f *excelize.File, sheet string) ([][]string, bool) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, false
	}
	var out [][]string
	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}
		out = append(out, row)
	}
	return out, true
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// shortRow records a row with too few cells. Excel trims trailing empty
// cells, so a row with a blank amount column arrives short rather than with
// an empty string.
func shortRow(sheet string, report *core.RunReport) {
	report.Addf(core.AnomalyBadRow, "excel", "", "",
		"%s: short row skipped", sheet)
}

func parsePeriod(s, sheet string, report *core.RunReport) (core.Period, bool) {
	p, err := core.ParsePeriod(strings.TrimSpace(s))
	if err != nil {
		report.Addf(core.AnomalyBadRow, "excel", "", "",
			"%s: period %q not MM/YYYY, row skipped", sheet, s)
		return core.Period{}, false
	}
	return p, true
}

func parseAmount(s, sheet string, report *core.RunReport) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		report.Addf(core.AnomalyBadRow, "excel", "", "",
			"%s: amount %q not numeric, row skipped", sheet, s)
		return decimal.Decimal{}, false
	}
	return d, true
}

// readTreasury reads the key/value sheet carrying the opening balances.
func readTreasury(f *excelize.File, snap *core.InputSnapshot, report *core.RunReport) {
	rows, ok := dataRows(f, SheetTreasury)
	if !ok {
		return
	}
	for _, row := range rows {
		if len(row) < 2 {
			shortRow(SheetTreasury, report)
			continue
		}
		amt, ok := parseAmount(row[1], SheetTreasury, report)
		if !ok {
			continue
		}
		switch strings.TrimSpace(row[0]) {
		case "Cassa_Iniziale":
			snap.OpeningCash = amt
		case "Servizio_Debito_Annuo":
			snap.AnnualDebtSvc = amt
		case "Crediti_Pubblici":
			snap.Receivables = amt
		case "Crediti_Privati":
			snap.ReceivablesPvt = amt
		case "Debiti_Fornitori":
			snap.Payables = amt
		default:
			report.Addf(core.AnomalyUnknownCode, "excel", strings.TrimSpace(row[0]), "",
				"%s: unknown entry %q ignored", SheetTreasury, row[0])
		}
	}
}
