package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// ── Semaphore evaluation ──────────────────────────────────────────────────────

// Evaluate classifies a value against a threshold pair. For normal KPIs a
// value at or above Green is GREEN, at or above Yellow is YELLOW, below is
// RED; LowerIsBetter inverts the comparisons.
func Evaluate(value float64, t Threshold) Semaphore {
	if t.LowerIsBetter {
		switch {
		case value <= t.Green:
			return SemaphoreGreen
		case value <= t.Yellow:
			return SemaphoreYellow
		default:
			return SemaphoreRed
		}
	}
	switch {
	case value >= t.Green:
		return SemaphoreGreen
	case value >= t.Yellow:
		return SemaphoreYellow
	default:
		return SemaphoreRed
	}
}

// ── Operational KPIs ──────────────────────────────────────────────────────────

// OperationalKPIs computes the per-unit indicators for one period from the
// industrial statement and the production row. Bed capacity comes from the
// registry; per-day targets come from the unit's structure-type benchmark
// where one exists. Division-by-zero ratios resolve to 0.
func OperationalKPIs(cfg *Settings, unit OperatingUnit, period Period, st *IndustrialStatement, prod ProductionRow) []KPI {
	var out []KPI
	p := period.String()

	availableDays := float64(unit.BedCount * period.Days())
	occupancy := 0.0
	if availableDays > 0 {
		occupancy = prod.CareDays / availableDays
	}
	occT := cfg.Thresholds["occupancy"]
	out = append(out, KPI{
		Code: "KPI_OCC", Name: "Occupancy rate", UnitCode: unit.Code, Period: p,
		Value: occupancy, Target: occT.Green,
		Formula:   "Care days / Available bed days",
		Semaphore: Evaluate(occupancy, occT),
	})

	revenue, _ := st.TotalRevenue.Float64()
	personnel, _ := st.PersonnelCost().Float64()

	revPerDay := 0.0
	costPerDay := 0.0
	hoursPerDay := 0.0
	if prod.CareDays > 0 {
		revPerDay = revenue / prod.CareDays
		costPerDay = personnel / prod.CareDays
		hoursPerDay = prod.CareHours / prod.CareDays
	}

	bench, hasBench := benchmarkFor(cfg, unit)
	revTarget := 0.0
	costTarget := 0.0
	if hasBench && bench.CostPerDayMax > 0 {
		revTarget = bench.CostPerDayMax
		costTarget = bench.CostPerDayMax * bench.PersonnelPctMax / 100
	}
	out = append(out, KPI{
		Code: "KPI_REV_DAY", Name: "Revenue per care day", UnitCode: unit.Code, Period: p,
		Value: revPerDay, Target: revTarget,
		Formula:   "Revenue / Care days",
		Semaphore: benchSemaphore(revPerDay, revTarget, false),
	})
	out = append(out, KPI{
		Code: "KPI_PERS_DAY", Name: "Personnel cost per care day", UnitCode: unit.Code, Period: p,
		Value: costPerDay, Target: costTarget,
		Formula:   "Personnel cost / Care days",
		Semaphore: benchSemaphore(costPerDay, costTarget, true),
	})

	molT := cfg.Thresholds["mol_industrial"]
	out = append(out, KPI{
		Code: "KPI_MOL_I", Name: "Industrial MOL %", UnitCode: unit.Code, Period: p,
		Value: st.MarginPct, Target: molT.Green,
		Formula:   "Industrial MOL / Revenue",
		Semaphore: Evaluate(st.MarginPct, molT),
	})

	const hoursTarget = 2.5 // sector standard for residential care
	out = append(out, KPI{
		Code: "KPI_CARE_HOURS", Name: "Care hours per patient day", UnitCode: unit.Code, Period: p,
		Value: hoursPerDay, Target: hoursTarget,
		Formula:   "Care hours / Care days",
		Semaphore: Evaluate(hoursPerDay, Threshold{Green: hoursTarget, Yellow: hoursTarget * 0.8}),
	})
	return out
}

// benchmarkFor resolves the benchmark of the unit's first structure type.
func benchmarkFor(cfg *Settings, unit OperatingUnit) (Benchmark, bool) {
	for _, st := range unit.StructureTypes {
		if b, ok := cfg.Benchmarks[st]; ok {
			return b, true
		}
	}
	return Benchmark{}, false
}

// benchSemaphore classifies against a benchmark-derived target at the 90%
// and 80% bands. Units without a usable benchmark stay YELLOW so they are
// never silently green.
func benchSemaphore(value, target float64, lowerIsBetter bool) Semaphore {
	if target <= 0 {
		return SemaphoreYellow
	}
	if lowerIsBetter {
		return Evaluate(value, Threshold{Green: target * 0.9, Yellow: target, LowerIsBetter: true})
	}
	return Evaluate(value, Threshold{Green: target * 0.9, Yellow: target * 0.8})
}

// ── Economic KPIs ─────────────────────────────────────────────────────────────

// EconomicKPIs computes the consolidated group indicators from the
// consolidated managerial statement and the group cost base.
func EconomicKPIs(cfg *Settings, consolidated *ManagerialStatement, sharedCostTotal, personnelTotal, annualDebtService decimal.Decimal) []KPI {
	var out []KPI
	p := consolidated.Period.String()

	molT := cfg.Thresholds["mol_consolidated"]
	out = append(out, KPI{
		Code: "KPI_MOL_C", Name: "Consolidated MOL %", UnitCode: GroupUnit, Period: p,
		Value: consolidated.MarginPct, Target: molT.Green,
		Formula:   "Managerial MOL / Consolidated revenue",
		Semaphore: Evaluate(consolidated.MarginPct, molT),
	})

	hqWeight := ratio(sharedCostTotal, consolidated.TotalRevenue)
	hqT := cfg.Thresholds["shared_cost_pct"]
	out = append(out, KPI{
		Code: "KPI_HQ_PCT", Name: "Headquarters cost weight", UnitCode: GroupUnit, Period: p,
		Value: hqWeight, Target: hqT.Yellow,
		Formula:   "Headquarters costs / Consolidated revenue",
		Semaphore: Evaluate(hqWeight, hqT),
	})

	persPct := ratio(personnelTotal, consolidated.TotalRevenue)
	persT := cfg.Thresholds["personnel_pct"]
	out = append(out, KPI{
		Code: "KPI_PERS_PCT", Name: "Personnel cost on revenue", UnitCode: GroupUnit, Period: p,
		Value: persPct, Target: persT.Green,
		Formula:   "Personnel cost / Consolidated revenue",
		Semaphore: Evaluate(persPct, persT),
	})

	dscr := 0.0
	if annualDebtService.IsZero() {
		if consolidated.MOLManagerial.Sign() > 0 {
			dscr = math.Inf(1)
		}
	} else {
		annualMOL := consolidated.MOLManagerial.Mul(decimal.NewFromInt(12))
		dscr = ratio(annualMOL, annualDebtService)
	}
	dscrT := cfg.Thresholds["dscr"]
	out = append(out, KPI{
		Code: "KPI_DSCR", Name: "Debt service coverage", UnitCode: GroupUnit, Period: p,
		Value: dscr, Target: dscrT.Green,
		Formula:   "Annualized managerial MOL / Annual debt service",
		Semaphore: Evaluate(dscr, dscrT),
	})
	return out
}

// ── Financial KPIs ────────────────────────────────────────────────────────────

// FinancialInput carries the balances the financial KPIs read.
type FinancialInput struct {
	PublicReceivables  decimal.Decimal
	PrivateReceivables decimal.Decimal
	SupplierPayables   decimal.Decimal
	PublicRevenue      decimal.Decimal
	PrivateRevenue     decimal.Decimal
	Purchases          decimal.Decimal
	PeriodDays         int
	AvailableCash      decimal.Decimal
	AvgMonthlyOutflow  decimal.Decimal
}

// FinancialKPIs computes the group liquidity and working-capital indicators.
func FinancialKPIs(cfg *Settings, period Period, in FinancialInput) []KPI {
	var out []KPI
	p := period.String()

	dsoPub := DSO(in.PublicReceivables, in.PublicRevenue, in.PeriodDays)
	out = append(out, KPI{
		Code: "KPI_DSO_PUB", Name: "DSO public payer", UnitCode: GroupUnit, Period: p,
		Value: dsoPub, Target: cfg.Thresholds["dso_public"].Green,
		Formula:   "Public receivables / Public revenue x Period days",
		Semaphore: Evaluate(dsoPub, cfg.Thresholds["dso_public"]),
	})

	dsoPriv := DSO(in.PrivateReceivables, in.PrivateRevenue, in.PeriodDays)
	out = append(out, KPI{
		Code: "KPI_DSO_PRIV", Name: "DSO private", UnitCode: GroupUnit, Period: p,
		Value: dsoPriv, Target: cfg.Thresholds["dso_private"].Green,
		Formula:   "Private receivables / Private revenue x Period days",
		Semaphore: Evaluate(dsoPriv, cfg.Thresholds["dso_private"]),
	})

	dpo := DPO(in.SupplierPayables, in.Purchases, in.PeriodDays)
	out = append(out, KPI{
		Code: "KPI_DPO", Name: "DPO suppliers", UnitCode: GroupUnit, Period: p,
		Value: dpo, Target: cfg.Thresholds["dpo"].Green,
		Formula:   "Supplier payables / Purchases x Period days",
		Semaphore: Evaluate(dpo, cfg.Thresholds["dpo"]),
	})

	cash, _ := in.AvailableCash.Float64()
	out = append(out, KPI{
		Code: "KPI_CASH", Name: "Available cash", UnitCode: GroupUnit, Period: p,
		Value: cash, Target: cfg.Alerts.CashFloor,
		Formula:   "Bank and cash balance",
		Semaphore: Evaluate(cash, Threshold{Green: cfg.Alerts.CashFloor * 1.5, Yellow: cfg.Alerts.CashFloor}),
	})

	coverage := CashCoverageMonths(in.AvailableCash, in.AvgMonthlyOutflow)
	out = append(out, KPI{
		Code: "KPI_COVERAGE", Name: "Cash coverage months", UnitCode: GroupUnit, Period: p,
		Value: coverage, Target: cfg.Thresholds["cash_coverage"].Green,
		Formula:   "Available cash / Average monthly outflows",
		Semaphore: Evaluate(coverage, cfg.Thresholds["cash_coverage"]),
	})
	return out
}

// ── Trend ─────────────────────────────────────────────────────────────────────

// TrendPoint is one step of a KPI trend series. Delta and PctDelta compare
// against the previous period that had a value; PctDelta is nil over a zero
// reference.
type TrendPoint struct {
	Period    string    `json:"period"`
	Value     *float64  `json:"value,omitempty"`
	Semaphore Semaphore `json:"semaphore,omitempty"`
	Delta     *float64  `json:"delta,omitempty"`
	PctDelta  *float64  `json:"pct_delta,omitempty"`
}

// TrendKPI extracts the series of one KPI code (optionally for one unit)
// across chronologically ordered periods from precomputed KPI sets.
func TrendKPI(code, unitCode string, periods []string, history map[string][]KPI) []TrendPoint {
	out := make([]TrendPoint, 0, len(periods))
	var prev *float64
	for _, period := range periods {
		var found *KPI
		for i := range history[period] {
			k := &history[period][i]
			if k.Code == code && (unitCode == "" || k.UnitCode == unitCode) {
				found = k
				break
			}
		}
		if found == nil {
			out = append(out, TrendPoint{Period: period})
			continue
		}
		v := found.Value
		pt := TrendPoint{Period: period, Value: &v, Semaphore: found.Semaphore}
		if prev != nil {
			d := v - *prev
			pt.Delta = &d
			if *prev != 0 {
				pd := d / math.Abs(*prev)
				pt.PctDelta = &pd
			}
		}
		prev = &v
		out = append(out, pt)
	}
	return out
}
