package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ── Statement types ───────────────────────────────────────────────────────────

// StatementLine is one aggregated catalog line of a statement.
type StatementLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// IndustrialStatement is the pre-allocation income statement of one unit for
// one period: revenue and direct costs only, no headquarters costs.
// MOLIndustrial is revenue minus direct costs; MarginPct is MOL over revenue,
// 0 when revenue is 0.
type IndustrialStatement struct {
	UnitCode        string                              `json:"unit_code"`
	Period          Period                              `json:"period"`
	RevenueLines    []StatementLine                     `json:"revenue_lines"`
	RevenueByGroup  map[RevenueGroup]decimal.Decimal    `json:"revenue_by_group"`
	TotalRevenue    decimal.Decimal                     `json:"total_revenue"`
	CostLines       []StatementLine                     `json:"cost_lines"`
	CostsByCategory map[CostSubCategory]decimal.Decimal `json:"costs_by_category"`
	TotalDirect     decimal.Decimal                     `json:"total_direct_costs"`
	MOLIndustrial   decimal.Decimal                     `json:"mol_industrial"`
	MarginPct       float64                             `json:"margin_pct"`
}

// PersonnelCost returns the personnel sub-category total.
func (s *IndustrialStatement) PersonnelCost() decimal.Decimal {
	return s.CostsByCategory[SubCategoryPersonnel]
}

// ── Industrial engine ─────────────────────────────────────────────────────────

// BuildIndustrialStatements aggregates the revenue and direct-cost ledgers of
// one period into per-unit industrial statements. Every registered unit gets
// a statement, zero-valued when it has no rows. Rows with unknown line or
// unit codes are skipped and recorded as anomalies; they never abort the run.
func BuildIndustrialStatements(
	cfg *Settings,
	reg *Registry,
	revenue []RevenueLine,
	costs []DirectCostLine,
	period Period,
	report *RunReport,
) map[string]*IndustrialStatement {
	out := make(map[string]*IndustrialStatement, reg.Len())
	for _, code := range reg.Codes() {
		out[code] = newIndustrialStatement(code, period)
	}

	for _, line := range revenue {
		if line.Period != period {
			continue
		}
		st, ok := out[line.UnitCode]
		if !ok {
			report.Addf(AnomalyBadRow, "industrial", line.Code, line.UnitCode,
				"revenue row for unknown unit %s skipped", line.UnitCode)
			continue
		}
		entry, ok := cfg.Revenue[line.Code]
		if !ok {
			report.Addf(AnomalyUnknownCode, "industrial", line.Code, line.UnitCode,
				"revenue code %s not in catalog, row skipped", line.Code)
			continue
		}
		addLine(&st.RevenueLines, line.Code, entry.Name, line.Amount)
		st.RevenueByGroup[entry.Group] = st.RevenueByGroup[entry.Group].Add(line.Amount)
		st.TotalRevenue = st.TotalRevenue.Add(line.Amount)
	}

	for _, line := range costs {
		if line.Period != period {
			continue
		}
		st, ok := out[line.UnitCode]
		if !ok {
			report.Addf(AnomalyBadRow, "industrial", line.Code, line.UnitCode,
				"cost row for unknown unit %s skipped", line.UnitCode)
			continue
		}
		entry, ok := cfg.DirectCosts[line.Code]
		if !ok {
			report.Addf(AnomalyUnknownCode, "industrial", line.Code, line.UnitCode,
				"direct-cost code %s not in catalog, row skipped", line.Code)
			continue
		}
		addLine(&st.CostLines, line.Code, entry.Name, line.Amount)
		st.CostsByCategory[entry.SubCategory] = st.CostsByCategory[entry.SubCategory].Add(line.Amount)
		st.TotalDirect = st.TotalDirect.Add(line.Amount)
	}

	for _, st := range out {
		finishIndustrial(st)
	}
	return out
}

func newIndustrialStatement(unit string, period Period) *IndustrialStatement {
	return &IndustrialStatement{
		UnitCode:        unit,
		Period:          period,
		RevenueByGroup:  map[RevenueGroup]decimal.Decimal{},
		CostsByCategory: map[CostSubCategory]decimal.Decimal{},
	}
}

func finishIndustrial(st *IndustrialStatement) {
	sortLines(st.RevenueLines)
	sortLines(st.CostLines)
	st.MOLIndustrial = st.TotalRevenue.Sub(st.TotalDirect)
	st.MarginPct = ratio(st.MOLIndustrial, st.TotalRevenue)
}

// addLine merges an amount into the line slice by code.
func addLine(lines *[]StatementLine, code, name string, amount decimal.Decimal) {
	for i := range *lines {
		if (*lines)[i].Code == code {
			(*lines)[i].Amount = (*lines)[i].Amount.Add(amount)
			return
		}
	}
	*lines = append(*lines, StatementLine{Code: code, Name: name, Amount: amount})
}

func sortLines(lines []StatementLine) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].Code < lines[j].Code })
}

// ratio guards the revenue-normalized divisions: 0 when the denominator is 0.
func ratio(num, den decimal.Decimal) float64 {
	if den.IsZero() {
		return 0
	}
	f, _ := num.Div(den).Float64()
	return f
}

// ── Consolidation ─────────────────────────────────────────────────────────────

// ConsolidateIndustrial sums unit statements into one group-level statement.
// Consolidation is associative: merging any partition of the units yields the
// same totals as consolidating them all at once.
func ConsolidateIndustrial(statements ...*IndustrialStatement) *IndustrialStatement {
	if len(statements) == 0 {
		return newIndustrialStatement(GroupUnit, Period{})
	}
	out := newIndustrialStatement(GroupUnit, statements[0].Period)
	for _, st := range statements {
		for _, l := range st.RevenueLines {
			addLine(&out.RevenueLines, l.Code, l.Name, l.Amount)
		}
		for _, l := range st.CostLines {
			addLine(&out.CostLines, l.Code, l.Name, l.Amount)
		}
		for g, v := range st.RevenueByGroup {
			out.RevenueByGroup[g] = out.RevenueByGroup[g].Add(v)
		}
		for c, v := range st.CostsByCategory {
			out.CostsByCategory[c] = out.CostsByCategory[c].Add(v)
		}
		out.TotalRevenue = out.TotalRevenue.Add(st.TotalRevenue)
		out.TotalDirect = out.TotalDirect.Add(st.TotalDirect)
	}
	finishIndustrial(out)
	return out
}

// RevenueByUnit extracts the per-unit revenue totals, the percentage basis
// for GOVERNANCE allocation.
func RevenueByUnit(statements map[string]*IndustrialStatement) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(statements))
	for unit, st := range statements {
		out[unit] = st.TotalRevenue
	}
	return out
}
