package core

import "github.com/shopspring/decimal"

// ── Managerial statement ──────────────────────────────────────────────────────

// ManagerialStatement is the post-allocation statement of one unit for one
// period. MOLManagerial is MOLIndustrial minus allocated shared costs minus
// the unit's share of other indirect costs. UnallocatedShared is nonzero only
// on the consolidated statement, where holding-level costs come back into
// view below MOL.
type ManagerialStatement struct {
	UnitCode            string          `json:"unit_code"`
	Period              Period          `json:"period"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	TotalDirect         decimal.Decimal `json:"total_direct_costs"`
	MOLIndustrial       decimal.Decimal `json:"mol_industrial"`
	IndustrialMarginPct float64         `json:"industrial_margin_pct"`
	AllocatedService    decimal.Decimal `json:"allocated_service"`
	AllocatedGovernance decimal.Decimal `json:"allocated_governance"`
	AllocatedShared     decimal.Decimal `json:"allocated_shared"`
	IndirectLines       []StatementLine `json:"indirect_lines,omitempty"`
	TotalIndirect       decimal.Decimal `json:"total_indirect"`
	MOLManagerial       decimal.Decimal `json:"mol_managerial"`
	MarginPct           float64         `json:"margin_pct"`
	UnallocatedShared   decimal.Decimal `json:"unallocated_shared"`
	NetResult           decimal.Decimal `json:"net_result"`
}

// ── Managerial engine ─────────────────────────────────────────────────────────

// BuildManagerialStatements merges the industrial statements with the
// allocation result and the central indirect-cost rows (AC01-AC03). Indirect
// costs carry no unit code; they are apportioned across operative units
// pro-rata by revenue with the same residual correction as the allocation
// engine, so the per-unit indirect totals sum exactly to the input rows.
func BuildManagerialStatements(
	cfg *Settings,
	reg *Registry,
	industrial map[string]*IndustrialStatement,
	alloc *AllocationResult,
	indirect []DirectCostLine,
	period Period,
	report *RunReport,
) map[string]*ManagerialStatement {
	indirectByUnit := apportionIndirect(cfg, reg, industrial, indirect, period, report)

	out := make(map[string]*ManagerialStatement, len(industrial))
	for unit, ind := range industrial {
		st := &ManagerialStatement{
			UnitCode:            unit,
			Period:              period,
			TotalRevenue:        ind.TotalRevenue,
			TotalDirect:         ind.TotalDirect,
			MOLIndustrial:       ind.MOLIndustrial,
			IndustrialMarginPct: ind.MarginPct,
			AllocatedService:    alloc.ServiceByUnit[unit],
			AllocatedGovernance: alloc.GovernanceByUnit[unit],
			AllocatedShared:     alloc.ByUnit[unit],
			IndirectLines:       indirectByUnit[unit],
		}
		for _, l := range st.IndirectLines {
			st.TotalIndirect = st.TotalIndirect.Add(l.Amount)
		}
		st.MOLManagerial = st.MOLIndustrial.Sub(st.AllocatedShared).Sub(st.TotalIndirect)
		st.MarginPct = ratio(st.MOLManagerial, st.TotalRevenue)
		st.NetResult = st.MOLManagerial
		out[unit] = st
	}
	return out
}

// apportionIndirect spreads each central indirect-cost row across operative
// units by revenue share. Rows with unknown codes are skipped as anomalies;
// rows outside the target period are ignored.
func apportionIndirect(
	cfg *Settings,
	reg *Registry,
	industrial map[string]*IndustrialStatement,
	indirect []DirectCostLine,
	period Period,
	report *RunReport,
) map[string][]StatementLine {
	out := map[string][]StatementLine{}
	if len(indirect) == 0 {
		return out
	}

	raw := map[string]float64{}
	basis := 0.0
	for _, u := range reg.OperativeCodes() {
		if st, ok := industrial[u]; ok {
			rev, _ := st.TotalRevenue.Float64()
			raw[u] = rev
			basis += rev
		}
	}
	pcts := DriverPercentages(raw)

	for _, line := range indirect {
		if line.Period != period {
			continue
		}
		name, ok := cfg.Indirect[line.Code]
		if !ok {
			report.Addf(AnomalyUnknownCode, "managerial", line.Code, "",
				"indirect-cost code %s not in catalog, row skipped", line.Code)
			continue
		}
		if basis == 0 {
			report.Addf(AnomalyZeroDriver, "managerial", line.Code, "",
				"revenue basis has zero total for %s, indirect cost %s left unapportioned",
				period, line.Code)
			continue
		}
		for _, sh := range apportion(line.Amount, pcts) {
			lines := out[sh.UnitCode]
			addLine(&lines, line.Code, name, sh.Amount)
			out[sh.UnitCode] = lines
		}
	}
	for _, lines := range out {
		sortLines(lines)
	}
	return out
}

// ── Consolidation ─────────────────────────────────────────────────────────────

// ConsolidateManagerial sums unit statements into the group row and brings
// the unallocated holding costs below MOL. Associative like the industrial
// consolidation as long as the unallocated total is attached once, at the
// final merge.
func ConsolidateManagerial(unallocated decimal.Decimal, statements ...*ManagerialStatement) *ManagerialStatement {
	out := &ManagerialStatement{UnitCode: GroupUnit}
	for _, st := range statements {
		out.Period = st.Period
		out.TotalRevenue = out.TotalRevenue.Add(st.TotalRevenue)
		out.TotalDirect = out.TotalDirect.Add(st.TotalDirect)
		out.MOLIndustrial = out.MOLIndustrial.Add(st.MOLIndustrial)
		out.AllocatedService = out.AllocatedService.Add(st.AllocatedService)
		out.AllocatedGovernance = out.AllocatedGovernance.Add(st.AllocatedGovernance)
		out.AllocatedShared = out.AllocatedShared.Add(st.AllocatedShared)
		out.TotalIndirect = out.TotalIndirect.Add(st.TotalIndirect)
		for _, l := range st.IndirectLines {
			addLine(&out.IndirectLines, l.Code, l.Name, l.Amount)
		}
		out.MOLManagerial = out.MOLManagerial.Add(st.MOLManagerial)
	}
	sortLines(out.IndirectLines)
	out.IndustrialMarginPct = ratio(out.MOLIndustrial, out.TotalRevenue)
	out.MarginPct = ratio(out.MOLManagerial, out.TotalRevenue)
	out.UnallocatedShared = unallocated
	out.NetResult = out.MOLManagerial.Sub(unallocated)
	return out
}

// ── Industrial vs managerial ──────────────────────────────────────────────────

// MOLErosion quantifies how much of a unit's industrial margin the allocated
// headquarters costs consume.
type MOLErosion struct {
	UnitCode        string          `json:"unit_code"`
	MOLIndustrial   decimal.Decimal `json:"mol_industrial"`
	MOLManagerial   decimal.Decimal `json:"mol_managerial"`
	Erosion         decimal.Decimal `json:"erosion"`
	ErosionPct      float64         `json:"erosion_pct"`        // erosion over MOL-I, 0 when MOL-I is 0
	SharedCostOnRev float64         `json:"shared_cost_on_rev"` // allocated shared over revenue
}

// CompareIndustrialManagerial derives the erosion figures for one unit.
func CompareIndustrialManagerial(st *ManagerialStatement) MOLErosion {
	erosion := st.MOLIndustrial.Sub(st.MOLManagerial)
	return MOLErosion{
		UnitCode:        st.UnitCode,
		MOLIndustrial:   st.MOLIndustrial,
		MOLManagerial:   st.MOLManagerial,
		Erosion:         erosion,
		ErosionPct:      ratio(erosion, st.MOLIndustrial),
		SharedCostOnRev: ratio(st.AllocatedShared, st.TotalRevenue),
	}
}
