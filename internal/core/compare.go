package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ── Statement comparison ──────────────────────────────────────────────────────

// LineDelta is one compared statement line. PctDelta is delta over the
// absolute reference value; it is nil, not 0, when the reference is 0.
type LineDelta struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Current   decimal.Decimal `json:"current"`
	Reference decimal.Decimal `json:"reference"`
	Delta     decimal.Decimal `json:"delta"`
	PctDelta  *float64        `json:"pct_delta,omitempty"`
	Favorable *bool           `json:"favorable,omitempty"` // set in budget comparisons only
}

// StatementComparison is a period-over-period or actual-vs-budget view of
// one unit's industrial statement.
type StatementComparison struct {
	UnitCode     string      `json:"unit_code"`
	Current      Period      `json:"current_period"`
	Reference    Period      `json:"reference_period"`
	RevenueLines []LineDelta `json:"revenue_lines"`
	CostLines    []LineDelta `json:"cost_lines"`
	Revenue      LineDelta   `json:"revenue_total"`
	DirectCosts  LineDelta   `json:"direct_cost_total"`
	MOL          LineDelta   `json:"mol"`
}

// ComparePeriods computes line-by-line deltas between two industrial
// statements of the same unit: delta = current − reference.
func ComparePeriods(current, reference *IndustrialStatement) *StatementComparison {
	c := &StatementComparison{
		UnitCode:     current.UnitCode,
		Current:      current.Period,
		Reference:    reference.Period,
		RevenueLines: compareLines(current.RevenueLines, reference.RevenueLines, nil),
		CostLines:    compareLines(current.CostLines, reference.CostLines, nil),
		Revenue:      lineDelta("", "Total revenue", current.TotalRevenue, reference.TotalRevenue),
		DirectCosts:  lineDelta("", "Total direct costs", current.TotalDirect, reference.TotalDirect),
		MOL:          lineDelta("", "MOL", current.MOLIndustrial, reference.MOLIndustrial),
	}
	return c
}

// CompareWithBudget is ComparePeriods against a budget statement, with each
// line marked favorable or not: more revenue is favorable, more cost is not.
func CompareWithBudget(actual, budget *IndustrialStatement) *StatementComparison {
	revDir := favorableWhenPositive
	costDir := favorableWhenNegative
	c := &StatementComparison{
		UnitCode:     actual.UnitCode,
		Current:      actual.Period,
		Reference:    budget.Period,
		RevenueLines: compareLines(actual.RevenueLines, budget.RevenueLines, revDir),
		CostLines:    compareLines(actual.CostLines, budget.CostLines, costDir),
		Revenue:      lineDelta("", "Total revenue", actual.TotalRevenue, budget.TotalRevenue),
		DirectCosts:  lineDelta("", "Total direct costs", actual.TotalDirect, budget.TotalDirect),
		MOL:          lineDelta("", "MOL", actual.MOLIndustrial, budget.MOLIndustrial),
	}
	c.Revenue.Favorable = revDir(c.Revenue.Delta)
	c.DirectCosts.Favorable = costDir(c.DirectCosts.Delta)
	c.MOL.Favorable = revDir(c.MOL.Delta)
	return c
}

type favorability func(delta decimal.Decimal) *bool

func favorableWhenPositive(delta decimal.Decimal) *bool {
	v := delta.Sign() >= 0
	return &v
}

func favorableWhenNegative(delta decimal.Decimal) *bool {
	v := delta.Sign() <= 0
	return &v
}

// compareLines merges the two line sets by code; codes present on only one
// side compare against zero.
func compareLines(current, reference []StatementLine, direction favorability) []LineDelta {
	type pair struct {
		name     string
		cur, ref decimal.Decimal
	}
	merged := map[string]*pair{}
	for _, l := range current {
		merged[l.Code] = &pair{name: l.Name, cur: l.Amount}
	}
	for _, l := range reference {
		p, ok := merged[l.Code]
		if !ok {
			p = &pair{name: l.Name}
			merged[l.Code] = p
		}
		p.ref = l.Amount
	}

	codes := make([]string, 0, len(merged))
	for code := range merged {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]LineDelta, 0, len(codes))
	for _, code := range codes {
		p := merged[code]
		d := lineDelta(code, p.name, p.cur, p.ref)
		if direction != nil {
			d.Favorable = direction(d.Delta)
		}
		out = append(out, d)
	}
	return out
}

func lineDelta(code, name string, current, reference decimal.Decimal) LineDelta {
	d := LineDelta{Code: code, Name: name, Current: current, Reference: reference, Delta: current.Sub(reference)}
	if !reference.IsZero() {
		pct, _ := d.Delta.Div(reference.Abs()).Float64()
		d.PctDelta = &pct
	}
	return d
}
