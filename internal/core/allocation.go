package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ── Result types ──────────────────────────────────────────────────────────────

// AllocationShare is one unit's slice of an allocated item. Percentage is the
// driver share before rounding; Amount is the rounded monetary share after
// residual correction.
type AllocationShare struct {
	UnitCode   string          `json:"unit_code"`
	Percentage float64         `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// ItemAllocation is the distribution of a single shared-cost item. For
// DEVELOPMENT/LEGACY items, and for allocable items whose driver total is
// zero, Shares is empty and Unallocated carries the full amount.
type ItemAllocation struct {
	Item        SharedCostItem    `json:"item"`
	Category    CostCategory      `json:"category"`
	Driver      DriverType        `json:"driver,omitempty"`
	Shares      []AllocationShare `json:"shares,omitempty"`
	Unallocated decimal.Decimal   `json:"unallocated"`
}

// AllocationResult is the full allocation outcome for one period. The
// conservation invariant holds per item: the sum of share amounts plus the
// unallocated remainder equals the item amount exactly.
type AllocationResult struct {
	Period           Period                           `json:"period"`
	Items            []ItemAllocation                 `json:"items"`
	ByUnit           map[string]decimal.Decimal       `json:"by_unit"`
	ServiceByUnit    map[string]decimal.Decimal       `json:"service_by_unit"`
	GovernanceByUnit map[string]decimal.Decimal       `json:"governance_by_unit"`
	ByCategory       map[CostCategory]decimal.Decimal `json:"by_category"`
	Unallocated      map[CostCategory]decimal.Decimal `json:"unallocated"`
	UnallocatedTotal decimal.Decimal                  `json:"unallocated_total"`
}

// AllocatedTotal returns the sum of all per-unit allocations.
func (r *AllocationResult) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.ByUnit {
		total = total.Add(v)
	}
	return total
}

// ── Driver percentages ────────────────────────────────────────────────────────

// DriverPercentages converts raw driver values into allocation percentages.
// When the total is zero every unit gets 0 and the caller must treat the
// item as unallocated.
func DriverPercentages(values map[string]float64) map[string]float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	out := make(map[string]float64, len(values))
	if total == 0 {
		for unit := range values {
			out[unit] = 0
		}
		return out
	}
	for unit, v := range values {
		out[unit] = v / total
	}
	return out
}

// apportion splits amount across units by percentage, rounding each share to
// the cent. The rounding residual goes to the unit with the largest share,
// lexically smallest unit code on exact ties, so the shares always sum back
// to the amount.
func apportion(amount decimal.Decimal, percentages map[string]float64) []AllocationShare {
	units := make([]string, 0, len(percentages))
	for u := range percentages {
		units = append(units, u)
	}
	sort.Strings(units)

	shares := make([]AllocationShare, 0, len(units))
	allocated := decimal.Zero
	largest := ""
	largestPct := -1.0
	for _, u := range units {
		pct := percentages[u]
		amt := amount.Mul(decimal.NewFromFloat(pct)).Round(2)
		shares = append(shares, AllocationShare{UnitCode: u, Percentage: pct, Amount: amt})
		allocated = allocated.Add(amt)
		if pct > largestPct {
			largestPct = pct
			largest = u
		}
	}

	residual := amount.Sub(allocated)
	if !residual.IsZero() {
		for i := range shares {
			if shares[i].UnitCode == largest {
				shares[i].Amount = shares[i].Amount.Add(residual)
				break
			}
		}
	}
	return shares
}

// ── Allocation engine ─────────────────────────────────────────────────────────

// Allocate apportions the shared-cost ledger of one period across operating
// units. SERVICE items use their designated driver table, GOVERNANCE items
// the revenue driver (fixed-quota items split equally across operative
// units), DEVELOPMENT and LEGACY items accumulate as unallocated. Unknown
// item codes are recorded as anomalies and treated as LEGACY; a zero driver
// total makes the item fully unallocated for the period. Negative amounts
// allocate with the same percentages and are never clamped.
func Allocate(
	cfg *Settings,
	reg *Registry,
	items []SharedCostItem,
	drivers []DriverValue,
	revenueByUnit map[string]decimal.Decimal,
	period Period,
	report *RunReport,
) *AllocationResult {
	res := &AllocationResult{
		Period:           period,
		ByUnit:           map[string]decimal.Decimal{},
		ServiceByUnit:    map[string]decimal.Decimal{},
		GovernanceByUnit: map[string]decimal.Decimal{},
		ByCategory:       map[CostCategory]decimal.Decimal{},
		Unallocated:      map[CostCategory]decimal.Decimal{},
	}

	driverValues := driverTable(reg, drivers, period)

	for _, item := range items {
		if item.Period != period {
			continue
		}
		entry, known := cfg.SharedCosts[item.Code]
		category := entry.Category
		if !known {
			category = CategoryLegacy
			report.Addf(AnomalyUnknownCode, "allocation", item.Code, "",
				"shared-cost code %s not in catalog, treated as LEGACY", item.Code)
		}
		res.ByCategory[category] = res.ByCategory[category].Add(item.Amount)

		ia := ItemAllocation{Item: item, Category: category, Driver: entry.Driver}

		switch category {
		case CategoryService, CategoryGovernance:
			pcts, ok := itemPercentages(cfg, reg, entry, driverValues, revenueByUnit)
			if !ok {
				ia.Unallocated = item.Amount
				res.Unallocated[category] = res.Unallocated[category].Add(item.Amount)
				res.UnallocatedTotal = res.UnallocatedTotal.Add(item.Amount)
				report.Addf(AnomalyZeroDriver, "allocation", item.Code, "",
					"driver %s has zero total for %s, item %s fully unallocated",
					entry.Driver, period, item.Code)
				break
			}
			ia.Shares = apportion(item.Amount, pcts)
			for _, sh := range ia.Shares {
				res.ByUnit[sh.UnitCode] = res.ByUnit[sh.UnitCode].Add(sh.Amount)
				if category == CategoryService {
					res.ServiceByUnit[sh.UnitCode] = res.ServiceByUnit[sh.UnitCode].Add(sh.Amount)
				} else {
					res.GovernanceByUnit[sh.UnitCode] = res.GovernanceByUnit[sh.UnitCode].Add(sh.Amount)
				}
			}
		default:
			ia.Unallocated = item.Amount
			res.Unallocated[category] = res.Unallocated[category].Add(item.Amount)
			res.UnallocatedTotal = res.UnallocatedTotal.Add(item.Amount)
		}

		res.Items = append(res.Items, ia)
	}
	return res
}

// itemPercentages resolves the percentage basis for one allocable item.
// Returns ok=false when the driver total is zero.
func itemPercentages(
	cfg *Settings,
	reg *Registry,
	entry SharedCostEntry,
	driverValues map[DriverType]map[string]float64,
	revenueByUnit map[string]decimal.Decimal,
) (map[string]float64, bool) {
	var raw map[string]float64
	switch {
	case entry.Driver == DriverFixedQuota:
		raw = map[string]float64{}
		for _, u := range reg.OperativeCodes() {
			raw[u] = 1
		}
	case entry.Category == CategoryGovernance || entry.Driver == DriverRevenue:
		raw = map[string]float64{}
		for _, u := range reg.OperativeCodes() {
			rev, _ := revenueByUnit[u].Float64()
			raw[u] = rev
		}
	default:
		raw = driverValues[entry.Driver]
		if raw == nil {
			return nil, false
		}
	}

	pcts := DriverPercentages(raw)
	total := 0.0
	for _, p := range pcts {
		total += p
	}
	if total == 0 {
		return nil, false
	}
	return pcts, true
}

// driverTable indexes the driver rows of one period by driver type. Rows for
// unknown units are dropped on read (the adapter records the anomaly).
func driverTable(reg *Registry, drivers []DriverValue, period Period) map[DriverType]map[string]float64 {
	out := map[DriverType]map[string]float64{}
	for _, d := range drivers {
		if d.Period != period {
			continue
		}
		if _, ok := reg.Lookup(d.UnitCode); !ok {
			continue
		}
		m := out[d.Driver]
		if m == nil {
			m = map[string]float64{}
			out[d.Driver] = m
		}
		m[d.UnitCode] += d.Value
	}
	return out
}

// ── What-if simulation ────────────────────────────────────────────────────────

// WhatIfChange describes a single rule change for an allocation simulation.
type WhatIfChange struct {
	ItemCode  string           `json:"item_code"`
	Remove    bool             `json:"remove,omitempty"`
	NewAmount *decimal.Decimal `json:"new_amount,omitempty"`
	NewDriver *DriverType      `json:"new_driver,omitempty"`
}

// WhatIfResult compares a baseline allocation against a simulated variant.
type WhatIfResult struct {
	Baseline  *AllocationResult          `json:"baseline"`
	Simulated *AllocationResult          `json:"simulated"`
	DeltaUnit map[string]decimal.Decimal `json:"delta_by_unit"`
}

// SimulateAllocation re-runs the allocation with one rule change applied and
// reports the per-unit delta against the baseline. The inputs are never
// mutated; the simulation builds its own item list and settings copy.
func SimulateAllocation(
	cfg *Settings,
	reg *Registry,
	items []SharedCostItem,
	drivers []DriverValue,
	revenueByUnit map[string]decimal.Decimal,
	period Period,
	change WhatIfChange,
) *WhatIfResult {
	baseline := Allocate(cfg, reg, items, drivers, revenueByUnit, period, NewRunReport(period.String()))

	simCfg := cfg
	if change.NewDriver != nil {
		copied := *cfg
		catalog := make(map[string]SharedCostEntry, len(cfg.SharedCosts))
		for k, v := range cfg.SharedCosts {
			catalog[k] = v
		}
		entry := catalog[change.ItemCode]
		entry.Driver = *change.NewDriver
		catalog[change.ItemCode] = entry
		copied.SharedCosts = catalog
		simCfg = &copied
	}

	var simItems []SharedCostItem
	for _, it := range items {
		if it.Code == change.ItemCode {
			if change.Remove {
				continue
			}
			if change.NewAmount != nil {
				it.Amount = *change.NewAmount
			}
		}
		simItems = append(simItems, it)
	}

	simulated := Allocate(simCfg, reg, simItems, drivers, revenueByUnit, period, NewRunReport(period.String()))

	delta := map[string]decimal.Decimal{}
	for _, u := range reg.Codes() {
		d := simulated.ByUnit[u].Sub(baseline.ByUnit[u])
		if !d.IsZero() {
			delta[u] = d
		}
	}
	return &WhatIfResult{Baseline: baseline, Simulated: simulated, DeltaUnit: delta}
}
