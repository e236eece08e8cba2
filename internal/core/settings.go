package core

// ── Configuration types ───────────────────────────────────────────────────────
//
// Settings is the explicit immutable configuration threaded through every
// engine invocation. Engines never read ambient state; scenario simulation
// composes by passing a modified copy.

// RevenueEntry describes one revenue catalog code.
type RevenueEntry struct {
	Name  string       `yaml:"name"`
	Group RevenueGroup `yaml:"group"`
}

// DirectCostEntry describes one direct-cost catalog code.
type DirectCostEntry struct {
	Name        string          `yaml:"name"`
	SubCategory CostSubCategory `yaml:"sub_category"`
}

// SharedCostEntry describes one headquarters-cost catalog code: its
// allocation category and, for SERVICE items, the designated driver.
type SharedCostEntry struct {
	Name     string       `yaml:"name"`
	Category CostCategory `yaml:"category"`
	Driver   DriverType   `yaml:"driver,omitempty"`
}

// Threshold is a semaphore cut-point pair. For normal KPIs higher is better:
// value >= Green is GREEN, >= Yellow is YELLOW, below is RED. With
// LowerIsBetter the comparisons invert.
type Threshold struct {
	Green         float64 `yaml:"green"`
	Yellow        float64 `yaml:"yellow"`
	LowerIsBetter bool    `yaml:"lower_is_better,omitempty"`
}

// Benchmark carries sector reference ranges per structure type. Percentages
// are expressed 0-100 as published by the sector studies.
type Benchmark struct {
	PersonnelPctMin float64 `yaml:"personnel_pct_min"`
	PersonnelPctMax float64 `yaml:"personnel_pct_max"`
	MOLPctMin       float64 `yaml:"mol_pct_min"`
	MOLPctMax       float64 `yaml:"mol_pct_max"`
	CostPerDayMin   float64 `yaml:"cost_per_day_min,omitempty"`
	CostPerDayMax   float64 `yaml:"cost_per_day_max,omitempty"`
}

// Alerts holds the hard cut-offs for cash and debt-service alerting.
type Alerts struct {
	CashFloor        float64 `yaml:"cash_floor"`
	MinCoverageDays  int     `yaml:"min_coverage_days"`
	MaxDSOPublic     float64 `yaml:"max_dso_public"`
	MaxDSOPrivate    float64 `yaml:"max_dso_private"`
	MaxDPO           float64 `yaml:"max_dpo"`
	DSCRWarning      float64 `yaml:"dscr_warning"`
	DSCRCritical     float64 `yaml:"dscr_critical"`
	MaxPersonnelPct  float64 `yaml:"max_personnel_pct"`
	MaxSharedCostPct float64 `yaml:"max_shared_cost_pct"`
	MinOccupancy     float64 `yaml:"min_occupancy"`
}

// Fiscal holds the recurring tax calendar amounts. Due dates are fixed by
// the calendar: withholding on day 16 monthly, VAT on day 16 of months
// 3/6/9/12, income-tax advance June 30, balance November 30.
type Fiscal struct {
	MonthlyWithholding float64 `yaml:"monthly_withholding"`
	QuarterlyVAT       float64 `yaml:"quarterly_vat"`
	IncomeTaxAdvance   float64 `yaml:"income_tax_advance"`
	IncomeTaxBalance   float64 `yaml:"income_tax_balance"`
}

// Scenario is one cash-flow scenario parameter set.
type Scenario struct {
	Label               string  `yaml:"label"`
	CollectionDelayDays int     `yaml:"collection_delay_days"`
	PayrollInflation    float64 `yaml:"payroll_inflation"`
	ContingencyPct      float64 `yaml:"contingency_pct"`
	RevenueGrowthPct    float64 `yaml:"revenue_growth_pct"`
}

// PayrollParams holds the payroll estimation parameters.
type PayrollParams struct {
	EmployerChargeRate  float64 `yaml:"employer_charge_rate"`
	DefaultMonthlyGross float64 `yaml:"default_monthly_gross"`
	WeeksPerMonth       float64 `yaml:"weeks_per_month"`
}

// Settings is the full configuration for one pipeline run.
type Settings struct {
	Units                  []OperatingUnit             `yaml:"units"`
	Revenue                map[string]RevenueEntry     `yaml:"revenue_catalog"`
	DirectCosts            map[string]DirectCostEntry  `yaml:"direct_cost_catalog"`
	SharedCosts            map[string]SharedCostEntry  `yaml:"shared_cost_catalog"`
	Indirect               map[string]string           `yaml:"indirect_cost_catalog"`
	Thresholds             map[string]Threshold        `yaml:"thresholds"`
	Benchmarks             map[StructureType]Benchmark `yaml:"benchmarks"`
	Alerts                 Alerts                      `yaml:"alerts"`
	Fiscal                 Fiscal                      `yaml:"fiscal"`
	Scenarios              map[string]Scenario         `yaml:"scenarios"`
	Payroll                PayrollParams               `yaml:"payroll"`
	DefaultSupplierMonthly float64                     `yaml:"default_supplier_monthly"`
}

// Category resolves the allocation category for a shared-cost code. Unknown
// codes fall back to LEGACY so their amounts stay traceable as unallocated.
func (s *Settings) Category(code string) (CostCategory, bool) {
	e, ok := s.SharedCosts[code]
	if !ok {
		return CategoryLegacy, false
	}
	return e.Category, true
}

// Threshold looks up a semaphore threshold pair by KPI key.
func (s *Settings) Threshold(key string) (Threshold, bool) {
	t, ok := s.Thresholds[key]
	return t, ok
}
