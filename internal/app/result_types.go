package app

import "cdg-engine/internal/core"

// PeriodResult is returned by ComputePeriod.
type PeriodResult struct {
	Period           string                               `json:"period"`
	Industrial       map[string]*core.IndustrialStatement `json:"industrial"`
	IndustrialGroup  *core.IndustrialStatement            `json:"industrial_group"`
	Allocation       *core.AllocationResult               `json:"allocation"`
	Managerial       map[string]*core.ManagerialStatement `json:"managerial"`
	ManagerialGroup  *core.ManagerialStatement            `json:"managerial_group"`
	Erosion          []core.MOLErosion                    `json:"erosion"`
	BudgetComparison map[string]*core.StatementComparison `json:"budget_comparison,omitempty"`
	Report           *core.RunReport                      `json:"report"`
}

// CashFlowResult is returned by ProjectCashFlow.
type CashFlowResult struct {
	Projection *core.CashFlowProjection `json:"projection"`
	Classified []core.ClassifiedItem    `json:"classified_schedule"`
	Payroll    core.PayrollEstimate     `json:"payroll_estimate"`
	Report     *core.RunReport          `json:"report"`
}

// ScenariosResult is returned by RunScenarios.
type ScenariosResult struct {
	Scenarios []core.ScenarioProjection `json:"scenarios"`
	Report    *core.RunReport           `json:"report"`
}

// KPIResult is returned by ComputeKPIs.
type KPIResult struct {
	Period      string          `json:"period"`
	Operational []core.KPI      `json:"operational"`
	Economic    []core.KPI      `json:"economic"`
	Financial   []core.KPI      `json:"financial"`
	Report      *core.RunReport `json:"report"`
}

// All returns every KPI set concatenated, operational first.
func (r *KPIResult) All() []core.KPI {
	out := make([]core.KPI, 0, len(r.Operational)+len(r.Economic)+len(r.Financial))
	out = append(out, r.Operational...)
	out = append(out, r.Economic...)
	out = append(out, r.Financial...)
	return out
}

// WhatIfResult is returned by SimulateAllocation.
type WhatIfResult struct {
	Period string             `json:"period"`
	Change core.WhatIfChange  `json:"change"`
	Result *core.WhatIfResult `json:"result"`
	Report *core.RunReport    `json:"report"`
}

// ValidationResult is returned by ValidateSnapshot. MissingTables lists the
// structurally absent tables; the report carries the row-level problems.
type ValidationResult struct {
	Period        string          `json:"period"`
	MissingTables []string        `json:"missing_tables,omitempty"`
	Report        *core.RunReport `json:"report"`
	OK            bool            `json:"ok"`
}
