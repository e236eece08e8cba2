package core

import "sort"

// ScenarioProjection is one named scenario run of the cash-flow engine.
type ScenarioProjection struct {
	Name       string              `json:"name"`
	Label      string              `json:"label"`
	Params     Scenario            `json:"params"`
	Projection *CashFlowProjection `json:"projection"`
}

// RunScenarios re-runs the projection once per configured scenario with the
// scenario's collection delay, payroll inflation, contingency, and revenue
// growth applied. The base input is never mutated, so runs are independent
// and can execute in any order. Results come back sorted by scenario name.
func RunScenarios(cfg *Settings, base ProjectionInput) []ScenarioProjection {
	names := make([]string, 0, len(cfg.Scenarios))
	for name := range cfg.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ScenarioProjection, 0, len(names))
	for _, name := range names {
		params := cfg.Scenarios[name]
		in := base
		in.CollectionDelayDays = params.CollectionDelayDays
		in.PayrollInflation = params.PayrollInflation
		in.ContingencyPct = params.ContingencyPct
		in.RevenueGrowthPct = params.RevenueGrowthPct
		out = append(out, ScenarioProjection{
			Name:       name,
			Label:      params.Label,
			Params:     params,
			Projection: ProjectCashFlow(cfg, in),
		})
	}
	return out
}
