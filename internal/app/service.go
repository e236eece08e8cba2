package app

import (
	"context"

	"cdg-engine/internal/core"
)

// PipelineService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from the computation engines. Implementations
// must contain no fmt.Println and no display logic of any kind; every
// operation is a pure function of the snapshot and the configuration, so
// repeated calls with the same inputs return the same results.
type PipelineService interface {
	// ComputePeriod runs the full monthly chain for one period: industrial
	// statements, shared-cost allocation, managerial statements, group
	// consolidation, and the budget comparison when budget tables are
	// present. Data problems accumulate as anomalies on the result's run
	// report; a missing required table fails with a *core.StageError.
	ComputePeriod(ctx context.Context, snap *core.InputSnapshot, period core.Period) (*PeriodResult, error)

	// ProjectCashFlow builds the treasury projection from the payment
	// schedule, generated fiscal deadlines, and the payroll estimate.
	ProjectCashFlow(ctx context.Context, snap *core.InputSnapshot, req CashFlowRequest) (*CashFlowResult, error)

	// RunScenarios re-runs the projection once per configured scenario on
	// independent copies of the base input.
	RunScenarios(ctx context.Context, snap *core.InputSnapshot, req CashFlowRequest) (*ScenariosResult, error)

	// ComputeKPIs derives the operational, economic, and financial
	// indicators for one period with their semaphore classification.
	ComputeKPIs(ctx context.Context, snap *core.InputSnapshot, period core.Period) (*KPIResult, error)

	// ValidateSnapshot checks a snapshot without computing results: required
	// tables, catalog membership, and driver coverage for the period. The
	// returned report lists every problem found.
	ValidateSnapshot(ctx context.Context, snap *core.InputSnapshot, period core.Period) (*ValidationResult, error)

	// SimulateAllocation re-runs the shared-cost allocation with one rule
	// change applied (remove an item, change its amount, change its driver)
	// and reports the per-unit delta against the baseline.
	SimulateAllocation(ctx context.Context, snap *core.InputSnapshot, period core.Period, change core.WhatIfChange) (*WhatIfResult, error)
}
