package core_test

import (
	"reflect"
	"testing"
	"time"

	"cdg-engine/internal/config"
	"cdg-engine/internal/core"
)

func TestRunScenarios(t *testing.T) {
	cfg := config.Default()
	base := core.ProjectionInput{
		Schedule: []core.ScheduleItem{
			{DueDate: day(2025, time.March, 4), Kind: core.KindCollection, Amount: dec("10000"), Category: "ASP"},
			{DueDate: day(2025, time.March, 5), Kind: core.KindPayment, Amount: dec("3000"), Category: "Suppliers"},
		},
		Payroll:     core.PayrollEstimate{Total: dec("4330")},
		OpeningCash: dec("50000"),
		Start:       day(2025, time.March, 3),
		Granularity: core.Weekly,
		Periods:     4,
	}

	runs := core.RunScenarios(cfg, base)

	if len(runs) != 3 {
		t.Fatalf("got %d scenario runs, want 3", len(runs))
	}
	// Sorted by scenario name for stable output.
	wantOrder := []string{"base", "optimistic", "pessimistic"}
	for i, want := range wantOrder {
		if runs[i].Name != want {
			t.Errorf("run %d = %s, want %s", i, runs[i].Name, want)
		}
	}

	byName := map[string]core.ScenarioProjection{}
	for _, r := range runs {
		byName[r.Name] = r
	}

	// The optimistic run grows inflows by 2%, the pessimistic one shrinks
	// them by 3% and adds contingency, so the closings must be ordered.
	opt := byName["optimistic"].Projection.ClosingBalance(base.OpeningCash)
	pes := byName["pessimistic"].Projection.ClosingBalance(base.OpeningCash)
	if !opt.GreaterThan(pes) {
		t.Errorf("optimistic closing %s not above pessimistic closing %s", opt, pes)
	}

	// Base scenario shifts collections by 30 days, pushing the week-1 inflow
	// out of the four-week horizon.
	if !byName["base"].Projection.Entries[0].Inflows.IsZero() {
		t.Errorf("base week-1 inflows = %s, want 0 under the 30-day delay",
			byName["base"].Projection.Entries[0].Inflows)
	}
}

func TestRunScenarios_InputUntouched(t *testing.T) {
	cfg := config.Default()
	base := core.ProjectionInput{
		Schedule: []core.ScheduleItem{
			{DueDate: day(2025, time.March, 4), Kind: core.KindCollection, Amount: dec("10000"), Category: "ASP"},
		},
		OpeningCash: dec("50000"),
		Start:       day(2025, time.March, 3),
		Granularity: core.Weekly,
		Periods:     4,
	}
	snapshot := base

	core.RunScenarios(cfg, base)

	if !reflect.DeepEqual(base, snapshot) {
		t.Error("scenario runs mutated the base projection input")
	}

	// Running the same base twice yields identical results.
	first := core.RunScenarios(cfg, base)
	second := core.RunScenarios(cfg, base)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated scenario runs diverged on identical input")
	}
}
