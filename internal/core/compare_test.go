package core_test

import (
	"testing"

	"cdg-engine/internal/config"
	"cdg-engine/internal/core"
)

func comparisonFixture(t *testing.T) (*core.IndustrialStatement, *core.IndustrialStatement) {
	t.Helper()
	cfg := config.Default()
	reg := core.NewRegistry(cfg.Units)

	jan := testPeriod(t, "01/2025")
	feb := testPeriod(t, "02/2025")
	report := core.NewRunReport("")

	janStatements := core.BuildIndustrialStatements(cfg, reg,
		[]core.RevenueLine{
			{UnitCode: "COS", Code: "R01", Period: jan, Amount: dec("300000")},
			{UnitCode: "COS", Code: "R04", Period: jan, Amount: dec("20000")},
		},
		[]core.DirectCostLine{
			{UnitCode: "COS", Code: "CD01", Period: jan, Amount: dec("180000")},
		},
		jan, report)
	febStatements := core.BuildIndustrialStatements(cfg, reg,
		[]core.RevenueLine{
			{UnitCode: "COS", Code: "R01", Period: feb, Amount: dec("330000")},
		},
		[]core.DirectCostLine{
			{UnitCode: "COS", Code: "CD01", Period: feb, Amount: dec("175000")},
			{UnitCode: "COS", Code: "CD10", Period: feb, Amount: dec("12000")},
		},
		feb, report)

	return febStatements["COS"], janStatements["COS"]
}

func TestComparePeriods(t *testing.T) {
	current, reference := comparisonFixture(t)
	cmp := core.ComparePeriods(current, reference)

	if !cmp.Revenue.Delta.Equal(dec("10000")) {
		t.Errorf("revenue delta = %s, want 10000", cmp.Revenue.Delta)
	}
	if cmp.Revenue.PctDelta == nil {
		t.Fatal("revenue pct delta missing")
	}
	if diff := *cmp.Revenue.PctDelta - 10000.0/320000.0; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("revenue pct delta = %v", *cmp.Revenue.PctDelta)
	}

	// Lines missing on one side compare against zero.
	byCode := map[string]core.LineDelta{}
	for _, l := range cmp.RevenueLines {
		byCode[l.Code] = l
	}
	for _, l := range cmp.CostLines {
		byCode[l.Code] = l
	}
	if r04 := byCode["R04"]; !r04.Delta.Equal(dec("-20000")) {
		t.Errorf("R04 delta = %s, want -20000", r04.Delta)
	}
	if cd10 := byCode["CD10"]; !cd10.Delta.Equal(dec("12000")) {
		t.Errorf("CD10 delta = %s, want 12000", cd10.Delta)
	}
	// Period comparisons carry no favorability marks.
	if cmp.Revenue.Favorable != nil {
		t.Error("period comparison marked favorability")
	}
}

func TestComparePeriods_PctDeltaNilOverZero(t *testing.T) {
	current := &core.IndustrialStatement{
		UnitCode:     "LAB",
		TotalRevenue: dec("5000"),
	}
	reference := &core.IndustrialStatement{UnitCode: "LAB"}

	cmp := core.ComparePeriods(current, reference)

	if !cmp.Revenue.Delta.Equal(dec("5000")) {
		t.Errorf("delta = %s, want 5000", cmp.Revenue.Delta)
	}
	if cmp.Revenue.PctDelta != nil {
		t.Errorf("pct delta over zero reference = %v, want nil", *cmp.Revenue.PctDelta)
	}
}

func TestCompareWithBudget(t *testing.T) {
	current, reference := comparisonFixture(t)
	cmp := core.CompareWithBudget(current, reference)

	if cmp.Revenue.Favorable == nil || !*cmp.Revenue.Favorable {
		t.Error("revenue above budget not marked favorable")
	}
	// Direct costs grew by 7000, unfavorable.
	if !cmp.DirectCosts.Delta.Equal(dec("7000")) {
		t.Errorf("cost delta = %s, want 7000", cmp.DirectCosts.Delta)
	}
	if cmp.DirectCosts.Favorable == nil || *cmp.DirectCosts.Favorable {
		t.Error("cost overrun not marked unfavorable")
	}

	for _, l := range cmp.CostLines {
		if l.Favorable == nil {
			t.Fatalf("cost line %s has no favorability mark", l.Code)
		}
		switch l.Code {
		case "CD01": // 175000 vs 180000: spending less than budget
			if !*l.Favorable {
				t.Error("CD01 saving not marked favorable")
			}
		case "CD10": // unbudgeted spend
			if *l.Favorable {
				t.Error("CD10 overrun marked favorable")
			}
		}
	}
}
