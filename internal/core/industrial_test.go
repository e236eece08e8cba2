package core_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"cdg-engine/internal/config"
	"cdg-engine/internal/core"
)

func TestBuildIndustrialStatements(t *testing.T) {
	cfg := config.Default()
	reg := core.NewRegistry(cfg.Units)
	period := testPeriod(t, "01/2025")

	revenue := []core.RevenueLine{
		{UnitCode: "LAB", Code: "R03", Period: period, Amount: dec("60000")},
		{UnitCode: "LAB", Code: "R06", Period: period, Amount: dec("40000")},
		{UnitCode: "LAB", Code: "R03", Period: testPeriod(t, "02/2025"), Amount: dec("99999")},
	}
	costs := []core.DirectCostLine{
		{UnitCode: "LAB", Code: "CD04", Period: period, Amount: dec("45000")},
		{UnitCode: "LAB", Code: "CD11", Period: period, Amount: dec("20000")},
		{UnitCode: "LAB", Code: "CD23", Period: period, Amount: dec("5000")},
	}

	report := core.NewRunReport(period.String())
	statements := core.BuildIndustrialStatements(cfg, reg, revenue, costs, period, report)

	lab := statements["LAB"]
	if lab == nil {
		t.Fatal("no statement for LAB")
	}
	if !lab.TotalRevenue.Equal(dec("100000")) {
		t.Errorf("revenue = %s, want 100000", lab.TotalRevenue)
	}
	if !lab.TotalDirect.Equal(dec("70000")) {
		t.Errorf("direct costs = %s, want 70000", lab.TotalDirect)
	}
	if !lab.MOLIndustrial.Equal(dec("30000")) {
		t.Errorf("MOL = %s, want 30000", lab.MOLIndustrial)
	}
	if lab.MarginPct != 0.30 {
		t.Errorf("margin = %v, want 0.30", lab.MarginPct)
	}
	if !lab.RevenueByGroup[core.RevenueConvention].Equal(dec("60000")) {
		t.Errorf("convention revenue = %s, want 60000", lab.RevenueByGroup[core.RevenueConvention])
	}
	if !lab.PersonnelCost().Equal(dec("45000")) {
		t.Errorf("personnel = %s, want 45000", lab.PersonnelCost())
	}
	if report.Count() != 0 {
		t.Errorf("unexpected anomalies: %v", report.Anomalies)
	}

	// Units with no rows still get a zero-valued statement.
	if vlb := statements["VLB"]; vlb == nil || !vlb.TotalRevenue.IsZero() {
		t.Errorf("VLB statement = %+v, want zero-valued", vlb)
	}
}

func TestBuildIndustrialStatements_BadRows(t *testing.T) {
	cfg := config.Default()
	reg := core.NewRegistry(cfg.Units)
	period := testPeriod(t, "01/2025")

	tests := []struct {
		name     string
		revenue  []core.RevenueLine
		costs    []core.DirectCostLine
		wantKind core.AnomalyKind
	}{
		{
			name:     "unknown revenue code",
			revenue:  []core.RevenueLine{{UnitCode: "LAB", Code: "R99", Period: period, Amount: dec("100")}},
			wantKind: core.AnomalyUnknownCode,
		},
		{
			name:     "unknown unit",
			revenue:  []core.RevenueLine{{UnitCode: "XXX", Code: "R01", Period: period, Amount: dec("100")}},
			wantKind: core.AnomalyBadRow,
		},
		{
			name:     "unknown cost code",
			costs:    []core.DirectCostLine{{UnitCode: "LAB", Code: "CD99", Period: period, Amount: dec("100")}},
			wantKind: core.AnomalyUnknownCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := core.NewRunReport(period.String())
			statements := core.BuildIndustrialStatements(cfg, reg, tt.revenue, tt.costs, period, report)

			if report.Count() != 1 {
				t.Fatalf("got %d anomalies, want 1", report.Count())
			}
			if report.Anomalies[0].Kind != tt.wantKind {
				t.Errorf("anomaly kind = %s, want %s", report.Anomalies[0].Kind, tt.wantKind)
			}
			// Skipped rows contribute nothing.
			if lab := statements["LAB"]; !lab.TotalRevenue.IsZero() || !lab.TotalDirect.IsZero() {
				t.Errorf("LAB totals = %s / %s, want zero", lab.TotalRevenue, lab.TotalDirect)
			}
		})
	}
}

func TestBuildIndustrialStatements_MergesDuplicateCodes(t *testing.T) {
	cfg := config.Default()
	reg := core.NewRegistry(cfg.Units)
	period := testPeriod(t, "01/2025")

	revenue := []core.RevenueLine{
		{UnitCode: "COS", Code: "R01", Period: period, Amount: dec("1000")},
		{UnitCode: "COS", Code: "R01", Period: period, Amount: dec("500")},
	}
	report := core.NewRunReport(period.String())
	statements := core.BuildIndustrialStatements(cfg, reg, revenue, nil, period, report)

	cos := statements["COS"]
	if len(cos.RevenueLines) != 1 {
		t.Fatalf("got %d revenue lines, want 1 merged line", len(cos.RevenueLines))
	}
	if !cos.RevenueLines[0].Amount.Equal(dec("1500")) {
		t.Errorf("merged amount = %s, want 1500", cos.RevenueLines[0].Amount)
	}
}

func TestConsolidateIndustrial_Associative(t *testing.T) {
	cfg := config.Default()
	reg := core.NewRegistry(cfg.Units)
	period := testPeriod(t, "01/2025")

	revenue := []core.RevenueLine{
		{UnitCode: "VLB", Code: "R01", Period: period, Amount: dec("210000")},
		{UnitCode: "COS", Code: "R01", Period: period, Amount: dec("300000")},
		{UnitCode: "LAB", Code: "R03", Period: period, Amount: dec("100000")},
	}
	costs := []core.DirectCostLine{
		{UnitCode: "VLB", Code: "CD02", Period: period, Amount: dec("120000")},
		{UnitCode: "COS", Code: "CD01", Period: period, Amount: dec("180000")},
		{UnitCode: "LAB", Code: "CD04", Period: period, Amount: dec("70000")},
	}
	report := core.NewRunReport(period.String())
	statements := core.BuildIndustrialStatements(cfg, reg, revenue, costs, period, report)

	all := core.ConsolidateIndustrial(statements["VLB"], statements["COS"], statements["LAB"])
	partitioned := core.ConsolidateIndustrial(
		core.ConsolidateIndustrial(statements["VLB"], statements["COS"]),
		statements["LAB"],
	)

	if !all.TotalRevenue.Equal(partitioned.TotalRevenue) {
		t.Errorf("revenue: all-at-once %s != partitioned %s", all.TotalRevenue, partitioned.TotalRevenue)
	}
	if !all.MOLIndustrial.Equal(partitioned.MOLIndustrial) {
		t.Errorf("MOL: all-at-once %s != partitioned %s", all.MOLIndustrial, partitioned.MOLIndustrial)
	}
	if !all.TotalRevenue.Equal(dec("610000")) {
		t.Errorf("group revenue = %s, want 610000", all.TotalRevenue)
	}
	if !all.MOLIndustrial.Equal(dec("240000")) {
		t.Errorf("group MOL = %s, want 240000", all.MOLIndustrial)
	}
	if all.UnitCode != core.GroupUnit {
		t.Errorf("unit code = %s, want %s", all.UnitCode, core.GroupUnit)
	}
}

func TestRatioZeroRevenue(t *testing.T) {
	cfg := config.Default()
	reg := core.NewRegistry(cfg.Units)
	period := testPeriod(t, "01/2025")

	costs := []core.DirectCostLine{
		{UnitCode: "ZAR", Code: "CD12", Period: period, Amount: dec("5000")},
	}
	report := core.NewRunReport(period.String())
	statements := core.BuildIndustrialStatements(cfg, reg, nil, costs, period, report)

	zar := statements["ZAR"]
	if !zar.MOLIndustrial.Equal(dec("-5000")) {
		t.Errorf("MOL = %s, want -5000", zar.MOLIndustrial)
	}
	if zar.MarginPct != 0 {
		t.Errorf("margin over zero revenue = %v, want 0", zar.MarginPct)
	}
}

func TestRevenueByUnit(t *testing.T) {
	statements := map[string]*core.IndustrialStatement{
		"LAB": {UnitCode: "LAB", TotalRevenue: dec("100")},
		"COS": {UnitCode: "COS", TotalRevenue: decimal.Zero},
	}
	got := core.RevenueByUnit(statements)
	if !got["LAB"].Equal(dec("100")) || !got["COS"].IsZero() {
		t.Errorf("unexpected revenue map: %v", got)
	}
}
