package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"cdg-engine/internal/adapters/excel"
	"cdg-engine/internal/app"
	"cdg-engine/internal/core"
)

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:] — the first element is the subcommand name.
func Run(ctx context.Context, svc app.PipelineService, args []string) {
	switch args[0] {
	case "compute", "comp", "c":
		if len(args) < 3 {
			log.Fatal("Usage: app compute <master.xlsx> <MM/YYYY> [report.xlsx]")
		}
		snap, period := loadInput(args[1], args[2])
		result, err := svc.ComputePeriod(ctx, snap, period)
		if err != nil {
			log.Fatalf("Compute failed: %v", err)
		}
		printPeriodSummary(result)
		if len(args) > 3 {
			if err := excel.WriteReport(args[3], result, nil, nil, nil); err != nil {
				log.Fatalf("Failed to write report: %v", err)
			}
			fmt.Println("Report written to", args[3])
		}

	case "cashflow", "cf":
		if len(args) < 2 {
			log.Fatal("Usage: app cashflow <master.xlsx> [periods]")
		}
		snap := loadSnapshot(args[1])
		req := app.CashFlowRequest{}
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				log.Fatalf("Invalid period count: %v", err)
			}
			req.Periods = n
		}
		result, err := svc.ProjectCashFlow(ctx, snap, req)
		if err != nil {
			log.Fatalf("Projection failed: %v", err)
		}
		printCashFlow(result)

	case "scenarios", "scen", "s":
		if len(args) < 2 {
			log.Fatal("Usage: app scenarios <master.xlsx>")
		}
		snap := loadSnapshot(args[1])
		result, err := svc.RunScenarios(ctx, snap, app.CashFlowRequest{})
		if err != nil {
			log.Fatalf("Scenarios failed: %v", err)
		}
		printScenarios(result)

	case "kpi", "k":
		if len(args) < 3 {
			log.Fatal("Usage: app kpi <master.xlsx> <MM/YYYY>")
		}
		snap, period := loadInput(args[1], args[2])
		result, err := svc.ComputeKPIs(ctx, snap, period)
		if err != nil {
			log.Fatalf("KPI computation failed: %v", err)
		}
		printKPIs(result)

	case "validate", "val", "v":
		if len(args) < 3 {
			log.Fatal("Usage: app validate <master.xlsx> <MM/YYYY>")
		}
		snap, period := loadInput(args[1], args[2])
		result, err := svc.ValidateSnapshot(ctx, snap, period)
		if err != nil {
			log.Fatalf("Validation failed: %v", err)
		}
		printValidation(result)
		if !result.OK {
			os.Exit(1)
		}

	case "whatif", "w":
		if len(args) < 5 {
			log.Fatal("Usage: app whatif <master.xlsx> <MM/YYYY> <code> remove|amount=<n>|driver=<name>")
		}
		snap, period := loadInput(args[1], args[2])
		change, err := parseWhatIfChange(args[3], args[4])
		if err != nil {
			log.Fatalf("Invalid change: %v", err)
		}
		result, err := svc.SimulateAllocation(ctx, snap, period, change)
		if err != nil {
			log.Fatalf("Simulation failed: %v", err)
		}
		printWhatIf(result)

	case "json", "j":
		// Machine-readable compute output for piping into other tooling.
		if len(args) < 3 {
			log.Fatal("Usage: app json <master.xlsx> <MM/YYYY>")
		}
		snap, period := loadInput(args[1], args[2])
		result, err := svc.ComputePeriod(ctx, snap, period)
		if err != nil {
			log.Fatalf("Compute failed: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)

	default:
		log.Fatalf("Unknown command: %s\nAvailable: compute, cashflow, scenarios, kpi, whatif, validate, json", args[0])
	}
}

func loadSnapshot(path string) *core.InputSnapshot {
	report := core.NewRunReport("")
	snap, err := excel.ReadSnapshot(path, report)
	if err != nil {
		log.Fatalf("Failed to read workbook: %v", err)
	}
	for _, a := range report.Anomalies {
		fmt.Fprintf(os.Stderr, "warning: %s\n", a.Message)
	}
	return snap
}

func loadInput(path, periodArg string) (*core.InputSnapshot, core.Period) {
	period, err := core.ParsePeriod(periodArg)
	if err != nil {
		log.Fatalf("Invalid period %q: %v", periodArg, err)
	}
	return loadSnapshot(path), period
}

func printPeriodSummary(result *app.PeriodResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  MANAGERIAL RESULT — %s\n", result.Period)
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-6s %14s %14s %14s %14s %8s\n",
		"UNIT", "REVENUE", "MOL-IND", "SHARED", "MOL-MAN", "MARGIN")
	fmt.Println(strings.Repeat("-", 78))
	for _, code := range sortedKeys(result.Managerial) {
		st := result.Managerial[code]
		fmt.Printf("  %-6s %14s %14s %14s %14s %7.1f%%\n",
			st.UnitCode,
			st.TotalRevenue.StringFixed(2),
			st.MOLIndustrial.StringFixed(2),
			st.AllocatedShared.StringFixed(2),
			st.MOLManagerial.StringFixed(2),
			st.MarginPct*100)
	}
	fmt.Println(strings.Repeat("-", 78))
	if g := result.ManagerialGroup; g != nil {
		fmt.Printf("  %-6s %14s %14s %14s %14s %7.1f%%\n",
			g.UnitCode,
			g.TotalRevenue.StringFixed(2),
			g.MOLIndustrial.StringFixed(2),
			g.AllocatedShared.StringFixed(2),
			g.MOLManagerial.StringFixed(2),
			g.MarginPct*100)
		fmt.Printf("  Unallocated holding costs: %s\n", g.UnallocatedShared.StringFixed(2))
		fmt.Printf("  Net result: %s\n", g.NetResult.StringFixed(2))
	}
	printAnomalies(result.Report)
}

func printCashFlow(result *app.CashFlowResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 86))
	fmt.Printf("  CASH FLOW PROJECTION (%s)\n", result.Projection.Granularity)
	fmt.Println(strings.Repeat("=", 86))
	fmt.Printf("  %-16s %14s %12s %12s %12s %14s\n",
		"PERIOD", "OPENING", "INFLOWS", "OUTFLOWS", "NET", "CLOSING")
	fmt.Println(strings.Repeat("-", 86))
	for _, e := range result.Projection.Entries {
		outflows := e.Personnel.Add(e.Suppliers).Add(e.Fiscal).Add(e.Investment)
		fmt.Printf("  %-16s %14s %12s %12s %12s %14s\n",
			e.Label,
			e.Opening.StringFixed(2),
			e.Inflows.StringFixed(2),
			outflows.StringFixed(2),
			e.NetFlow.StringFixed(2),
			e.Closing.StringFixed(2))
	}
	fmt.Println(strings.Repeat("-", 86))
	fmt.Printf("  Monthly burn rate: %.2f   Runway (months): %s\n",
		result.Projection.BurnRateMonthly, formatRunway(result.Projection.RunwayMonths))
	for _, a := range result.Projection.Alerts {
		fmt.Printf("  [%s] %s: %s\n", a.Level, a.Period, a.Message)
	}
	printAnomalies(result.Report)
}

func printScenarios(result *app.ScenariosResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 66))
	fmt.Printf("  SCENARIO COMPARISON\n")
	fmt.Println(strings.Repeat("=", 66))
	fmt.Printf("  %-24s %16s %10s %8s\n", "SCENARIO", "FINAL CLOSING", "ALERTS", "RED")
	fmt.Println(strings.Repeat("-", 66))
	for _, sc := range result.Scenarios {
		red := 0
		for _, a := range sc.Projection.Alerts {
			if a.Level == core.SemaphoreRed {
				red++
			}
		}
		closing := "-"
		if n := len(sc.Projection.Entries); n > 0 {
			closing = sc.Projection.Entries[n-1].Closing.StringFixed(2)
		}
		fmt.Printf("  %-24s %16s %10d %8d\n", sc.Label, closing, len(sc.Projection.Alerts), red)
	}
	printAnomalies(result.Report)
}

func printKPIs(result *app.KPIResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 76))
	fmt.Printf("  KPI DASHBOARD — %s\n", result.Period)
	fmt.Println(strings.Repeat("=", 76))
	fmt.Printf("  %-16s %-8s %12s %12s %-8s\n", "CODE", "UNIT", "VALUE", "TARGET", "STATUS")
	fmt.Println(strings.Repeat("-", 76))
	for _, k := range result.All() {
		fmt.Printf("  %-16s %-8s %12.2f %12.2f %-8s\n",
			k.Code, k.UnitCode, k.Value, k.Target, k.Semaphore)
	}
	printAnomalies(result.Report)
}

func printValidation(result *app.ValidationResult) {
	if len(result.MissingTables) > 0 {
		fmt.Println("Missing tables:")
		for _, tbl := range result.MissingTables {
			fmt.Printf("  - %s\n", tbl)
		}
	}
	printAnomalies(result.Report)
	if result.OK {
		fmt.Println("Snapshot is valid.")
	} else {
		fmt.Println("Snapshot has problems.")
	}
}

// parseWhatIfChange turns a "remove", "amount=<n>" or "driver=<name>" argument
// into the change applied to the named shared-cost item.
func parseWhatIfChange(code, spec string) (core.WhatIfChange, error) {
	change := core.WhatIfChange{ItemCode: code}
	switch {
	case spec == "remove":
		change.Remove = true
	case strings.HasPrefix(spec, "amount="):
		amount, err := decimal.NewFromString(strings.TrimPrefix(spec, "amount="))
		if err != nil {
			return change, fmt.Errorf("amount: %w", err)
		}
		change.NewAmount = &amount
	case strings.HasPrefix(spec, "driver="):
		driver := core.DriverType(strings.ToLower(strings.TrimPrefix(spec, "driver=")))
		change.NewDriver = &driver
	default:
		return change, fmt.Errorf("expected remove, amount=<n> or driver=<name>, got %q", spec)
	}
	return change, nil
}

func printWhatIf(result *app.WhatIfResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  WHAT-IF — %s, item %s\n", result.Period, result.Change.ItemCode)
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  %-8s %14s %14s %14s\n", "UNIT", "BASELINE", "SIMULATED", "DELTA")
	fmt.Println(strings.Repeat("-", 62))
	units := make([]string, 0, len(result.Result.DeltaUnit))
	for u := range result.Result.DeltaUnit {
		units = append(units, u)
	}
	sort.Strings(units)
	for _, u := range units {
		fmt.Printf("  %-8s %14s %14s %14s\n",
			u,
			result.Result.Baseline.ByUnit[u].StringFixed(2),
			result.Result.Simulated.ByUnit[u].StringFixed(2),
			result.Result.DeltaUnit[u].StringFixed(2))
	}
	fmt.Println(strings.Repeat("-", 62))
	fmt.Printf("  Unallocated: baseline %s, simulated %s\n",
		result.Result.Baseline.UnallocatedTotal.StringFixed(2),
		result.Result.Simulated.UnallocatedTotal.StringFixed(2))
	printAnomalies(result.Report)
}

func printAnomalies(report *core.RunReport) {
	if report == nil || report.Count() == 0 {
		return
	}
	fmt.Printf("  Anomalies (%d):\n", report.Count())
	for _, a := range report.Anomalies {
		fmt.Printf("  [%s] %s\n", a.Kind, a.Message)
	}
}

func formatRunway(months float64) string {
	if math.IsInf(months, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.1f", months)
}

func sortedKeys(m map[string]*core.ManagerialStatement) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
