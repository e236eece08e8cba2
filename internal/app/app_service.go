package app

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cdg-engine/internal/core"
)

// Input table names as they appear in the master workbook. StageErrors carry
// these so the operator knows which sheet to fix.
const (
	TableUnits      = "Unita_Operative"
	TableRevenue    = "Ricavi"
	TableCosts      = "Costi_Diretti"
	TableShared     = "Costi_Sede"
	TableDrivers    = "Driver"
	TableSchedule   = "Scadenzario"
	TablePersonnel  = "Personale"
	TableProduction = "Produzione_Mensile"
)

type pipelineService struct {
	cfg *core.Settings
	log *zap.Logger
	now func() time.Time
}

// NewPipelineService constructs a pipelineService that satisfies
// PipelineService. The settings value is treated as immutable.
func NewPipelineService(cfg *core.Settings, logger *zap.Logger) PipelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &pipelineService{cfg: cfg, log: logger, now: time.Now}
}

// requireTable returns the typed failure when a table slice is nil.
func requireTable(stage, name string, absent bool) error {
	if absent {
		return core.MissingTable(stage, name)
	}
	return nil
}

// ComputePeriod runs the full monthly chain for one period.
func (s *pipelineService) ComputePeriod(ctx context.Context, snap *core.InputSnapshot, period core.Period) (*PeriodResult, error) {
	checks := []struct {
		stage  string
		name   string
		absent bool
	}{
		{"industrial", TableUnits, snap.Units == nil},
		{"industrial", TableRevenue, snap.RevenueLines == nil},
		{"industrial", TableCosts, snap.DirectCosts == nil},
		{"allocation", TableShared, snap.SharedCosts == nil},
		{"allocation", TableDrivers, snap.DriverValues == nil},
	}
	for _, c := range checks {
		if err := requireTable(c.stage, c.name, c.absent); err != nil {
			return nil, err
		}
	}

	report := core.NewRunReport(period.String())
	reg := core.NewRegistry(snap.Units)

	industrial := core.BuildIndustrialStatements(s.cfg, reg, snap.RevenueLines, snap.DirectCosts, period, report)
	revenue := core.RevenueByUnit(industrial)
	alloc := core.Allocate(s.cfg, reg, snap.SharedCosts, snap.DriverValues, revenue, period, report)
	managerial := core.BuildManagerialStatements(s.cfg, reg, industrial, alloc, snap.IndirectCosts, period, report)

	unitStatements := make([]*core.IndustrialStatement, 0, len(industrial))
	unitManagerial := make([]*core.ManagerialStatement, 0, len(managerial))
	erosion := make([]core.MOLErosion, 0, len(managerial))
	for _, code := range reg.Codes() {
		unitStatements = append(unitStatements, industrial[code])
		unitManagerial = append(unitManagerial, managerial[code])
		erosion = append(erosion, core.CompareIndustrialManagerial(managerial[code]))
	}

	res := &PeriodResult{
		Period:          period.String(),
		Industrial:      industrial,
		IndustrialGroup: core.ConsolidateIndustrial(unitStatements...),
		Allocation:      alloc,
		Managerial:      managerial,
		ManagerialGroup: core.ConsolidateManagerial(alloc.UnallocatedTotal, unitManagerial...),
		Erosion:         erosion,
		Report:          report,
	}

	if snap.BudgetRevenue != nil || snap.BudgetCosts != nil {
		budget := core.BuildIndustrialStatements(s.cfg, reg, snap.BudgetRevenue, snap.BudgetCosts, period, report)
		res.BudgetComparison = make(map[string]*core.StatementComparison, len(industrial))
		for _, code := range reg.Codes() {
			res.BudgetComparison[code] = core.CompareWithBudget(industrial[code], budget[code])
		}
	}

	s.log.Info("period computed",
		zap.String("run_id", report.RunID),
		zap.String("period", period.String()),
		zap.Int("units", reg.Len()),
		zap.Int("anomalies", report.Count()))
	return res, nil
}

// ProjectCashFlow builds the treasury projection from the snapshot.
func (s *pipelineService) ProjectCashFlow(ctx context.Context, snap *core.InputSnapshot, req CashFlowRequest) (*CashFlowResult, error) {
	in, report, err := s.projectionInput(snap, req)
	if err != nil {
		return nil, err
	}

	proj := core.ProjectCashFlow(s.cfg, in)
	res := &CashFlowResult{
		Projection: proj,
		Classified: core.ClassifySchedule(snap.Schedule),
		Payroll:    in.Payroll,
		Report:     report,
	}

	s.log.Info("cash flow projected",
		zap.String("run_id", report.RunID),
		zap.String("granularity", string(in.Granularity)),
		zap.Int("periods", len(proj.Entries)),
		zap.Int("alerts", len(proj.Alerts)))
	return res, nil
}

// RunScenarios runs the projection once per configured scenario.
func (s *pipelineService) RunScenarios(ctx context.Context, snap *core.InputSnapshot, req CashFlowRequest) (*ScenariosResult, error) {
	in, report, err := s.projectionInput(snap, req)
	if err != nil {
		return nil, err
	}

	runs := core.RunScenarios(s.cfg, in)
	s.log.Info("scenarios projected",
		zap.String("run_id", report.RunID),
		zap.Int("scenarios", len(runs)))
	return &ScenariosResult{Scenarios: runs, Report: report}, nil
}

// projectionInput assembles the base projection input shared by the single
// projection and the scenario fan-out.
func (s *pipelineService) projectionInput(snap *core.InputSnapshot, req CashFlowRequest) (core.ProjectionInput, *core.RunReport, error) {
	if snap.Schedule == nil {
		return core.ProjectionInput{}, nil, core.MissingTable("cashflow", TableSchedule)
	}
	req = req.withDefaults(s.now())
	report := core.NewRunReport("")

	payroll := core.EstimatePayroll(s.cfg, snap.Personnel)
	if len(snap.Personnel) == 0 {
		report.Addf(core.AnomalyBadRow, "cashflow", "", "",
			"personnel table empty, payroll estimated from the default monthly gross")
	}

	in := core.ProjectionInput{
		Schedule:          snap.Schedule,
		FiscalItems:       s.fiscalItems(req),
		Payroll:           payroll,
		OpeningCash:       snap.OpeningCash,
		SupplierMonthly:   decimal.NewFromFloat(s.cfg.DefaultSupplierMonthly),
		CapexPlan:         snap.CapexPlan,
		AnnualDebtService: snap.AnnualDebtSvc,
		Start:             req.Start,
		Granularity:       req.Granularity,
		Periods:           req.Periods,
	}
	return in, report, nil
}

// fiscalItems generates the tax calendar for every year the horizon touches.
func (s *pipelineService) fiscalItems(req CashFlowRequest) []core.ScheduleItem {
	end := req.Start
	if req.Granularity == core.Weekly {
		end = end.AddDate(0, 0, 7*req.Periods)
	} else {
		end = end.AddDate(0, req.Periods, 0)
	}
	var items []core.ScheduleItem
	for year := req.Start.Year(); year <= end.Year(); year++ {
		items = append(items, core.FiscalCalendar(s.cfg, year)...)
	}
	return items
}

// ComputeKPIs derives every indicator set for one period.
func (s *pipelineService) ComputeKPIs(ctx context.Context, snap *core.InputSnapshot, period core.Period) (*KPIResult, error) {
	pr, err := s.ComputePeriod(ctx, snap, period)
	if err != nil {
		return nil, err
	}
	report := pr.Report
	reg := core.NewRegistry(snap.Units)

	production := map[string]core.ProductionRow{}
	for _, row := range snap.Production {
		if row.Period != period {
			continue
		}
		if _, ok := reg.Lookup(row.UnitCode); !ok {
			report.Addf(core.AnomalyBadRow, "kpi", "", row.UnitCode,
				"production row for unknown unit %s skipped", row.UnitCode)
			continue
		}
		production[row.UnitCode] = row
	}

	var operational []core.KPI
	for _, code := range reg.OperativeCodes() {
		unit, _ := reg.Lookup(code)
		operational = append(operational,
			core.OperationalKPIs(s.cfg, unit, period, pr.Industrial[code], production[code])...)
	}

	sharedTotal := pr.Allocation.AllocatedTotal().Add(pr.Allocation.UnallocatedTotal)
	personnelTotal := decimal.Zero
	for _, st := range pr.Industrial {
		personnelTotal = personnelTotal.Add(st.PersonnelCost())
	}
	economic := core.EconomicKPIs(s.cfg, pr.ManagerialGroup, sharedTotal, personnelTotal, snap.AnnualDebtSvc)

	payroll := core.EstimatePayroll(s.cfg, snap.Personnel)
	avgOutflow := payroll.Total.
		Add(decimal.NewFromFloat(s.cfg.DefaultSupplierMonthly)).
		Add(annualFiscal(s.cfg).DivRound(decimal.NewFromInt(12), 2))
	group := pr.IndustrialGroup
	financial := core.FinancialKPIs(s.cfg, period, core.FinancialInput{
		PublicReceivables:  snap.Receivables,
		PrivateReceivables: snap.ReceivablesPvt,
		SupplierPayables:   snap.Payables,
		PublicRevenue:      group.RevenueByGroup[core.RevenueConvention],
		PrivateRevenue:     group.RevenueByGroup[core.RevenuePrivate],
		Purchases:          groupPurchases(pr.Industrial),
		PeriodDays:         period.Days(),
		AvailableCash:      snap.OpeningCash,
		AvgMonthlyOutflow:  avgOutflow,
	})

	s.log.Info("kpis computed",
		zap.String("run_id", report.RunID),
		zap.String("period", period.String()),
		zap.Int("kpis", len(operational)+len(economic)+len(financial)))
	return &KPIResult{
		Period:      period.String(),
		Operational: operational,
		Economic:    economic,
		Financial:   financial,
		Report:      report,
	}, nil
}

func annualFiscal(cfg *core.Settings) decimal.Decimal {
	total := cfg.Fiscal.MonthlyWithholding*12 +
		cfg.Fiscal.QuarterlyVAT*4 +
		cfg.Fiscal.IncomeTaxAdvance +
		cfg.Fiscal.IncomeTaxBalance
	return decimal.NewFromFloat(total)
}

func groupPurchases(industrial map[string]*core.IndustrialStatement) decimal.Decimal {
	total := decimal.Zero
	for _, st := range industrial {
		total = total.Add(st.CostsByCategory[core.SubCategoryPurchases])
	}
	return total
}

// SimulateAllocation replays the shared-cost allocation with one rule change
// applied and reports the per-unit delta against the baseline.
func (s *pipelineService) SimulateAllocation(ctx context.Context, snap *core.InputSnapshot, period core.Period, change core.WhatIfChange) (*WhatIfResult, error) {
	checks := []struct {
		stage  string
		name   string
		absent bool
	}{
		{"industrial", TableUnits, snap.Units == nil},
		{"industrial", TableRevenue, snap.RevenueLines == nil},
		{"industrial", TableCosts, snap.DirectCosts == nil},
		{"allocation", TableShared, snap.SharedCosts == nil},
		{"allocation", TableDrivers, snap.DriverValues == nil},
	}
	for _, c := range checks {
		if err := requireTable(c.stage, c.name, c.absent); err != nil {
			return nil, err
		}
	}

	report := core.NewRunReport(period.String())
	reg := core.NewRegistry(snap.Units)

	industrial := core.BuildIndustrialStatements(s.cfg, reg, snap.RevenueLines, snap.DirectCosts, period, report)
	revenue := core.RevenueByUnit(industrial)
	sim := core.SimulateAllocation(s.cfg, reg, snap.SharedCosts, snap.DriverValues, revenue, period, change)

	res := &WhatIfResult{
		Period: period.String(),
		Change: change,
		Result: sim,
		Report: report,
	}
	s.log.Info("allocation simulated",
		zap.String("run_id", report.RunID),
		zap.String("period", period.String()),
		zap.String("item", change.ItemCode),
		zap.Int("anomalies", report.Count()))
	return res, nil
}

// ValidateSnapshot checks the snapshot without producing results.
func (s *pipelineService) ValidateSnapshot(ctx context.Context, snap *core.InputSnapshot, period core.Period) (*ValidationResult, error) {
	report := core.NewRunReport(period.String())

	var missing []string
	for name, table := range map[string]bool{
		TableUnits:    snap.Units == nil,
		TableRevenue:  snap.RevenueLines == nil,
		TableCosts:    snap.DirectCosts == nil,
		TableShared:   snap.SharedCosts == nil,
		TableDrivers:  snap.DriverValues == nil,
		TableSchedule: snap.Schedule == nil,
	} {
		if table {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	reg := core.NewRegistry(snap.Units)
	industrial := core.BuildIndustrialStatements(s.cfg, reg, snap.RevenueLines, snap.DirectCosts, period, report)
	core.Allocate(s.cfg, reg, snap.SharedCosts, snap.DriverValues, core.RevenueByUnit(industrial), period, report)
	s.checkDriverCoverage(snap, period, report)

	res := &ValidationResult{
		Period:        period.String(),
		MissingTables: missing,
		Report:        report,
		OK:            len(missing) == 0 && report.Count() == 0,
	}
	s.log.Info("snapshot validated",
		zap.String("run_id", report.RunID),
		zap.Bool("ok", res.OK),
		zap.Int("missing_tables", len(missing)),
		zap.Int("anomalies", report.Count()))
	return res, nil
}

// checkDriverCoverage flags SERVICE items of the period whose designated
// driver has no rows at all, before the allocation pass turns them into
// unallocated amounts.
func (s *pipelineService) checkDriverCoverage(snap *core.InputSnapshot, period core.Period, report *core.RunReport) {
	present := map[core.DriverType]bool{}
	for _, d := range snap.DriverValues {
		if d.Period == period {
			present[d.Driver] = true
		}
	}
	seen := map[string]bool{}
	for _, item := range snap.SharedCosts {
		if item.Period != period || seen[item.Code] {
			continue
		}
		seen[item.Code] = true
		entry, ok := s.cfg.SharedCosts[item.Code]
		if !ok || entry.Category != core.CategoryService {
			continue
		}
		if entry.Driver != core.DriverFixedQuota && entry.Driver != core.DriverRevenue && !present[entry.Driver] {
			report.Addf(core.AnomalyMissingDriver, "validation", item.Code, "",
				"no %s driver rows for %s, item %s would stay unallocated",
				entry.Driver, period, item.Code)
		}
	}
}
