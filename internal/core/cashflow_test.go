package core_test

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cdg-engine/internal/config"
	"cdg-engine/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fourWeekInput models a month opening at 50k that bleeds 5k of supplier
// payments per week, closing at 30k.
func fourWeekInput() core.ProjectionInput {
	var schedule []core.ScheduleItem
	for _, d := range []int{4, 11, 18, 25} {
		schedule = append(schedule, core.ScheduleItem{
			DueDate:      day(2025, time.March, d),
			Kind:         core.KindPayment,
			Amount:       dec("5000"),
			Counterparty: "Pharma Sud",
			Category:     "Suppliers",
		})
	}
	return core.ProjectionInput{
		Schedule:    schedule,
		OpeningCash: dec("50000"),
		Start:       day(2025, time.March, 3),
		Granularity: core.Weekly,
		Periods:     4,
	}
}

func TestProjectCashFlow_ChainedBalances(t *testing.T) {
	cfg := config.Default()
	proj := core.ProjectCashFlow(cfg, fourWeekInput())

	if len(proj.Entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(proj.Entries))
	}
	if !proj.Entries[0].Opening.Equal(dec("50000")) {
		t.Errorf("first opening = %s, want 50000", proj.Entries[0].Opening)
	}
	for i := 1; i < len(proj.Entries); i++ {
		if !proj.Entries[i].Opening.Equal(proj.Entries[i-1].Closing) {
			t.Errorf("week %d opening %s != week %d closing %s",
				i+1, proj.Entries[i].Opening, i, proj.Entries[i-1].Closing)
		}
	}
	if !proj.ClosingBalance(dec("50000")).Equal(dec("30000")) {
		t.Errorf("final closing = %s, want 30000", proj.ClosingBalance(dec("50000")))
	}
	if proj.Entries[0].Label != "W01 03/03/2025" {
		t.Errorf("first label = %q", proj.Entries[0].Label)
	}
}

func TestProjectCashFlow_FloorAlerts(t *testing.T) {
	tests := []struct {
		name      string
		floor     float64
		wantRed   int
		redPeriod string
	}{
		{name: "floor below trajectory", floor: 25_000, wantRed: 0},
		{name: "floor crossed in week four", floor: 35_000, wantRed: 1, redPeriod: "W04 24/03/2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Alerts.CashFloor = tt.floor

			proj := core.ProjectCashFlow(cfg, fourWeekInput())

			var reds []core.CashAlert
			for _, a := range proj.Alerts {
				if a.Level == core.SemaphoreRed {
					reds = append(reds, a)
				}
			}
			if len(reds) != tt.wantRed {
				t.Fatalf("got %d critical alerts, want %d: %v", len(reds), tt.wantRed, proj.Alerts)
			}
			if tt.wantRed > 0 && reds[0].Period != tt.redPeriod {
				t.Errorf("critical alert period = %q, want %q", reds[0].Period, tt.redPeriod)
			}
		})
	}
}

func TestProjectCashFlow_BurnAndRunway(t *testing.T) {
	cfg := config.Default()
	proj := core.ProjectCashFlow(cfg, fourWeekInput())

	// 5k/week of net consumption is 21,650/month at 4.33 weeks per month.
	if diff := proj.BurnRateMonthly - 21650; diff > 0.01 || diff < -0.01 {
		t.Errorf("burn rate = %v, want 21650", proj.BurnRateMonthly)
	}
	wantRunway := 50000.0 / 21650.0
	if diff := proj.RunwayMonths - wantRunway; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("runway = %v, want %v", proj.RunwayMonths, wantRunway)
	}
}

func TestProjectCashFlow_CashGenerativeRunwayInfinite(t *testing.T) {
	cfg := config.Default()
	in := core.ProjectionInput{
		Schedule: []core.ScheduleItem{
			{DueDate: day(2025, time.March, 4), Kind: core.KindCollection, Amount: dec("10000"), Category: "ASP"},
			{DueDate: day(2025, time.March, 5), Kind: core.KindPayment, Amount: dec("2000"), Category: "Suppliers"},
		},
		OpeningCash: dec("10000"),
		Start:       day(2025, time.March, 3),
		Granularity: core.Weekly,
		Periods:     2,
	}
	proj := core.ProjectCashFlow(cfg, in)

	if proj.BurnRateMonthly > 0 {
		t.Errorf("burn rate = %v, want <= 0", proj.BurnRateMonthly)
	}
	if !math.IsInf(proj.RunwayMonths, 1) {
		t.Errorf("runway = %v, want +Inf", proj.RunwayMonths)
	}
}

func TestProjectCashFlow_CollectionDelayShiftsInflows(t *testing.T) {
	cfg := config.Default()
	in := core.ProjectionInput{
		Schedule: []core.ScheduleItem{
			{DueDate: day(2025, time.March, 10), Kind: core.KindCollection, Amount: dec("10000"), Category: "ASP"},
		},
		OpeningCash:         dec("0"),
		Start:               day(2025, time.March, 3),
		Granularity:         core.Weekly,
		Periods:             8,
		CollectionDelayDays: 30,
	}
	proj := core.ProjectCashFlow(cfg, in)

	if !proj.Entries[1].Inflows.IsZero() {
		t.Errorf("week 2 inflows = %s, want 0 after the 30-day shift", proj.Entries[1].Inflows)
	}
	// 10 March + 30 days = 9 April, which falls in week 6 (7-13 April).
	if !proj.Entries[5].Inflows.Equal(dec("10000.00")) {
		t.Errorf("week 6 inflows = %s, want 10000.00", proj.Entries[5].Inflows)
	}
}

func TestProjectCashFlow_SupplierBaselineOnlyWithoutPayments(t *testing.T) {
	cfg := config.Default()

	// A schedule with only collections falls back to the monthly supplier
	// estimate, spread weekly.
	in := core.ProjectionInput{
		Schedule: []core.ScheduleItem{
			{DueDate: day(2025, time.March, 4), Kind: core.KindCollection, Amount: dec("1000"), Category: "ASP"},
		},
		OpeningCash:     dec("100000"),
		SupplierMonthly: dec("4330"),
		Start:           day(2025, time.March, 3),
		Granularity:     core.Weekly,
		Periods:         2,
	}
	proj := core.ProjectCashFlow(cfg, in)
	if !proj.Entries[0].Suppliers.Equal(dec("1000.00")) {
		t.Errorf("baseline weekly suppliers = %s, want 1000.00", proj.Entries[0].Suppliers)
	}

	// One explicit supplier payment disables the baseline entirely.
	in.Schedule = append(in.Schedule, core.ScheduleItem{
		DueDate: day(2025, time.March, 5), Kind: core.KindPayment, Amount: dec("750"), Category: "Suppliers",
	})
	proj = core.ProjectCashFlow(cfg, in)
	if !proj.Entries[0].Suppliers.Equal(dec("750")) {
		t.Errorf("scheduled suppliers = %s, want 750", proj.Entries[0].Suppliers)
	}
	if !proj.Entries[1].Suppliers.IsZero() {
		t.Errorf("week 2 suppliers = %s, want 0", proj.Entries[1].Suppliers)
	}
}

func TestProjectCashFlow_ScenarioAdjustments(t *testing.T) {
	cfg := config.Default()
	in := core.ProjectionInput{
		Schedule: []core.ScheduleItem{
			{DueDate: day(2025, time.March, 4), Kind: core.KindCollection, Amount: dec("10000"), Category: "ASP"},
			{DueDate: day(2025, time.March, 5), Kind: core.KindPayment, Amount: dec("3000"), Category: "Suppliers"},
		},
		Payroll:          core.PayrollEstimate{Total: dec("4330")},
		OpeningCash:      dec("50000"),
		Start:            day(2025, time.March, 3),
		Granularity:      core.Weekly,
		Periods:          1,
		PayrollInflation: 0.03,
		ContingencyPct:   0.05,
		RevenueGrowthPct: 0.02,
	}
	proj := core.ProjectCashFlow(cfg, in)
	e := proj.Entries[0]

	if !e.Inflows.Equal(dec("10200.00")) {
		t.Errorf("grown inflows = %s, want 10200.00", e.Inflows)
	}
	// 4330 * 1.03 / 4.33 weeks.
	if !e.Personnel.Equal(dec("1030.00")) {
		t.Errorf("inflated weekly payroll = %s, want 1030.00", e.Personnel)
	}
	// 3000 scheduled plus 5% contingency on the grown inflows.
	if !e.Suppliers.Equal(dec("3510.00")) {
		t.Errorf("suppliers with contingency = %s, want 3510.00", e.Suppliers)
	}
}

func TestProjectCashFlow_HorizonCaps(t *testing.T) {
	cfg := config.Default()
	tests := []struct {
		name        string
		granularity core.Granularity
		periods     int
		want        int
	}{
		{"weekly capped at 12", core.Weekly, 40, 12},
		{"monthly capped at 60", core.Monthly, 100, 60},
		{"zero clamps to one", core.Weekly, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj := core.ProjectCashFlow(cfg, core.ProjectionInput{
				OpeningCash: dec("1000"),
				Start:       day(2025, time.January, 6),
				Granularity: tt.granularity,
				Periods:     tt.periods,
			})
			if len(proj.Entries) != tt.want {
				t.Errorf("got %d entries, want %d", len(proj.Entries), tt.want)
			}
		})
	}
}

func TestProjectCashFlow_DSCR(t *testing.T) {
	cfg := config.Default()
	in := core.ProjectionInput{
		Schedule: []core.ScheduleItem{
			{DueDate: day(2025, time.March, 4), Kind: core.KindCollection, Amount: dec("3000"), Category: "ASP"},
			{DueDate: day(2025, time.March, 5), Kind: core.KindPayment, Amount: dec("500"), Category: "Suppliers"},
		},
		Payroll:           core.PayrollEstimate{Total: dec("4330")},
		OpeningCash:       dec("50000"),
		AnnualDebtService: dec("52000"),
		Start:             day(2025, time.March, 3),
		Granularity:       core.Weekly,
		Periods:           1,
	}
	proj := core.ProjectCashFlow(cfg, in)

	// (3000 - 1000 - 500) / (52000/52) = 1.5
	if diff := proj.Entries[0].DSCR - 1.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("DSCR = %v, want 1.5", proj.Entries[0].DSCR)
	}

	in.AnnualDebtService = decimal.Zero
	proj = core.ProjectCashFlow(cfg, in)
	if !math.IsInf(proj.Entries[0].DSCR, 1) {
		t.Errorf("DSCR without debt service = %v, want +Inf", proj.Entries[0].DSCR)
	}
}

func TestProjectCashFlow_Idempotent(t *testing.T) {
	cfg := config.Default()
	in := fourWeekInput()
	first := core.ProjectCashFlow(cfg, in)
	second := core.ProjectCashFlow(cfg, in)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different projections")
	}
}

func TestEstimatePayroll(t *testing.T) {
	cfg := config.Default()
	tests := []struct {
		name        string
		personnel   []core.PersonnelRow
		wantGross   string
		wantCharges string
	}{
		{
			name: "explicit charges pass through",
			personnel: []core.PersonnelRow{
				{UnitCode: "VLB", Qualification: "Nurse", GrossPay: dec("100000"), EmployerCharges: dec("30000")},
				{UnitCode: "COS", Qualification: "Physician", GrossPay: dec("200000"), EmployerCharges: dec("66000")},
			},
			wantGross:   "300000",
			wantCharges: "96000",
		},
		{
			name: "missing charges get the standard rate",
			personnel: []core.PersonnelRow{
				{UnitCode: "LAB", Qualification: "Technician", GrossPay: dec("100000")},
			},
			wantGross:   "100000",
			wantCharges: "33000.00",
		},
		{
			name:        "empty table falls back to the default gross",
			wantGross:   "520000",
			wantCharges: "171600.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.EstimatePayroll(cfg, tt.personnel)
			if !got.Gross.Equal(dec(tt.wantGross)) {
				t.Errorf("gross = %s, want %s", got.Gross, tt.wantGross)
			}
			if !got.Charges.Equal(dec(tt.wantCharges)) {
				t.Errorf("charges = %s, want %s", got.Charges, tt.wantCharges)
			}
			if !got.Total.Equal(got.Gross.Add(got.Charges)) {
				t.Errorf("total = %s, want gross+charges", got.Total)
			}
		})
	}
}

func TestFiscalCalendar(t *testing.T) {
	cfg := config.Default()
	items := core.FiscalCalendar(cfg, 2025)

	if len(items) != 18 {
		t.Fatalf("got %d fiscal items, want 18", len(items))
	}
	withholding, vat, income := 0, 0, 0
	for _, it := range items {
		if it.Kind != core.KindPayment {
			t.Errorf("fiscal item %s has kind %s, want payment", it.Note, it.Kind)
		}
		switch it.Category {
		case "Fiscal - Withholding":
			withholding++
			if !it.Amount.Equal(dec("35000")) {
				t.Errorf("withholding amount = %s, want 35000", it.Amount)
			}
			if it.DueDate.Day() != 16 {
				t.Errorf("withholding due day = %d, want 16", it.DueDate.Day())
			}
		case "Fiscal - VAT":
			vat++
			if !it.Amount.Equal(dec("65000")) {
				t.Errorf("VAT amount = %s, want 65000", it.Amount)
			}
		case "Fiscal - Income tax":
			income++
		}
	}
	if withholding != 12 || vat != 4 || income != 2 {
		t.Errorf("counts = %d/%d/%d, want 12/4/2", withholding, vat, income)
	}
}

func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		name string
		item core.ScheduleItem
		want core.SchedulePriority
	}{
		{
			name: "payroll is non-deferrable",
			item: core.ScheduleItem{Category: "Payroll", Counterparty: "Employees"},
			want: core.PriorityNonDeferrable,
		},
		{
			name: "tax authority is non-deferrable",
			item: core.ScheduleItem{Category: "Other", Counterparty: "Tax authority"},
			want: core.PriorityNonDeferrable,
		},
		{
			name: "loan instalment is non-deferrable",
			item: core.ScheduleItem{Category: "Bank", Note: "Loan instalment 14/36"},
			want: core.PriorityNonDeferrable,
		},
		{
			name: "rent is non-deferrable",
			item: core.ScheduleItem{Category: "Rent", Counterparty: "Immobiliare SRL"},
			want: core.PriorityNonDeferrable,
		},
		{
			name: "ordinary supplier is deferrable",
			item: core.ScheduleItem{Category: "Suppliers", Counterparty: "Pharma Sud", Note: "Drugs order"},
			want: core.PriorityDeferrable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := core.ClassifyPriority(tt.item); got != tt.want {
				t.Errorf("priority = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifySchedule(t *testing.T) {
	items := []core.ScheduleItem{
		{Category: "Payroll"},
		{Category: "Suppliers", Counterparty: "Pharma Sud"},
	}
	got := core.ClassifySchedule(items)
	if len(got) != 2 {
		t.Fatalf("got %d classified items, want 2", len(got))
	}
	if got[0].Priority != core.PriorityNonDeferrable || got[1].Priority != core.PriorityDeferrable {
		t.Errorf("priorities = %s/%s", got[0].Priority, got[1].Priority)
	}
}

func TestFinancialRatios(t *testing.T) {
	if got := core.DSO(dec("400000"), dec("100000"), 30); got != 120 {
		t.Errorf("DSO = %v, want 120", got)
	}
	if got := core.DSO(dec("400000"), decimal.Zero, 30); got != 0 {
		t.Errorf("DSO over zero revenue = %v, want 0", got)
	}
	if got := core.DPO(dec("300000"), dec("100000"), 30); got != 90 {
		t.Errorf("DPO = %v, want 90", got)
	}
	if got := core.CashCoverageMonths(dec("400000"), dec("200000")); got != 2 {
		t.Errorf("coverage = %v, want 2", got)
	}
	if got := core.CashCoverageMonths(dec("400000"), decimal.Zero); !math.IsInf(got, 1) {
		t.Errorf("coverage with zero outflows = %v, want +Inf", got)
	}
}
