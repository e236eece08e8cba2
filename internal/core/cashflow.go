package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ── Projection types ──────────────────────────────────────────────────────────

type Granularity string

const (
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// CashFlowEntry is one projected period. Chained: Opening of period n equals
// Closing of period n-1; the first Opening is the external cash position.
type CashFlowEntry struct {
	Index      int             `json:"index"`
	Label      string          `json:"label"`
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	Opening    decimal.Decimal `json:"opening"`
	Inflows    decimal.Decimal `json:"inflows"`
	Personnel  decimal.Decimal `json:"personnel"`
	Suppliers  decimal.Decimal `json:"suppliers"`
	Fiscal     decimal.Decimal `json:"fiscal"`
	Investment decimal.Decimal `json:"investment"`
	NetFlow    decimal.Decimal `json:"net_flow"`
	Closing    decimal.Decimal `json:"closing"`
	DSCR       float64         `json:"dscr"`
}

// CashAlert is one liquidity or debt-service alert raised by a projection.
type CashAlert struct {
	Level     Semaphore `json:"level"`
	Period    string    `json:"period"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
}

// ClassifiedItem is a schedule item with its derived deferral priority.
type ClassifiedItem struct {
	ScheduleItem
	Priority SchedulePriority `json:"priority"`
}

// CashFlowProjection is the full output of one projection run.
type CashFlowProjection struct {
	Granularity     Granularity     `json:"granularity"`
	Entries         []CashFlowEntry `json:"entries"`
	Alerts          []CashAlert     `json:"alerts"`
	BurnRateMonthly float64         `json:"burn_rate_monthly"` // positive = net cash consumption
	RunwayMonths    float64         `json:"runway_months"`     // +Inf when cash-generative
}

// ClosingBalance returns the last projected closing, or the opening cash for
// an empty horizon.
func (p *CashFlowProjection) ClosingBalance(opening decimal.Decimal) decimal.Decimal {
	if len(p.Entries) == 0 {
		return opening
	}
	return p.Entries[len(p.Entries)-1].Closing
}

// ── Payroll estimate ──────────────────────────────────────────────────────────

// PayrollEstimate is the monthly personnel outflow derived from the
// personnel table.
type PayrollEstimate struct {
	Gross   decimal.Decimal `json:"gross"`
	Charges decimal.Decimal `json:"charges"`
	Total   decimal.Decimal `json:"total"`
}

// EstimatePayroll sums gross pay and employer charges from the personnel
// table. An empty table falls back to the configured default gross with the
// standard employer charge rate; rows without charges get the rate applied.
func EstimatePayroll(cfg *Settings, personnel []PersonnelRow) PayrollEstimate {
	gross := decimal.Zero
	charges := decimal.Zero
	for _, row := range personnel {
		gross = gross.Add(row.GrossPay)
		charges = charges.Add(row.EmployerCharges)
	}
	if gross.IsZero() {
		gross = decimal.NewFromFloat(cfg.Payroll.DefaultMonthlyGross)
		charges = decimal.Zero
	}
	if charges.IsZero() {
		charges = gross.Mul(decimal.NewFromFloat(cfg.Payroll.EmployerChargeRate)).Round(2)
	}
	return PayrollEstimate{Gross: gross, Charges: charges, Total: gross.Add(charges)}
}

// ── Fiscal calendar ───────────────────────────────────────────────────────────

const fiscalCategoryPrefix = "Fiscal"

// FiscalCalendar generates the recurring tax due-dates of one year as
// payment schedule items: monthly withholding on day 16, quarterly VAT on
// day 16 of March/June/September/December, income-tax advance on June 30 and
// balance on November 30. Amounts come from the fiscal configuration.
func FiscalCalendar(cfg *Settings, year int) []ScheduleItem {
	var items []ScheduleItem
	add := func(due time.Time, category string, amount float64, note string) {
		items = append(items, ScheduleItem{
			DueDate:      due,
			Kind:         KindPayment,
			Amount:       decimal.NewFromFloat(amount),
			Counterparty: "Tax authority",
			Category:     category,
			Note:         note,
		})
	}

	for month := 1; month <= 12; month++ {
		add(time.Date(year, time.Month(month), 16, 0, 0, 0, 0, time.UTC),
			fiscalCategoryPrefix+" - Withholding", cfg.Fiscal.MonthlyWithholding,
			fmt.Sprintf("Withholding and contributions %02d/%d", month, year))
	}
	for _, month := range []int{3, 6, 9, 12} {
		add(time.Date(year, time.Month(month), 16, 0, 0, 0, 0, time.UTC),
			fiscalCategoryPrefix+" - VAT", cfg.Fiscal.QuarterlyVAT,
			fmt.Sprintf("Quarterly VAT settlement Q%d/%d", month/3, year))
	}
	add(time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC),
		fiscalCategoryPrefix+" - Income tax", cfg.Fiscal.IncomeTaxAdvance,
		fmt.Sprintf("Income tax advance %d", year))
	add(time.Date(year, time.November, 30, 0, 0, 0, 0, time.UTC),
		fiscalCategoryPrefix+" - Income tax", cfg.Fiscal.IncomeTaxBalance,
		fmt.Sprintf("Income tax balance %d", year))
	return items
}

func isFiscal(item ScheduleItem) bool {
	return strings.HasPrefix(item.Category, fiscalCategoryPrefix)
}

// ── Priority classification ───────────────────────────────────────────────────

var nonDeferrableKeywords = []string{
	"payroll", "salar", "wage", "personnel",
	"fiscal", "withhold", "vat", "tax", "contribution",
	"loan", "mortgage", "instal", "leas", "financ",
	"rent",
}

// ClassifyPriority marks a schedule item non-deferrable when its category,
// counterparty, or note names payroll, tax, loan, or rent obligations.
func ClassifyPriority(item ScheduleItem) SchedulePriority {
	text := strings.ToLower(item.Category + " " + item.Counterparty + " " + item.Note)
	for _, kw := range nonDeferrableKeywords {
		if strings.Contains(text, kw) {
			return PriorityNonDeferrable
		}
	}
	return PriorityDeferrable
}

// ClassifySchedule returns every item with its derived priority, in input
// order.
func ClassifySchedule(items []ScheduleItem) []ClassifiedItem {
	out := make([]ClassifiedItem, 0, len(items))
	for _, it := range items {
		out = append(out, ClassifiedItem{ScheduleItem: it, Priority: ClassifyPriority(it)})
	}
	return out
}

// ── Projection ────────────────────────────────────────────────────────────────

// ProjectionInput carries everything one projection run reads. The engine is
// a pure function of this value; scenario runs build adjusted copies.
type ProjectionInput struct {
	Schedule            []ScheduleItem
	FiscalItems         []ScheduleItem
	Payroll             PayrollEstimate
	OpeningCash         decimal.Decimal
	SupplierMonthly     decimal.Decimal // baseline used only when the schedule has no supplier payments
	CapexPlan           []CapexEntry
	AnnualDebtService   decimal.Decimal
	Start               time.Time
	Granularity         Granularity
	Periods             int
	CollectionDelayDays int
	PayrollInflation    float64
	ContingencyPct      float64
	RevenueGrowthPct    float64
}

// maxHorizon bounds the requested horizon per granularity.
func maxHorizon(g Granularity) int {
	if g == Weekly {
		return 12
	}
	return 60
}

// ProjectCashFlow produces the chained projection for the requested horizon.
// Weekly horizons cap at 12 periods, monthly at 60. Collection items shift
// forward by the configured delay before bucketing; payroll applies the
// inflation factor; the contingency percentage adds an unforeseen-cost
// outflow proportional to inflows.
func ProjectCashFlow(cfg *Settings, in ProjectionInput) *CashFlowProjection {
	periods := in.Periods
	if periods < 1 {
		periods = 1
	}
	if limit := maxHorizon(in.Granularity); periods > limit {
		periods = limit
	}

	delay := time.Duration(in.CollectionDelayDays) * 24 * time.Hour
	all := make([]ScheduleItem, 0, len(in.Schedule)+len(in.FiscalItems))
	all = append(all, in.Schedule...)
	all = append(all, in.FiscalItems...)

	hasSupplierSchedule := false
	for _, it := range in.Schedule {
		if it.Kind == KindPayment && !isFiscal(it) {
			hasSupplierSchedule = true
			break
		}
	}

	weeksPerMonth := decimal.NewFromFloat(cfg.Payroll.WeeksPerMonth)
	payrollMonthly := in.Payroll.Total.
		Mul(decimal.NewFromFloat(1 + in.PayrollInflation)).Round(2)
	payrollPeriod := payrollMonthly
	supplierBaseline := in.SupplierMonthly
	if in.Granularity == Weekly {
		payrollPeriod = payrollMonthly.DivRound(weeksPerMonth, 2)
		supplierBaseline = in.SupplierMonthly.DivRound(weeksPerMonth, 2)
	}

	capexByYear := map[int]decimal.Decimal{}
	for _, c := range in.CapexPlan {
		capexByYear[c.Year] = capexByYear[c.Year].Add(c.Amount)
	}

	growth := decimal.NewFromFloat(1 + in.RevenueGrowthPct)
	contingency := decimal.NewFromFloat(in.ContingencyPct)

	proj := &CashFlowProjection{Granularity: in.Granularity}
	balance := in.OpeningCash

	for i := 0; i < periods; i++ {
		start, end, label := periodWindow(in.Start, in.Granularity, i)

		inflows := decimal.Zero
		suppliers := decimal.Zero
		fiscal := decimal.Zero
		for _, it := range all {
			due := it.DueDate
			if it.Kind == KindCollection {
				due = due.Add(delay)
			}
			if due.Before(start) || due.After(end) {
				continue
			}
			switch {
			case it.Kind == KindCollection:
				inflows = inflows.Add(it.Amount)
			case isFiscal(it):
				fiscal = fiscal.Add(it.Amount)
			default:
				suppliers = suppliers.Add(it.Amount)
			}
		}
		inflows = inflows.Mul(growth).Round(2)
		if !hasSupplierSchedule {
			suppliers = supplierBaseline
		}
		suppliers = suppliers.Add(inflows.Mul(contingency).Round(2))

		investment := decimal.Zero
		if annual := capexByYear[start.Year()]; !annual.IsZero() {
			div := decimal.NewFromInt(12)
			if in.Granularity == Weekly {
				div = decimal.NewFromInt(52)
			}
			investment = annual.DivRound(div, 2)
		}

		net := inflows.Sub(payrollPeriod).Sub(suppliers).Sub(fiscal).Sub(investment)
		entry := CashFlowEntry{
			Index:      i + 1,
			Label:      label,
			Start:      start,
			End:        end,
			Opening:    balance,
			Inflows:    inflows,
			Personnel:  payrollPeriod,
			Suppliers:  suppliers,
			Fiscal:     fiscal,
			Investment: investment,
			NetFlow:    net,
			Closing:    balance.Add(net),
		}
		entry.DSCR = periodDSCR(entry, in.AnnualDebtService, in.Granularity)
		balance = entry.Closing
		proj.Entries = append(proj.Entries, entry)
	}

	proj.BurnRateMonthly, proj.RunwayMonths = burnAndRunway(in.OpeningCash, proj.Entries, in.Granularity, cfg.Payroll.WeeksPerMonth)
	proj.Alerts = cashAlerts(cfg, proj.Entries)
	return proj
}

// periodWindow returns the [start, end] window and label of period i.
// Weekly windows start on the Monday of the start date's week.
func periodWindow(start time.Time, g Granularity, i int) (time.Time, time.Time, string) {
	if g == Weekly {
		monday := start.AddDate(0, 0, -((int(start.Weekday()) + 6) % 7))
		monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
		s := monday.AddDate(0, 0, 7*i)
		e := s.AddDate(0, 0, 6).Add(24*time.Hour - time.Nanosecond)
		return s, e, fmt.Sprintf("W%02d %s", i+1, s.Format("02/01/2006"))
	}
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
	last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return first, last, first.Format("01/2006")
}

// periodDSCR is operating cash generation over the period's debt service.
// Operating CF excludes fiscal and investment outflows.
func periodDSCR(e CashFlowEntry, annualDebtService decimal.Decimal, g Granularity) float64 {
	if annualDebtService.IsZero() {
		return math.Inf(1)
	}
	div := decimal.NewFromInt(12)
	if g == Weekly {
		div = decimal.NewFromInt(52)
	}
	service := annualDebtService.Div(div)
	op := e.Inflows.Sub(e.Personnel).Sub(e.Suppliers)
	v, _ := op.Div(service).Float64()
	return v
}

// burnAndRunway derives the trailing-average monthly cash consumption and
// the months of survival at that pace. Burn <= 0 means the group generates
// cash and runway is infinite.
func burnAndRunway(opening decimal.Decimal, entries []CashFlowEntry, g Granularity, weeksPerMonth float64) (float64, float64) {
	if len(entries) == 0 {
		return 0, math.Inf(1)
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.NetFlow)
	}
	mean, _ := sum.Div(decimal.NewFromInt(int64(len(entries)))).Float64()
	burn := -mean
	if g == Weekly {
		burn *= weeksPerMonth
	}
	if burn <= 0 {
		return burn, math.Inf(1)
	}
	cash, _ := opening.Float64()
	return burn, cash / burn
}

// cashAlerts applies the liquidity and debt-service thresholds to every
// projected period: closing below the hard floor is critical, between the
// floor and 1.5x the floor is a warning. DSCR uses its own warning and
// critical cut-offs.
func cashAlerts(cfg *Settings, entries []CashFlowEntry) []CashAlert {
	floor := decimal.NewFromFloat(cfg.Alerts.CashFloor)
	warnCeiling := floor.Mul(decimal.NewFromFloat(1.5))
	var alerts []CashAlert
	for _, e := range entries {
		closing, _ := e.Closing.Float64()
		switch {
		case e.Closing.LessThan(floor):
			alerts = append(alerts, CashAlert{
				Level:     SemaphoreRed,
				Period:    e.Label,
				Value:     closing,
				Threshold: cfg.Alerts.CashFloor,
				Message:   fmt.Sprintf("closing balance %.2f below floor %.2f", closing, cfg.Alerts.CashFloor),
			})
		case e.Closing.LessThan(warnCeiling):
			alerts = append(alerts, CashAlert{
				Level:     SemaphoreYellow,
				Period:    e.Label,
				Value:     closing,
				Threshold: cfg.Alerts.CashFloor,
				Message:   fmt.Sprintf("closing balance %.2f within 1.5x of floor %.2f", closing, cfg.Alerts.CashFloor),
			})
		}

		if !math.IsInf(e.DSCR, 1) {
			switch {
			case e.DSCR < cfg.Alerts.DSCRCritical:
				alerts = append(alerts, CashAlert{
					Level:     SemaphoreRed,
					Period:    e.Label,
					Value:     e.DSCR,
					Threshold: cfg.Alerts.DSCRCritical,
					Message:   fmt.Sprintf("DSCR %.2f below critical threshold %.2f", e.DSCR, cfg.Alerts.DSCRCritical),
				})
			case e.DSCR < cfg.Alerts.DSCRWarning:
				alerts = append(alerts, CashAlert{
					Level:     SemaphoreYellow,
					Period:    e.Label,
					Value:     e.DSCR,
					Threshold: cfg.Alerts.DSCRWarning,
					Message:   fmt.Sprintf("DSCR %.2f below warning threshold %.2f", e.DSCR, cfg.Alerts.DSCRWarning),
				})
			}
		}
	}
	return alerts
}

// ── Financial helpers ─────────────────────────────────────────────────────────

// DSO is the average days to collect: receivables over period revenue times
// period days. 0 when revenue is 0.
func DSO(receivables, revenue decimal.Decimal, periodDays int) float64 {
	if revenue.IsZero() {
		return 0
	}
	v, _ := receivables.Div(revenue).Float64()
	return v * float64(periodDays)
}

// DPO is the average days to pay: payables over period purchases times
// period days. 0 when purchases are 0.
func DPO(payables, purchases decimal.Decimal, periodDays int) float64 {
	if purchases.IsZero() {
		return 0
	}
	v, _ := payables.Div(purchases).Float64()
	return v * float64(periodDays)
}

// CashCoverageMonths is available cash over average monthly outflows,
// infinite when outflows are 0.
func CashCoverageMonths(cash, avgMonthlyOutflow decimal.Decimal) float64 {
	if avgMonthlyOutflow.IsZero() {
		if cash.Sign() > 0 {
			return math.Inf(1)
		}
		return 0
	}
	v, _ := cash.Div(avgMonthlyOutflow).Float64()
	return v
}
