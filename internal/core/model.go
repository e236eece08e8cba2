package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ── Reference data ────────────────────────────────────────────────────────────

type StructureType string

const (
	StructureRSAAlzheimer   StructureType = "RSA_ALZHEIMER"
	StructureRSADependent   StructureType = "RSA_NON_AUTOSUFF"
	StructureCTAPsychiatry  StructureType = "CTA_PSICHIATRIA"
	StructureClinic         StructureType = "CASA_DI_CURA"
	StructureDaySurgery     StructureType = "DAY_SURGERY"
	StructureOutpatient     StructureType = "AMBULATORIO"
	StructureLab            StructureType = "LABORATORIO"
	StructureDayCenter      StructureType = "CENTRO_DIURNO"
	StructurePhysiotherapy  StructureType = "FKT"
	StructureCatering       StructureType = "RISTORAZIONE"
	StructureRehabilitation StructureType = "RIABILITAZIONE"
)

// OperatingUnit is immutable reference data for one operating unit of the
// group. Units with Operative=false exist only for holding-level bookkeeping
// and never receive allocated costs.
type OperatingUnit struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	StructureTypes []StructureType `json:"structure_types"`
	Region         string          `json:"region"`
	BedCount       int             `json:"bed_count"`
	Operative      bool            `json:"operative"`
	Company        string          `json:"company"`
}

// ── Periods ───────────────────────────────────────────────────────────────────

// Period identifies one calendar month in "MM/YYYY" form.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// ParsePeriod parses the "MM/YYYY" wire form used by every input table.
func ParsePeriod(s string) (Period, error) {
	var p Period
	if _, err := fmt.Sscanf(s, "%02d/%04d", &p.Month, &p.Year); err != nil {
		return Period{}, fmt.Errorf("invalid period %q: want MM/YYYY", s)
	}
	if p.Month < 1 || p.Month > 12 || p.Year < 1900 {
		return Period{}, fmt.Errorf("invalid period %q: month out of range", s)
	}
	return p, nil
}

func (p Period) String() string { return fmt.Sprintf("%02d/%04d", p.Month, p.Year) }

// Next returns the following calendar month.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// Days returns the number of calendar days in the period.
func (p Period) Days() int {
	first := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}

// Before reports chronological ordering.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// ── Ledger lines ──────────────────────────────────────────────────────────────

// RevenueLine is one revenue ledger row keyed by (unit, code, period).
type RevenueLine struct {
	UnitCode string          `json:"unit_code"`
	Code     string          `json:"code"`
	Period   Period          `json:"period"`
	Amount   decimal.Decimal `json:"amount"`
}

// DirectCostLine is one direct-cost ledger row keyed by (unit, code, period).
type DirectCostLine struct {
	UnitCode string          `json:"unit_code"`
	Code     string          `json:"code"`
	Period   Period          `json:"period"`
	Amount   decimal.Decimal `json:"amount"`
}

// CostSubCategory groups direct-cost catalog codes for statement subtotals.
type CostSubCategory string

const (
	SubCategoryPersonnel    CostSubCategory = "personnel"
	SubCategoryPurchases    CostSubCategory = "purchases"
	SubCategoryServices     CostSubCategory = "services"
	SubCategoryDepreciation CostSubCategory = "depreciation"
)

// RevenueGroup groups revenue catalog codes for statement subtotals.
type RevenueGroup string

const (
	RevenueConvention RevenueGroup = "convention"
	RevenuePrivate    RevenueGroup = "private"
	RevenueOther      RevenueGroup = "other"
)

// ── Shared costs & allocation ─────────────────────────────────────────────────

// CostCategory classifies a headquarters cost item for allocation purposes.
type CostCategory string

const (
	CategoryService     CostCategory = "SERVICE"     // allocated via designated driver
	CategoryGovernance  CostCategory = "GOVERNANCE"  // allocated pro-rata by revenue
	CategoryDevelopment CostCategory = "DEVELOPMENT" // stays at holding level
	CategoryLegacy      CostCategory = "LEGACY"      // unallocated, case-by-case
)

// SharedCostItem is one central-cost ledger entry. Category is resolved from
// the item code via the static configuration lookup, never computed.
type SharedCostItem struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Period      Period          `json:"period"`
}

// DriverType is a quantitative allocation basis for SERVICE cost items.
type DriverType string

const (
	DriverInvoices     DriverType = "invoices"
	DriverPayslips     DriverType = "payslips"
	DriverPurchases    DriverType = "purchases"
	DriverWorkstations DriverType = "workstations"
	DriverBeds         DriverType = "beds"
	DriverRevenue      DriverType = "revenue"
	DriverFixedQuota   DriverType = "fixed_quota"
)

// DriverValue is one row of the driver table: the raw consumption measure of
// one unit for one driver type and period.
type DriverValue struct {
	Driver   DriverType `json:"driver"`
	UnitCode string     `json:"unit_code"`
	Period   Period     `json:"period"`
	Value    float64    `json:"value"`
}

// ── Cash flow ─────────────────────────────────────────────────────────────────

type ScheduleKind string

const (
	KindCollection ScheduleKind = "collection"
	KindPayment    ScheduleKind = "payment"
)

type SchedulePriority string

const (
	PriorityNonDeferrable SchedulePriority = "non-deferrable"
	PriorityDeferrable    SchedulePriority = "deferrable"
)

// ScheduleItem is a single receivable or payable from the payment schedule.
// Amounts are always positive; Kind carries the direction.
type ScheduleItem struct {
	DueDate      time.Time       `json:"due_date"`
	Kind         ScheduleKind    `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Counterparty string          `json:"counterparty"`
	Category     string          `json:"category"`
	Note         string          `json:"note"`
}

// PersonnelRow is one row of the personnel table, used for the monthly
// payroll estimate.
type PersonnelRow struct {
	UnitCode        string          `json:"unit_code"`
	Qualification   string          `json:"qualification"`
	GrossPay        decimal.Decimal `json:"gross_pay"`
	EmployerCharges decimal.Decimal `json:"employer_charges"`
	FTE             float64         `json:"fte"`
}

// ProductionRow is one row of the monthly production table: delivered care
// volume of one unit, the basis for occupancy and per-day KPIs.
type ProductionRow struct {
	UnitCode  string  `json:"unit_code"`
	Period    Period  `json:"period"`
	CareDays  float64 `json:"care_days"`
	CareHours float64 `json:"care_hours"`
}

// CapexEntry is one planned investment outflow.
type CapexEntry struct {
	Year   int             `json:"year"`
	Amount decimal.Decimal `json:"amount"`
}

// ── KPI ───────────────────────────────────────────────────────────────────────

type Semaphore string

const (
	SemaphoreGreen  Semaphore = "GREEN"
	SemaphoreYellow Semaphore = "YELLOW"
	SemaphoreRed    Semaphore = "RED"
)

// GroupUnit is the pseudo-unit code carried by group-level KPIs.
const GroupUnit = "GROUP"

// KPI is one computed indicator with its semaphore classification.
type KPI struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	UnitCode  string    `json:"unit_code"` // GroupUnit for consolidated KPIs
	Period    string    `json:"period"`
	Value     float64   `json:"value"`
	Target    float64   `json:"target"`
	Formula   string    `json:"formula"`
	Semaphore Semaphore `json:"semaphore"`
}

// ── Input snapshot ────────────────────────────────────────────────────────────

// InputSnapshot is the fully materialized set of input tables for one run.
// The pipeline derives everything from it; nothing is read from ambient state
// during a computation. A nil table slice means the table was absent from the
// source, which is a structural error for the stages that require it; an
// empty non-nil slice is a present-but-empty table.
type InputSnapshot struct {
	Units          []OperatingUnit  `json:"units"`
	RevenueLines   []RevenueLine    `json:"revenue_lines"`
	DirectCosts    []DirectCostLine `json:"direct_costs"`
	SharedCosts    []SharedCostItem `json:"shared_costs"`
	DriverValues   []DriverValue    `json:"driver_values"`
	Schedule       []ScheduleItem   `json:"schedule"`
	Personnel      []PersonnelRow   `json:"personnel"`
	Production     []ProductionRow  `json:"production"`
	CapexPlan      []CapexEntry     `json:"capex_plan"`
	OpeningCash    decimal.Decimal  `json:"opening_cash"`
	BudgetRevenue  []RevenueLine    `json:"budget_revenue,omitempty"`
	BudgetCosts    []DirectCostLine `json:"budget_costs,omitempty"`
	IndirectCosts  []DirectCostLine `json:"indirect_costs,omitempty"` // AC01-AC03 rows, unit code blank
	AnnualDebtSvc  decimal.Decimal  `json:"annual_debt_service"`
	Receivables    decimal.Decimal  `json:"receivables"`       // open customer balances, public payer
	ReceivablesPvt decimal.Decimal  `json:"receivables_priv"`  // open customer balances, private
	Payables       decimal.Decimal  `json:"payables_supplier"` // open supplier balances
}
