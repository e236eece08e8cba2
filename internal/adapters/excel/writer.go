package excel

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"cdg-engine/internal/app"
	"cdg-engine/internal/core"
)

// Report sheet names.
const (
	SheetOutIndustrial = "CE_Industriale"
	SheetOutAllocation = "Allocazione"
	SheetOutManagerial = "CE_Gestionale"
	SheetOutErosion    = "Erosione_MOL"
	SheetOutCashFlow   = "Cash_Flow"
	SheetOutAlerts     = "Alert"
	SheetOutScenarios  = "Scenari"
	SheetOutKPI        = "KPI"
	SheetOutAnomalies  = "Anomalie"
)

// WriteReport builds the output workbook for one run and saves it at path.
// Any of the result sections may be nil; its sheets are simply omitted.
func WriteReport(path string, period *app.PeriodResult, cash *app.CashFlowResult, scenarios *app.ScenariosResult, kpis *app.KPIResult) error {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	addSheet := func(name string) (*sheetWriter, error) {
		if first {
			first = false
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		return &sheetWriter{f: f, sheet: name}, nil
	}

	if period != nil {
		if err := writePeriodSheets(addSheet, period); err != nil {
			return err
		}
	}
	if cash != nil {
		if err := writeCashFlowSheets(addSheet, cash); err != nil {
			return err
		}
	}
	if scenarios != nil {
		if err := writeScenarioSheet(addSheet, scenarios); err != nil {
			return err
		}
	}
	if kpis != nil {
		if err := writeKPISheet(addSheet, kpis); err != nil {
			return err
		}
	}
	if err := writeAnomalySheet(addSheet, period, cash, scenarios, kpis); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writePeriodSheets(addSheet func(string) (*sheetWriter, error), res *app.PeriodResult) error {
	w, err := addSheet(SheetOutIndustrial)
	if err != nil {
		return err
	}
	w.row("Unita", "Voce", "Codice", "Importo")
	for _, code := range sortedStatementCodes(res.Industrial) {
		st := res.Industrial[code]
		for _, l := range st.RevenueLines {
			w.row(st.UnitCode, "Ricavo", l.Code, money(l.Amount))
		}
		for _, l := range st.CostLines {
			w.row(st.UnitCode, "Costo", l.Code, money(l.Amount))
		}
		w.row(st.UnitCode, "Totale ricavi", "", money(st.TotalRevenue))
		w.row(st.UnitCode, "Totale costi diretti", "", money(st.TotalDirect))
		w.row(st.UnitCode, "MOL industriale", "", money(st.MOLIndustrial))
	}
	if g := res.IndustrialGroup; g != nil {
		w.row(g.UnitCode, "Totale ricavi", "", money(g.TotalRevenue))
		w.row(g.UnitCode, "Totale costi diretti", "", money(g.TotalDirect))
		w.row(g.UnitCode, "MOL industriale", "", money(g.MOLIndustrial))
	}

	if w, err = addSheet(SheetOutAllocation); err != nil {
		return err
	}
	w.row("Voce", "Categoria", "Driver", "Unita", "Percentuale", "Importo")
	for _, item := range res.Allocation.Items {
		for _, share := range item.Shares {
			w.row(item.Item.Code, string(item.Category), string(item.Driver),
				share.UnitCode, share.Percentage, money(share.Amount))
		}
		if !item.Unallocated.IsZero() {
			w.row(item.Item.Code, string(item.Category), string(item.Driver),
				"NON ALLOCATO", 0.0, money(item.Unallocated))
		}
	}

	if w, err = addSheet(SheetOutManagerial); err != nil {
		return err
	}
	w.row("Unita", "Ricavi", "Costi diretti", "MOL industriale",
		"Costi sede allocati", "Costi indiretti", "MOL gestionale", "Margine %", "Risultato netto")
	for _, code := range sortedManagerialCodes(res.Managerial) {
		st := res.Managerial[code]
		w.row(st.UnitCode, money(st.TotalRevenue), money(st.TotalDirect), money(st.MOLIndustrial),
			money(st.AllocatedShared), money(st.TotalIndirect), money(st.MOLManagerial),
			st.MarginPct, money(st.NetResult))
	}
	if g := res.ManagerialGroup; g != nil {
		w.row(g.UnitCode, money(g.TotalRevenue), money(g.TotalDirect), money(g.MOLIndustrial),
			money(g.AllocatedShared), money(g.TotalIndirect), money(g.MOLManagerial),
			g.MarginPct, money(g.NetResult))
	}

	if w, err = addSheet(SheetOutErosion); err != nil {
		return err
	}
	w.row("Unita", "MOL industriale", "MOL gestionale", "Erosione", "Erosione %", "Sede su ricavi")
	for _, e := range res.Erosion {
		w.row(e.UnitCode, money(e.MOLIndustrial), money(e.MOLManagerial),
			money(e.Erosion), e.ErosionPct, e.SharedCostOnRev)
	}
	return nil
}

func writeCashFlowSheets(addSheet func(string) (*sheetWriter, error), res *app.CashFlowResult) error {
	w, err := addSheet(SheetOutCashFlow)
	if err != nil {
		return err
	}
	w.row("Periodo", "Apertura", "Incassi", "Personale", "Fornitori",
		"Fiscale", "Investimenti", "Flusso netto", "Chiusura", "DSCR")
	for _, e := range res.Projection.Entries {
		w.row(e.Label, money(e.Opening), money(e.Inflows), money(e.Personnel), money(e.Suppliers),
			money(e.Fiscal), money(e.Investment), money(e.NetFlow), money(e.Closing), e.DSCR)
	}
	w.row("Burn rate mensile", res.Projection.BurnRateMonthly)
	w.row("Runway (mesi)", res.Projection.RunwayMonths)

	if w, err = addSheet(SheetOutAlerts); err != nil {
		return err
	}
	w.row("Livello", "Periodo", "Valore", "Soglia", "Messaggio")
	for _, a := range res.Projection.Alerts {
		w.row(string(a.Level), a.Period, a.Value, a.Threshold, a.Message)
	}
	return nil
}

func writeScenarioSheet(addSheet func(string) (*sheetWriter, error), res *app.ScenariosResult) error {
	w, err := addSheet(SheetOutScenarios)
	if err != nil {
		return err
	}
	w.row("Scenario", "Periodo", "Flusso netto", "Chiusura", "Alert critici")
	for _, sc := range res.Scenarios {
		critical := 0
		for _, a := range sc.Projection.Alerts {
			if a.Level == core.SemaphoreRed {
				critical++
			}
		}
		for _, e := range sc.Projection.Entries {
			w.row(sc.Label, e.Label, money(e.NetFlow), money(e.Closing), critical)
		}
	}
	return nil
}

func writeKPISheet(addSheet func(string) (*sheetWriter, error), res *app.KPIResult) error {
	w, err := addSheet(SheetOutKPI)
	if err != nil {
		return err
	}
	w.row("Codice", "Nome", "Unita", "Periodo", "Valore", "Target", "Semaforo")
	for _, k := range res.All() {
		w.row(k.Code, k.Name, k.UnitCode, k.Period, k.Value, k.Target, string(k.Semaphore))
	}
	return nil
}

func writeAnomalySheet(addSheet func(string) (*sheetWriter, error), period *app.PeriodResult, cash *app.CashFlowResult, scenarios *app.ScenariosResult, kpis *app.KPIResult) error {
	var reports []*core.RunReport
	if period != nil {
		reports = append(reports, period.Report)
	}
	if cash != nil {
		reports = append(reports, cash.Report)
	}
	if scenarios != nil {
		reports = append(reports, scenarios.Report)
	}
	if kpis != nil {
		reports = append(reports, kpis.Report)
	}
	if len(reports) == 0 {
		return nil
	}

	w, err := addSheet(SheetOutAnomalies)
	if err != nil {
		return err
	}
	w.row("Run", "Tipo", "Fase", "Codice", "Unita", "Messaggio")
	for _, r := range reports {
		if r == nil {
			continue
		}
		for _, a := range r.Anomalies {
			w.row(r.RunID, string(a.Kind), a.Stage, a.Code, a.Unit, a.Message)
		}
	}
	return nil
}

// sheetWriter appends rows to one sheet, tracking the next free row. Cell
// errors surface on the eventual SaveAs, so row writing stays fluent.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
}

func (w *sheetWriter) row(values ...any) {
	w.next++
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.next)
		if err != nil {
			continue
		}
		_ = w.f.SetCellValue(w.sheet, cell, v)
	}
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func sortedStatementCodes(m map[string]*core.IndustrialStatement) []string {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func sortedManagerialCodes(m map[string]*core.ManagerialStatement) []string {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
