// Command seed generates a demo master workbook with a full set of input
// sheets, so the pipeline can be exercised without real data.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/xuri/excelize/v2"

	"cdg-engine/internal/adapters/excel"
)

type sheet struct {
	name string
	rows [][]any
}

func main() {
	path := "master_demo.xlsx"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	sheets := []sheet{
		{excel.SheetUnits, append([][]any{
			{"Codice", "Nome", "Tipologie", "Regione", "Posti", "Operativa", "Societa"},
		}, unitRows()...)},
		{excel.SheetRevenue, append([][]any{
			{"Unita", "Codice", "Periodo", "Importo"},
		}, revenueRows()...)},
		{excel.SheetCosts, append([][]any{
			{"Unita", "Codice", "Periodo", "Importo"},
		}, costRows()...)},
		{excel.SheetShared, [][]any{
			{"Codice", "Descrizione", "Periodo", "Importo"},
			{"CS01", "Direzione generale", "01/2025", 18000},
			{"CS02", "Amministrazione del personale", "01/2025", 14000},
			{"CS04", "Sistemi informativi", "01/2025", 12000},
			{"CS10", "Organi societari", "01/2025", 9000},
			{"CS12", "Progetti di sviluppo", "01/2025", 7000},
		}},
		{excel.SheetDrivers, [][]any{
			{"Driver", "Unita", "Periodo", "Valore"},
			{"invoices", "VLB", "01/2025", 120},
			{"invoices", "COS", "01/2025", 90},
			{"invoices", "BRG", "01/2025", 60},
			{"payslips", "VLB", "01/2025", 85},
			{"payslips", "COS", "01/2025", 70},
			{"payslips", "BRG", "01/2025", 40},
			{"workstations", "VLB", "01/2025", 30},
			{"workstations", "COS", "01/2025", 25},
			{"workstations", "BRG", "01/2025", 15},
		}},
		{excel.SheetSchedule, [][]any{
			{"Scadenza", "Tipo", "Importo", "Controparte", "Categoria", "Nota"},
			{"08/01/2025", "Incasso", 250000, "ASP Palermo", "Crediti SSR", ""},
			{"15/01/2025", "Incasso", 80000, "Regione Sicilia", "Crediti SSR", ""},
			{"10/01/2025", "Pagamento", 60000, "Pharma Sud", "Fornitori", ""},
			{"20/01/2025", "Pagamento", 35000, "Medical Supplies Srl", "Fornitori", ""},
			{"27/01/2025", "Pagamento", 18000, "Banca Etna", "Rata mutuo", ""},
			{"05/02/2025", "Incasso", 220000, "ASP Palermo", "Crediti SSR", ""},
			{"12/02/2025", "Pagamento", 55000, "Pharma Sud", "Fornitori", ""},
		}},
		{excel.SheetPersonnel, [][]any{
			{"Unita", "Qualifica", "Lordo", "Oneri", "FTE"},
			{"VLB", "Infermiere", 145000, 47850, 62},
			{"VLB", "OSS", 90000, 29700, 48},
			{"COS", "Infermiere", 110000, 36300, 45},
			{"BRG", "Educatore", 65000, 21450, 28},
		}},
		{excel.SheetProduction, [][]any{
			{"Unita", "Periodo", "Giornate", "Ore"},
			{"VLB", "01/2025", 3600, 9200},
			{"COS", "01/2025", 1400, 3600},
			{"BRG", "01/2025", 1100, 2800},
		}},
		{excel.SheetCapex, [][]any{
			{"Anno", "Importo"},
			{2025, 240000},
		}},
		{excel.SheetIndirect, [][]any{
			{"Codice", "Periodo", "Importo"},
			{"AC01", "01/2025", 26000},
			{"AC02", "01/2025", 11000},
		}},
		{excel.SheetTreasury, [][]any{
			{"Voce", "Importo"},
			{"Cassa_Iniziale", 420000},
			{"Servizio_Debito_Annuo", 216000},
			{"Crediti_Pubblici", 1150000},
			{"Crediti_Privati", 140000},
			{"Debiti_Fornitori", 380000},
		}},
	}

	if err := writeWorkbook(path, sheets); err != nil {
		log.Fatalf("seed: %v", err)
	}
	fmt.Println("Demo workbook written to", path)
}

func unitRows() [][]any {
	return [][]any{
		{"VLB", "Villa Belfiore", "RSA", "Sicilia", 120, "SI", "CDG Care"},
		{"CTA", "Centro Terapie Avanzate", "CTA", "Sicilia", 40, "SI", "CDG Care"},
		{"COS", "Villa Costanza", "RSA, CTA", "Sicilia", 50, "SI", "CDG Care"},
		{"KMC", "Kimaco", "AMB", "Sicilia", 0, "SI", "CDG Med"},
		{"BRG", "Borgo Sereno", "CDI", "Sicilia", 35, "SI", "CDG Care"},
		{"ROM", "Residenza Romagnolo", "RSA", "Sicilia", 80, "SI", "CDG Care"},
		{"LAB", "Laboratorio Analisi", "LAB", "Sicilia", 0, "NO", "CDG Diagnostica"},
		{"BET", "Betania", "CTA", "Sicilia", 24, "SI", "CDG Care"},
		{"ZAR", "Zarcle", "AMB", "Sicilia", 0, "NO", "CDG Med"},
	}
}

func revenueRows() [][]any {
	return [][]any{
		{"VLB", "R01", "01/2025", 520000},
		{"VLB", "R04", "01/2025", 45000},
		{"CTA", "R02", "01/2025", 160000},
		{"COS", "R01", "01/2025", 210000},
		{"COS", "R04", "01/2025", 22000},
		{"KMC", "R05", "01/2025", 95000},
		{"BRG", "R02", "01/2025", 130000},
		{"ROM", "R01", "01/2025", 340000},
		{"LAB", "R03", "01/2025", 75000},
		{"BET", "R02", "01/2025", 88000},
	}
}

func costRows() [][]any {
	return [][]any{
		{"VLB", "CD01", "01/2025", 260000},
		{"VLB", "CD10", "01/2025", 65000},
		{"VLB", "CD23", "01/2025", 18000},
		{"CTA", "CD01", "01/2025", 90000},
		{"COS", "CD01", "01/2025", 115000},
		{"COS", "CD11", "01/2025", 24000},
		{"KMC", "CD04", "01/2025", 52000},
		{"BRG", "CD01", "01/2025", 72000},
		{"ROM", "CD01", "01/2025", 185000},
		{"ROM", "CD10", "01/2025", 41000},
		{"LAB", "CD04", "01/2025", 46000},
		{"BET", "CD01", "01/2025", 51000},
	}
}

func writeWorkbook(path string, sheets []sheet) error {
	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return err
		}
		for r, row := range s.rows {
			for c, v := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(s.name, cell, v); err != nil {
					return err
				}
			}
		}
	}
	return f.SaveAs(path)
}
