// Package config builds the immutable core.Settings value for a run: the
// built-in defaults mirroring the group's current master data, optionally
// overlaid with a YAML file.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cdg-engine/internal/core"
)

// Load returns Default overlaid with the YAML file at path. Unknown keys in
// the file are an error so typos do not silently fall back to defaults.
func Load(path string) (*core.Settings, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *core.Settings {
	return &core.Settings{
		Units:       defaultUnits(),
		Revenue:     defaultRevenueCatalog(),
		DirectCosts: defaultDirectCostCatalog(),
		SharedCosts: defaultSharedCostCatalog(),
		Indirect: map[string]string{
			"AC01": "Central building and investment depreciation",
			"AC02": "Financial charges (debt share)",
			"AC03": "Taxes",
		},
		Thresholds: map[string]core.Threshold{
			"occupancy":        {Green: 0.90, Yellow: 0.80},
			"mol_industrial":   {Green: 0.15, Yellow: 0.10},
			"mol_consolidated": {Green: 0.12, Yellow: 0.08},
			"personnel_pct":    {Green: 0.55, Yellow: 0.60, LowerIsBetter: true},
			"shared_cost_pct":  {Green: 0.16, Yellow: 0.20, LowerIsBetter: true},
			"dscr":             {Green: 1.2, Yellow: 1.0},
			"dso_public":       {Green: 120, Yellow: 150, LowerIsBetter: true},
			"dso_private":      {Green: 48, Yellow: 60, LowerIsBetter: true},
			"dpo":              {Green: 96, Yellow: 120, LowerIsBetter: true},
			"cash_coverage":    {Green: 2.0, Yellow: 1.0},
		},
		Benchmarks: map[core.StructureType]core.Benchmark{
			core.StructureRSAAlzheimer:   {PersonnelPctMin: 55, PersonnelPctMax: 60, MOLPctMin: 12, MOLPctMax: 18, CostPerDayMin: 90, CostPerDayMax: 110},
			core.StructureRSADependent:   {PersonnelPctMin: 50, PersonnelPctMax: 55, MOLPctMin: 15, MOLPctMax: 20, CostPerDayMin: 80, CostPerDayMax: 100},
			core.StructureRehabilitation: {PersonnelPctMin: 45, PersonnelPctMax: 50, MOLPctMin: 18, MOLPctMax: 25, CostPerDayMin: 150, CostPerDayMax: 200},
			core.StructureCTAPsychiatry:  {PersonnelPctMin: 55, PersonnelPctMax: 60, MOLPctMin: 10, MOLPctMax: 15, CostPerDayMin: 120, CostPerDayMax: 150},
			core.StructureDaySurgery:     {PersonnelPctMin: 35, PersonnelPctMax: 40, MOLPctMin: 25, MOLPctMax: 35},
			core.StructureLab:            {PersonnelPctMin: 30, PersonnelPctMax: 35, MOLPctMin: 20, MOLPctMax: 30},
		},
		Alerts: core.Alerts{
			CashFloor:        200_000,
			MinCoverageDays:  30,
			MaxDSOPublic:     150,
			MaxDSOPrivate:    60,
			MaxDPO:           120,
			DSCRWarning:      1.1,
			DSCRCritical:     1.0,
			MaxPersonnelPct:  0.60,
			MaxSharedCostPct: 0.20,
			MinOccupancy:     0.80,
		},
		Fiscal: core.Fiscal{
			MonthlyWithholding: 35_000,
			QuarterlyVAT:       65_000,
			IncomeTaxAdvance:   125_000,
			IncomeTaxBalance:   187_000,
		},
		Scenarios: map[string]core.Scenario{
			"optimistic":  {Label: "Optimistic", CollectionDelayDays: 0, PayrollInflation: 0, ContingencyPct: 0, RevenueGrowthPct: 0.02},
			"base":        {Label: "Base", CollectionDelayDays: 30, PayrollInflation: 0, ContingencyPct: 0.02, RevenueGrowthPct: 0},
			"pessimistic": {Label: "Pessimistic", CollectionDelayDays: 60, PayrollInflation: 0.03, ContingencyPct: 0.05, RevenueGrowthPct: -0.03},
		},
		Payroll: core.PayrollParams{
			EmployerChargeRate:  0.33,
			DefaultMonthlyGross: 520_000,
			WeeksPerMonth:       4.33,
		},
		DefaultSupplierMonthly: 200_000,
	}
}

func defaultUnits() []core.OperatingUnit {
	return []core.OperatingUnit{
		{Code: "VLB", Name: "RSA Villabate", StructureTypes: []core.StructureType{core.StructureRSAAlzheimer}, Region: "Sicilia", BedCount: 44, Operative: true, Company: "Karol S.p.A."},
		{Code: "CTA", Name: "CTA Ex Stagno", StructureTypes: []core.StructureType{core.StructureCTAPsychiatry}, Region: "Sicilia", BedCount: 40, Operative: true, Company: "Karol S.p.A."},
		{Code: "COS", Name: "Casa di Cura Cosentino", StructureTypes: []core.StructureType{core.StructureClinic, core.StructureRehabilitation}, Region: "Sicilia", BedCount: 50, Operative: true, Company: "Karol S.p.A."},
		{Code: "KMC", Name: "Karol Medical Center", StructureTypes: []core.StructureType{core.StructureDaySurgery, core.StructureOutpatient}, Region: "Sicilia", Operative: true, Company: "Karol S.p.A."},
		{Code: "BRG", Name: "Borgo Ritrovato", StructureTypes: []core.StructureType{core.StructureRSADependent, core.StructurePhysiotherapy, core.StructureDayCenter}, Region: "Sicilia", Operative: true, Company: "Karol S.p.A."},
		{Code: "ROM", Name: "RSA Roma Santa Margherita", StructureTypes: []core.StructureType{core.StructureRehabilitation}, Region: "Lazio", BedCount: 77, Operative: true, Company: "Karol S.p.A."},
		{Code: "LAB", Name: "Karol Lab", StructureTypes: []core.StructureType{core.StructureLab}, Region: "Sicilia", Operative: true, Company: "Karol S.p.A."},
		{Code: "BET", Name: "Karol Betania", StructureTypes: []core.StructureType{core.StructureRSADependent, core.StructureRehabilitation}, Region: "Calabria", Operative: true, Company: "Karol Betania S.r.l."},
		{Code: "ZAR", Name: "Zaharaziz", StructureTypes: []core.StructureType{core.StructureCatering}, Region: "Sicilia", Operative: true, Company: "Karol S.p.A."},
	}
}

func defaultRevenueCatalog() map[string]core.RevenueEntry {
	return map[string]core.RevenueEntry{
		"R01": {Name: "Public convention revenue - Inpatient", Group: core.RevenueConvention},
		"R02": {Name: "Public convention revenue - Outpatient", Group: core.RevenueConvention},
		"R03": {Name: "Public convention revenue - Laboratory", Group: core.RevenueConvention},
		"R04": {Name: "Private revenue - Inpatient", Group: core.RevenuePrivate},
		"R05": {Name: "Private revenue - Comfort packages", Group: core.RevenuePrivate},
		"R06": {Name: "Private revenue - Outpatient/Laboratory", Group: core.RevenuePrivate},
		"R07": {Name: "Other revenue (rents, refunds, grants)", Group: core.RevenueOther},
	}
}

func defaultDirectCostCatalog() map[string]core.DirectCostEntry {
	return map[string]core.DirectCostEntry{
		"CD01": {Name: "Personnel - Physicians", SubCategory: core.SubCategoryPersonnel},
		"CD02": {Name: "Personnel - Nurses", SubCategory: core.SubCategoryPersonnel},
		"CD03": {Name: "Personnel - Care aides", SubCategory: core.SubCategoryPersonnel},
		"CD04": {Name: "Personnel - Technicians", SubCategory: core.SubCategoryPersonnel},
		"CD05": {Name: "Personnel - Site administration", SubCategory: core.SubCategoryPersonnel},
		"CD10": {Name: "Drugs and medical supplies", SubCategory: core.SubCategoryPurchases},
		"CD11": {Name: "Diagnostic material", SubCategory: core.SubCategoryPurchases},
		"CD12": {Name: "Catering (in-house)", SubCategory: core.SubCategoryPurchases},
		"CD13": {Name: "Other consumables", SubCategory: core.SubCategoryPurchases},
		"CD20": {Name: "Laundry", SubCategory: core.SubCategoryServices},
		"CD21": {Name: "Cleaning", SubCategory: core.SubCategoryServices},
		"CD22": {Name: "Ordinary maintenance", SubCategory: core.SubCategoryServices},
		"CD23": {Name: "Utilities (site share)", SubCategory: core.SubCategoryServices},
		"CD24": {Name: "External clinical consulting", SubCategory: core.SubCategoryServices},
		"CD30": {Name: "Equipment and furniture depreciation", SubCategory: core.SubCategoryDepreciation},
	}
}

func defaultSharedCostCatalog() map[string]core.SharedCostEntry {
	return map[string]core.SharedCostEntry{
		"CS01": {Name: "Accounting/Administration", Category: core.CategoryService, Driver: core.DriverInvoices},
		"CS02": {Name: "Payroll/HR", Category: core.CategoryService, Driver: core.DriverPayslips},
		"CS03": {Name: "Central purchasing", Category: core.CategoryService, Driver: core.DriverPurchases},
		"CS04": {Name: "IT/Information systems", Category: core.CategoryService, Driver: core.DriverWorkstations},
		"CS05": {Name: "Quality/Compliance", Category: core.CategoryService, Driver: core.DriverBeds},
		"CS10": {Name: "General management", Category: core.CategoryGovernance, Driver: core.DriverRevenue},
		"CS11": {Name: "Legal affairs", Category: core.CategoryGovernance, Driver: core.DriverFixedQuota},
		"CS12": {Name: "Strategy/Development", Category: core.CategoryDevelopment},
		"CS20": {Name: "Common non-allocable costs", Category: core.CategoryLegacy},
	}
}
