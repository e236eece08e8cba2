package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"cdg-engine/internal/config"
	"cdg-engine/internal/core"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if len(cfg.Units) != 9 {
		t.Errorf("got %d units, want 9", len(cfg.Units))
	}
	for _, code := range []string{"VLB", "CTA", "COS", "KMC", "BRG", "ROM", "LAB", "BET", "ZAR"} {
		found := false
		for _, u := range cfg.Units {
			if u.Code == code {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("unit %s missing from defaults", code)
		}
	}

	if len(cfg.Revenue) != 7 || len(cfg.DirectCosts) != 15 || len(cfg.SharedCosts) != 9 {
		t.Errorf("catalog sizes = %d/%d/%d, want 7/15/9",
			len(cfg.Revenue), len(cfg.DirectCosts), len(cfg.SharedCosts))
	}

	if cat, ok := cfg.Category("CS04"); !ok || cat != core.CategoryService {
		t.Errorf("CS04 category = %s (%v), want SERVICE", cat, ok)
	}
	if cat, ok := cfg.Category("CS99"); ok || cat != core.CategoryLegacy {
		t.Errorf("unknown code category = %s (%v), want LEGACY fallback", cat, ok)
	}
	if cfg.SharedCosts["CS02"].Driver != core.DriverPayslips {
		t.Errorf("CS02 driver = %s, want payslips", cfg.SharedCosts["CS02"].Driver)
	}

	if th, ok := cfg.Threshold("dso_public"); !ok || !th.LowerIsBetter || th.Green != 120 {
		t.Errorf("dso_public threshold = %+v (%v)", th, ok)
	}
	if cfg.Alerts.CashFloor != 200_000 {
		t.Errorf("cash floor = %v, want 200000", cfg.Alerts.CashFloor)
	}
	if len(cfg.Scenarios) != 3 {
		t.Errorf("got %d scenarios, want 3", len(cfg.Scenarios))
	}
	if cfg.Scenarios["pessimistic"].CollectionDelayDays != 60 {
		t.Errorf("pessimistic delay = %d, want 60", cfg.Scenarios["pessimistic"].CollectionDelayDays)
	}
	if cfg.Payroll.WeeksPerMonth != 4.33 {
		t.Errorf("weeks per month = %v, want 4.33", cfg.Payroll.WeeksPerMonth)
	}
}

func TestLoad_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdg.yaml")
	doc := `
alerts:
  cash_floor: 150000
  min_coverage_days: 30
  max_dso_public: 150
  max_dso_private: 60
  max_dpo: 120
  dscr_warning: 1.1
  dscr_critical: 1.0
  max_personnel_pct: 0.60
  max_shared_cost_pct: 0.20
  min_occupancy: 0.80
thresholds:
  occupancy:
    green: 0.92
    yellow: 0.85
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Alerts.CashFloor != 150_000 {
		t.Errorf("overridden cash floor = %v, want 150000", cfg.Alerts.CashFloor)
	}
	if cfg.Thresholds["occupancy"].Green != 0.92 {
		t.Errorf("overridden occupancy green = %v, want 0.92", cfg.Thresholds["occupancy"].Green)
	}
	// Untouched defaults survive the overlay.
	if cfg.Thresholds["dscr"].Green != 1.2 {
		t.Errorf("dscr threshold lost in overlay: %v", cfg.Thresholds["dscr"].Green)
	}
	if len(cfg.Units) != 9 {
		t.Errorf("units lost in overlay: %d", len(cfg.Units))
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown key", doc: "cash_floorr: 1\n"},
		{name: "malformed yaml", doc: "alerts: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cdg.yaml")
			if err := os.WriteFile(path, []byte(tt.doc), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := config.Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
